package config

import (
	"fmt"
	"strings"
)

// SplitRepository splits a GitHub repository name in the format "owner/repo".
func SplitRepository(fullName string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf(`%w: GitHub repository must be in the format "owner/repo": %q`, ErrConfiguration, fullName)
	}
	return owner, repo, nil
}

// SplitLines converts a newline-separated list into a slice, without empty
// lines. It returns nil if the input is empty, and an empty slice if the
// input is not empty but it does not contain any non-empty lines.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}

	lines := []string{}
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// IsDryRun reports whether a "dry-run" value means that reviews must not be
// dismissed. Only the exact value "false" enables dismissals, anything else
// (including "0", "no", "False", or an empty string) keeps the dry-run mode.
func IsDryRun(s string) bool {
	return s != "false"
}
