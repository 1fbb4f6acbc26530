package files

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidateIgnorePatterns checks that all the given glob patterns are valid.
func ValidateIgnorePatterns(globs []string) error {
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("invalid ignore pattern: %q", g)
		}
	}
	return nil
}

// FilterIgnored removes from the given file paths any path that matches at least one of the
// given doublestar glob patterns (e.g. "**/*.lock" or "docs/**"). Paths and patterns are
// compared relative to the repository's root. The order of the remaining paths is preserved.
func FilterIgnored(paths, globs []string) []string {
	if len(globs) == 0 {
		return paths
	}

	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if !ignored(strings.TrimPrefix(p, "/"), globs) {
			kept = append(kept, p)
		}
	}
	return kept
}

func ignored(path string, globs []string) bool {
	for _, g := range globs {
		if doublestar.MatchUnvalidated(strings.TrimPrefix(g, "/"), path) {
			return true
		}
	}
	return false
}
