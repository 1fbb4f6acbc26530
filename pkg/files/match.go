package files

import (
	"regexp"
	"strings"

	"github.com/tzrikka/unapprove/internal/cache"
)

// patterns memoizes compiled wildcard patterns, which are
// evaluated for every (changed file, rule) pair in a run.
var patterns = cache.New[string, *regexp.Regexp]()

// Match reports whether a file path matches a rule's path pattern:
//   - "*" matches everything
//   - A pattern with a trailing "/" matches everything under that directory
//   - Any other "*" matches any sequence of characters, including "/",
//     and the pattern must match the entire path as a regular expression
//     (a pattern which is not a valid regular expression matches nothing)
//   - A plain pattern matches the exact file, or everything under
//     a directory with that name
//
// Both the path and the pattern are anchored to the repository's root.
func Match(filePath, pattern string) bool {
	filePath = normalize(filePath)
	normalized := normalize(pattern)

	switch {
	case pattern == "*":
		return true
	case normalized == filePath:
		return true
	case strings.HasSuffix(pattern, "/"):
		return strings.HasPrefix(filePath, normalized)
	case strings.Contains(pattern, "*"):
		re, err := patterns.Load(normalized, func() (*regexp.Regexp, error) {
			return compileWildcard(normalized)
		})
		return err == nil && re.MatchString(filePath)
	default:
		return strings.HasPrefix(filePath, normalized+"/")
	}
}

func normalize(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// compileWildcard converts a pattern into an anchored regular expression, in which
// each "*" matches any sequence of characters. All other characters keep their
// regular expression meaning, e.g. "." matches any single character.
func compileWildcard(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^" + strings.ReplaceAll(pattern, "*", ".*") + "$")
}
