package files

import (
	"strings"
)

// Rule is a single line in a "CODEOWNERS" file: a path pattern, followed by one or more
// owner tokens. Owner tokens are kept as-is, they are validated only during resolution.
type Rule struct {
	Pattern string
	Owners  []string
}

// ParseCodeOwnersFile converts the content of a "CODEOWNERS" file into rules, in file order.
// Blank lines and comment lines are ignored, and so are lines without any owners.
func ParseCodeOwnersFile(fileContent string) []Rule {
	var rules []Rule
	for line := range strings.Lines(fileContent) {
		if r, ok := parseCodeOwnersLine(line); ok {
			rules = append(rules, r)
		}
	}
	return rules
}

func parseCodeOwnersLine(line string) (Rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Rule{}, false
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Rule{}, false
	}

	return Rule{Pattern: fields[0], Owners: fields[1:]}, true
}

// Owner is a parsed owner token. A token may refer to a user ("@" + login),
// to a team (team prefix + slug), to both (when the team prefix is "@"),
// or to neither (e.g. an email address or a stray number), in which case
// it never grants ownership to anyone.
type Owner struct {
	Token string
	User  string
	Team  string
}

// ParseOwner classifies an owner token once, so that resolution
// and decision code never have to deal with raw prefixes.
func ParseOwner(token, teamPrefix string) Owner {
	o := Owner{Token: token}
	if login, ok := strings.CutPrefix(token, "@"); ok && login != "" {
		o.User = login
	}
	if teamPrefix != "" {
		if slug, ok := strings.CutPrefix(token, teamPrefix); ok && slug != "" {
			o.Team = slug
		}
	}
	return o
}

// IsUser reports whether this token names the given user directly.
func (o Owner) IsUser(login string) bool {
	return o.User != "" && o.User == login
}

// IsTeam reports whether this token refers to a team.
func (o Owner) IsTeam() bool {
	return o.Team != ""
}

// OwnersOf returns the owner tokens of the rule with the longest pattern that matches
// the given file path, or nil if no rule matches. If several matching rules have the
// same pattern length, the first one in file order wins.
func OwnersOf(rules []Rule, filePath string) []string {
	best, bestLen := -1, -1
	for i, r := range rules {
		if Match(filePath, r.Pattern) && len(r.Pattern) > bestLen {
			best, bestLen = i, len(r.Pattern)
		}
	}

	if best < 0 {
		return nil
	}
	return rules[best].Owners
}
