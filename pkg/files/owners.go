package files

import (
	"slices"
)

// Ownership is the resolved ownership of all the files changed in a PR.
type Ownership struct {
	// Files lists the changed files, in their original order.
	Files []string
	// Owners maps each changed file to the owners of its best-matching rule.
	// Files without a matching rule are mapped to an empty slice.
	Owners map[string][]Owner
}

// Resolve maps each of the given changed files to its code owners.
func Resolve(rules []Rule, changedFiles []string, teamPrefix string) *Ownership {
	o := &Ownership{
		Files:  slices.Clone(changedFiles),
		Owners: make(map[string][]Owner, len(changedFiles)),
	}

	for _, path := range changedFiles {
		tokens := OwnersOf(rules, path)
		owners := make([]Owner, 0, len(tokens))
		for _, t := range tokens {
			owners = append(owners, ParseOwner(t, teamPrefix))
		}
		o.Owners[path] = owners
	}

	return o
}

// RelevantTeams returns the slugs of all the teams that own at least one of the
// changed files, without repetitions, in order of first appearance. These are the
// only teams whose membership needs to be checked.
func (o *Ownership) RelevantTeams() []string {
	var teams []string
	for _, path := range o.Files {
		for _, owner := range o.Owners[path] {
			if owner.IsTeam() && !slices.Contains(teams, owner.Team) {
				teams = append(teams, owner.Team)
			}
		}
	}
	return teams
}

// OwnedBy returns the changed files that are owned by the given user, directly or through
// one of their teams, according to the given membership check. It also returns the teams
// (as owner tokens) that granted ownership. For each file, the first owner token that matches
// the user is the only one that counts, so direct ownership in a rule that lists the user
// before the team does not add that team to the result.
func (o *Ownership) OwnedBy(login string, isMember func(team string) bool) (files, viaTeams []string) {
	for _, path := range o.Files {
		for _, owner := range o.Owners[path] {
			if owner.IsUser(login) {
				files = append(files, path)
				break
			}
			if owner.IsTeam() && isMember(owner.Team) {
				files = append(files, path)
				if !slices.Contains(viaTeams, owner.Token) {
					viaTeams = append(viaTeams, owner.Token)
				}
				break
			}
		}
	}

	return files, viaTeams
}
