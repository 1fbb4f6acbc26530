package github

import (
	"context"
	"strings"
)

// IsTeamMember checks whether a user is an active member of a team. The team is
// either a slug in the organization that owns the PR's repository, or an "org/slug"
// pair. Pending invitations don't count, and neither do unknown users or teams.
func (p *PullRequest) IsTeamMember(ctx context.Context, user, team string) (bool, error) {
	org, slug, found := strings.Cut(team, "/")
	if !found {
		org, slug = p.Owner, team
	}

	m, _, err := p.client.Teams.GetTeamMembershipBySlug(ctx, org, slug, user)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return m.GetState() == "active", nil
}
