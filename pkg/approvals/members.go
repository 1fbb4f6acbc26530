package approvals

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tzrikka/unapprove/internal/cache"
	"github.com/tzrikka/unapprove/internal/logger"
	"github.com/tzrikka/unapprove/internal/otel"
)

// DefaultConcurrency limits the number of parallel lookups in a run.
const DefaultConcurrency = 8

// TeamOracle checks whether a user is a member of a team.
type TeamOracle interface {
	IsTeamMember(ctx context.Context, user, team string) (bool, error)
}

type membership struct {
	user, team string
}

// Memberships wraps a [TeamOracle] with a per-run cache. Each (user, team) pair
// is queried at most once, even when concurrent callers ask about the same pair.
// Lookup failures count as "not a member": the worst outcome of this is keeping an
// approval which could have been dismissed, never dismissing one incorrectly.
type Memberships struct {
	oracle TeamOracle
	cache  *cache.Cache[membership, bool]
}

// NewMemberships returns an empty per-run membership cache around the given oracle.
func NewMemberships(o TeamOracle) *Memberships {
	return &Memberships{oracle: o, cache: cache.New[membership, bool]()}
}

// IsMember reports whether the user is a member of the team.
func (m *Memberships) IsMember(ctx context.Context, user, team string) bool {
	isMember, err := m.cache.Load(membership{user: user, team: team}, func() (bool, error) {
		otel.IncrementCounter(ctx, "teams.lookups", 1, map[string]string{"team": team})
		return m.oracle.IsTeamMember(ctx, user, team)
	})
	if err != nil {
		logger.FromContext(ctx).Warn("failed to check team membership - assuming not a member",
			slog.Any("error", err), slog.String("user", user), slog.String("team", team))
		return false
	}
	return isMember
}

// Prefetch resolves the membership of all the given users in all the given teams in parallel.
func (m *Memberships) Prefetch(ctx context.Context, users, teams []string, limit int) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, u := range users {
		for _, t := range teams {
			g.Go(func() error {
				if m.IsMember(ctx, u, t) {
					logger.FromContext(ctx).Debug("team membership", slog.String("user", u), slog.String("team", t))
				}
				return nil
			})
		}
	}
	_ = g.Wait()
}

// queries returns the number of distinct (user, team) pairs that were looked up.
func (m *Memberships) queries() int {
	return m.cache.Len()
}
