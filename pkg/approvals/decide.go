package approvals

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tzrikka/unapprove/internal/logger"
	"github.com/tzrikka/unapprove/pkg/files"
)

const (
	ReasonAuthoredChanges = "Code owner who authored changes"
	reasonStalePrefix     = "Approval became stale - commits modified owned files: "
)

// Input is everything that the [Engine] needs to know about a PR.
type Input struct {
	Ownership *files.Ownership
	Reviews   []Review
	Commits   []Commit
}

// Engine decides which approvals to dismiss. Its only side effects are
// the lookups in its caches, which are shared by all reviewers in a run.
type Engine struct {
	Teams       *Memberships
	Commits     *CommitFiles
	Concurrency int
}

// NewEngine initializes an [Engine] with fresh per-run caches.
func NewEngine(o TeamOracle, src CommitSource) *Engine {
	return &Engine{
		Teams:       NewMemberships(o),
		Commits:     NewCommitFiles(src),
		Concurrency: DefaultConcurrency,
	}
}

// Decide returns a [Decision] for each reviewer who approved the PR, in order of
// their first approval in the input. The result is deterministic for the same input.
func (e *Engine) Decide(ctx context.Context, in Input) []Decision {
	approvals := Approvals(in.Reviews)
	reviewers := Reviewers(approvals)
	if len(reviewers) == 0 {
		return nil
	}

	teams := in.Ownership.RelevantTeams()
	e.Teams.Prefetch(ctx, reviewers, teams, e.Concurrency)
	logger.FromContext(ctx).Debug("resolved team memberships", slog.Int("reviewers", len(reviewers)),
		slog.Int("teams", len(teams)), slog.Int("lookups", e.Teams.queries()))

	authors := map[string]bool{}
	for _, c := range in.Commits {
		if c.Author != "" {
			authors[c.Author] = true
		}
	}

	ds := make([]Decision, 0, len(reviewers))
	for _, r := range reviewers {
		ds = append(ds, e.decide(ctx, in, r, approvals, authors[r]))
	}
	return ds
}

func (e *Engine) decide(ctx context.Context, in Input, reviewer string, approvals []Review, isAuthor bool) Decision {
	d := Decision{Reviewer: reviewer, AuthoredCommits: isAuthor}
	for _, a := range approvals {
		if a.Reviewer == reviewer {
			d.ReviewIDs = append(d.ReviewIDs, a.ID)
		}
	}

	d.OwnedFiles, d.ViaTeams = in.Ownership.OwnedBy(reviewer, func(team string) bool {
		return e.Teams.IsMember(ctx, reviewer, team)
	})
	if !d.IsCodeOwner() {
		return d
	}

	latest, _ := LatestApproval(approvals, reviewer)
	d.LatestApproval = latest.SubmittedAt

	after := CommitsAfter(in.Commits, latest.SubmittedAt)
	if len(after) > 0 {
		d.TriggerCommit = &after[len(after)-1]
		e.Commits.Prefetch(ctx, after, e.Concurrency)
	}

	for _, c := range after {
		for _, path := range e.Commits.Files(ctx, c.SHA) {
			if slices.Contains(d.OwnedFiles, path) && !slices.Contains(d.AffectedFiles, path) {
				d.AffectedFiles = append(d.AffectedFiles, path)
			}
		}
	}
	d.StaleApproval = len(d.AffectedFiles) > 0

	switch {
	case d.AuthoredCommits:
		d.Dismiss, d.Reason = true, ReasonAuthoredChanges
	case d.StaleApproval:
		d.Dismiss, d.Reason = true, reasonStalePrefix+strings.Join(d.AffectedFiles, ", ")
	}

	return d
}

// Approvals returns only the approved reviews, in their original order.
func Approvals(reviews []Review) []Review {
	var approvals []Review
	for _, r := range reviews {
		if r.State == StateApproved {
			approvals = append(approvals, r)
		}
	}
	return approvals
}

// Reviewers returns the distinct reviewers of the given reviews, in order of first appearance.
func Reviewers(reviews []Review) []string {
	var rs []string
	for _, r := range reviews {
		if !slices.Contains(rs, r.Reviewer) {
			rs = append(rs, r.Reviewer)
		}
	}
	return rs
}

// LatestApproval returns the most recent approval of the given reviewer.
// If several approvals share the same time, the first one in the input wins.
func LatestApproval(approvals []Review, reviewer string) (Review, bool) {
	var latest Review
	found := false
	for _, a := range approvals {
		if a.Reviewer != reviewer {
			continue
		}
		if !found || a.SubmittedAt.After(latest.SubmittedAt) {
			latest, found = a, true
		}
	}
	return latest, found
}

// CommitsAfter returns the commits whose time is strictly after t, in their original order.
func CommitsAfter(commits []Commit, t time.Time) []Commit {
	var after []Commit
	for _, c := range commits {
		if c.CommittedAt.After(t) {
			after = append(after, c)
		}
	}
	return after
}
