// Package dismiss executes dismissal decisions: it either only reports
// them (in dry-run mode), or dismisses the reviews through a [Dismisser].
package dismiss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tzrikka/unapprove/internal/logger"
	"github.com/tzrikka/unapprove/internal/otel"
	"github.com/tzrikka/unapprove/pkg/approvals"
)

// DefaultServerURL is the base URL for links to commits in dismissal messages.
const DefaultServerURL = "https://github.com"

// Dismisser dismisses a single review in the PR.
type Dismisser interface {
	DismissReview(ctx context.Context, reviewID int64, message string) error
}

// Options control the execution of decisions.
type Options struct {
	DryRun bool

	// Owner, Repo and ServerURL are used to link to commits in dismissal messages.
	Owner     string
	Repo      string
	ServerURL string
}

// Result is the outcome of a single review dismissal.
type Result struct {
	Reviewer string
	ReviewID int64
	Message  string
	DryRun   bool
	Err      error
}

// Summary is the outcome of all the review dismissals in a run.
type Summary struct {
	Results   []Result
	Dismissed int
	Failed    int
}

// Err returns all the dismissal errors in the summary, or nil if there aren't any.
func (s Summary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("review %d by %s: %w", r.ReviewID, r.Reviewer, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Execute dismisses all the reviews of all the given decisions which call for a dismissal.
// Each dismissal is attempted independently: a failure is logged and recorded in the
// summary, but it does not prevent the remaining dismissals. In dry-run mode, nothing
// is dismissed, and the summary describes what would have been done.
func Execute(ctx context.Context, d Dismisser, ds []approvals.Decision, opts Options) Summary {
	l := logger.FromContext(ctx)
	attrs := map[string]string{"repo": opts.Owner + "/" + opts.Repo}

	var s Summary
	for _, decision := range approvals.Dismissals(ds) {
		msg := Message(decision, opts)
		l.Info("dismissing approvals", slog.Bool("dry_run", opts.DryRun),
			slog.String("reviewer", decision.Reviewer), slog.Int("reviews", len(decision.ReviewIDs)),
			slog.String("reason", decision.Reason), slog.Int("owned_files", len(decision.OwnedFiles)),
			slog.String("owner_via", OwnerVia(decision)))

		for _, id := range decision.ReviewIDs {
			r := Result{Reviewer: decision.Reviewer, ReviewID: id, Message: msg, DryRun: opts.DryRun}
			if opts.DryRun {
				s.Results = append(s.Results, r)
				continue
			}

			if r.Err = d.DismissReview(ctx, id, msg); r.Err != nil {
				l.Error("failed to dismiss review", slog.Any("error", r.Err),
					slog.String("reviewer", decision.Reviewer), slog.Int64("review_id", id))
				otel.IncrementCounter(ctx, "approvals.dismiss_failed", 1, attrs)
				s.Failed++
			} else {
				l.Info("dismissed review", slog.String("reviewer", decision.Reviewer), slog.Int64("review_id", id))
				otel.IncrementCounter(ctx, "approvals.dismissed", 1, attrs)
				s.Dismissed++
			}
			s.Results = append(s.Results, r)
		}
	}

	return s
}

// Message returns the human-readable reason that is attached to a dismissed review.
// It refers to the most recent commit after the reviewer's latest approval, if there
// is one. Otherwise (e.g. a code owner who authored commits before approving),
// the message is generic.
func Message(d approvals.Decision, opts Options) string {
	if d.TriggerCommit == nil {
		return "Unapproved"
	}

	server := opts.ServerURL
	if server == "" {
		server = DefaultServerURL
	}

	c := d.TriggerCommit
	url := fmt.Sprintf("%s/%s/%s/commit/%s", strings.TrimSuffix(server, "/"), opts.Owner, opts.Repo, c.SHA)
	return fmt.Sprintf("%d file(s) changed in commit [%s](%s)", len(d.AffectedFiles), c.ShortSHA(), url)
}

// OwnerVia describes how the reviewer owns their files, for reports.
func OwnerVia(d approvals.Decision) string {
	if len(d.ViaTeams) == 0 {
		return "Direct ownership"
	}
	return strings.Join(d.ViaTeams, ", ")
}
