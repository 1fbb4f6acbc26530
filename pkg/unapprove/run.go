// Package unapprove runs the dismissal of stale approvals in a single PR:
// it reads the PR's state, resolves the ownership of its changed files,
// decides which approvals to dismiss, reports the decisions, and executes them.
package unapprove

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/tzrikka/unapprove/internal/logger"
	"github.com/tzrikka/unapprove/internal/otel"
	"github.com/tzrikka/unapprove/pkg/approvals"
	"github.com/tzrikka/unapprove/pkg/config"
	"github.com/tzrikka/unapprove/pkg/dismiss"
	"github.com/tzrikka/unapprove/pkg/files"
	"github.com/tzrikka/unapprove/pkg/metrics"
)

// ErrUpstreamRead is returned when the PR's files, reviews, or commits
// cannot be listed. Decisions are undefined without them, so it is fatal.
var ErrUpstreamRead = errors.New("failed to read PR data")

// PullRequest is everything that a run needs from the hosting platform.
type PullRequest interface {
	ChangedFiles(ctx context.Context) ([]string, error)
	Reviews(ctx context.Context) ([]approvals.Review, error)
	Commits(ctx context.Context) ([]approvals.Commit, error)

	files.SourceReader
	approvals.TeamOracle
	approvals.CommitSource
	dismiss.Dismisser
}

// Result is the outcome of a successful run.
type Result struct {
	ChangedFiles []string
	Approvals    int
	Decisions    []approvals.Decision
	Summary      dismiss.Summary
}

// Preserved returns the number of approved reviews minus the number of
// reviewers whose approvals are dismissed, as in the run's plan summary.
func (r *Result) Preserved() int {
	return r.Approvals - len(approvals.Dismissals(r.Decisions))
}

// Run dismisses stale approvals in the PR which is specified in the configuration.
// Dismissal failures are logged and listed in the result, but only configuration
// and upstream read errors are returned.
func Run(ctx context.Context, cfg config.Config, pr PullRequest) (*Result, error) {
	repo := cfg.Owner + "/" + cfg.Repo
	l := logger.FromContext(ctx).With(slog.String("repo", repo), slog.Int("pr_id", cfg.PRNumber))
	ctx = logger.WithContext(ctx, l)

	l.Info("starting run", slog.Bool("dry_run", cfg.DryRun), slog.String("team_prefix", cfg.TeamPrefix),
		slog.String("codeowners_file", cfg.CodeOwnersFile), slog.String("target_branch", cfg.TargetBranch),
		slog.Any("ignore_files", cfg.IgnoreFiles))

	changed, err := changedFiles(ctx, cfg, pr)
	if err != nil {
		return nil, err
	}

	res := &Result{ChangedFiles: changed}
	if len(changed) == 0 {
		l.Info("no changed files - nothing to do")
		return res, nil
	}

	reviews, err := pr.Reviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reviews: %w", ErrUpstreamRead, err)
	}

	res.Approvals = len(approvals.Approvals(reviews))
	if res.Approvals == 0 {
		l.Info("no approvals - nothing to do", slog.Int("reviews", len(reviews)))
		return res, nil
	}

	commits, err := pr.Commits(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: commits: %w", ErrUpstreamRead, err)
	}

	rules := files.ReadCodeOwners(ctx, pr, cfg.CodeOwnersFile, cfg.TargetBranch)
	ownership := files.Resolve(rules, changed, cfg.TeamPrefix)
	logOwnership(ctx, ownership)

	e := approvals.NewEngine(pr, pr)
	e.Concurrency = cfg.MaxConcurrency
	res.Decisions = e.Decide(ctx, approvals.Input{Ownership: ownership, Reviews: reviews, Commits: commits})
	logDecisions(ctx, res, cfg.DryRun)
	metrics.AppendDecisions(ctx, cfg.ReportCSV, repo, cfg.PRNumber, res.Decisions, cfg.DryRun)

	res.Summary = dismiss.Execute(ctx, pr, res.Decisions, dismiss.Options{
		DryRun:    cfg.DryRun,
		Owner:     cfg.Owner,
		Repo:      cfg.Repo,
		ServerURL: cfg.ServerURL,
	})
	if err := res.Summary.Err(); err != nil {
		l.Warn("some approvals were not dismissed", slog.Int("failed", res.Summary.Failed), slog.Any("error", err))
	}

	l.Info("run completed", slog.Int("dismissed", res.Summary.Dismissed), slog.Int("failed", res.Summary.Failed))
	return res, nil
}

// changedFiles returns the paths of the files which are changed in the PR,
// without repetitions, and without files that match the ignore globs. The
// list is taken from the configuration if it was specified there explicitly.
func changedFiles(ctx context.Context, cfg config.Config, pr PullRequest) ([]string, error) {
	paths := cfg.ChangedFiles
	if paths == nil {
		var err error
		if paths, err = pr.ChangedFiles(ctx); err != nil {
			return nil, fmt.Errorf("%w: changed files: %w", ErrUpstreamRead, err)
		}
	} else {
		logger.FromContext(ctx).Debug("using changed files from configuration", slog.Int("count", len(paths)))
	}

	var unique []string
	for _, p := range paths {
		if p != "" && !slices.Contains(unique, p) {
			unique = append(unique, p)
		}
	}

	filtered := files.FilterIgnored(unique, cfg.IgnoreFiles)
	if n := len(unique) - len(filtered); n > 0 {
		logger.FromContext(ctx).Info("ignoring changed files", slog.Int("count", n))
	}
	return filtered, nil
}

func logOwnership(ctx context.Context, o *files.Ownership) {
	l := logger.FromContext(ctx)
	for _, path := range o.Files {
		tokens := make([]string, 0, len(o.Owners[path]))
		for _, owner := range o.Owners[path] {
			tokens = append(tokens, owner.Token)
		}
		l.Info("changed file", slog.String("path", path), slog.String("owners", ownersString(tokens)))
	}
	l.Info("relevant teams", slog.Any("teams", o.RelevantTeams()))
}

func ownersString(tokens []string) string {
	if len(tokens) == 0 {
		return "(none)"
	}
	return strings.Join(tokens, " ")
}

func logDecisions(ctx context.Context, res *Result, dryRun bool) {
	l := logger.FromContext(ctx)
	for _, d := range res.Decisions {
		verdict := "KEEP"
		if d.Dismiss {
			verdict = "DISMISS"
		}

		attrs := []any{
			slog.String("reviewer", d.Reviewer), slog.String("verdict", verdict),
			slog.Int("owned_files", len(d.OwnedFiles)), slog.Bool("authored_commits", d.AuthoredCommits),
			slog.Bool("stale_approval", d.StaleApproval),
		}
		if d.IsCodeOwner() {
			attrs = append(attrs, slog.String("owner_via", dismiss.OwnerVia(d)))
		}
		if d.Reason != "" {
			attrs = append(attrs, slog.String("reason", d.Reason))
		}
		l.Info("reviewer decision", attrs...)

		otel.IncrementCounter(ctx, "decisions.made", 1, map[string]string{
			"verdict": strings.ToLower(verdict),
			"dry_run": strconv.FormatBool(dryRun),
		})
	}

	dismissals := len(approvals.Dismissals(res.Decisions))
	l.Info("execution plan", slog.Int("changed_files", len(res.ChangedFiles)),
		slog.Int("total_approvals", res.Approvals), slog.Int("dismissals", dismissals),
		slog.Int("preserved_approvals", res.Preserved()), slog.Bool("dry_run", dryRun))
}
