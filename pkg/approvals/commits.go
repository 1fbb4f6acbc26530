package approvals

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tzrikka/unapprove/internal/cache"
	"github.com/tzrikka/unapprove/internal/logger"
)

// CommitSource lists the files that a specific commit touched.
type CommitSource interface {
	CommitFiles(ctx context.Context, sha string) ([]string, error)
}

// CommitFiles wraps a [CommitSource] with a per-run cache, because the same
// commit is usually relevant to more than one reviewer. A failed lookup is
// logged and treated as a commit that touched no files.
type CommitFiles struct {
	src   CommitSource
	cache *cache.Cache[string, []string]
}

// NewCommitFiles returns an empty per-run commit cache around the given source.
func NewCommitFiles(src CommitSource) *CommitFiles {
	return &CommitFiles{src: src, cache: cache.New[string, []string]()}
}

// Files returns the paths of the files that the given commit touched.
func (c *CommitFiles) Files(ctx context.Context, sha string) []string {
	paths, err := c.cache.Load(sha, func() ([]string, error) {
		return c.src.CommitFiles(ctx, sha)
	})
	if err != nil {
		logger.FromContext(ctx).Warn("could not fetch commit details - ignoring commit",
			slog.Any("error", err), slog.String("sha", sha))
		return nil
	}
	return paths
}

// Prefetch fetches the file lists of all the given commits in parallel,
// and returns only after all of them are done (successfully or not).
func (c *CommitFiles) Prefetch(ctx context.Context, commits []Commit, limit int) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, commit := range commits {
		g.Go(func() error {
			c.Files(ctx, commit.SHA)
			return nil
		})
	}
	_ = g.Wait()
}
