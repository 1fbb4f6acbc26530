package files

import (
	"context"
	"log/slog"

	"github.com/tzrikka/unapprove/internal/logger"
)

// DefaultCodeOwnersFile is the default path of the "CODEOWNERS" file in the repository.
const DefaultCodeOwnersFile = "CODEOWNERS"

// SourceReader reads a file from the repository at a specific ref.
// It returns false (and no error) if the file does not exist.
type SourceReader interface {
	ReadFile(ctx context.Context, path, ref string) (string, bool, error)
}

// ReadCodeOwners reads and parses the "CODEOWNERS" file in the given ref (a PR's
// destination branch). A missing or unreadable file results in zero rules, which
// means that no changed file is owned by anyone.
func ReadCodeOwners(ctx context.Context, r SourceReader, path, ref string) []Rule {
	l := logger.FromContext(ctx).With(slog.String("path", path), slog.String("ref", ref))

	content, found, err := r.ReadFile(ctx, path, ref)
	if err != nil {
		l.Warn("failed to read CODEOWNERS file - using no ownership rules", slog.Any("error", err))
		return nil
	}
	if !found {
		l.Warn("no CODEOWNERS file found - using no ownership rules")
		return nil
	}

	rules := ParseCodeOwnersFile(content)
	l.Info("parsed CODEOWNERS rules", slog.Int("count", len(rules)))
	return rules
}
