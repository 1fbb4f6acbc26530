// Package metrics records run results in local files, for simple
// setups without an OpenTelemetry collector.
package metrics

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tzrikka/unapprove/internal/logger"
	"github.com/tzrikka/unapprove/pkg/approvals"
	"github.com/tzrikka/xdg"
)

const (
	fileFlags = os.O_APPEND | os.O_CREATE | os.O_WRONLY
	filePerms = xdg.NewFilePermissions
)

var muReport sync.Mutex

// AppendDecisions appends one CSV record per reviewer decision to the given file.
// Failures are logged but otherwise ignored, they never affect the run's result.
func AppendDecisions(ctx context.Context, path, repo string, pr int, ds []approvals.Decision, dryRun bool) {
	if path == "" {
		return
	}

	muReport.Lock()
	defer muReport.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	records := make([][]string, 0, len(ds))
	for _, d := range ds {
		records = append(records, DecisionRecord(now, repo, pr, d, dryRun))
	}

	if err := AppendToCSVFile(path, records...); err != nil {
		logger.FromContext(ctx).Error("metrics error: failed to append decisions to CSV file",
			slog.Any("error", err), slog.String("path", path))
	}
}

// DecisionRecord converts a decision into a CSV record:
// time, repository, PR, reviewer, action, review IDs, reason,
// number of owned files, owning teams, and dry-run mode.
func DecisionRecord(now, repo string, pr int, d approvals.Decision, dryRun bool) []string {
	action := "keep"
	if d.Dismiss {
		action = "dismiss"
	}

	ids := make([]string, 0, len(d.ReviewIDs))
	for _, id := range d.ReviewIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}

	return []string{
		now, repo, strconv.Itoa(pr), d.Reviewer, action, strings.Join(ids, " "),
		d.Reason, strconv.Itoa(len(d.OwnedFiles)), strings.Join(d.ViaTeams, " "),
		strconv.FormatBool(dryRun),
	}
}

func AppendToCSVFile(path string, records ...[]string) error {
	f, err := os.OpenFile(path, fileFlags, filePerms) //gosec:disable G304 -- user-specified by design
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return err
	}

	return f.Close()
}
