package metrics

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tzrikka/unapprove/pkg/approvals"
)

func TestDecisionRecord(t *testing.T) {
	d := approvals.Decision{
		Reviewer:   "bob",
		Dismiss:    true,
		Reason:     "Approval became stale - commits modified owned files: a.py, b.py",
		OwnedFiles: []string{"a.py", "b.py", "c.py"},
		ViaTeams:   []string{"@acme/core", "@acme/web"},
		ReviewIDs:  []int64{11, 12},
	}

	got := DecisionRecord("2024-01-01T12:00:00Z", "acme/app", 7, d, false)
	want := []string{
		"2024-01-01T12:00:00Z", "acme/app", "7", "bob", "dismiss", "11 12",
		"Approval became stale - commits modified owned files: a.py, b.py", "3", "@acme/core @acme/web", "false",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecisionRecord() = %q, want %q", got, want)
	}
}

func TestAppendDecisions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	ds := []approvals.Decision{
		{Reviewer: "alice", Dismiss: true, Reason: approvals.ReasonAuthoredChanges, ReviewIDs: []int64{1}},
		{Reviewer: "bob", ReviewIDs: []int64{2}},
	}

	AppendDecisions(context.Background(), path, "acme/app", 7, ds, true)
	AppendDecisions(context.Background(), path, "acme/app", 8, ds[:1], true)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if records[1][3] != "bob" || records[1][4] != "keep" {
		t.Errorf("second record = %q", records[1])
	}
	if records[2][2] != "8" {
		t.Errorf("third record = %q", records[2])
	}
}

func TestAppendDecisionsNoPath(t *testing.T) {
	AppendDecisions(context.Background(), "", "acme/app", 7, []approvals.Decision{{Reviewer: "bob"}}, true)
}
