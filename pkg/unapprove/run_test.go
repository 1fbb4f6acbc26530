package unapprove

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tzrikka/unapprove/pkg/approvals"
	"github.com/tzrikka/unapprove/pkg/config"
)

type fakePR struct {
	mu sync.Mutex

	changed    []string
	changedErr error
	reviews    []approvals.Review
	reviewsErr error
	commits    []approvals.Commit
	commitsErr error
	commitFile map[string][]string
	codeOwners string
	teams      map[string][]string
	dismissErr map[int64]error

	listedChanged bool
	listedCommits bool
	dismissed     []int64
	messages      []string
}

func (f *fakePR) ChangedFiles(_ context.Context) ([]string, error) {
	f.listedChanged = true
	return f.changed, f.changedErr
}

func (f *fakePR) Reviews(_ context.Context) ([]approvals.Review, error) {
	return f.reviews, f.reviewsErr
}

func (f *fakePR) Commits(_ context.Context) ([]approvals.Commit, error) {
	f.listedCommits = true
	return f.commits, f.commitsErr
}

func (f *fakePR) CommitFiles(_ context.Context, sha string) ([]string, error) {
	return f.commitFile[sha], nil
}

func (f *fakePR) ReadFile(_ context.Context, _, _ string) (string, bool, error) {
	return f.codeOwners, f.codeOwners != "", nil
}

func (f *fakePR) IsTeamMember(_ context.Context, user, team string) (bool, error) {
	for _, m := range f.teams[team] {
		if m == user {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePR) DismissReview(_ context.Context, reviewID int64, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.dismissErr[reviewID]; err != nil {
		return err
	}
	f.dismissed = append(f.dismissed, reviewID)
	f.messages = append(f.messages, message)
	return nil
}

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2024-01-01 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func testConfig() config.Config {
	cfg := config.Config{Token: "token", Owner: "acme", Repo: "app", PRNumber: 7, DryRun: true}
	if err := cfg.Validate(true); err != nil {
		panic(err)
	}
	return cfg
}

func stalePR() *fakePR {
	return &fakePR{
		changed: []string{"src/app.py", "README.md", "src/app.py"},
		reviews: []approvals.Review{
			{ID: 1, Reviewer: "alice", State: approvals.StateApproved, SubmittedAt: at("10:00")},
			{ID: 2, Reviewer: "bob", State: "COMMENTED", SubmittedAt: at("10:05")},
			{ID: 3, Reviewer: "bob", State: approvals.StateApproved, SubmittedAt: at("10:10")},
		},
		commits: []approvals.Commit{
			{SHA: "aaaaaaa111", Author: "carol", CommittedAt: at("09:00")},
			{SHA: "bbbbbbb222", Author: "carol", CommittedAt: at("11:00")},
		},
		commitFile: map[string][]string{
			"aaaaaaa111": {"src/app.py", "README.md"},
			"bbbbbbb222": {"src/app.py"},
		},
		codeOwners: "/src/ @alice\n/docs/ @acme/docs\n",
	}
}

func TestRunDismissesStaleApproval(t *testing.T) {
	pr := stalePR()
	cfg := testConfig()
	cfg.DryRun = false

	res, err := Run(context.Background(), cfg, pr)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if want := []string{"src/app.py", "README.md"}; !reflect.DeepEqual(res.ChangedFiles, want) {
		t.Errorf("Run() changed files = %q, want %q", res.ChangedFiles, want)
	}
	if res.Approvals != 2 {
		t.Errorf("Run() approvals = %d, want 2", res.Approvals)
	}
	if len(res.Decisions) != 2 {
		t.Fatalf("len(Run().Decisions) = %d, want 2", len(res.Decisions))
	}
	if d := res.Decisions[1]; d.Reviewer != "bob" || d.Dismiss {
		t.Errorf("Run() decision for bob = %+v, want keep", d)
	}

	if want := []int64{1}; !reflect.DeepEqual(pr.dismissed, want) {
		t.Errorf("dismissed reviews = %v, want %v", pr.dismissed, want)
	}
	want := "1 file(s) changed in commit [bbbbbbb](https://github.com/acme/app/commit/bbbbbbb222)"
	if len(pr.messages) != 1 || pr.messages[0] != want {
		t.Errorf("dismissal messages = %q, want %q", pr.messages, want)
	}
	if res.Summary.Dismissed != 1 || res.Summary.Failed != 0 {
		t.Errorf("Run() summary = %+v", res.Summary)
	}
}

func TestRunDryRun(t *testing.T) {
	pr := stalePR()

	res, err := Run(context.Background(), testConfig(), pr)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(pr.dismissed) != 0 {
		t.Errorf("dismissed reviews in dry-run mode = %v", pr.dismissed)
	}
	if len(res.Summary.Results) != 1 || !res.Summary.Results[0].DryRun {
		t.Errorf("Run() summary = %+v", res.Summary)
	}
}

func TestRunDismissalFailureIsNotFatal(t *testing.T) {
	pr := stalePR()
	pr.dismissErr = map[int64]error{1: errors.New("422 validation failed")}
	cfg := testConfig()
	cfg.DryRun = false

	res, err := Run(context.Background(), cfg, pr)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Summary.Failed != 1 || res.Summary.Err() == nil {
		t.Errorf("Run() summary = %+v", res.Summary)
	}
}

func TestRunEarlyExits(t *testing.T) {
	t.Run("no_changed_files", func(t *testing.T) {
		pr := stalePR()
		pr.changed = nil

		res, err := Run(context.Background(), testConfig(), pr)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Decisions != nil || pr.listedCommits {
			t.Errorf("Run() continued after no changed files: %+v", res)
		}
	})

	t.Run("all_files_ignored", func(t *testing.T) {
		pr := stalePR()
		cfg := testConfig()
		cfg.IgnoreFiles = []string{"**/*.py", "*.md"}

		res, err := Run(context.Background(), cfg, pr)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(res.ChangedFiles) != 0 || pr.listedCommits {
			t.Errorf("Run() continued after ignoring all files: %+v", res)
		}
	})

	t.Run("no_approvals", func(t *testing.T) {
		pr := stalePR()
		pr.reviews = pr.reviews[1:2]

		res, err := Run(context.Background(), testConfig(), pr)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Approvals != 0 || pr.listedCommits {
			t.Errorf("Run() continued after no approvals: %+v", res)
		}
	})
}

func TestRunChangedFilesOverride(t *testing.T) {
	pr := stalePR()
	cfg := testConfig()
	cfg.ChangedFiles = []string{"README.md"}

	res, err := Run(context.Background(), cfg, pr)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if pr.listedChanged {
		t.Error("Run() listed changed files despite an explicit list")
	}
	for _, d := range res.Decisions {
		if d.Dismiss {
			t.Errorf("Run() decision = %+v, want keep", d)
		}
	}
}

func TestRunUpstreamErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakePR)
	}{
		{
			name:  "changed_files",
			setup: func(f *fakePR) { f.changedErr = errors.New("500") },
		},
		{
			name:  "reviews",
			setup: func(f *fakePR) { f.reviewsErr = errors.New("500") },
		},
		{
			name:  "commits",
			setup: func(f *fakePR) { f.commitsErr = errors.New("500") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := stalePR()
			tt.setup(pr)

			_, err := Run(context.Background(), testConfig(), pr)
			if !errors.Is(err, ErrUpstreamRead) {
				t.Errorf("Run() error = %v, want %v", err, ErrUpstreamRead)
			}
			if !strings.Contains(err.Error(), tt.name) {
				t.Errorf("Run() error = %q, want it to mention %q", err, tt.name)
			}
		})
	}
}

func TestRunWritesReport(t *testing.T) {
	pr := stalePR()
	cfg := testConfig()
	cfg.ReportCSV = filepath.Join(t.TempDir(), "report.csv")

	if _, err := Run(context.Background(), cfg, pr); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	b, err := os.ReadFile(cfg.ReportCSV)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if lines := strings.Count(string(b), "\n"); lines != 2 {
		t.Errorf("report has %d lines, want 2:\n%s", lines, b)
	}
}

func TestResultPreserved(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want int
	}{
		{
			name: "nothing_dismissed",
			res: Result{Approvals: 3, Decisions: []approvals.Decision{
				{Reviewer: "alice", ReviewIDs: []int64{1, 2}},
				{Reviewer: "bob", ReviewIDs: []int64{3}},
			}},
			want: 3,
		},
		{
			name: "one_reviewer_with_two_approvals_dismissed",
			res: Result{Approvals: 3, Decisions: []approvals.Decision{
				{Reviewer: "alice", Dismiss: true, ReviewIDs: []int64{1, 2}},
				{Reviewer: "bob", ReviewIDs: []int64{3}},
			}},
			want: 2,
		},
		{
			name: "all_dismissed",
			res: Result{Approvals: 2, Decisions: []approvals.Decision{
				{Reviewer: "alice", Dismiss: true, ReviewIDs: []int64{1}},
				{Reviewer: "bob", Dismiss: true, ReviewIDs: []int64{2}},
			}},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Preserved(); got != tt.want {
				t.Errorf("Result.Preserved() = %d, want %d", got, tt.want)
			}
		})
	}
}
