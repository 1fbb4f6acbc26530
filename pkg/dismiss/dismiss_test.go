package dismiss

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tzrikka/unapprove/pkg/approvals"
)

type fakeDismisser struct {
	fail  map[int64]bool
	calls []int64
}

func (f *fakeDismisser) DismissReview(_ context.Context, reviewID int64, _ string) error {
	f.calls = append(f.calls, reviewID)
	if f.fail[reviewID] {
		return errors.New("422 unprocessable entity")
	}
	return nil
}

var decisions = []approvals.Decision{
	{Reviewer: "alice", Dismiss: true, ReviewIDs: []int64{1, 2}, Reason: approvals.ReasonAuthoredChanges},
	{Reviewer: "bob", ReviewIDs: []int64{3}},
	{
		Reviewer: "carol", Dismiss: true, ReviewIDs: []int64{4},
		AffectedFiles: []string{"a.py", "b.py"},
		TriggerCommit: &approvals.Commit{SHA: "0123456789abcdef"},
	},
}

func TestExecuteDryRun(t *testing.T) {
	d := &fakeDismisser{}
	s := Execute(context.Background(), d, decisions, Options{DryRun: true, Owner: "acme", Repo: "app"})

	if len(d.calls) != 0 {
		t.Errorf("dry run dismissed reviews: %v", d.calls)
	}
	if len(s.Results) != 3 || s.Dismissed != 0 || s.Failed != 0 {
		t.Errorf("Execute() = %+v, want 3 dry-run results", s)
	}
	for _, r := range s.Results {
		if !r.DryRun {
			t.Errorf("result %+v is not marked as a dry run", r)
		}
	}
}

func TestExecutePartialFailure(t *testing.T) {
	d := &fakeDismisser{fail: map[int64]bool{1: true}}
	s := Execute(context.Background(), d, decisions, Options{Owner: "acme", Repo: "app"})

	if want := []int64{1, 2, 4}; !reflect.DeepEqual(d.calls, want) {
		t.Errorf("dismissed reviews = %v, want %v", d.calls, want)
	}
	if s.Dismissed != 2 || s.Failed != 1 {
		t.Errorf("Execute() dismissed %d, failed %d; want 2, 1", s.Dismissed, s.Failed)
	}
	if err := s.Err(); err == nil {
		t.Error("Summary.Err() = nil, want error")
	}
}

func TestExecuteNothingToDo(t *testing.T) {
	d := &fakeDismisser{}
	s := Execute(context.Background(), d, []approvals.Decision{{Reviewer: "bob"}}, Options{})
	if len(s.Results) != 0 || len(d.calls) != 0 {
		t.Errorf("Execute() = %+v, calls %v; want nothing", s, d.calls)
	}
	if err := s.Err(); err != nil {
		t.Errorf("Summary.Err() = %v, want nil", err)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		d    approvals.Decision
		opts Options
		want string
	}{
		{
			name: "no_trigger_commit",
			d:    decisions[0],
			want: "Unapproved",
		},
		{
			name: "trigger_commit",
			d:    decisions[2],
			opts: Options{Owner: "acme", Repo: "app"},
			want: "2 file(s) changed in commit [0123456](https://github.com/acme/app/commit/0123456789abcdef)",
		},
		{
			name: "enterprise_server",
			d:    decisions[2],
			opts: Options{Owner: "acme", Repo: "app", ServerURL: "https://git.acme.io/"},
			want: "2 file(s) changed in commit [0123456](https://git.acme.io/acme/app/commit/0123456789abcdef)",
		},
		{
			name: "authored_with_later_commit",
			d: approvals.Decision{
				Reviewer: "dana", Dismiss: true, AuthoredCommits: true,
				TriggerCommit: &approvals.Commit{SHA: "fedcba9"},
			},
			opts: Options{Owner: "acme", Repo: "app"},
			want: "0 file(s) changed in commit [fedcba9](https://github.com/acme/app/commit/fedcba9)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.d, tt.opts); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOwnerVia(t *testing.T) {
	if got := OwnerVia(approvals.Decision{}); got != "Direct ownership" {
		t.Errorf("OwnerVia() = %q", got)
	}
	if got := OwnerVia(approvals.Decision{ViaTeams: []string{"@a", "@b"}}); got != "@a, @b" {
		t.Errorf("OwnerVia() = %q", got)
	}
}
