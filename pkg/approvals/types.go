package approvals

import (
	"time"
)

// StateApproved is the only review state that participates in decisions.
const StateApproved = "APPROVED"

// Review is a single PR review. A reviewer may have multiple approvals
// over time, e.g. if they re-approved after a previous dismissal.
type Review struct {
	ID          int64
	Reviewer    string
	State       string
	SubmittedAt time.Time
}

// Commit is a single commit in a PR. Author is empty if
// the commit is not linked to any user in the hosting platform.
type Commit struct {
	SHA         string
	Author      string
	CommittedAt time.Time
}

// ShortSHA returns the first 7 characters of the commit's hash.
func (c Commit) ShortSHA() string {
	if len(c.SHA) > 7 {
		return c.SHA[:7]
	}
	return c.SHA
}

// Decision is the verdict for a single reviewer who approved the PR.
type Decision struct {
	Reviewer string
	Dismiss  bool
	Reason   string

	// OwnedFiles are the changed files that the reviewer owns, in changed-files order.
	OwnedFiles []string
	// ViaTeams are the team owner tokens that granted ownership of any of the
	// owned files. Direct ownership does not add anything here.
	ViaTeams []string
	// ReviewIDs are all the approvals of the reviewer, in listing order.
	// If the decision is to dismiss, all of them are dismissed together.
	ReviewIDs []int64

	AuthoredCommits bool
	StaleApproval   bool
	LatestApproval  time.Time
	// AffectedFiles are owned files that were modified after the latest approval.
	AffectedFiles []string
	// TriggerCommit is the most recent commit after the reviewer's
	// latest approval, or nil if there aren't any such commits.
	TriggerCommit *Commit
}

// IsCodeOwner reports whether the reviewer owns any of the changed files.
func (d Decision) IsCodeOwner() bool {
	return len(d.OwnedFiles) > 0
}

// Dismissals filters the given decisions, and returns only those to dismiss.
func Dismissals(ds []Decision) []Decision {
	var out []Decision
	for _, d := range ds {
		if d.Dismiss {
			out = append(out, d)
		}
	}
	return out
}
