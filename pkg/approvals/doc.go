// Package approvals decides which PR approvals should be dismissed.
//
// An approval is dismissed if the reviewer owns at least one of the PR's changed
// files (directly or via a team), and either authored a commit in the PR, or a
// commit that was pushed after their latest approval touched a file they own.
package approvals
