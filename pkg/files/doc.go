// Package files maps the files changed in a PR to their code owners.
//
// This functionality is based on comparing the PR's changed files against the
// rules in a "CODEOWNERS" file, read from the PR's target branch. The most
// specific rule (i.e. the longest path pattern) that matches a file wins.
//
// The result is used to decide which reviewers own which files,
// directly or via team membership.
package files
