package github

import (
	"context"

	gh "github.com/google/go-github/v71/github"

	"github.com/tzrikka/unapprove/pkg/approvals"
)

// ChangedFiles lists the paths of all the files that the PR changes.
func (p *PullRequest) ChangedFiles(ctx context.Context) ([]string, error) {
	fs, err := listAll(func(opts *gh.ListOptions) ([]*gh.CommitFile, *gh.Response, error) {
		return p.client.PullRequests.ListFiles(ctx, p.Owner, p.Repo, p.Number, opts)
	})
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(fs))
	for _, f := range fs {
		paths = append(paths, f.GetFilename())
	}
	return paths, nil
}

// Reviews lists all the reviews of the PR, in any state.
func (p *PullRequest) Reviews(ctx context.Context) ([]approvals.Review, error) {
	rs, err := listAll(func(opts *gh.ListOptions) ([]*gh.PullRequestReview, *gh.Response, error) {
		return p.client.PullRequests.ListReviews(ctx, p.Owner, p.Repo, p.Number, opts)
	})
	if err != nil {
		return nil, err
	}

	reviews := make([]approvals.Review, 0, len(rs))
	for _, r := range rs {
		reviews = append(reviews, approvals.Review{
			ID:          r.GetID(),
			Reviewer:    r.GetUser().GetLogin(),
			State:       r.GetState(),
			SubmittedAt: r.GetSubmittedAt().Time,
		})
	}
	return reviews, nil
}

// Commits lists all the commits in the PR. Commits which are
// not linked to a GitHub user have an empty author.
func (p *PullRequest) Commits(ctx context.Context) ([]approvals.Commit, error) {
	cs, err := listAll(func(opts *gh.ListOptions) ([]*gh.RepositoryCommit, *gh.Response, error) {
		return p.client.PullRequests.ListCommits(ctx, p.Owner, p.Repo, p.Number, opts)
	})
	if err != nil {
		return nil, err
	}

	commits := make([]approvals.Commit, 0, len(cs))
	for _, c := range cs {
		commits = append(commits, approvals.Commit{
			SHA:         c.GetSHA(),
			Author:      c.GetAuthor().GetLogin(),
			CommittedAt: c.GetCommit().GetCommitter().GetDate().Time,
		})
	}
	return commits, nil
}

// DismissReview dismisses a single review in the PR, with the given message.
func (p *PullRequest) DismissReview(ctx context.Context, reviewID int64, message string) error {
	req := &gh.PullRequestReviewDismissalRequest{Message: gh.Ptr(message)}
	_, _, err := p.client.PullRequests.DismissReview(ctx, p.Owner, p.Repo, p.Number, reviewID, req)
	return err
}
