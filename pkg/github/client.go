// Package github reads PR data from GitHub's REST API, and dismisses PR reviews.
// Paginated results are always concatenated, so callers get complete lists.
package github

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v71/github"

	"github.com/tzrikka/unapprove/pkg/approvals"
	"github.com/tzrikka/unapprove/pkg/dismiss"
	"github.com/tzrikka/unapprove/pkg/files"
)

const perPage = 100

var (
	_ approvals.TeamOracle   = (*PullRequest)(nil)
	_ approvals.CommitSource = (*PullRequest)(nil)
	_ dismiss.Dismisser      = (*PullRequest)(nil)
	_ files.SourceReader     = (*PullRequest)(nil)
)

// NewClient initializes a GitHub API client. The base URL is optional,
// it should be set only for GitHub Enterprise Server or tests.
func NewClient(token, baseURL string, httpClient *http.Client) (*gh.Client, error) {
	c := gh.NewClient(httpClient)
	if token != "" {
		c = c.WithAuthToken(token)
	}

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		c.BaseURL = u
	}

	c.UserAgent = "unapprove"
	return c, nil
}

// PullRequest provides access to a single GitHub PR, and to the repository
// and organization that it belongs to. It implements all the external
// capabilities that a dismissal run needs.
type PullRequest struct {
	client *gh.Client
	Owner  string
	Repo   string
	Number int
}

// NewPullRequest returns a handle to a specific PR.
func NewPullRequest(c *gh.Client, owner, repo string, number int) *PullRequest {
	return &PullRequest{client: c, Owner: owner, Repo: repo, Number: number}
}

// listAll calls a paginated GitHub API until there are no more pages.
func listAll[T any](list func(opts *gh.ListOptions) ([]T, *gh.Response, error)) ([]T, error) {
	opts := &gh.ListOptions{PerPage: perPage}
	var all []T
	for {
		items, resp, err := list(opts)
		if err != nil {
			return nil, err
		}

		all = append(all, items...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func isNotFound(err error) bool {
	var errResp *gh.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}
