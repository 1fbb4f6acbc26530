package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v71/github"
)

// CommitFiles lists the paths of all the files that a specific commit touched.
func (p *PullRequest) CommitFiles(ctx context.Context, sha string) ([]string, error) {
	fs, err := listAll(func(opts *gh.ListOptions) ([]*gh.CommitFile, *gh.Response, error) {
		c, resp, err := p.client.Repositories.GetCommit(ctx, p.Owner, p.Repo, sha, opts)
		if err != nil {
			return nil, resp, err
		}
		return c.Files, resp, nil
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

// ReadFile returns the content of a file in the repository, at a specific ref (branch, tag
// or commit). It returns false, without an error, if the file does not exist in that ref.
func (p *PullRequest) ReadFile(ctx context.Context, path, ref string) (string, bool, error) {
	opts := &gh.RepositoryContentGetOptions{Ref: ref}
	file, _, _, err := p.client.Repositories.GetContents(ctx, p.Owner, p.Repo, path, opts)
	if isNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if file == nil { // A directory.
		return "", false, nil
	}

	content, err := file.GetContent()
	if err != nil {
		return "", false, fmt.Errorf("failed to decode file contents: %w", err)
	}

	return content, true, nil
}
