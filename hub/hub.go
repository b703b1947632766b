// Package hub reads repository issues and comments from GitHub.
// Client implements backup.Tracker; projects are named "owner/repo".
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v63/github"
	"golang.org/x/oauth2"

	"olowe.co/glbackup/backup"
)

type Client struct {
	GitHub *github.Client
}

// NewClient returns a Client authenticating with token.
// An empty token makes unauthenticated requests.
// If baseURL is not empty it is the API root of a GitHub Enterprise server.
func NewClient(ctx context.Context, token, baseURL string) (*Client, error) {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	gh := github.NewClient(hc)
	if baseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("github enterprise url: %w", err)
		}
	}
	return &Client{GitHub: gh}, nil
}

func splitRepo(name string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(name, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("bad repository name %q: want owner/repo", name)
	}
	return owner, repo, nil
}

// Project looks up the repository named "owner/repo".
func (c *Client) Project(ctx context.Context, name string) (*backup.Project, error) {
	owner, repo, err := splitRepo(name)
	if err != nil {
		return nil, err
	}
	r, _, err := c.GitHub.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	p := &backup.Project{ID: r.GetID(), Path: r.GetFullName()}
	if p.Path == "" {
		p.Path = name
	}
	return p, nil
}

// Issues returns one page of the repository's issues, open and closed.
// GitHub lists pull requests as issues too; they are kept.
func (c *Client) Issues(ctx context.Context, p *backup.Project, page, perPage int) ([]backup.Issue, error) {
	owner, repo, err := splitRepo(p.Path)
	if err != nil {
		return nil, err
	}
	opt := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	list, _, err := c.GitHub.Issues.ListByRepo(ctx, owner, repo, opt)
	if err != nil {
		return nil, err
	}
	issues := make([]backup.Issue, len(list))
	for i, is := range list {
		b, err := json.Marshal(is)
		if err != nil {
			return nil, fmt.Errorf("encode issue %d: %w", is.GetNumber(), err)
		}
		issues[i] = backup.Issue{Number: is.GetNumber(), Raw: b}
	}
	return issues, nil
}

// Comments returns one page of the comments on the numbered issue.
func (c *Client) Comments(ctx context.Context, p *backup.Project, number, page, perPage int) ([]json.RawMessage, error) {
	owner, repo, err := splitRepo(p.Path)
	if err != nil {
		return nil, err
	}
	opt := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	list, _, err := c.GitHub.Issues.ListComments(ctx, owner, repo, number, opt)
	if err != nil {
		return nil, err
	}
	comments := make([]json.RawMessage, len(list))
	for i, cm := range list {
		b, err := json.Marshal(cm)
		if err != nil {
			return nil, fmt.Errorf("encode comment %d: %w", cm.GetID(), err)
		}
		comments[i] = b
	}
	return comments, nil
}
