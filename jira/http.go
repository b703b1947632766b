package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"olowe.co/glbackup/backup"
)

type Client struct {
	*http.Client
	// APIRoot is the root of the REST API,
	// such as https://jira.example.com/rest/api/2.
	APIRoot  *url.URL
	Username string
	Password string // password or API token
	Debug    bool
}

// Project looks up the project with the given key, such as "TEST".
func (c *Client) Project(ctx context.Context, key string) (*backup.Project, error) {
	var p Project
	if err := c.getDecode(ctx, path.Join("project", key), nil, &p); err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("project %s: parse id: %w", key, err)
	}
	if p.Key == "" {
		p.Key = key
	}
	return &backup.Project{ID: id, Path: p.Key}, nil
}

// Issues returns one page of the project's issues, ordered by key.
func (c *Client) Issues(ctx context.Context, p *backup.Project, page, perPage int) ([]backup.Issue, error) {
	q := pageQuery(page, perPage)
	q.Set("jql", fmt.Sprintf("project = %q ORDER BY key ASC", p.Path))
	t := struct {
		Issues []json.RawMessage `json:"issues"`
	}{}
	if err := c.getDecode(ctx, "search", q, &t); err != nil {
		return nil, err
	}
	issues := make([]backup.Issue, len(t.Issues))
	for i, raw := range t.Issues {
		var v struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode issue: %w", err)
		}
		n, err := issueNumber(v.Key)
		if err != nil {
			return nil, err
		}
		issues[i] = backup.Issue{Number: n, Raw: raw}
	}
	return issues, nil
}

// Comments returns one page of the comments on the numbered issue.
func (c *Client) Comments(ctx context.Context, p *backup.Project, number, page, perPage int) ([]json.RawMessage, error) {
	key := fmt.Sprintf("%s-%d", p.Path, number)
	t := struct {
		Comments []json.RawMessage `json:"comments"`
	}{}
	if err := c.getDecode(ctx, path.Join("issue", key, "comment"), pageQuery(page, perPage), &t); err != nil {
		return nil, err
	}
	return t.Comments, nil
}

func pageQuery(page, perPage int) url.Values {
	q := make(url.Values)
	q.Set("startAt", strconv.Itoa((page-1)*perPage))
	q.Set("maxResults", strconv.Itoa(perPage))
	return q
}

func (c *Client) getDecode(ctx context.Context, name string, query url.Values, v any) error {
	u := *c.APIRoot
	u.Path = path.Join(u.Path, name)
	u.RawPath = ""
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	if c.Username != "" || c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
	req.Header.Set("Accept", "application/json")
	if c.Debug {
		log.Println(req.Method, req.URL)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		e := &APIError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
		var body jError
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
			e.Messages = body.messages()
		}
		return e
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
