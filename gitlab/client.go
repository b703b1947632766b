// Package gitlab reads projects, issues and notes from the GitLab REST API.
//
// Client implements backup.Tracker.
// Listings are requested with the page and per_page parameters;
// GitLab signals the end of a listing with an empty page.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"

	"olowe.co/glbackup/backup"
)

// Hosted is the API root of gitlab.com.
const Hosted string = "https://gitlab.com/api/v4"

type Client struct {
	*http.Client
	BaseURL string // Hosted if empty
	// Token is a personal, project or group access token,
	// sent in the PRIVATE-TOKEN header.
	Token string
	// Filter holds extra parameters for issue listings,
	// such as those returned by ParseSearch.
	Filter url.Values
	Debug  bool
}

// Project looks up the project at path, such as "gitlab-org/gitlab".
func (c *Client) Project(ctx context.Context, project string) (*backup.Project, error) {
	p := path.Join("projects", url.PathEscape(project))
	var v struct {
		ID int64 `json:"id"`
	}
	if err := c.getDecode(ctx, p, nil, &v); err != nil {
		return nil, err
	}
	return &backup.Project{ID: v.ID, Path: project}, nil
}

// Issues returns one page of the project's issues.
func (c *Client) Issues(ctx context.Context, project *backup.Project, page, perPage int) ([]backup.Issue, error) {
	q := make(url.Values)
	for k, v := range c.Filter {
		q[k] = v
	}
	setPage(q, page, perPage)
	p := path.Join("projects", strconv.FormatInt(project.ID, 10), "issues")
	var raw []json.RawMessage
	if err := c.getDecode(ctx, p, q, &raw); err != nil {
		return nil, err
	}
	issues := make([]backup.Issue, len(raw))
	for i := range raw {
		var v struct {
			IID int `json:"iid"`
		}
		if err := json.Unmarshal(raw[i], &v); err != nil {
			return nil, fmt.Errorf("decode issue: %w", err)
		}
		issues[i] = backup.Issue{Number: v.IID, Raw: raw[i]}
	}
	return issues, nil
}

// Comments returns one page of the notes of the issue numbered iid.
func (c *Client) Comments(ctx context.Context, project *backup.Project, iid, page, perPage int) ([]json.RawMessage, error) {
	q := make(url.Values)
	setPage(q, page, perPage)
	p := path.Join("projects", strconv.FormatInt(project.ID, 10), "issues", strconv.Itoa(iid), "notes")
	var notes []json.RawMessage
	if err := c.getDecode(ctx, p, q, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func setPage(q url.Values, page, perPage int) {
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
}

func (c *Client) getDecode(ctx context.Context, path string, query url.Values, v any) error {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", resp.Request.Method, resp.Request.URL, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	base := c.BaseURL
	if base == "" {
		base = Hosted
	}
	u := fmt.Sprintf("%s/%s", strings.TrimSuffix(base, "/"), path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	if c.Token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.Token)
	}
	req.Header.Set("Accept", "application/json")
	if c.Debug {
		log.Println(req.Method, req.URL)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newAPIError(req, resp)
	}
	return resp, nil
}

// APIError is returned when GitLab responds with a status other than 2xx.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	// Message is GitLab's explanation of the error, if any.
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.URL, e.Status, e.Message)
}

// gError is the body of GitLab error responses.
// Message is either a string or, for validation errors,
// a map of field names to lists of problems.
type gError struct {
	Message     any    `json:"message"`
	Err         string `json:"error"`
	Description string `json:"error_description"`
}

func (e gError) String() string {
	switch v := e.Message.(type) {
	case string:
		return v
	case map[string]any:
		var s []string
		for k, problems := range v {
			s = append(s, fmt.Sprintf("%s %v", k, problems))
		}
		sort.Strings(s)
		return strings.Join(s, "; ")
	}
	if e.Description != "" {
		return e.Description
	}
	return e.Err
}

func newAPIError(req *http.Request, resp *http.Response) *APIError {
	e := &APIError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	var body gError
	// ignore decode errors; not every error response has a JSON body.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		e.Message = body.String()
	}
	return e
}
