// Package backup copies every issue of an issue tracker project,
// together with each issue's comment thread, into a single JSON document.
//
// Trackers are read a page at a time through the Tracker interface.
// Issues are enriched in tracker order: the comments of an issue are
// completely fetched before the next issue is considered.
// Nothing is written unless every request succeeds.
package backup

import (
	"context"
	"encoding/json"
	"log"
)

// PageSize is the number of records requested per page
// when a Job does not specify its own.
const PageSize = 100

// Project identifies a project on a tracker.
type Project struct {
	ID   int64
	Path string // as understood by the tracker, e.g. "group/subgroup/project"
}

// A Tracker lists a project's issues and comments one page at a time.
// Pages are numbered from 1. An empty page marks the end of a listing.
type Tracker interface {
	Project(ctx context.Context, path string) (*Project, error)
	Issues(ctx context.Context, p *Project, page, perPage int) ([]Issue, error)
	Comments(ctx context.Context, p *Project, issue, page, perPage int) ([]json.RawMessage, error)
}

// A Job copies the issues of a project from Tracker.
type Job struct {
	Tracker  Tracker
	PageSize int         // PageSize if zero
	Log      *log.Logger // progress messages; discarded if nil
}

// Run resolves the project at path, collects all its issues and comments,
// then writes them to the named file.
// Errors from the tracker or the file system are returned unchanged.
// The file is not touched if any request fails.
func (j *Job) Run(ctx context.Context, path, name string) error {
	p, err := j.Tracker.Project(ctx, path)
	if err != nil {
		return err
	}
	j.logf("resolved project %s: id %d", path, p.ID)
	issues, err := j.Issues(ctx, p)
	if err != nil {
		return err
	}
	if err := Write(name, issues); err != nil {
		return err
	}
	j.logf("backup complete: %d issues saved in %s", len(issues), name)
	return nil
}

// Issues returns every issue of p in tracker order,
// each holding its complete comment thread.
func (j *Job) Issues(ctx context.Context, p *Project) ([]Issue, error) {
	issues := []Issue{}
	fetch := func(page int) ([]Issue, error) {
		return j.Tracker.Issues(ctx, p, page, j.pageSize())
	}
	err := paginate(ctx, fetch, func(is Issue) error {
		comments, err := j.Comments(ctx, p, is.Number)
		if err != nil {
			return err
		}
		is.Comments = comments
		issues = append(issues, is)
		j.logf("fetched %d comments for issue %d", len(comments), is.Number)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// Comments returns every comment of the numbered issue in tracker order.
// The result is never nil.
func (j *Job) Comments(ctx context.Context, p *Project, issue int) ([]json.RawMessage, error) {
	comments := []json.RawMessage{}
	fetch := func(page int) ([]json.RawMessage, error) {
		return j.Tracker.Comments(ctx, p, issue, page, j.pageSize())
	}
	err := paginate(ctx, fetch, func(c json.RawMessage) error {
		comments = append(comments, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (j *Job) pageSize() int {
	if j.PageSize <= 0 {
		return PageSize
	}
	return j.PageSize
}

func (j *Job) logf(format string, v ...any) {
	if j.Log != nil {
		j.Log.Printf(format, v...)
	}
}

// paginate calls fetch with pages 1, 2, 3 and so on,
// passing each record in turn to fn,
// until fetch returns an empty page or an error.
func paginate[T any](ctx context.Context, fetch func(page int) ([]T, error), fn func(T) error) error {
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, err := fetch(page)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		for _, r := range records {
			if err := fn(r); err != nil {
				return err
			}
		}
	}
}
