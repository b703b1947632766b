package jira

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
)

// newFakeServer returns a fake Jira server holding the project TEST.
// comments maps the number of each TEST issue to its comment count.
//
// The server provides a limited read-only subset of the Jira HTTP API
// intended for testing API clients.
// All search requests list every issue, whatever the JQL query.
// Requests without the basic auth credentials user:secret are refused.
func newFakeServer(comments map[int]int) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/project/", func(w http.ResponseWriter, req *http.Request) {
		if path.Base(req.URL.Path) != "TEST" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errorMessages": ["No project could be found with key 'NOPE'."], "errors": {}}`)
			return
		}
		fmt.Fprint(w, `{"id": "10000", "key": "TEST", "name": "Test project", "self": "http://jira.example.com/rest/api/2/project/10000"}`)
	})
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, req *http.Request) {
		var issues []any
		for n := 1; n <= len(comments); n++ {
			issues = append(issues, map[string]any{
				"id":     strconv.Itoa(10000 + n),
				"key":    fmt.Sprintf("TEST-%d", n),
				"fields": map[string]any{"summary": fmt.Sprintf("issue %d", n)},
			})
		}
		writeList(w, req, "issues", issues)
	})
	mux.HandleFunc("/rest/api/2/issue/", func(w http.ResponseWriter, req *http.Request) {
		if match, _ := path.Match("/rest/api/2/issue/*/comment", req.URL.Path); !match {
			http.NotFound(w, req)
			return
		}
		key := path.Base(path.Dir(req.URL.Path))
		n, err := strconv.Atoi(strings.TrimPrefix(key, "TEST-"))
		if err != nil {
			http.NotFound(w, req)
			return
		}
		var list []any
		for i := 1; i <= comments[n]; i++ {
			list = append(list, map[string]any{"id": strconv.Itoa(n*100 + i), "body": fmt.Sprintf("comment %d on %s", i, key)})
		}
		writeList(w, req, "comments", list)
	})
	return httptest.NewServer(authenticate(mux))
}

func authenticate(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		user, pass, ok := req.BasicAuth()
		if !ok || user != "user" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"errorMessages": ["You are not authenticated."]}`)
			return
		}
		h.ServeHTTP(w, req)
	})
}

// writeList writes the slice of items selected by startAt and maxResults
// as the named field of an object, along with the paging fields.
func writeList(w http.ResponseWriter, req *http.Request, name string, items []any) {
	start, _ := strconv.Atoi(req.URL.Query().Get("startAt"))
	max, err := strconv.Atoi(req.URL.Query().Get("maxResults"))
	if err != nil {
		max = 50
	}
	end := start + max
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	v := map[string]any{
		"startAt":    start,
		"maxResults": max,
		"total":      len(items),
		name:         append([]any{}, items[start:end]...),
	}
	json.NewEncoder(w).Encode(v)
}
