package gitlab

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// fakeProject is a project served by a fake GitLab.
type fakeProject struct {
	id    int64
	path  string
	notes map[int]int // iid to number of notes; every key is an issue
	// notes requests for these iids fail with the status.
	fail map[int]int
}

// fakeServer is a read-only subset of the GitLab REST API
// intended for testing API clients.
// Issue and note listings are paginated;
// a page past the end of a listing is empty.
type fakeServer struct {
	*httptest.Server
	projects []fakeProject

	mu       sync.Mutex
	requests []*http.Request
}

func newFakeServer(projects ...fakeProject) *fakeServer {
	srv := &fakeServer{projects: projects}
	srv.Server = httptest.NewServer(http.HandlerFunc(srv.serve))
	return srv
}

// requestURIs returns the request URIs received so far.
func (srv *fakeServer) requestURIs() []string {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	var s []string
	for _, req := range srv.requests {
		s = append(s, req.RequestURI)
	}
	return s
}

func (srv *fakeServer) serve(w http.ResponseWriter, req *http.Request) {
	srv.mu.Lock()
	srv.requests = append(srv.requests, req)
	srv.mu.Unlock()

	// split the escaped path so "group%2Fproject" stays one element.
	elems := strings.Split(strings.Trim(req.URL.EscapedPath(), "/"), "/")
	if len(elems) < 2 || elems[0] != "projects" {
		http.NotFound(w, req)
		return
	}
	name, err := url.PathUnescape(elems[1])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var project *fakeProject
	for i := range srv.projects {
		p := &srv.projects[i]
		if name == p.path || name == strconv.FormatInt(p.id, 10) {
			project = p
		}
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "404 Project Not Found")
		return
	}

	switch {
	case len(elems) == 2:
		fmt.Fprintf(w, `{"id": %d, "path_with_namespace": %q}`, project.id, project.path)
	case len(elems) == 3 && elems[2] == "issues":
		var issues []json.RawMessage
		for _, iid := range project.iids() {
			issues = append(issues, fakeIssue(project.id, iid))
		}
		writePage(w, req, issues)
	case len(elems) == 5 && elems[2] == "issues" && elems[4] == "notes":
		iid, err := strconv.Atoi(elems[3])
		if err != nil {
			http.NotFound(w, req)
			return
		}
		n, ok := project.notes[iid]
		if !ok {
			writeError(w, http.StatusNotFound, "404 Issue Not Found")
			return
		}
		if status, ok := project.fail[iid]; ok {
			writeError(w, status, http.StatusText(status))
			return
		}
		var notes []json.RawMessage
		for i := 1; i <= n; i++ {
			notes = append(notes, json.RawMessage(fmt.Sprintf(`{"id": %d, "body": "note %d of #%d", "system": false}`, iid*1000+i, i, iid)))
		}
		writePage(w, req, notes)
	default:
		http.NotFound(w, req)
	}
}

// iids returns the project's issue numbers, newest first like GitLab.
func (p *fakeProject) iids() []int {
	var iids []int
	for iid := range p.notes {
		iids = append(iids, iid)
	}
	for i := 1; i < len(iids); i++ {
		for j := i; j > 0 && iids[j] > iids[j-1]; j-- {
			iids[j], iids[j-1] = iids[j-1], iids[j]
		}
	}
	return iids
}

func fakeIssue(project int64, iid int) json.RawMessage {
	s := fmt.Sprintf(`{"id": %d, "iid": %d, "project_id": %d, "title": "Issue <%d>", "state": "opened", "labels": ["bug"]}`, project*100+int64(iid), iid, project, iid)
	return json.RawMessage(s)
}

func writePage(w http.ResponseWriter, req *http.Request, records []json.RawMessage) {
	page, err := strconv.Atoi(req.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(req.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 20
	}
	start := (page - 1) * perPage
	end := start + perPage
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(append([]json.RawMessage{}, records[start:end]...)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"message": %q}`, msg)
}
