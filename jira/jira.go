package jira

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"self"`
}

// issueNumber returns the number part of an issue key;
// 1 for TEST-1.
func issueNumber(key string) (int, error) {
	_, number, found := strings.Cut(key, "-")
	if !found {
		return 0, fmt.Errorf("issue key %q: missing - separator", key)
	}
	n, err := strconv.Atoi(number)
	if err != nil {
		return 0, fmt.Errorf("issue key %q: %w", key, err)
	}
	return n, nil
}

// APIError is returned when Jira responds with a status other than 200 OK.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	// Messages are Jira's explanations of the error, if any.
	Messages []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.URL, e.Status, strings.Join(e.Messages, "; "))
}

// jError is the body of Jira error responses.
type jError struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

func (e jError) messages() []string {
	m := append([]string{}, e.ErrorMessages...)
	var fields []string
	for k, v := range e.Errors {
		fields = append(fields, k+": "+v)
	}
	sort.Strings(fields)
	return append(m, fields...)
}
