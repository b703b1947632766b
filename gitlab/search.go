package gitlab

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseSearch parses a query string into issue listing parameters.
// A query string has a form similar to a search query of the GitHub REST API;
// it consists of keywords and qualifiers separated by whitespace.
// A qualifier is a string of the form "param:value". A keyword is a plain string.
// An example query: "database crash assignee:oliver"
// Another: "state:closed label:bug label:backend panic"
func ParseSearch(query string) (url.Values, error) {
	search := make(url.Values)
	var keywords, labels []string
	for _, field := range strings.Fields(query) {
		k, v, ok := strings.Cut(field, ":")
		if !ok {
			keywords = append(keywords, field)
			continue
		}
		if v == "" {
			return nil, fmt.Errorf("qualifier %s: missing value", k)
		}
		switch k {
		case "state":
			switch v {
			case "opened", "closed", "all":
			default:
				return nil, fmt.Errorf("unknown state %q", v)
			}
			search.Set("state", v)
		case "assignee":
			search.Set("assignee_username", v)
		case "author":
			search.Set("author_username", v)
		case "label":
			labels = append(labels, v)
		case "milestone":
			search.Set("milestone", v)
		default:
			return nil, fmt.Errorf("unknown qualifier %s", k)
		}
	}
	if len(labels) > 0 {
		search.Set("labels", strings.Join(labels, ","))
	}
	if len(keywords) > 0 {
		// concatenate keywords with spaces between each
		search.Set("search", strings.Join(keywords, " "))
	}
	return search, nil
}
