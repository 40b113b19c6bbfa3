package mock

import "strings"

// Request represents an incoming HTTP request in domain terms, free of
// net/http.
type Request struct {
	Method     string
	Path       string
	Headers    map[string]string
	Query      map[string]string
	PathParams map[string]string
	Body       []byte
}

// FirstMatch evaluates conditions in order and returns the first whose
// predicates all match, or nil. Unlisted request fields are ignored; a
// condition with no predicates matches everything.
func FirstMatch(req *Request, conditions []CompiledCondition) *CompiledCondition {
	body := string(req.Body)
	for i := range conditions {
		if matches(req, body, &conditions[i]) {
			return &conditions[i]
		}
	}
	return nil
}

func matches(req *Request, body string, c *CompiledCondition) bool {
	for _, fp := range c.Predicates {
		if !fp.Predicate(fieldValue(req, body, fp.Field)) {
			return false
		}
	}
	return true
}

// fieldValue resolves a predicate field against the request. Body predicates
// receive the raw body; their extractors parse it internally.
func fieldValue(req *Request, body, field string) string {
	switch {
	case field == "body" || strings.HasPrefix(field, "body:"):
		return body
	case strings.HasPrefix(field, "header:"):
		return req.Headers[field[len("header:"):]]
	case strings.HasPrefix(field, "query:"):
		return req.Query[field[len("query:"):]]
	case field == "method":
		return req.Method
	case field == "path":
		return req.Path
	default:
		return ""
	}
}
