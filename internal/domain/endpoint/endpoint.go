package endpoint

import (
	"fmt"
	"strings"
)

// Endpoint is the declarative configuration for one mock route. It is
// constructed at load time and immutable afterwards.
type Endpoint struct {
	ID  string
	URL string

	// ResponseProps is the response shape definition (see the value package).
	// Required unless StaticResponse is set.
	ResponseProps any

	// Pagination is a tri-state: nil means "implied by PerPage", an explicit
	// false disables pagination even when PerPage is set.
	Pagination *bool
	PerPage    int
	Total      int
	Singular   bool

	// Seed, when set, reseeds the shared generator once per request.
	Seed *uint64

	Status         int
	DelayMs        int
	StaticResponse any
	// Engine selects a template engine ("expr", "jinja2") for string
	// StaticResponse bodies. Empty means the body is served as-is.
	Engine         string
	ErrorRate      float64
	ResponseFormat string

	Conditions []Condition

	Cache       bool
	Methods     []string
	LogRequests bool

	// QueryParams remaps the recognized parameter names. Keys: search, sort,
	// order, filter, per_page, total.
	QueryParams map[string]string

	Throttle *Throttle

	// SourceFile / SourceIndex locate the definition on disk for CRUD.
	// SourceIndex is -1 for single-endpoint files.
	SourceFile  string
	SourceIndex int
}

// Condition pairs a request predicate with a response override. All listed
// header and query keys must match exactly; unlisted keys are ignored. Body
// clauses additionally match on extracted request body values.
type Condition struct {
	Headers map[string]string
	Query   map[string]string
	Body    *BodyClause

	Status   int
	Response any
}

// BodyClause holds extraction rules applied to the request body.
type BodyClause struct {
	// ContentType selects the extractor language: "json" (JSONPath) or
	// "xml" (XPath). Empty matches against the raw body.
	ContentType string
	Conditions  []BodyCondition
}

// BodyCondition is a single extraction + matching rule.
type BodyCondition struct {
	Extractor string
	Matcher   StringMatcher
}

// StringMatcher matches a string exactly (Exact set, "=" prefixed in YAML)
// or by regular expression (Pattern).
type StringMatcher struct {
	Exact   string
	Pattern string
}

// IsExact reports whether this matcher uses exact comparison.
func (m StringMatcher) IsExact() bool {
	return m.Exact != ""
}

// Value returns the raw string the matcher compares against.
func (m StringMatcher) Value() string {
	if m.Exact != "" {
		return m.Exact
	}
	return m.Pattern
}

// Throttle configures token-bucket rate limiting for an endpoint.
type Throttle struct {
	Rate  float64
	Burst int
}

var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// Validate checks the required fields and value ranges. Violations are
// configuration errors and abort loading before any route is registered.
func (e *Endpoint) Validate() error {
	if e.URL == "" {
		return fmt.Errorf("endpoint %q: url is required", e.ID)
	}
	if !strings.HasPrefix(e.URL, "/") {
		return fmt.Errorf("endpoint %q: url must start with '/', got %q", e.ID, e.URL)
	}
	if e.ResponseProps == nil && e.StaticResponse == nil && !hasConditionResponses(e.Conditions) {
		return fmt.Errorf("endpoint %q: responseProps is required unless staticResponse is set", e.ID)
	}
	if e.ErrorRate < 0 || e.ErrorRate > 1 {
		return fmt.Errorf("endpoint %q: errorRate must be within [0,1], got %v", e.ID, e.ErrorRate)
	}
	if e.PerPage < 0 {
		return fmt.Errorf("endpoint %q: perPage must be positive, got %d", e.ID, e.PerPage)
	}
	if e.Total < 0 {
		return fmt.Errorf("endpoint %q: total must be positive, got %d", e.ID, e.Total)
	}
	if e.DelayMs < 0 {
		return fmt.Errorf("endpoint %q: delay must not be negative, got %d", e.ID, e.DelayMs)
	}
	for _, m := range e.Methods {
		if !allowedMethods[strings.ToUpper(m)] {
			return fmt.Errorf("endpoint %q: unknown HTTP method %q", e.ID, m)
		}
	}
	if e.Throttle != nil && (e.Throttle.Rate <= 0 || e.Throttle.Burst <= 0) {
		return fmt.Errorf("endpoint %q: throttle rate and burst must be positive", e.ID)
	}
	return nil
}

func hasConditionResponses(conditions []Condition) bool {
	for _, c := range conditions {
		if c.Response != nil {
			return true
		}
	}
	return false
}
