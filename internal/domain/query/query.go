// Package query normalizes request query strings into the parameters driving
// pagination, search, filter and sort.
package query

import (
	"net/url"
	"strconv"
)

const (
	// DefaultPerPage is the page size used when neither the request nor the
	// endpoint configures one.
	DefaultPerPage = 10
	// DefaultTotal is the record count used when otherwise unconfigured.
	DefaultTotal = 10
)

// ParamNames holds the recognized query parameter names. Endpoints may remap
// any of them.
type ParamNames struct {
	Search  string
	Sort    string
	Order   string
	Filter  string
	PerPage string
	Total   string
}

// DefaultParamNames returns the standard parameter names.
func DefaultParamNames() ParamNames {
	return ParamNames{
		Search:  "q",
		Sort:    "sort",
		Order:   "order",
		Filter:  "filter",
		PerPage: "per_page",
		Total:   "total",
	}
}

// Config is the per-endpoint input to parsing: the (possibly remapped)
// parameter names and the endpoint's static pagination settings.
type Config struct {
	Names ParamNames
	// Pagination is tri-state: nil means implied by an explicit per-page
	// value, false disables pagination outright.
	Pagination *bool
	PerPage    int
	Total      int
}

// Params is the normalized result of interpreting a request URL.
type Params struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
	StartID    int
	EndID      int
	Paginated  bool

	Search      string
	SortField   string
	SortOrder   string
	FilterField string
	FilterValue string
}

// Parse interprets the request URL against the endpoint's query config.
//
// Resolution order for per-page and total: request query value (if numeric)
// over endpoint config over the global default. Out-of-range page requests
// are clamped into [1, totalPages] rather than rejected; the nearest valid
// page is served silently.
func Parse(u *url.URL, cfg Config) Params {
	names := cfg.Names
	if names.Search == "" {
		names = DefaultParamNames()
	}
	q := u.Query()

	p := Params{
		Search:    q.Get(names.Search),
		SortField: q.Get(names.Sort),
		SortOrder: normalizeOrder(q.Get(names.Order)),
	}

	// The filter parameter's value names a second parameter holding the
	// actual filter value.
	if field := q.Get(names.Filter); field != "" {
		p.FilterField = field
		p.FilterValue = q.Get(field)
	}

	perPageExplicit := false
	p.PerPage = DefaultPerPage
	if cfg.PerPage > 0 {
		p.PerPage = cfg.PerPage
		perPageExplicit = true
	}
	if n, ok := positiveInt(q.Get(names.PerPage)); ok {
		p.PerPage = n
		perPageExplicit = true
	}

	p.Total = DefaultTotal
	if cfg.Total > 0 {
		p.Total = cfg.Total
	}
	if n, ok := positiveInt(q.Get(names.Total)); ok {
		p.Total = n
	}

	switch {
	case cfg.Pagination != nil:
		p.Paginated = *cfg.Pagination
	default:
		p.Paginated = perPageExplicit
	}

	if !p.Paginated {
		p.Page = 1
		p.TotalPages = 1
		p.StartID = 1
		p.EndID = p.Total
		return p
	}

	p.TotalPages = (p.Total + p.PerPage - 1) / p.PerPage
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}

	p.Page = 1
	if n, ok := positiveInt(q.Get("page")); ok {
		p.Page = n
	}
	if p.Page > p.TotalPages {
		p.Page = p.TotalPages
	}

	p.StartID = (p.Page-1)*p.PerPage + 1
	p.EndID = p.StartID + p.PerPage - 1
	if p.EndID > p.Total {
		p.EndID = p.Total
	}
	return p
}

// CacheKey builds the response cache key for a request. The query string
// suffix is omitted when empty.
func CacheKey(endpointURL, rawQuery string) string {
	if rawQuery == "" {
		return endpointURL
	}
	return endpointURL + "?" + rawQuery
}

func normalizeOrder(s string) string {
	if s == "desc" {
		return "desc"
	}
	return "asc"
}

func positiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
