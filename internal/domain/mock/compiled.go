package mock

import (
	"strings"
	"time"

	"github.com/mockforge/mockforge/internal/domain/query"
)

// RenderContext provides request data for dynamic static-response rendering.
type RenderContext struct {
	Method      string
	Path        string
	Headers     map[string]string
	QueryParams map[string]string
	PathParams  map[string]string
	Body        []byte
	Now         string // ISO-8601 timestamp
}

// BodyRenderer renders a templated static response. Nil means the static
// body is served verbatim.
type BodyRenderer interface {
	Render(ctx RenderContext) ([]byte, error)
}

// PayloadTransform post-processes the shaped payload just before dispatch.
// Implementations are pure by contract: payload in, payload out.
type PayloadTransform interface {
	Apply(payload any) (any, error)
}

// CompiledCondition is a condition with its predicates compiled. The first
// condition whose predicates all match wins.
type CompiledCondition struct {
	Predicates []FieldPredicate
	Status     int
	Response   any
}

// CompiledStatic is a resolved static response: either a raw JSON-able value
// or a template renderer producing the body bytes.
type CompiledStatic struct {
	Raw      any
	Renderer BodyRenderer
}

// CompiledThrottle holds resolved throttle parameters.
type CompiledThrottle struct {
	Rate  float64
	Burst int
}

// CompiledEndpoint is an endpoint configuration resolved and validated,
// ready to serve requests.
type CompiledEndpoint struct {
	ID  string
	URL string

	// Methods is the uppercased allow-list; empty means any method.
	Methods []string

	Status      int
	Delay       time.Duration
	ErrorRate   float64
	Cache       bool
	LogRequests bool
	Singular    bool
	Seed        *uint64

	// Props is the response shape definition with callback leaves
	// precompiled (see the value package union).
	Props any

	Static     *CompiledStatic
	Conditions []CompiledCondition
	Format     PayloadTransform
	Query      query.Config
	Throttle   *CompiledThrottle
}

// Allows reports whether the request method passes the allow-list.
func (e *CompiledEndpoint) Allows(method string) bool {
	if len(e.Methods) == 0 {
		return true
	}
	method = strings.ToUpper(method)
	for _, m := range e.Methods {
		if m == method {
			return true
		}
	}
	return false
}
