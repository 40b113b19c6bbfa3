package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/antchfx/xmlquery"

	"github.com/mockforge/mockforge/internal/domain/endpoint"
	"github.com/mockforge/mockforge/internal/domain/mock"
	"github.com/mockforge/mockforge/internal/domain/query"
	"github.com/mockforge/mockforge/internal/domain/value"
)

// exprKey marks a mapping leaf as a compiled value callback, e.g.
// {"$expr": "gen('person.firstName')"}.
const exprKey = "$expr"

// TemplateRegistry compiles the three expression flavors an endpoint can
// carry: templated static bodies, responseFormat transforms and $expr
// value callbacks.
type TemplateRegistry interface {
	Compile(engine, name, source string) (mock.BodyRenderer, error)
	CompileFormat(name, source string) (mock.PayloadTransform, error)
	CompileValue(name, source string) (value.Func, error)
}

// Compiler transforms declarative endpoint definitions into compiled
// endpoints with precompiled predicates, templates and callbacks.
type Compiler struct {
	registry TemplateRegistry // nil means no template support
}

// NewCompiler creates a Compiler. registry may be nil, in which case
// endpoints using engines, responseFormat or $expr fail to compile.
func NewCompiler(registry TemplateRegistry) *Compiler {
	return &Compiler{registry: registry}
}

// CompileEndpoint validates an Endpoint and turns it into a CompiledEndpoint.
func (c *Compiler) CompileEndpoint(e *endpoint.Endpoint) (*mock.CompiledEndpoint, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	props, err := c.compileProps(e.ID, e.ResponseProps)
	if err != nil {
		return nil, fmt.Errorf("failed to compile endpoint %q: %w", e.ID, err)
	}

	conditions, err := c.compileConditions(e.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to compile conditions for %q: %w", e.ID, err)
	}

	static, err := c.compileStatic(e)
	if err != nil {
		return nil, fmt.Errorf("failed to compile static response for %q: %w", e.ID, err)
	}

	ce := &mock.CompiledEndpoint{
		ID:          e.ID,
		URL:         e.URL,
		Methods:     upperMethods(e.Methods),
		Status:      e.Status,
		Delay:       time.Duration(e.DelayMs) * time.Millisecond,
		ErrorRate:   e.ErrorRate,
		Cache:       e.Cache,
		LogRequests: e.LogRequests,
		Singular:    e.Singular,
		Seed:        e.Seed,
		Props:       props,
		Static:      static,
		Conditions:  conditions,
		Query:       queryConfig(e),
	}

	if ce.Status == 0 {
		ce.Status = http.StatusOK
	}

	if e.ResponseFormat != "" {
		if c.registry == nil {
			return nil, fmt.Errorf("endpoint %q: responseFormat requested but no registry configured", e.ID)
		}
		format, err := c.registry.CompileFormat(e.ID, e.ResponseFormat)
		if err != nil {
			return nil, err
		}
		ce.Format = format
	}

	if e.Throttle != nil {
		ce.Throttle = &mock.CompiledThrottle{
			Rate:  e.Throttle.Rate,
			Burst: e.Throttle.Burst,
		}
	}

	return ce, nil
}

// compileProps walks the response shape and replaces {"$expr": ...} leaves
// with compiled value callbacks. Everything else passes through untouched
// for the value package to resolve per request.
func (c *Compiler) compileProps(id string, def any) (any, error) {
	switch v := def.(type) {
	case map[string]any:
		if src, ok := exprSource(v); ok {
			if c.registry == nil {
				return nil, fmt.Errorf("$expr callback requested but no registry configured")
			}
			return c.registry.CompileValue(id, src)
		}
		out := make(map[string]any, len(v))
		for key, child := range v {
			compiled, err := c.compileProps(id+"."+key, child)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", key, err)
			}
			out[key] = compiled
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			compiled, err := c.compileProps(fmt.Sprintf("%s[%d]", id, i), child)
			if err != nil {
				return nil, err
			}
			out[i] = compiled
		}
		return out, nil
	default:
		return def, nil
	}
}

func exprSource(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	src, ok := m[exprKey].(string)
	return src, ok
}

func (c *Compiler) compileConditions(conditions []endpoint.Condition) ([]mock.CompiledCondition, error) {
	if len(conditions) == 0 {
		return nil, nil
	}
	compiled := make([]mock.CompiledCondition, 0, len(conditions))
	for i, cond := range conditions {
		cc, err := c.compileCondition(cond)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		compiled = append(compiled, cc)
	}
	return compiled, nil
}

func (c *Compiler) compileCondition(cond endpoint.Condition) (mock.CompiledCondition, error) {
	var predicates []mock.FieldPredicate

	// Header predicates, sorted for deterministic ordering.
	for _, name := range sortedKeys(cond.Headers) {
		predicates = append(predicates, mock.FieldPredicate{
			Field:     "header:" + http.CanonicalHeaderKey(name),
			Predicate: exactPredicate(cond.Headers[name]),
		})
	}

	for _, name := range sortedKeys(cond.Query) {
		predicates = append(predicates, mock.FieldPredicate{
			Field:     "query:" + name,
			Predicate: exactPredicate(cond.Query[name]),
		})
	}

	if cond.Body != nil {
		bodyPreds, err := compileBodyClause(cond.Body)
		if err != nil {
			return mock.CompiledCondition{}, err
		}
		predicates = append(predicates, bodyPreds...)
	}

	return mock.CompiledCondition{
		Predicates: predicates,
		Status:     cond.Status,
		Response:   cond.Response,
	}, nil
}

func compileBodyClause(bc *endpoint.BodyClause) ([]mock.FieldPredicate, error) {
	var predicates []mock.FieldPredicate
	for _, cond := range bc.Conditions {
		p, err := compileBodyCondition(cond, bc.ContentType)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}
	return predicates, nil
}

func compileBodyCondition(cond endpoint.BodyCondition, contentType string) (mock.FieldPredicate, error) {
	matcher, err := compileStringMatcher(cond.Matcher)
	if err != nil {
		return mock.FieldPredicate{}, fmt.Errorf("body condition %q: %w", cond.Extractor, err)
	}

	switch strings.ToLower(contentType) {
	case "json":
		return mock.FieldPredicate{
			Field:     "body:" + cond.Extractor,
			Predicate: jsonPathPredicate(cond.Extractor, matcher),
		}, nil
	case "xml":
		return mock.FieldPredicate{
			Field:     "body:" + cond.Extractor,
			Predicate: xpathPredicate(cond.Extractor, matcher),
		}, nil
	default:
		// No content type — match against the raw body.
		return mock.FieldPredicate{
			Field:     "body",
			Predicate: matcher,
		}, nil
	}
}

func compileStringMatcher(m endpoint.StringMatcher) (mock.Predicate, error) {
	if m.IsExact() {
		return exactPredicate(m.Exact), nil
	}
	if m.Pattern == "" {
		return mock.Always(), nil
	}
	return regexPredicate(m.Pattern)
}

func exactPredicate(expected string) mock.Predicate {
	return func(s string) bool {
		return s == expected
	}
}

func regexPredicate(pattern string) (mock.Predicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return func(s string) bool {
		return re.MatchString(s)
	}, nil
}

// jsonPathPredicate extracts a value via JSONPath and matches it.
func jsonPathPredicate(expr string, valueMatcher mock.Predicate) mock.Predicate {
	return func(body string) bool {
		var data any
		if err := json.Unmarshal([]byte(body), &data); err != nil {
			return false
		}

		result, err := jsonpath.Get(expr, data)
		if err != nil {
			return false
		}

		return valueMatcher(fmt.Sprintf("%v", result))
	}
}

// xpathPredicate extracts a value via XPath and matches it.
func xpathPredicate(expr string, valueMatcher mock.Predicate) mock.Predicate {
	return func(body string) bool {
		doc, err := xmlquery.Parse(strings.NewReader(body))
		if err != nil {
			return false
		}

		node := xmlquery.FindOne(doc, expr)
		if node == nil {
			return false
		}

		return valueMatcher(node.InnerText())
	}
}

func (c *Compiler) compileStatic(e *endpoint.Endpoint) (*mock.CompiledStatic, error) {
	if e.StaticResponse == nil {
		return nil, nil
	}

	if e.Engine == "" {
		return &mock.CompiledStatic{Raw: e.StaticResponse}, nil
	}

	source, ok := e.StaticResponse.(string)
	if !ok {
		return nil, fmt.Errorf("engine %q requires a string staticResponse, got %T", e.Engine, e.StaticResponse)
	}
	if c.registry == nil {
		return nil, fmt.Errorf("template engine %q requested but no registry configured", e.Engine)
	}
	renderer, err := c.registry.Compile(e.Engine, e.ID, source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile template (engine=%s): %w", e.Engine, err)
	}
	return &mock.CompiledStatic{Renderer: renderer}, nil
}

func queryConfig(e *endpoint.Endpoint) query.Config {
	names := query.DefaultParamNames()
	if remapped, ok := e.QueryParams["search"]; ok && remapped != "" {
		names.Search = remapped
	}
	if remapped, ok := e.QueryParams["sort"]; ok && remapped != "" {
		names.Sort = remapped
	}
	if remapped, ok := e.QueryParams["order"]; ok && remapped != "" {
		names.Order = remapped
	}
	if remapped, ok := e.QueryParams["filter"]; ok && remapped != "" {
		names.Filter = remapped
	}
	if remapped, ok := e.QueryParams["per_page"]; ok && remapped != "" {
		names.PerPage = remapped
	}
	if remapped, ok := e.QueryParams["total"]; ok && remapped != "" {
		names.Total = remapped
	}

	return query.Config{
		Names:      names,
		Pagination: e.Pagination,
		PerPage:    e.PerPage,
		Total:      e.Total,
	}
}

func upperMethods(methods []string) []string {
	if len(methods) == 0 {
		return nil
	}
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = strings.ToUpper(m)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
