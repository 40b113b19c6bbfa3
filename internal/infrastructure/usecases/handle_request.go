package usecases

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/mockforge/mockforge/internal/domain/gen"
	"github.com/mockforge/mockforge/internal/domain/mock"
	"github.com/mockforge/mockforge/internal/domain/query"
	"github.com/mockforge/mockforge/internal/domain/trace"
	"github.com/mockforge/mockforge/internal/domain/transform"
	"github.com/mockforge/mockforge/internal/domain/value"
	"github.com/mockforge/mockforge/internal/infrastructure/ports"
	"github.com/mockforge/mockforge/internal/infrastructure/services"
)

// HandleRequestResult is the outcome of serving a mock request. Payload is a
// JSON-able value; RenderedBody carries templated static bodies verbatim.
// Both nil means an empty body.
type HandleRequestResult struct {
	Status       int
	Payload      any
	RenderedBody []byte
	ContentType  string
	TraceEntry   trace.Entry
}

// HandleRequestUseCase serves requests against compiled endpoints.
type HandleRequestUseCase struct {
	gen         *gen.Context
	clock       ports.Clock
	rateLimiter ports.RateLimiter
	cache       ports.ResponseCache
	logger      ports.Logger
	traceBuf    *trace.RingBuffer
}

// NewHandleRequestUseCase creates a new use case.
func NewHandleRequestUseCase(
	g *gen.Context,
	clock ports.Clock,
	rateLimiter ports.RateLimiter,
	cache ports.ResponseCache,
	logger ports.Logger,
	traceBuf *trace.RingBuffer,
) *HandleRequestUseCase {
	return &HandleRequestUseCase{
		gen:         g,
		clock:       clock,
		rateLimiter: rateLimiter,
		cache:       cache,
		logger:      logger,
		traceBuf:    traceBuf,
	}
}

// Execute runs the request pipeline for one endpoint: method gate, throttle,
// simulated latency, error injection, cache, conditions, static responses and
// finally record generation with search/filter/sort/pagination applied.
//
// The delay runs right after the throttle gate, so every response the
// endpoint itself produces — injected errors and cache hits included —
// exhibits the configured latency; only throttled requests fail fast.
func (uc *HandleRequestUseCase) Execute(ctx context.Context, u *url.URL, req *mock.Request, ce *mock.CompiledEndpoint) HandleRequestResult {
	entry := trace.Entry{
		Timestamp: uc.clock.Now(),
		Method:    req.Method,
		Path:      req.Path,
		Query:     u.RawQuery,
		Endpoint:  ce.ID,
	}

	if !ce.Allows(req.Method) {
		uc.logger.Debug("method not allowed", "endpoint", ce.ID, "method", req.Method)
		entry.Outcome = trace.OutcomeMethodNotAllowed
		entry.Status = http.StatusMethodNotAllowed
		uc.traceBuf.Add(entry)
		return HandleRequestResult{Status: entry.Status, TraceEntry: entry}
	}

	if ce.Throttle != nil && !uc.rateLimiter.Allow(ctx, ce.ID, ce.Throttle.Rate, ce.Throttle.Burst) {
		uc.logger.Debug("request throttled", "endpoint", ce.ID)
		entry.Outcome = trace.OutcomeThrottled
		entry.Status = http.StatusTooManyRequests
		uc.traceBuf.Add(entry)
		return HandleRequestResult{
			Status:     entry.Status,
			Payload:    map[string]any{"error": "rate_limited"},
			TraceEntry: entry,
		}
	}

	if ce.LogRequests {
		uc.logger.Info("mock request",
			"method", req.Method, "path", req.Path, "query", u.RawQuery, "endpoint", ce.ID)
	}

	// Simulated latency applies to everything the endpoint itself serves,
	// injected errors included (respects context cancellation).
	if ce.Delay > 0 {
		if err := uc.clock.SleepContext(ctx, ce.Delay); err != nil {
			uc.logger.Debug("delay cancelled", "endpoint", ce.ID, "error", err)
		}
	}

	if ce.ErrorRate > 0 && rand.Float64() < ce.ErrorRate {
		entry.Outcome = trace.OutcomeErrorInjected
		entry.Status = http.StatusInternalServerError
		uc.traceBuf.Add(entry)
		return HandleRequestResult{
			Status:     entry.Status,
			Payload:    map[string]any{"error": "Simulated server error"},
			TraceEntry: entry,
		}
	}

	cacheKey := query.CacheKey(ce.URL, u.RawQuery)
	if ce.Cache {
		if payload, ok := uc.cache.Get(cacheKey); ok {
			return uc.finish(entry, trace.OutcomeCached, ce, ce.Status, payload)
		}
	}

	if ce.Seed != nil {
		uc.gen.Seed(*ce.Seed)
	}

	if matched := mock.FirstMatch(req, ce.Conditions); matched != nil {
		status := matched.Status
		if status == 0 {
			status = ce.Status
		}
		var payload any
		if matched.Response != nil {
			resolved, err := value.Resolve(matched.Response, uc.gen)
			if err != nil {
				return uc.fail(entry, ce, err)
			}
			payload = resolved
		}
		return uc.finish(entry, trace.OutcomeCondition, ce, status, payload)
	}

	if ce.Static != nil {
		if ce.Static.Renderer == nil {
			return uc.finish(entry, trace.OutcomeStatic, ce, ce.Status, ce.Static.Raw)
		}
		body, err := ce.Static.Renderer.Render(mock.RenderContext{
			Method:      req.Method,
			Path:        req.Path,
			Headers:     req.Headers,
			QueryParams: req.Query,
			PathParams:  req.PathParams,
			Body:        req.Body,
			Now:         uc.clock.Now().Format(time.RFC3339),
		})
		if err != nil {
			return uc.fail(entry, ce, err)
		}
		entry.Outcome = trace.OutcomeStatic
		entry.Status = ce.Status
		uc.traceBuf.Add(entry)
		return HandleRequestResult{
			Status:       ce.Status,
			RenderedBody: body,
			ContentType:  services.InferContentType("", body),
			TraceEntry:   entry,
		}
	}

	p := query.Parse(u, ce.Query)

	payload, err := uc.generate(ce, p)
	if err != nil {
		return uc.fail(entry, ce, err)
	}

	// The cache stores the shaped payload before responseFormat runs, so
	// hits and misses go through the same transform.
	if ce.Cache {
		uc.cache.Set(cacheKey, payload)
	}

	return uc.finish(entry, trace.OutcomeGenerated, ce, ce.Status, payload)
}

// generate resolves the response shape into the final payload: one record for
// singular endpoints, otherwise the page window; search, filter and sort apply
// to both, plus the pagination envelope when enabled.
func (uc *HandleRequestUseCase) generate(ce *mock.CompiledEndpoint, p query.Params) (any, error) {
	if ce.Singular {
		rec, err := uc.generateRecord(ce.Props, 1)
		if err != nil {
			return nil, err
		}
		// The single record still goes through search/filter/sort; an
		// excluded record answers with an empty object.
		survivors := transform.Apply([]map[string]any{rec}, p)
		if len(survivors) == 0 {
			return map[string]any{}, nil
		}
		return survivors[0], nil
	}

	records := make([]map[string]any, 0, p.EndID-p.StartID+1)
	for id := p.StartID; id <= p.EndID; id++ {
		rec, err := uc.generateRecord(ce.Props, id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	records = transform.Apply(records, p)

	if !p.Paginated {
		return records, nil
	}
	return map[string]any{
		"data":        records,
		"page":        p.Page,
		"per_page":    p.PerPage,
		"total":       p.Total,
		"total_pages": p.TotalPages,
	}, nil
}

func (uc *HandleRequestUseCase) generateRecord(props any, id int) (map[string]any, error) {
	resolved, err := value.Resolve(props, uc.gen)
	if err != nil {
		return nil, err
	}
	rec, ok := resolved.(map[string]any)
	if !ok {
		rec = map[string]any{"value": resolved}
	}
	rec["id"] = id
	return rec, nil
}

func (uc *HandleRequestUseCase) finish(entry trace.Entry, outcome trace.Outcome, ce *mock.CompiledEndpoint, status int, payload any) HandleRequestResult {
	if ce.Format != nil && payload != nil {
		formatted, err := ce.Format.Apply(payload)
		if err != nil {
			return uc.fail(entry, ce, err)
		}
		payload = formatted
	}
	entry.Outcome = outcome
	entry.Status = status
	uc.traceBuf.Add(entry)
	return HandleRequestResult{Status: status, Payload: payload, TraceEntry: entry}
}

func (uc *HandleRequestUseCase) fail(entry trace.Entry, ce *mock.CompiledEndpoint, err error) HandleRequestResult {
	uc.logger.Error("failed to build response", "endpoint", ce.ID, "error", err)
	entry.Outcome = trace.OutcomeFailed
	entry.Status = http.StatusInternalServerError
	uc.traceBuf.Add(entry)
	return HandleRequestResult{
		Status:     entry.Status,
		Payload:    map[string]any{"error": "generation_failed", "detail": err.Error()},
		TraceEntry: entry,
	}
}
