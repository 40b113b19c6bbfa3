package usecases_test

import (
	"context"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/mockforge/mockforge/internal/domain/gen"
	"github.com/mockforge/mockforge/internal/domain/mock"
	"github.com/mockforge/mockforge/internal/domain/query"
	"github.com/mockforge/mockforge/internal/domain/trace"
	"github.com/mockforge/mockforge/internal/infrastructure/usecases"
	"github.com/mockforge/mockforge/internal/testutil"
)

type handleFixture struct {
	uc       *usecases.HandleRequestUseCase
	cache    *testutil.MemoryCache
	limiter  *testutil.StubRateLimiter
	clock    *testutil.CountingClock
	traceBuf *trace.RingBuffer
}

func newHandleFixture() *handleFixture {
	f := &handleFixture{
		cache:    testutil.NewMemoryCache(),
		limiter:  &testutil.StubRateLimiter{AllowAll: true},
		clock:    &testutil.CountingClock{T: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		traceBuf: trace.NewRingBuffer(32),
	}
	f.uc = usecases.NewHandleRequestUseCase(
		gen.NewSeededContext(7), f.clock, f.limiter, f.cache, &testutil.NoopLogger{}, f.traceBuf)
	return f
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("bad url %q: %v", raw, err)
	}
	return u
}

func basicEndpoint() *mock.CompiledEndpoint {
	return &mock.CompiledEndpoint{
		ID:     "users",
		URL:    "/users",
		Status: 200,
		Props:  map[string]any{"name": "person.firstName"},
	}
}

func TestHandleRequest_GeneratesRecords(t *testing.T) {
	f := newHandleFixture()

	res := f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "GET", Path: "/users"}, basicEndpoint())

	if res.Status != 200 {
		t.Fatalf("expected 200, got %d", res.Status)
	}
	records, ok := res.Payload.([]map[string]any)
	if !ok {
		t.Fatalf("expected bare record list, got %T", res.Payload)
	}
	if len(records) != query.DefaultTotal {
		t.Fatalf("expected %d records, got %d", query.DefaultTotal, len(records))
	}
	if records[0]["id"] != 1 || records[9]["id"] != 10 {
		t.Errorf("expected ids 1..10, got %v and %v", records[0]["id"], records[9]["id"])
	}
	if name, ok := records[0]["name"].(string); !ok || name == "" {
		t.Errorf("expected generated name, got %v", records[0]["name"])
	}
	if res.TraceEntry.Outcome != trace.OutcomeGenerated {
		t.Errorf("expected generated outcome, got %q", res.TraceEntry.Outcome)
	}
}

func TestHandleRequest_PaginationEnvelope(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Query = query.Config{PerPage: 10, Total: 25}

	res := f.uc.Execute(context.Background(), mustURL(t, "/users?page=2"), &mock.Request{Method: "GET", Path: "/users"}, ce)

	envelope, ok := res.Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected envelope, got %T", res.Payload)
	}
	if envelope["page"] != 2 || envelope["per_page"] != 10 || envelope["total"] != 25 || envelope["total_pages"] != 3 {
		t.Errorf("unexpected envelope metadata: %v", envelope)
	}
	records := envelope["data"].([]map[string]any)
	if len(records) != 10 {
		t.Fatalf("expected 10 records on page 2, got %d", len(records))
	}
	if records[0]["id"] != 11 || records[9]["id"] != 20 {
		t.Errorf("expected ids 11..20, got %v and %v", records[0]["id"], records[9]["id"])
	}
}

func TestHandleRequest_Singular(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Singular = true

	res := f.uc.Execute(context.Background(), mustURL(t, "/profile"), &mock.Request{Method: "GET", Path: "/profile"}, ce)

	rec, ok := res.Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected single record, got %T", res.Payload)
	}
	if rec["id"] != 1 {
		t.Errorf("expected id 1, got %v", rec["id"])
	}
}

func TestHandleRequest_SingularSearchExcludes(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Singular = true
	ce.Props = map[string]any{"role": "admin"}

	res := f.uc.Execute(context.Background(), mustURL(t, "/profile?q=nomatchzzz"), &mock.Request{Method: "GET", Path: "/profile"}, ce)

	if res.Status != 200 {
		t.Fatalf("expected 200, got %d", res.Status)
	}
	rec, ok := res.Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected empty object, got %T", res.Payload)
	}
	if len(rec) != 0 {
		t.Errorf("expected search miss to answer with {}, got %v", rec)
	}
}

func TestHandleRequest_SingularSearchMatches(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Singular = true
	ce.Props = map[string]any{"role": "admin"}

	res := f.uc.Execute(context.Background(), mustURL(t, "/profile?q=admin"), &mock.Request{Method: "GET", Path: "/profile"}, ce)

	rec, ok := res.Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected single record, got %T", res.Payload)
	}
	if rec["role"] != "admin" || rec["id"] != 1 {
		t.Errorf("expected the matched record back, got %v", rec)
	}
}

func TestHandleRequest_SingularFilterExcludes(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Singular = true
	ce.Props = map[string]any{"role": "admin"}

	res := f.uc.Execute(context.Background(), mustURL(t, "/profile?filter=role&role=viewer"), &mock.Request{Method: "GET", Path: "/profile"}, ce)

	rec, ok := res.Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected empty object, got %T", res.Payload)
	}
	if len(rec) != 0 {
		t.Errorf("expected filter miss to answer with {}, got %v", rec)
	}
}

func TestHandleRequest_MethodNotAllowed(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Methods = []string{"GET"}

	res := f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "POST", Path: "/users"}, ce)

	if res.Status != 405 {
		t.Fatalf("expected 405, got %d", res.Status)
	}
	if res.Payload != nil || res.RenderedBody != nil {
		t.Error("expected empty body for method not allowed")
	}
	if res.TraceEntry.Outcome != trace.OutcomeMethodNotAllowed {
		t.Errorf("expected method_not_allowed outcome, got %q", res.TraceEntry.Outcome)
	}
}

func TestHandleRequest_Throttled(t *testing.T) {
	f := newHandleFixture()
	f.limiter.AllowAll = false
	ce := basicEndpoint()
	ce.Throttle = &mock.CompiledThrottle{Rate: 1, Burst: 1}

	res := f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "GET", Path: "/users"}, ce)

	if res.Status != 429 {
		t.Fatalf("expected 429, got %d", res.Status)
	}
	if res.TraceEntry.Outcome != trace.OutcomeThrottled {
		t.Errorf("expected throttled outcome, got %q", res.TraceEntry.Outcome)
	}
}

func TestHandleRequest_ErrorInjection(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.ErrorRate = 1.0

	res := f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "GET", Path: "/users"}, ce)

	if res.Status != 500 {
		t.Fatalf("expected 500, got %d", res.Status)
	}
	payload := res.Payload.(map[string]any)
	if payload["error"] != "Simulated server error" {
		t.Errorf("unexpected error payload: %v", payload)
	}
	if res.TraceEntry.Outcome != trace.OutcomeErrorInjected {
		t.Errorf("expected error_injected outcome, got %q", res.TraceEntry.Outcome)
	}
}

func TestHandleRequest_ErrorRateZeroNeverFires(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.ErrorRate = 0

	for i := 0; i < 20; i++ {
		res := f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "GET", Path: "/users"}, ce)
		if res.Status != 200 {
			t.Fatalf("expected 200 on iteration %d, got %d", i, res.Status)
		}
	}
}

func TestHandleRequest_CacheRoundTrip(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Cache = true

	first := f.uc.Execute(context.Background(), mustURL(t, "/users?page=1"), &mock.Request{Method: "GET", Path: "/users"}, ce)
	second := f.uc.Execute(context.Background(), mustURL(t, "/users?page=1"), &mock.Request{Method: "GET", Path: "/users"}, ce)

	if !reflect.DeepEqual(first.Payload, second.Payload) {
		t.Error("expected identical payload from cache")
	}
	if second.TraceEntry.Outcome != trace.OutcomeCached {
		t.Errorf("expected cached outcome, got %q", second.TraceEntry.Outcome)
	}
	if _, ok := f.cache.Entries["/users?page=1"]; !ok {
		t.Errorf("expected cache keyed by url and query, keys: %v", f.cache.Entries)
	}
}

func TestHandleRequest_CacheKeyOmitsEmptyQuery(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Cache = true

	f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "GET", Path: "/users"}, ce)

	if _, ok := f.cache.Entries["/users"]; !ok {
		t.Errorf("expected bare url cache key, keys: %v", f.cache.Entries)
	}
}

func TestHandleRequest_ConditionPrecedesGeneration(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Conditions = []mock.CompiledCondition{
		{
			Predicates: []mock.FieldPredicate{
				{Field: "header:X-Role", Predicate: func(s string) bool { return s == "admin" }},
			},
			Status:   403,
			Response: map[string]any{"message": "forbidden"},
		},
	}

	res := f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{
		Method:  "GET",
		Path:    "/users",
		Headers: map[string]string{"X-Role": "admin"},
	}, ce)

	if res.Status != 403 {
		t.Fatalf("expected condition status 403, got %d", res.Status)
	}
	payload := res.Payload.(map[string]any)
	if payload["message"] != "forbidden" {
		t.Errorf("unexpected condition payload: %v", payload)
	}
	if res.TraceEntry.Outcome != trace.OutcomeCondition {
		t.Errorf("expected condition outcome, got %q", res.TraceEntry.Outcome)
	}

	// Unmatched requests fall through to generation.
	fallthroughRes := f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{
		Method: "GET",
		Path:   "/users",
	}, ce)
	if fallthroughRes.Status != 200 {
		t.Errorf("expected 200 fallthrough, got %d", fallthroughRes.Status)
	}
}

func TestHandleRequest_StaticRaw(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Props = nil
	ce.Static = &mock.CompiledStatic{Raw: map[string]any{"status": "ok"}}

	res := f.uc.Execute(context.Background(), mustURL(t, "/health"), &mock.Request{Method: "GET", Path: "/health"}, ce)

	payload := res.Payload.(map[string]any)
	if payload["status"] != "ok" {
		t.Errorf("unexpected static payload: %v", payload)
	}
	if res.TraceEntry.Outcome != trace.OutcomeStatic {
		t.Errorf("expected static outcome, got %q", res.TraceEntry.Outcome)
	}
}

func TestHandleRequest_StaticRendered(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Props = nil
	ce.Static = &mock.CompiledStatic{
		Renderer: &testutil.StubBodyRenderer{Result: []byte(`{"rendered":true}`)},
	}

	res := f.uc.Execute(context.Background(), mustURL(t, "/greeting"), &mock.Request{Method: "GET", Path: "/greeting"}, ce)

	if string(res.RenderedBody) != `{"rendered":true}` {
		t.Errorf("unexpected rendered body: %q", res.RenderedBody)
	}
	if res.ContentType == "" {
		t.Error("expected inferred content type")
	}
}

func TestHandleRequest_DelayUsesClock(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Delay = 150 * time.Millisecond

	f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "GET", Path: "/users"}, ce)

	if len(f.clock.Slept) != 1 || f.clock.Slept[0] != 150*time.Millisecond {
		t.Errorf("expected one 150ms sleep, got %v", f.clock.Slept)
	}
}

func TestHandleRequest_SeedDeterminism(t *testing.T) {
	seed := uint64(42)
	ce := basicEndpoint()
	ce.Seed = &seed

	f1 := newHandleFixture()
	f2 := newHandleFixture()
	res1 := f1.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "GET", Path: "/users"}, ce)
	res2 := f2.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "GET", Path: "/users"}, ce)

	if !reflect.DeepEqual(res1.Payload, res2.Payload) {
		t.Error("expected identical payloads for the same seed")
	}
}

func TestHandleRequest_UnknownPathFails(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Props = map[string]any{"name": "no.such.generator"}

	res := f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "GET", Path: "/users"}, ce)

	if res.Status != 500 {
		t.Fatalf("expected 500, got %d", res.Status)
	}
	if res.TraceEntry.Outcome != trace.OutcomeFailed {
		t.Errorf("expected failed outcome, got %q", res.TraceEntry.Outcome)
	}
}

func TestHandleRequest_ResponseFormatApplies(t *testing.T) {
	f := newHandleFixture()
	ce := basicEndpoint()
	ce.Format = payloadWrapper{}

	res := f.uc.Execute(context.Background(), mustURL(t, "/users"), &mock.Request{Method: "GET", Path: "/users"}, ce)

	wrapped, ok := res.Payload.(map[string]any)
	if !ok || wrapped["wrapped"] == nil {
		t.Errorf("expected wrapped payload, got %v", res.Payload)
	}
}

type payloadWrapper struct{}

func (payloadWrapper) Apply(payload any) (any, error) {
	return map[string]any{"wrapped": payload}, nil
}

func TestHandleRequest_TraceRecorded(t *testing.T) {
	f := newHandleFixture()

	f.uc.Execute(context.Background(), mustURL(t, "/users?page=1"), &mock.Request{Method: "GET", Path: "/users"}, basicEndpoint())

	entries := f.traceBuf.Last(10)
	if len(entries) != 1 {
		t.Fatalf("expected 1 trace entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Method != "GET" || e.Path != "/users" || e.Query != "page=1" || e.Endpoint != "users" {
		t.Errorf("unexpected trace entry: %+v", e)
	}
}
