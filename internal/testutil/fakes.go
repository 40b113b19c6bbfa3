package testutil

import (
	"context"
	"time"

	"github.com/mockforge/mockforge/internal/domain/mock"
	"github.com/mockforge/mockforge/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)  {}
func (l *NoopLogger) Warn(string, ...any)  {}
func (l *NoopLogger) Error(string, ...any) {}
func (l *NoopLogger) Debug(string, ...any) {}

var _ ports.Clock = (*FixedClock)(nil)

// FixedClock returns a settable time and never sleeps.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }
func (c *FixedClock) SleepContext(context.Context, time.Duration) error {
	return nil
}

var _ ports.Clock = (*CountingClock)(nil)

// CountingClock records requested sleep durations without sleeping.
type CountingClock struct {
	T     time.Time
	Slept []time.Duration
}

func (c *CountingClock) Now() time.Time { return c.T }
func (c *CountingClock) SleepContext(_ context.Context, d time.Duration) error {
	c.Slept = append(c.Slept, d)
	return nil
}

var _ ports.RateLimiter = (*StubRateLimiter)(nil)

// StubRateLimiter returns a configurable Allow result.
type StubRateLimiter struct {
	AllowAll bool
}

func (r *StubRateLimiter) Allow(context.Context, string, float64, int) bool {
	return r.AllowAll
}

var _ ports.ResponseCache = (*MemoryCache)(nil)

// MemoryCache is a map-backed response cache without eviction.
type MemoryCache struct {
	Entries map[string]any
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{Entries: make(map[string]any)}
}

func (c *MemoryCache) Get(key string) (any, bool) {
	v, ok := c.Entries[key]
	return v, ok
}

func (c *MemoryCache) Set(key string, payload any) {
	c.Entries[key] = payload
}

func (c *MemoryCache) Flush() {
	c.Entries = make(map[string]any)
}

var _ mock.BodyRenderer = (*StubBodyRenderer)(nil)

// StubBodyRenderer returns a configurable render result.
type StubBodyRenderer struct {
	Result []byte
	Err    error
}

func (r *StubBodyRenderer) Render(mock.RenderContext) ([]byte, error) {
	return r.Result, r.Err
}
