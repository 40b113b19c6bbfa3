// Package ratelimit provides per-endpoint token buckets backing the
// throttle policy.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mockforge/mockforge/internal/infrastructure/ports"
)

var _ ports.RateLimiter = (*BucketStore)(nil)

type bucket struct {
	limiter  *rate.Limiter
	rate     float64
	burst    int
	lastUsed time.Time
}

// BucketStore keeps one token bucket per key (endpoint ID). Buckets unused
// for longer than the TTL are evicted by a background loop.
type BucketStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	ttl     time.Duration
	stop    chan struct{}
}

// NewBucketStore creates a store and starts its eviction goroutine. Call
// Stop to terminate it.
func NewBucketStore(ttl time.Duration) *BucketStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	s := &BucketStore{
		buckets: make(map[string]*bucket),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

// Stop terminates the background eviction goroutine.
func (s *BucketStore) Stop() {
	close(s.stop)
}

// Allow reports whether a request for key fits within the bucket. When the
// configured rate or burst changes (hot reload), the existing bucket is
// updated in place.
func (s *BucketStore) Allow(_ context.Context, key string, r float64, burst int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(r), burst), rate: r, burst: burst}
		s.buckets[key] = b
	} else if b.rate != r || b.burst != burst {
		b.limiter.SetLimit(rate.Limit(r))
		b.limiter.SetBurst(burst)
		b.rate = r
		b.burst = burst
	}

	b.lastUsed = time.Now()
	return b.limiter.Allow()
}

// Evict removes buckets idle for longer than the TTL.
func (s *BucketStore) Evict() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	for key, b := range s.buckets {
		if b.lastUsed.Before(cutoff) {
			delete(s.buckets, key)
		}
	}
}

// Len returns the number of active buckets.
func (s *BucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *BucketStore) evictLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-s.stop:
			return
		}
	}
}
