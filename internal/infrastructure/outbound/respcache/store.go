// Package respcache provides the bounded, time-expiring response cache.
// Entries are evicted least-recently-used when the store exceeds its
// capacity, and expire after an absolute TTL independent of access.
package respcache

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/mockforge/mockforge/internal/infrastructure/ports"
)

var _ ports.ResponseCache = (*Store)(nil)

type entry struct {
	payload any
	expires time.Time
}

// Store is a process-wide LRU response cache with per-entry TTL. The
// underlying lru.Cache is not goroutine-safe, so all access is serialized
// through a mutex.
type Store struct {
	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
	clock ports.Clock
}

// New creates a Store bounded at maxEntries with the given TTL.
func New(maxEntries int, ttl time.Duration, clk ports.Clock) *Store {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{
		cache: lru.New(maxEntries),
		ttl:   ttl,
		clock: clk,
	}
}

// Get returns the cached payload for key, or a miss. Expired entries are
// removed on access.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if s.clock.Now().After(e.expires) {
		s.cache.Remove(key)
		return nil, false
	}
	return e.payload, true
}

// Set stores the payload under key, stamping it with the configured TTL.
// Whichever concurrent writer runs last wins the slot.
func (s *Store) Set(key string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Add(key, entry{
		payload: payload,
		expires: s.clock.Now().Add(s.ttl),
	})
}

// Flush drops all entries.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Clear()
}

// Len returns the number of entries currently stored, including any that
// have expired but not yet been evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
