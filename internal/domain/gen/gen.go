package gen

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
)

// ErrUnknownPath is returned when a dotted generator path does not resolve
// to a registered generator. Callers should wrap it with the offending path.
var ErrUnknownPath = errors.New("unknown generator path")

// Context is the generator capability handed to value resolution. It wraps a
// seedable faker instance; reseeding replaces the underlying source so the
// same seed always reproduces the same value sequence.
//
// A Context is shared process-wide by design: endpoints that configure a seed
// reseed it once per request, and generator state advances normally across
// the records of a single response.
type Context struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewContext creates a Context with a randomly seeded source.
func NewContext() *Context {
	return &Context{faker: gofakeit.New(0)}
}

// NewSeededContext creates a Context reproducible from the given seed.
func NewSeededContext(seed uint64) *Context {
	return &Context{faker: gofakeit.New(seed)}
}

// Seed resets the generator state so subsequent lookups replay the sequence
// produced by this seed.
func (c *Context) Seed(seed uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faker = gofakeit.New(seed)
}

// Lookup resolves a dotted path (e.g. "person.firstName") against the
// generator registry. Function entries are invoked, constant entries are
// returned as-is. Unknown paths fail closed with ErrUnknownPath.
func (c *Context) Lookup(path string) (any, error) {
	entry, ok := registry[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPath, path)
	}
	if entry.fn == nil {
		return entry.constant, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return entry.fn(c.faker), nil
}

// Has reports whether a dotted path is registered.
func Has(path string) bool {
	_, ok := registry[path]
	return ok
}
