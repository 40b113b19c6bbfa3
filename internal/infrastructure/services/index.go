package services

import (
	"fmt"
	"sort"

	"github.com/mockforge/mockforge/internal/domain/mock"
)

// EndpointIndex maps request URLs to compiled endpoints. URLs are unique:
// adding a second endpoint for the same URL is a configuration error.
type EndpointIndex struct {
	entries map[string]*mock.CompiledEndpoint
	byID    map[string]*mock.CompiledEndpoint
	urls    []string
}

// NewEndpointIndex creates an empty index.
func NewEndpointIndex() *EndpointIndex {
	return &EndpointIndex{
		entries: make(map[string]*mock.CompiledEndpoint),
		byID:    make(map[string]*mock.CompiledEndpoint),
	}
}

// Add inserts a compiled endpoint into the index.
func (idx *EndpointIndex) Add(ce *mock.CompiledEndpoint) error {
	if existing, ok := idx.entries[ce.URL]; ok {
		return fmt.Errorf("duplicate url %q (endpoints %q and %q)", ce.URL, existing.ID, ce.ID)
	}
	if existing, ok := idx.byID[ce.ID]; ok {
		return fmt.Errorf("duplicate endpoint id %q (urls %q and %q)", ce.ID, existing.URL, ce.URL)
	}
	idx.entries[ce.URL] = ce
	idx.byID[ce.ID] = ce
	return nil
}

// Build collects and sorts the registered URLs.
func (idx *EndpointIndex) Build() {
	idx.urls = make([]string, 0, len(idx.entries))
	for url := range idx.entries {
		idx.urls = append(idx.urls, url)
	}
	sort.Strings(idx.urls)
}

// Lookup returns the endpoint registered for a URL, or nil.
func (idx *EndpointIndex) Lookup(url string) *mock.CompiledEndpoint {
	return idx.entries[url]
}

// ByID returns the endpoint with the given ID, or nil.
func (idx *EndpointIndex) ByID(id string) *mock.CompiledEndpoint {
	return idx.byID[id]
}

// URLs returns all registered URLs in sorted order.
func (idx *EndpointIndex) URLs() []string {
	return idx.urls
}

// All returns all compiled endpoints in URL order.
func (idx *EndpointIndex) All() []*mock.CompiledEndpoint {
	all := make([]*mock.CompiledEndpoint, 0, len(idx.urls))
	for _, url := range idx.urls {
		all = append(all, idx.entries[url])
	}
	return all
}

// Len returns the number of registered endpoints.
func (idx *EndpointIndex) Len() int {
	return len(idx.entries)
}
