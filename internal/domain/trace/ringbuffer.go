package trace

import "sync"

// RingBuffer is a concurrent-safe fixed-size ring buffer of request entries.
// When full, the oldest entry is overwritten.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	count   int
}

// NewRingBuffer creates a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 100
	}
	return &RingBuffer{entries: make([]Entry, size)}
}

// Add appends an entry, evicting the oldest when at capacity.
func (rb *RingBuffer) Add(e Entry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.next] = e
	rb.next = (rb.next + 1) % len(rb.entries)
	if rb.count < len(rb.entries) {
		rb.count++
	}
}

// Last returns up to n most recent entries in chronological order.
func (rb *RingBuffer) Last(n int) []Entry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n > rb.count {
		n = rb.count
	}
	if n <= 0 {
		return nil
	}

	size := len(rb.entries)
	out := make([]Entry, n)
	start := (rb.next - n + size) % size
	for i := range n {
		out[i] = rb.entries[(start+i)%size]
	}
	return out
}

// Count returns the number of entries currently stored.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}
