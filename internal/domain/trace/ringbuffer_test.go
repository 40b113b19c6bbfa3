package trace_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mockforge/mockforge/internal/domain/trace"
)

func entry(path string) trace.Entry {
	return trace.Entry{Method: "GET", Path: path, Outcome: trace.OutcomeGenerated, Status: 200}
}

func TestRingBuffer_AddAndLast(t *testing.T) {
	rb := trace.NewRingBuffer(5)
	rb.Add(entry("/a"))
	rb.Add(entry("/b"))
	rb.Add(entry("/c"))

	got := rb.Last(2)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Path != "/b" || got[1].Path != "/c" {
		t.Errorf("expected chronological order [/b /c], got [%s %s]", got[0].Path, got[1].Path)
	}
}

func TestRingBuffer_OverwritesOldest(t *testing.T) {
	rb := trace.NewRingBuffer(3)
	for i := range 5 {
		rb.Add(entry(fmt.Sprintf("/%d", i)))
	}

	if rb.Count() != 3 {
		t.Errorf("expected count 3, got %d", rb.Count())
	}
	got := rb.Last(3)
	if got[0].Path != "/2" || got[2].Path != "/4" {
		t.Errorf("expected [/2 /3 /4], got %v", got)
	}
}

func TestRingBuffer_LastMoreThanStored(t *testing.T) {
	rb := trace.NewRingBuffer(10)
	rb.Add(entry("/only"))

	got := rb.Last(5)
	if len(got) != 1 || got[0].Path != "/only" {
		t.Errorf("expected single entry, got %v", got)
	}
}

func TestRingBuffer_LastZero(t *testing.T) {
	rb := trace.NewRingBuffer(3)
	rb.Add(entry("/a"))
	if got := rb.Last(0); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestRingBuffer_DefaultSize(t *testing.T) {
	rb := trace.NewRingBuffer(0)
	for i := range 150 {
		rb.Add(entry(fmt.Sprintf("/%d", i)))
	}
	if rb.Count() != 100 {
		t.Errorf("expected default capacity 100, got %d", rb.Count())
	}
}

func TestRingBuffer_ConcurrentAdd(t *testing.T) {
	rb := trace.NewRingBuffer(64)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				rb.Add(entry(fmt.Sprintf("/%d-%d", n, j)))
			}
		}(i)
	}
	wg.Wait()

	if rb.Count() != 64 {
		t.Errorf("expected full buffer, got %d", rb.Count())
	}
}
