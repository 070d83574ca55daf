package omnifetch

import (
	"context"
	"sync"
)

// flightEntry is an in-flight request shared between an owner and waiters.
// The stored *Response is immutable, so all callers may read the same value.
type flightEntry struct {
	mu   sync.Mutex
	resp *Response
	err  error
	done chan struct{}
}

// flightGroup coalesces concurrent identical requests: the first caller for
// a key owns the network execution, later callers wait for its result.
type flightGroup struct {
	mu      sync.Mutex
	entries map[string]*flightEntry
}

func newFlightGroup() *flightGroup {
	return &flightGroup{entries: make(map[string]*flightEntry)}
}

// join returns the entry for key and whether the caller is the owner.
func (g *flightGroup) join(key string) (*flightEntry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if entry, exists := g.entries[key]; exists {
		return entry, false
	}

	entry := &flightEntry{done: make(chan struct{})}
	g.entries[key] = entry
	return entry, true
}

// complete finalizes the entry for key, releases its waiters and removes it
// so the next identical request executes fresh. Waiters hold the entry
// pointer, so removal is safe immediately.
func (g *flightGroup) complete(key string, resp *Response, err error) {
	g.mu.Lock()
	entry, exists := g.entries[key]
	if exists {
		delete(g.entries, key)
	}
	g.mu.Unlock()

	if !exists {
		return
	}

	entry.mu.Lock()
	entry.resp = resp
	entry.err = err
	entry.mu.Unlock()
	close(entry.done)
}

// wait blocks until the owner completes or ctx is cancelled.
func (e *flightEntry) wait(ctx context.Context) (*Response, error) {
	select {
	case <-e.done:
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.resp, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
