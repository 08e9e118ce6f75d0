// Package inflight tracks visits with an unresolved remote transition so
// requests for the same visit are serialized.
package inflight

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records visits whose transition request has not yet resolved.
// A second request for a tracked visit is rejected until the first one
// finishes; requests for different visits are independent.
type Tracker interface {
	// Begin atomically checks whether id already has an in-flight
	// transition and claims it if not. Returns false if the claim
	// succeeded, true if a transition is already pending for id.
	Begin(ctx context.Context, id int64) bool

	// Finish releases id after its transition resolved, whether the
	// remote call committed or the local state was reverted.
	Finish(ctx context.Context, id int64)

	Size() int64
}

// inMemoryTracker implements Tracker with a mutex-guarded set. Entries are
// never evicted: an in-flight claim only goes away through Finish.
type inMemoryTracker struct {
	mu      sync.Mutex
	pending map[int64]struct{}
	size    atomic.Int64

	capacityHint int
}

// NewInMemoryTracker creates an in-memory tracker with configuration
// options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		capacityHint: defaultCapacityHint,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.pending = make(map[int64]struct{}, t.capacityHint)
	return t
}

func (t *inMemoryTracker) Begin(_ context.Context, id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.pending[id]; exists {
		return true
	}
	t.pending[id] = struct{}{}
	t.size.Add(1)
	return false
}

func (t *inMemoryTracker) Finish(_ context.Context, id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.pending[id]; exists {
		delete(t.pending, id)
		t.size.Add(-1)
	}
}

// Size returns the number of visits currently claimed.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
