package session

import (
	"context"
	"sync"
	"sync/atomic"

	"rtvikit/metrics"
)

// CompletionRegistry correlates asynchronous engine calls with the
// request-completed events that finish them.
type CompletionRegistry struct {
	next atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan error
}

func NewCompletionRegistry() *CompletionRegistry {
	return &CompletionRegistry{pending: make(map[uint64]chan error)}
}

// NextID allocates a request id with no waiter, for fire-and-forget calls.
func (r *CompletionRegistry) NextID() uint64 {
	return r.next.Add(1)
}

// Add allocates a request id and a one-shot waiter for it.
func (r *CompletionRegistry) Add() (uint64, <-chan error) {
	id := r.NextID()
	ch := make(chan error, 1)

	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()
	metrics.CompletionsPending.Inc()
	return id, ch
}

// Resolve signals and removes the waiter for id. Unknown ids are ignored.
func (r *CompletionRegistry) Resolve(id uint64, err error) bool {
	r.mu.Lock()
	ch, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	metrics.CompletionsPending.Dec()
	ch <- err
	return true
}

// Forget removes the waiter for id without signalling it.
func (r *CompletionRegistry) Forget(id uint64) {
	r.mu.Lock()
	_, ok := r.pending[id]
	delete(r.pending, id)
	r.mu.Unlock()
	if ok {
		metrics.CompletionsPending.Dec()
	}
}

// Wait blocks until id completes or ctx is done. With a context that never
// ends, a completion that is never reported blocks forever.
func (r *CompletionRegistry) Wait(ctx context.Context, id uint64, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		r.Forget(id)
		return ctx.Err()
	}
}

// Len returns the number of pending completions.
func (r *CompletionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
