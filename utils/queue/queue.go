// Package queue provides a bounded blocking FIFO used to hand outbound
// messages to a single consumer goroutine.
package queue

import (
	"sync"
)

// Queue is a FIFO with blocking Pop. A positive capacity bounds the queue;
// pushing onto a full queue discards the oldest item. Push never blocks.
type Queue[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []T
	capacity int
	stopped  bool
	onDrop   func(T)
}

// New creates a queue. capacity <= 0 means unbounded.
func New[T any](capacity int) *Queue[T] {
	q := &Queue[T]{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// OnDrop installs a hook invoked, outside the lock, for each item discarded
// on overflow.
func (q *Queue[T]) OnDrop(fn func(T)) {
	q.mu.Lock()
	q.onDrop = fn
	q.mu.Unlock()
}

// Push appends item and wakes one waiter. It reports false when the queue
// has been stopped and the item was not accepted.
func (q *Queue[T]) Push(item T) bool {
	var (
		dropped T
		didDrop bool
	)

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return false
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		dropped = q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		didDrop = true
	}
	q.items = append(q.items, item)
	onDrop := q.onDrop
	q.mu.Unlock()
	q.cond.Signal()

	if didDrop && onDrop != nil {
		onDrop(dropped)
	}
	return true
}

// Pop blocks until an item is available or the queue is stopped. After Stop
// it returns false immediately; items still queued are discarded.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.stopped {
		q.cond.Wait()
	}
	var zero T
	if q.stopped {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Stop wakes every blocked Pop. It is safe to call more than once.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.items = nil
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stopped reports whether Stop has been called.
func (q *Queue[T]) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}
