package session

import (
	"sync"

	"rtvikit/metrics"
	"rtvikit/protocol"
)

// ActionCallback receives the bot's answer to an action: an action-response,
// or an error-response when the action failed.
type ActionCallback func(resp *protocol.Message)

// ActionTable maps outstanding action ids to their callbacks.
type ActionTable struct {
	mu        sync.Mutex
	callbacks map[string]ActionCallback
}

func NewActionTable() *ActionTable {
	return &ActionTable{callbacks: make(map[string]ActionCallback)}
}

// Register stores cb under id, replacing any previous registration.
func (t *ActionTable) Register(id string, cb ActionCallback) {
	t.mu.Lock()
	if _, exists := t.callbacks[id]; !exists {
		metrics.ActionsPending.Inc()
	}
	t.callbacks[id] = cb
	t.mu.Unlock()
}

// Remove drops the registration for id, if any.
func (t *ActionTable) Remove(id string) {
	t.mu.Lock()
	if _, ok := t.callbacks[id]; ok {
		delete(t.callbacks, id)
		metrics.ActionsPending.Dec()
	}
	t.mu.Unlock()
}

// Resolve removes the callback registered under resp.ID and invokes it with
// resp. It reports false when no callback was registered.
func (t *ActionTable) Resolve(resp *protocol.Message) bool {
	t.mu.Lock()
	cb, ok := t.callbacks[resp.ID]
	if ok {
		delete(t.callbacks, resp.ID)
	}
	t.mu.Unlock()

	if !ok {
		metrics.ActionsUnresolved.Inc()
		return false
	}
	metrics.ActionsPending.Dec()
	metrics.ActionsResolved.Inc()
	if cb != nil {
		cb(resp)
	}
	return true
}

// Clear drops every registration without invoking the callbacks and returns
// how many were dropped.
func (t *ActionTable) Clear() int {
	t.mu.Lock()
	n := len(t.callbacks)
	clear(t.callbacks)
	t.mu.Unlock()
	metrics.ActionsPending.Sub(float64(n))
	return n
}

func (t *ActionTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.callbacks)
}
