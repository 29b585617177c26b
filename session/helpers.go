package session

import (
	"slices"
	"sync"

	"rtvikit/protocol"
)

// Sender is the handle a helper uses to talk back to the bot.
type Sender interface {
	SendMessage(msg *protocol.Message) error
	SendAction(msg *protocol.Message, cb ActionCallback) error
}

// Helper handles the messages of one bot service.
type Helper interface {
	SupportedMessages() []protocol.MessageType
	HandleMessage(sender Sender, msg *protocol.Message) error
}

type helperEntry struct {
	service string
	helper  Helper
}

// HelperRegistry holds helpers keyed by service name, in registration order.
type HelperRegistry struct {
	mu      sync.RWMutex
	entries []helperEntry
}

func NewHelperRegistry() *HelperRegistry {
	return &HelperRegistry{}
}

// Register adds h for service. Re-registering a service replaces its helper
// and keeps its position.
func (r *HelperRegistry) Register(service string, h Helper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].service == service {
			r.entries[i].helper = h
			return
		}
	}
	r.entries = append(r.entries, helperEntry{service: service, helper: h})
}

// Unregister removes the helper for service and reports whether one existed.
func (r *HelperRegistry) Unregister(service string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].service == service {
			r.entries = slices.Delete(r.entries, i, i+1)
			return true
		}
	}
	return false
}

// Lookup returns a snapshot of the helpers that declare t.
func (r *HelperRegistry) Lookup(t protocol.MessageType) []Helper {
	r.mu.RLock()
	entries := slices.Clone(r.entries)
	r.mu.RUnlock()

	var out []Helper
	for _, e := range entries {
		if slices.Contains(e.helper.SupportedMessages(), t) {
			out = append(out, e.helper)
		}
	}
	return out
}

// Get returns the helper registered for service.
func (r *HelperRegistry) Get(service string) (Helper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.service == service {
			return e.helper, true
		}
	}
	return nil, false
}

// Services lists registered service names in registration order.
func (r *HelperRegistry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.service
	}
	return out
}
