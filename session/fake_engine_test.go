package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"rtvikit/transports"
)

type engineCall struct {
	Method string
	ID     uint64
	Data   []byte
	Target string
}

// fakeEngine records calls. With autoComplete set it answers every request
// from another goroutine, as a real engine would.
type fakeEngine struct {
	mu           sync.Mutex
	handler      transports.EventHandler
	calls        []engineCall
	autoComplete bool
	failMethod   string
	openErr      error
	audio        [][]int16
	closed       int

	sent chan engineCall
}

func newFakeEngine(auto bool) *fakeEngine {
	return &fakeEngine{autoComplete: auto, sent: make(chan engineCall, 64)}
}

func (f *fakeEngine) Initialize() error { return nil }
func (f *fakeEngine) Release() error    { return nil }

func (f *fakeEngine) SetEventHandler(h transports.EventHandler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *fakeEngine) Open(ctx context.Context, params transports.SessionParams) error {
	if f.openErr != nil {
		return f.openErr
	}
	return params.Validate()
}

func (f *fakeEngine) record(c engineCall) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	auto := f.autoComplete
	fail := f.failMethod == c.Method
	f.mu.Unlock()

	if fail {
		return errors.New("engine refused " + c.Method)
	}
	if c.Method == "sendAppMessage" {
		f.sent <- c
	}
	if auto {
		go f.complete(c.ID, "")
	}
	return nil
}

func (f *fakeEngine) complete(id uint64, errMsg string) {
	f.emit(transports.RequestCompletedEvent{RequestID: id, Error: errMsg})
}

func (f *fakeEngine) emit(ev transports.Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *fakeEngine) UpdateSubscriptionProfiles(id uint64, profiles json.RawMessage) error {
	return f.record(engineCall{Method: "updateSubscriptionProfiles", ID: id, Data: profiles})
}

func (f *fakeEngine) Join(id uint64, params transports.SessionParams, settings json.RawMessage) error {
	return f.record(engineCall{Method: "join", ID: id, Data: settings})
}

func (f *fakeEngine) Leave(id uint64) error {
	return f.record(engineCall{Method: "leave", ID: id})
}

func (f *fakeEngine) SendAppMessage(id uint64, data []byte) error {
	return f.record(engineCall{Method: "sendAppMessage", ID: id, Data: data})
}

func (f *fakeEngine) SetAudioRenderer(id uint64, participantID string) error {
	f.mu.Lock()
	f.calls = append(f.calls, engineCall{Method: "setAudioRenderer", ID: id, Target: participantID})
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) WriteAudio(frames []int16) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, frames)
	return len(frames)
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Method
	}
	return out
}

func (f *fakeEngine) nextSent(t *testing.T) engineCall {
	t.Helper()
	select {
	case c := <-f.sent:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for app message")
		return engineCall{}
	}
}

func (f *fakeEngine) assertNoSend(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case c := <-f.sent:
		t.Fatalf("unexpected app message %s", c.Data)
	case <-time.After(wait):
	}
}

func (f *fakeEngine) setAuto(auto bool) {
	f.mu.Lock()
	f.autoComplete = auto
	f.mu.Unlock()
}

func (f *fakeEngine) callsSnapshot() []engineCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engineCall(nil), f.calls...)
}
