// Package transports defines the media engine the RTVI session drives and
// the events the engine reports back.
package transports

import (
	"context"
	"encoding/json"
)

// EventHandler receives engine events. It may be called from any goroutine
// and concurrently with itself.
type EventHandler func(Event)

// Engine is the call engine behind a session: it owns network session setup,
// app-message delivery and audio routing. Asynchronous calls take a request
// id that the engine later reports back in a RequestCompletedEvent.
type Engine interface {
	// Initialize acquires process-wide engine resources. It is idempotent.
	Initialize() error
	SetEventHandler(h EventHandler)

	// Open prepares a call for params. It does not join.
	Open(ctx context.Context, params SessionParams) error
	UpdateSubscriptionProfiles(requestID uint64, profiles json.RawMessage) error
	Join(requestID uint64, params SessionParams, settings json.RawMessage) error
	Leave(requestID uint64) error
	SendAppMessage(requestID uint64, data []byte) error
	SetAudioRenderer(requestID uint64, participantID string) error

	// WriteAudio feeds microphone samples and returns how many were accepted.
	// It must not block.
	WriteAudio(frames []int16) int

	// Close tears down the current call. The engine can be opened again.
	Close() error
	// Release gives back what Initialize acquired.
	Release() error
}
