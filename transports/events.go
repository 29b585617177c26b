package transports

import (
	"encoding/json"
)

// Event is one of the engine event variants below.
type Event interface {
	isEvent()
}

type ParticipantJoinedEvent struct {
	Participant Participant
}

type ParticipantUpdatedEvent struct {
	Participant Participant
}

type ParticipantLeftEvent struct {
	Participant Participant
	Reason      string
}

// AppMessageEvent carries an app message payload as received.
type AppMessageEvent struct {
	Data   json.RawMessage
	FromID string
}

// ErrorEvent is an engine-level error not tied to a request.
type ErrorEvent struct {
	Message string
}

// RequestCompletedEvent resolves an asynchronous engine call. Error is empty
// on success.
type RequestCompletedEvent struct {
	RequestID uint64
	Error     string
}

// AudioDataEvent delivers remote audio as interleaved PCM16.
type AudioDataEvent struct {
	Frames     []int16
	SampleRate int
	Channels   int
}

func (ParticipantJoinedEvent) isEvent()  {}
func (ParticipantUpdatedEvent) isEvent() {}
func (ParticipantLeftEvent) isEvent()    {}
func (AppMessageEvent) isEvent()         {}
func (ErrorEvent) isEvent()              {}
func (RequestCompletedEvent) isEvent()   {}
func (AudioDataEvent) isEvent()          {}
