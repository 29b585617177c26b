package daily

import (
	"encoding/json"

	"rtvikit/transports"
)

// Relay methods sent by the engine.
const (
	methodUpdateSubscriptionProfiles = "updateSubscriptionProfiles"
	methodJoin                       = "join"
	methodLeave                      = "leave"
	methodSendAppMessage             = "sendAppMessage"
	methodSetAudioRenderer           = "setParticipantAudioRenderer"
	methodSendAudio                  = "sendAudio"
)

// Relay event actions received by the engine.
const (
	actionParticipantJoined  = "participant-joined"
	actionParticipantUpdated = "participant-updated"
	actionParticipantLeft    = "participant-left"
	actionAppMessage         = "app-message"
	actionError              = "error"
	actionRequestCompleted   = "request-completed"
	actionAudioData          = "audio-data"
)

// RequestID correlates a relay call with its request-completed event.
type RequestID struct {
	ID uint64 `json:"id"`
}

// RelayRequest is a frame sent to the relay.
type RelayRequest struct {
	Method    string     `json:"method"`
	RequestID *RequestID `json:"requestId,omitempty"`

	RoomURL  string          `json:"roomUrl,omitempty"`
	Token    string          `json:"token,omitempty"`
	UserName string          `json:"userName,omitempty"`
	Settings json.RawMessage `json:"settings,omitempty"`
	Profiles json.RawMessage `json:"profiles,omitempty"`

	MsgData       json.RawMessage `json:"msgData,omitempty"`
	ParticipantID string          `json:"participantId,omitempty"`
	Track         string          `json:"track,omitempty"`

	// Base64 audio payload for sendAudio.
	Audio      string `json:"audio,omitempty"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// RelayEvent is a frame received from the relay. Its shape follows the
// Daily core event stream.
type RelayEvent struct {
	Action string `json:"action"`

	Participant json.RawMessage `json:"participant,omitempty"`
	LeftReason  string          `json:"leftReason,omitempty"`

	MsgData json.RawMessage `json:"msgData,omitempty"`
	FromID  string          `json:"fromId,omitempty"`

	ErrorMsg string `json:"errorMsg,omitempty"`

	RequestID *RequestID `json:"requestId,omitempty"`
	Error     string     `json:"error,omitempty"`

	Audio      string `json:"audio,omitempty"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

func request(method string, id uint64) RelayRequest {
	return RelayRequest{Method: method, RequestID: &RequestID{ID: id}}
}

var _ transports.Engine = (*Engine)(nil)
