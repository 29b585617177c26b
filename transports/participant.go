package transports

import (
	"encoding/json"
)

// MicrophoneStatePlayable means the participant's audio track can be rendered.
const MicrophoneStatePlayable = "playable"

type ParticipantInfo struct {
	IsLocal  bool   `json:"isLocal"`
	UserName string `json:"userName,omitempty"`
}

type TrackState struct {
	State string `json:"state"`
}

type ParticipantMedia struct {
	Microphone TrackState `json:"microphone"`
}

// Participant is a call member as reported by the engine. Raw keeps the
// engine's full description.
type Participant struct {
	ID    string           `json:"id"`
	Info  ParticipantInfo  `json:"info"`
	Media ParticipantMedia `json:"media"`

	Raw json.RawMessage `json:"-"`
}

// MicrophonePlayable reports whether the participant's microphone track is playable.
func (p Participant) MicrophonePlayable() bool {
	return p.Media.Microphone.State == MicrophoneStatePlayable
}
