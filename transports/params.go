package transports

import (
	"encoding/json"
	"fmt"

	"rtvikit/core"

	"github.com/bytedance/sonic"
)

// SessionParams is what the bootstrap endpoint returns: enough for the engine
// to join a call. Raw holds the full response body.
type SessionParams struct {
	RoomURL string `json:"room_url"`
	Token   string `json:"token"`

	Raw json.RawMessage `json:"-"`
}

// ParseSessionParams decodes a bootstrap response body.
func ParseSessionParams(body []byte) (SessionParams, error) {
	var p SessionParams
	if err := sonic.Unmarshal(body, &p); err != nil {
		return SessionParams{}, fmt.Errorf("decode session params: %w", err)
	}
	p.Raw = append(json.RawMessage(nil), body...)
	return p, nil
}

// Validate checks that the params carry a room and a token.
func (p SessionParams) Validate() error {
	if p.RoomURL == "" || p.Token == "" {
		return fmt.Errorf("%w: missing `room_url` or `token`", core.ErrInvalidSessionParams)
	}
	return nil
}
