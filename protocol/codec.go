package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

var (
	errMissingType = errors.New("missing type field")
	errMissingData = errors.New("missing data field")
)

// requirer is implemented by payloads that must carry specific fields.
type requirer interface {
	requiredFields() []string
}

// Marshal encodes a message to its wire form.
func Marshal(msg *Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("protocol: marshal nil message")
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %q: %w", msg.Type, err)
	}
	return data, nil
}

// Unmarshal decodes a wire message. Messages that do not carry the RTVI label
// are returned as-is so the caller can decide to ignore them; labelled
// messages without a type are rejected.
func Unmarshal(data []byte) (*Message, error) {
	var msg Message
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("protocol: unmarshal message: %w", err)
	}
	if msg.Label == Label && msg.Type == "" {
		return nil, fmt.Errorf("protocol: %w", errMissingType)
	}
	return &msg, nil
}

// IsProtocol reports whether the message carries the RTVI label.
func (m *Message) IsProtocol() bool {
	return m != nil && m.Label == Label
}

// UnmarshalData decodes the message payload into T. When T declares required
// fields, each must be present in the payload.
func UnmarshalData[T any](msg *Message) (T, error) {
	var v T
	if r, ok := any(v).(requirer); ok {
		if len(msg.Data) == 0 || string(msg.Data) == "null" {
			return v, errMissingData
		}
		if err := RequireFields(msg.Data, r.requiredFields()...); err != nil {
			return v, err
		}
	}
	if len(msg.Data) == 0 {
		return v, nil
	}
	if err := sonic.Unmarshal(msg.Data, &v); err != nil {
		return v, fmt.Errorf("protocol: unmarshal %q data: %w", msg.Type, err)
	}
	return v, nil
}

// RequireFields checks that every named top-level field exists in the JSON object.
func RequireFields(data json.RawMessage, fields ...string) error {
	for _, field := range fields {
		node, err := sonic.Get(data, field)
		if err != nil || !node.Exists() {
			return fmt.Errorf("missing %q field", field)
		}
	}
	return nil
}

// MarshalData encodes a typed payload for use as Message.Data.
func MarshalData(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal data: %w", err)
	}
	return b, nil
}

// HasLabel reports whether a raw JSON object carries the RTVI label, without
// decoding the rest of it.
func HasLabel(data []byte) bool {
	node, err := sonic.Get(data, "label")
	if err != nil {
		return false
	}
	label, err := node.String()
	return err == nil && label == Label
}
