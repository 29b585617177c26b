package protocol

import (
	"encoding/json"
	"fmt"
)

// NewMessage builds a labelled message with a fresh id. data may be nil, a
// json.RawMessage, or any value sonic can encode.
func NewMessage(t MessageType, data interface{}) (*Message, error) {
	raw, err := MarshalData(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:    NewID(),
		Label: Label,
		Type:  t,
		Data:  raw,
	}, nil
}

// mustMessage is used by builders whose payloads always encode.
func mustMessage(t MessageType, data interface{}) *Message {
	msg, err := NewMessage(t, data)
	if err != nil {
		panic(fmt.Sprintf("protocol: build %q: %v", t, err))
	}
	return msg
}

func ClientReady() *Message     { return mustMessage(MsgClientReady, nil) }
func GetConfig() *Message       { return mustMessage(MsgGetConfig, nil) }
func DescribeConfig() *Message  { return mustMessage(MsgDescribeConfig, nil) }
func DescribeActions() *Message { return mustMessage(MsgDescribeActions, nil) }

// UpdateConfig replaces the bot pipeline configuration. With interrupt set the
// bot stops what it is doing before applying it.
func UpdateConfig(config json.RawMessage, interrupt bool) *Message {
	return mustMessage(MsgUpdateConfig, UpdateConfigData{Config: config, Interrupt: interrupt})
}

// Action builds an action message for service. arguments is encoded as-is.
func Action(service, action string, arguments interface{}) (*Message, error) {
	args, err := MarshalData(arguments)
	if err != nil {
		return nil, err
	}
	return NewMessage(MsgAction, ActionData{
		Service:   service,
		Action:    action,
		Arguments: args,
	})
}
