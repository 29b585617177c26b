// Package llm is the client helper for the bot's "llm" service: it answers
// function calls and builds the service's actions.
package llm

import (
	"encoding/json"
	"fmt"

	"rtvikit/core"
	"rtvikit/protocol"
	"rtvikit/session"

	"github.com/sashabaranov/go-openai"
)

// Service is the helper's registration name.
const Service = "llm"

const (
	MsgFunctionCall       protocol.MessageType = "llm-function-call"
	MsgFunctionCallStart  protocol.MessageType = "llm-function-call-start"
	MsgJSONCompletion     protocol.MessageType = "llm-json-completion"
	MsgFunctionCallResult protocol.MessageType = "llm-function-call-result"
)

// FunctionCallData is the payload of llm-function-call.
type FunctionCallData struct {
	FunctionName string          `json:"function_name"`
	ToolCallID   string          `json:"tool_call_id"`
	Args         json.RawMessage `json:"args"`
}

// ToolCall converts the call into the OpenAI tool call shape.
func (d FunctionCallData) ToolCall() openai.ToolCall {
	return openai.ToolCall{
		ID:   d.ToolCallID,
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      d.FunctionName,
			Arguments: string(d.Args),
		},
	}
}

type functionCallStartData struct {
	FunctionName string `json:"function_name"`
}

// FunctionCallResultData is the payload of llm-function-call-result.
type FunctionCallResultData struct {
	FunctionName string          `json:"function_name"`
	ToolCallID   string          `json:"tool_call_id"`
	Arguments    json.RawMessage `json:"arguments"`
	Result       interface{}     `json:"result"`
}

// Callbacks are the helper's hooks. A nil OnFunctionCall leaves function
// calls unanswered.
type Callbacks struct {
	// OnFunctionCall returns the function result. A nil result is reported
	// to the bot as an empty string.
	OnFunctionCall      func(call FunctionCallData) interface{}
	OnFunctionCallStart func(functionName string)
	OnJSONCompletion    func(data json.RawMessage)
}

// Helper implements session.Helper for the llm service.
type Helper struct {
	callbacks Callbacks
	logger    *core.Logger
}

var _ session.Helper = (*Helper)(nil)

func New(callbacks Callbacks, logger *core.Logger) *Helper {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Helper{
		callbacks: callbacks,
		logger:    logger.With(map[string]interface{}{"helper": Service}),
	}
}

func (h *Helper) SupportedMessages() []protocol.MessageType {
	return []protocol.MessageType{MsgFunctionCall, MsgFunctionCallStart, MsgJSONCompletion}
}

func (h *Helper) HandleMessage(sender session.Sender, msg *protocol.Message) error {
	switch msg.Type {
	case MsgFunctionCall:
		return h.handleFunctionCall(sender, msg)

	case MsgFunctionCallStart:
		if h.callbacks.OnFunctionCallStart == nil {
			return nil
		}
		if err := protocol.RequireFields(msg.Data, "function_name"); err != nil {
			return malformed(msg, err)
		}
		data, err := protocol.UnmarshalData[functionCallStartData](msg)
		if err != nil {
			return malformed(msg, err)
		}
		h.callbacks.OnFunctionCallStart(data.FunctionName)

	case MsgJSONCompletion:
		if h.callbacks.OnJSONCompletion != nil {
			h.callbacks.OnJSONCompletion(msg.Data)
		}
	}
	return nil
}

func (h *Helper) handleFunctionCall(sender session.Sender, msg *protocol.Message) error {
	if h.callbacks.OnFunctionCall == nil {
		return nil
	}
	if err := protocol.RequireFields(msg.Data, "function_name", "tool_call_id"); err != nil {
		return malformed(msg, err)
	}
	call, err := protocol.UnmarshalData[FunctionCallData](msg)
	if err != nil {
		return malformed(msg, err)
	}

	h.logger.With(map[string]interface{}{"function": call.FunctionName, "tool_call_id": call.ToolCallID}).Debug("function call")
	result := h.callbacks.OnFunctionCall(call)
	if result == nil {
		result = ""
	}
	args := call.Args
	if len(args) == 0 {
		args = json.RawMessage("null")
	}

	reply, err := protocol.NewMessage(MsgFunctionCallResult, FunctionCallResultData{
		FunctionName: call.FunctionName,
		ToolCallID:   call.ToolCallID,
		Arguments:    args,
		Result:       result,
	})
	if err != nil {
		return fmt.Errorf("llm: build function call result: %w", err)
	}
	if err := sender.SendMessage(reply); err != nil {
		return fmt.Errorf("llm: send function call result: %w", err)
	}
	return nil
}

func malformed(msg *protocol.Message, err error) error {
	return &core.MalformedMessageError{Type: string(msg.Type), Err: err}
}
