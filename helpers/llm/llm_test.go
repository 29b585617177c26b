package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"rtvikit/core"
	"rtvikit/protocol"
	"rtvikit/session"

	"github.com/bytedance/sonic"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []*protocol.Message
	err  error
}

func (s *recordingSender) SendMessage(msg *protocol.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) SendAction(msg *protocol.Message, _ session.ActionCallback) error {
	return s.SendMessage(msg)
}

func inbound(t *testing.T, typ protocol.MessageType, data string) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(typ, json.RawMessage(data))
	require.NoError(t, err)
	return msg
}

func TestSupportedMessages(t *testing.T) {
	h := New(Callbacks{}, nil)
	assert.ElementsMatch(t,
		[]protocol.MessageType{MsgFunctionCall, MsgFunctionCallStart, MsgJSONCompletion},
		h.SupportedMessages())
}

func TestFunctionCallReplies(t *testing.T) {
	var got FunctionCallData
	h := New(Callbacks{
		OnFunctionCall: func(call FunctionCallData) interface{} {
			got = call
			return map[string]string{"conditions": "sunny"}
		},
	}, nil)
	sender := &recordingSender{}

	msg := inbound(t, MsgFunctionCall, `{"function_name":"get_weather","tool_call_id":"call_1","args":{"location":"Lisbon"}}`)
	require.NoError(t, h.HandleMessage(sender, msg))

	assert.Equal(t, "get_weather", got.FunctionName)
	assert.Equal(t, "call_1", got.ToolCallID)
	assert.JSONEq(t, `{"location":"Lisbon"}`, string(got.Args))

	require.Len(t, sender.sent, 1)
	reply := sender.sent[0]
	assert.Equal(t, MsgFunctionCallResult, reply.Type)
	assert.Equal(t, protocol.Label, reply.Label)
	assert.JSONEq(t,
		`{"function_name":"get_weather","tool_call_id":"call_1","arguments":{"location":"Lisbon"},"result":{"conditions":"sunny"}}`,
		string(reply.Data))
}

func TestFunctionCallWithoutResultSendsEmptyString(t *testing.T) {
	h := New(Callbacks{OnFunctionCall: func(FunctionCallData) interface{} { return nil }}, nil)
	sender := &recordingSender{}

	msg := inbound(t, MsgFunctionCall, `{"function_name":"noop","tool_call_id":"call_2","args":{}}`)
	require.NoError(t, h.HandleMessage(sender, msg))

	require.Len(t, sender.sent, 1)
	assert.JSONEq(t,
		`{"function_name":"noop","tool_call_id":"call_2","arguments":{},"result":""}`,
		string(sender.sent[0].Data))
}

func TestFunctionCallIgnoredWithoutCallback(t *testing.T) {
	h := New(Callbacks{}, nil)
	sender := &recordingSender{}

	msg := inbound(t, MsgFunctionCall, `{"function_name":"noop","tool_call_id":"call_3","args":{}}`)
	require.NoError(t, h.HandleMessage(sender, msg))
	assert.Empty(t, sender.sent)
}

func TestFunctionCallErrors(t *testing.T) {
	h := New(Callbacks{OnFunctionCall: func(FunctionCallData) interface{} { return "ok" }}, nil)

	err := h.HandleMessage(&recordingSender{}, inbound(t, MsgFunctionCall, `{"function_name":"x"}`))
	assert.ErrorIs(t, err, core.ErrMalformedMessage)

	sendErr := errors.New("queue stopped")
	msg := inbound(t, MsgFunctionCall, `{"function_name":"x","tool_call_id":"c","args":{}}`)
	err = h.HandleMessage(&recordingSender{err: sendErr}, msg)
	assert.ErrorIs(t, err, sendErr)
}

func TestFunctionCallStartAndJSONCompletion(t *testing.T) {
	var started string
	var completion json.RawMessage
	h := New(Callbacks{
		OnFunctionCallStart: func(name string) { started = name },
		OnJSONCompletion:    func(data json.RawMessage) { completion = data },
	}, nil)
	sender := &recordingSender{}

	require.NoError(t, h.HandleMessage(sender, inbound(t, MsgFunctionCallStart, `{"function_name":"get_weather"}`)))
	assert.Equal(t, "get_weather", started)

	require.NoError(t, h.HandleMessage(sender, inbound(t, MsgJSONCompletion, `{"answer":42}`)))
	assert.JSONEq(t, `{"answer":42}`, string(completion))
	assert.Empty(t, sender.sent)

	err := h.HandleMessage(sender, inbound(t, MsgFunctionCallStart, `{}`))
	assert.ErrorIs(t, err, core.ErrMalformedMessage)
}

func TestToolCallConversion(t *testing.T) {
	call := FunctionCallData{FunctionName: "f", ToolCallID: "id", Args: json.RawMessage(`{"a":1}`)}
	tc := call.ToolCall()
	assert.Equal(t, "id", tc.ID)
	assert.Equal(t, openai.ToolTypeFunction, tc.Type)
	assert.Equal(t, "f", tc.Function.Name)
	assert.Equal(t, `{"a":1}`, tc.Function.Arguments)
}

func TestActionBuilders(t *testing.T) {
	msg, err := AppendToMessages([]openai.ChatCompletionMessage{UserMessage("hello")}, false)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgAction, msg.Type)
	assert.Len(t, msg.ID, 10)

	data, err := protocol.UnmarshalData[protocol.ActionData](msg)
	require.NoError(t, err)
	assert.Equal(t, Service, data.Service)
	assert.Equal(t, ActionAppendToMessages, data.Action)

	var args []struct {
		Name  string `json:"name"`
		Value []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"value"`
	}
	require.NoError(t, sonic.Unmarshal(data.Arguments, &args))
	require.Len(t, args, 1)
	assert.Equal(t, "messages", args[0].Name)
	require.Len(t, args[0].Value, 1)
	assert.Equal(t, "user", args[0].Value[0].Role)
	assert.Equal(t, "hello", args[0].Value[0].Content)

	msg, err = SetContext(nil, true)
	require.NoError(t, err)
	data, err = protocol.UnmarshalData[protocol.ActionData](msg)
	require.NoError(t, err)
	assert.Equal(t, ActionSetContext, data.Action)
	assert.JSONEq(t, `[{"name":"messages","value":[]},{"name":"run_immediately","value":true}]`, string(data.Arguments))

	msg, err = GetContext()
	require.NoError(t, err)
	data, err = protocol.UnmarshalData[protocol.ActionData](msg)
	require.NoError(t, err)
	assert.Equal(t, ActionGetContext, data.Action)
	assert.Empty(t, data.Arguments)

	msg, err = Run(true)
	require.NoError(t, err)
	data, err = protocol.UnmarshalData[protocol.ActionData](msg)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"interrupt","value":true}]`, string(data.Arguments))
}

func TestHelperThroughSessionRegistry(t *testing.T) {
	reg := session.NewHelperRegistry()
	reg.Register(Service, New(Callbacks{}, nil))

	assert.Len(t, reg.Lookup(MsgFunctionCall), 1)
	assert.Empty(t, reg.Lookup(protocol.MsgBotReady))
}
