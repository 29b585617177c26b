package protocol

import (
	"encoding/json"
)

// Label tags every message that belongs to the RTVI protocol. App messages
// without it are not ours and are ignored by the dispatcher.
const Label = "rtvi-ai"

// MessageType enumerates the RTVI message types.
type MessageType string

const (
	// Client -> Bot
	MsgClientReady     MessageType = "client-ready"
	MsgGetConfig       MessageType = "get-config"
	MsgDescribeConfig  MessageType = "describe-config"
	MsgDescribeActions MessageType = "describe-actions"
	MsgUpdateConfig    MessageType = "update-config"
	MsgAction          MessageType = "action"

	// Bot -> Client
	MsgActionResponse      MessageType = "action-response"
	MsgErrorResponse       MessageType = "error-response"
	MsgError               MessageType = "error"
	MsgBotReady            MessageType = "bot-ready"
	MsgBotStartedSpeaking  MessageType = "bot-started-speaking"
	MsgBotStoppedSpeaking  MessageType = "bot-stopped-speaking"
	MsgBotTranscription    MessageType = "bot-transcription"
	MsgTTSText             MessageType = "tts-text"
	MsgBotTTSText          MessageType = "bot-tts-text"
	MsgBotLLMText          MessageType = "bot-llm-text"
	MsgBotLLMStarted       MessageType = "bot-llm-started"
	MsgBotLLMStopped       MessageType = "bot-llm-stopped"
	MsgBotTTSStarted       MessageType = "bot-tts-started"
	MsgBotTTSStopped       MessageType = "bot-tts-stopped"
	MsgUserStartedSpeaking MessageType = "user-started-speaking"
	MsgUserStoppedSpeaking MessageType = "user-stopped-speaking"
	MsgUserTranscription   MessageType = "user-transcription"
)

// Message is the envelope for every RTVI control-plane exchange.
//
//	{"id": "<id>", "label": "rtvi-ai", "type": "<type>", "data": {...}}
type Message struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	Type  MessageType     `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// --- Bot -> Client payloads ---

// BotReadyData is sent once the bot pipeline is ready to talk.
type BotReadyData struct {
	Version string          `json:"version,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// UserTranscriptData carries a (partial or final) transcription of the user.
type UserTranscriptData struct {
	Text      string `json:"text"`
	Final     bool   `json:"final"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
}

func (UserTranscriptData) requiredFields() []string {
	return []string{"text", "final", "timestamp", "user_id"}
}

// BotTranscriptData carries the text the bot is speaking, sentence by sentence.
type BotTranscriptData struct {
	Text string `json:"text"`
}

func (BotTranscriptData) requiredFields() []string { return []string{"text"} }

type BotLLMTextData struct {
	Text string `json:"text"`
}

func (BotLLMTextData) requiredFields() []string { return []string{"text"} }

type BotTTSTextData struct {
	Text string `json:"text"`
}

func (BotTTSTextData) requiredFields() []string { return []string{"text"} }

// ErrorResponseData answers a client request (usually an action) that failed.
type ErrorResponseData struct {
	Error string `json:"error"`
}

func (ErrorResponseData) requiredFields() []string { return []string{"error"} }

// ErrorData is an unsolicited bot error. Fatal errors end the session.
type ErrorData struct {
	Error string `json:"error"`
	Fatal bool   `json:"fatal,omitempty"`
}

func (ErrorData) requiredFields() []string { return []string{"error"} }

// --- Client -> Bot payloads ---

// ActionArgument is a single named argument of an action.
type ActionArgument struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// ActionData is the payload of an "action" message.
type ActionData struct {
	Service   string          `json:"service"`
	Action    string          `json:"action"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// UpdateConfigData is the payload of an "update-config" message.
type UpdateConfigData struct {
	Config    json.RawMessage `json:"config"`
	Interrupt bool            `json:"interrupt"`
}
