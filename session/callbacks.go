package session

import (
	"rtvikit/protocol"
	"rtvikit/transports"
)

// Callbacks are the application hooks. Every field is optional. Hooks run on
// engine goroutines and must not block for long.
type Callbacks struct {
	OnConnected    func()
	OnDisconnected func()

	OnBotConnected    func(bot transports.Participant)
	OnBotDisconnected func(bot transports.Participant, reason string)
	OnBotReady        func(data protocol.BotReadyData)

	// OnMessage sees every protocol message before it is dispatched.
	OnMessage func(msg *protocol.Message)
	// OnUnhandledMessage sees messages no built-in or helper claimed.
	OnUnhandledMessage func(msg *protocol.Message)
	// OnMessageError reports messages that could not be decoded or that a
	// helper failed to handle.
	OnMessageError func(err error)

	OnErrorResponse func(msg *protocol.Message, data protocol.ErrorResponseData)
	OnError         func(data protocol.ErrorData)

	OnBotStartedSpeaking func(bot transports.Participant)
	OnBotStoppedSpeaking func(bot transports.Participant)
	OnBotTranscript      func(data protocol.BotTranscriptData)
	OnBotTTSText         func(data protocol.BotTTSTextData)
	OnBotLLMText         func(data protocol.BotLLMTextData)
	OnBotLLMStarted      func()
	OnBotLLMStopped      func()
	OnBotTTSStarted      func()
	OnBotTTSStopped      func()

	OnUserStartedSpeaking func()
	OnUserStoppedSpeaking func()
	OnUserTranscript      func(data protocol.UserTranscriptData)

	// OnBotAudio receives mono bot audio once it is routed to this client.
	OnBotAudio func(frames []int16, sampleRate int)

	OnTransportError func(message string)
}
