package session

import (
	"errors"
	"fmt"

	"rtvikit/core"
	"rtvikit/metrics"
	"rtvikit/protocol"
	"rtvikit/transports"
	"rtvikit/utils/audio"
)

// HandleEvent is the single entry point for engine events. It is safe to call
// from any goroutine.
func (s *Session) HandleEvent(ev transports.Event) {
	switch ev := ev.(type) {
	case transports.RequestCompletedEvent:
		var err error
		if ev.Error != "" {
			err = fmt.Errorf("%w: %s", core.ErrCompletionFailed, ev.Error)
		}
		s.completions.Resolve(ev.RequestID, err)

	case transports.ParticipantJoinedEvent:
		s.onParticipantJoined(ev.Participant)

	case transports.ParticipantUpdatedEvent:
		s.onParticipantUpdated(ev.Participant)

	case transports.ParticipantLeftEvent:
		s.logger.With(map[string]interface{}{"participant_id": ev.Participant.ID, "reason": ev.Reason}).Info("participant left")
		if cb := s.callbacks.OnBotDisconnected; cb != nil {
			cb(ev.Participant, ev.Reason)
		}

	case transports.AppMessageEvent:
		s.onAppMessage(ev.Data)

	case transports.ErrorEvent:
		s.logger.With(map[string]interface{}{"error": ev.Message}).Warn("transport error")
		if cb := s.callbacks.OnTransportError; cb != nil {
			cb(ev.Message)
		}

	case transports.AudioDataEvent:
		s.onAudioData(ev)
	}
}

func (s *Session) onParticipantJoined(p transports.Participant) {
	if p.Info.IsLocal {
		return
	}

	// The first remote participant is the bot.
	s.mu.Lock()
	first := s.bot == nil
	if first {
		bot := p
		s.bot = &bot
	}
	s.mu.Unlock()

	if !first {
		return
	}
	s.logger.With(map[string]interface{}{"participant_id": p.ID}).Info("bot connected")
	if cb := s.callbacks.OnBotConnected; cb != nil {
		cb(p)
	}
}

func (s *Session) onParticipantUpdated(p transports.Participant) {
	if p.Info.IsLocal {
		return
	}

	s.mu.Lock()
	if s.bot == nil || s.bot.ID != p.ID {
		s.mu.Unlock()
		return
	}
	bot := p
	s.bot = &bot
	if !p.MicrophonePlayable() {
		s.mu.Unlock()
		return
	}
	s.audioRouted = true
	sendReady := !s.clientReadySent
	s.clientReadySent = true
	s.mu.Unlock()

	if err := s.engine.SetAudioRenderer(s.completions.NextID(), p.ID); err != nil {
		s.logger.With(map[string]interface{}{"error": err, "participant_id": p.ID}).Warn("failed to set audio renderer")
	}
	if sendReady {
		s.queue.Push(protocol.ClientReady())
	}
}

func (s *Session) onAppMessage(data []byte) {
	if !protocol.HasLabel(data) {
		s.logger.Trace("ignoring non-RTVI app message")
		return
	}

	msg, err := protocol.Unmarshal(data)
	if err != nil {
		s.reportMessageError(&core.MalformedMessageError{Err: err})
		return
	}
	metrics.MessagesReceived.WithLabelValues(string(msg.Type)).Inc()

	if cb := s.callbacks.OnMessage; cb != nil {
		cb(msg)
	}
	if err := s.dispatch(msg); err != nil {
		s.reportMessageError(err)
	}
}

// dispatch routes a protocol message to built-in handling or to helpers.
func (s *Session) dispatch(msg *protocol.Message) error {
	cb := s.callbacks

	switch msg.Type {
	case protocol.MsgActionResponse:
		s.resolveAction(msg)

	case protocol.MsgErrorResponse:
		s.resolveAction(msg)
		data, err := protocol.UnmarshalData[protocol.ErrorResponseData](msg)
		if err != nil {
			return malformed(msg, err)
		}
		if cb.OnErrorResponse != nil {
			cb.OnErrorResponse(msg, data)
		}

	case protocol.MsgError:
		data, err := protocol.UnmarshalData[protocol.ErrorData](msg)
		if err != nil {
			return malformed(msg, err)
		}
		s.logger.With(map[string]interface{}{"error": data.Error, "fatal": data.Fatal}).Warn("bot error")
		if cb.OnError != nil {
			cb.OnError(data)
		}

	case protocol.MsgBotReady:
		data, err := protocol.UnmarshalData[protocol.BotReadyData](msg)
		if err != nil {
			return malformed(msg, err)
		}
		s.logger.With(map[string]interface{}{"version": data.Version}).Info("bot ready")
		if cb.OnBotReady != nil {
			cb.OnBotReady(data)
		}

	case protocol.MsgBotStartedSpeaking:
		if cb.OnBotStartedSpeaking != nil {
			bot, _ := s.Bot()
			cb.OnBotStartedSpeaking(bot)
		}

	case protocol.MsgBotStoppedSpeaking:
		if cb.OnBotStoppedSpeaking != nil {
			bot, _ := s.Bot()
			cb.OnBotStoppedSpeaking(bot)
		}

	case protocol.MsgBotTranscription:
		data, err := protocol.UnmarshalData[protocol.BotTranscriptData](msg)
		if err != nil {
			return malformed(msg, err)
		}
		if cb.OnBotTranscript != nil {
			cb.OnBotTranscript(data)
		}

	case protocol.MsgTTSText, protocol.MsgBotTTSText:
		data, err := protocol.UnmarshalData[protocol.BotTTSTextData](msg)
		if err != nil {
			return malformed(msg, err)
		}
		if cb.OnBotTTSText != nil {
			cb.OnBotTTSText(data)
		}

	case protocol.MsgBotLLMText:
		data, err := protocol.UnmarshalData[protocol.BotLLMTextData](msg)
		if err != nil {
			return malformed(msg, err)
		}
		if cb.OnBotLLMText != nil {
			cb.OnBotLLMText(data)
		}

	case protocol.MsgBotLLMStarted:
		fire(cb.OnBotLLMStarted)
	case protocol.MsgBotLLMStopped:
		fire(cb.OnBotLLMStopped)
	case protocol.MsgBotTTSStarted:
		fire(cb.OnBotTTSStarted)
	case protocol.MsgBotTTSStopped:
		fire(cb.OnBotTTSStopped)
	case protocol.MsgUserStartedSpeaking:
		fire(cb.OnUserStartedSpeaking)
	case protocol.MsgUserStoppedSpeaking:
		fire(cb.OnUserStoppedSpeaking)

	case protocol.MsgUserTranscription:
		data, err := protocol.UnmarshalData[protocol.UserTranscriptData](msg)
		if err != nil {
			return malformed(msg, err)
		}
		if cb.OnUserTranscript != nil {
			cb.OnUserTranscript(data)
		}

	default:
		return s.dispatchToHelpers(msg)
	}
	return nil
}

func (s *Session) dispatchToHelpers(msg *protocol.Message) error {
	helpers := s.helpers.Lookup(msg.Type)
	if len(helpers) == 0 {
		s.logger.With(map[string]interface{}{"type": string(msg.Type)}).Debug("unhandled message")
		if cb := s.callbacks.OnUnhandledMessage; cb != nil {
			cb(msg)
		}
		return nil
	}

	var first error
	for _, h := range helpers {
		if err := h.HandleMessage(s, msg); err != nil {
			err = fmt.Errorf("helper for %q: %w", msg.Type, err)
			if first == nil {
				first = err
			} else {
				s.reportMessageError(err)
			}
		}
	}
	return first
}

func (s *Session) resolveAction(msg *protocol.Message) {
	if !s.actions.Resolve(msg) {
		s.logger.With(map[string]interface{}{"id": msg.ID, "type": string(msg.Type)}).Debug("response for unknown action")
	}
}

func (s *Session) onAudioData(ev transports.AudioDataEvent) {
	s.mu.Lock()
	routed := s.audioRouted
	s.mu.Unlock()
	if !routed || len(ev.Frames) == 0 {
		return
	}

	frames := audio.Downmix(ev.Frames, ev.Channels)
	metrics.BotAudioSamples.Add(float64(len(frames)))
	if s.audioBuf != nil {
		s.audioBuf.Write(frames)
	}
	if cb := s.callbacks.OnBotAudio; cb != nil {
		cb(frames, ev.SampleRate)
	}
}

func (s *Session) reportMessageError(err error) {
	var m *core.MalformedMessageError
	if errors.As(err, &m) {
		msgType := m.Type
		if msgType == "" {
			msgType = "unknown"
		}
		metrics.MalformedMessages.WithLabelValues(msgType).Inc()
	}
	s.logger.With(map[string]interface{}{"error": err}).Warn("failed to handle message")
	if cb := s.callbacks.OnMessageError; cb != nil {
		cb(err)
	}
}

func malformed(msg *protocol.Message, err error) error {
	return &core.MalformedMessageError{Type: string(msg.Type), Err: err}
}

func fire(fn func()) {
	if fn != nil {
		fn()
	}
}
