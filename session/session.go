// Package session runs one RTVI connection: the outbound sender, request and
// action correlation, and dispatch of engine events.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"rtvikit/core"
	"rtvikit/metrics"
	"rtvikit/protocol"
	"rtvikit/transports"
	"rtvikit/utils/audio"
	"rtvikit/utils/queue"

	"github.com/google/uuid"
)

// Options configures a Session.
type Options struct {
	// ID names the session in logs. A random uuid is used when empty.
	ID        string
	Engine    transports.Engine
	Callbacks *Callbacks
	Helpers   *HelperRegistry
	Logger    *core.Logger

	// QueueSize bounds the outbound queue; the oldest message is dropped on
	// overflow. Zero uses DefaultQueueSize, negative means unbounded.
	QueueSize int
	// AudioBuffer, when set, receives routed bot audio.
	AudioBuffer *audio.JitterBuffer

	SubscriptionProfiles json.RawMessage
	ClientSettings       json.RawMessage
}

// Session is one logical connection to a bot.
type Session struct {
	id        string
	engine    transports.Engine
	callbacks *Callbacks
	helpers   *HelperRegistry
	logger    *core.Logger
	audioBuf  *audio.JitterBuffer
	profiles  json.RawMessage
	settings  json.RawMessage

	completions *CompletionRegistry
	actions     *ActionTable
	queue       *queue.Queue[*protocol.Message]

	open    atomic.Bool
	closeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu              sync.Mutex
	bot             *transports.Participant
	audioRouted     bool
	clientReadySent bool
}

// New creates a session. It does not touch the engine until Open.
func New(opts Options) *Session {
	if opts.Callbacks == nil {
		opts.Callbacks = &Callbacks{}
	}
	if opts.Helpers == nil {
		opts.Helpers = NewHelperRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = core.GetLogger()
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.SubscriptionProfiles == nil {
		opts.SubscriptionProfiles = DefaultSubscriptionProfiles
	}
	if opts.ClientSettings == nil {
		opts.ClientSettings = DefaultClientSettings
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	s := &Session{
		id:          id,
		engine:      opts.Engine,
		callbacks:   opts.Callbacks,
		helpers:     opts.Helpers,
		logger:      opts.Logger.With(map[string]interface{}{"session_id": id}),
		audioBuf:    opts.AudioBuffer,
		profiles:    opts.SubscriptionProfiles,
		settings:    opts.ClientSettings,
		completions: NewCompletionRegistry(),
		actions:     NewActionTable(),
		queue:       queue.New[*protocol.Message](opts.QueueSize),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.queue.OnDrop(func(msg *protocol.Message) {
		metrics.QueueDropped.Inc()
		s.logger.With(map[string]interface{}{"id": msg.ID, "type": string(msg.Type)}).Warn("outbound queue full, dropped oldest message")
	})
	return s
}

// ID returns the session id used in logs.
func (s *Session) ID() string { return s.id }

// Open joins the call described by params and starts the sender. The engine
// must already be initialized and routing events to HandleEvent.
func (s *Session) Open(ctx context.Context, params transports.SessionParams) error {
	s.mu.Lock()
	s.bot = nil
	s.audioRouted = false
	s.clientReadySent = false
	s.mu.Unlock()

	if err := s.engine.Open(ctx, params); err != nil {
		return connectError("open", err)
	}

	if err := s.call(ctx, func(id uint64) error {
		return s.engine.UpdateSubscriptionProfiles(id, s.profiles)
	}); err != nil {
		s.engine.Close()
		return connectError("update subscription profiles", err)
	}

	if err := s.call(ctx, func(id uint64) error {
		return s.engine.Join(id, params, s.settings)
	}); err != nil {
		s.engine.Close()
		return connectError("join", err)
	}

	s.open.Store(true)
	s.wg.Add(1)
	go s.sendLoop()

	s.logger.With(map[string]interface{}{"room_url": params.RoomURL}).Info("session joined")
	return nil
}

// Close stops the sender, leaves the call and closes the engine call. ctx
// bounds the wait for the in-flight message and the leave.
func (s *Session) Close(ctx context.Context) error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if !s.open.CompareAndSwap(true, false) {
		return nil
	}

	s.queue.Stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		<-done
	}

	var leaveErr error
	if err := s.call(ctx, s.engine.Leave); err != nil {
		leaveErr = fmt.Errorf("session: leave: %w", err)
		s.logger.With(map[string]interface{}{"error": err}).Warn("leave did not complete")
	}
	s.cancel()
	if n := s.actions.Clear(); n > 0 {
		s.logger.With(map[string]interface{}{"count": n}).Debug("dropped unanswered actions")
	}

	if err := s.engine.Close(); err != nil {
		return errors.Join(leaveErr, fmt.Errorf("session: close engine: %w", err))
	}
	s.logger.Info("session closed")
	return leaveErr
}

// IsOpen reports whether the session is joined and sending.
func (s *Session) IsOpen() bool { return s.open.Load() }

// SendMessage queues msg for the bot.
func (s *Session) SendMessage(msg *protocol.Message) error {
	if !s.open.Load() {
		return core.ErrNotConnected
	}
	if !s.queue.Push(msg) {
		return core.ErrNotConnected
	}
	return nil
}

// SendAction queues an action. When cb is set it is registered under the
// message id before the message is queued and runs once on the response.
func (s *Session) SendAction(msg *protocol.Message, cb ActionCallback) error {
	if !s.open.Load() {
		return core.ErrNotConnected
	}
	if cb != nil {
		s.actions.Register(msg.ID, cb)
	}
	if !s.queue.Push(msg) {
		if cb != nil {
			s.actions.Remove(msg.ID)
		}
		return core.ErrNotConnected
	}
	return nil
}

// SendUserAudio feeds microphone samples to the engine and returns how many
// it accepted.
func (s *Session) SendUserAudio(frames []int16) int {
	if !s.open.Load() {
		return 0
	}
	n := s.engine.WriteAudio(frames)
	metrics.UserAudioFrames.Add(float64(n))
	return n
}

// Bot returns the cached bot participant.
func (s *Session) Bot() (transports.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bot == nil {
		return transports.Participant{}, false
	}
	return *s.bot, true
}

// call issues one async engine request and waits for its completion.
func (s *Session) call(ctx context.Context, fn func(id uint64) error) error {
	id, ch := s.completions.Add()
	if err := fn(id); err != nil {
		s.completions.Forget(id)
		return err
	}
	return s.completions.Wait(ctx, id, ch)
}

// sendLoop delivers queued messages one at a time, waiting for each send to
// complete before taking the next.
func (s *Session) sendLoop() {
	defer s.wg.Done()

	for {
		msg, ok := s.queue.Pop()
		if !ok {
			return
		}
		log := s.logger.With(map[string]interface{}{"id": msg.ID, "type": string(msg.Type)})

		data, err := protocol.Marshal(msg)
		if err != nil {
			metrics.MessageSendFailures.Inc()
			log.With(map[string]interface{}{"error": err}).Error("failed to marshal message, dropping")
			continue
		}

		err = s.call(s.ctx, func(id uint64) error {
			return s.engine.SendAppMessage(id, data)
		})
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			metrics.MessageSendFailures.Inc()
			log.With(map[string]interface{}{"error": err}).Warn("send app message failed")
			continue
		}
		metrics.MessagesSent.Inc()
		log.Trace("message sent")
	}
}

func connectError(op string, err error) error {
	var terr *core.TransportError
	if errors.As(err, &terr) {
		return err
	}
	return &core.TransportError{Op: op, Kind: core.ErrTransportConnectFailed, Err: err}
}
