// Package client drives the RTVI connection lifecycle: bootstrap, session
// open and teardown, and the application-facing send and audio surface.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"rtvikit/core"
	"rtvikit/metrics"
	"rtvikit/protocol"
	"rtvikit/session"
	"rtvikit/utils/audio"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Client.
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Client connects an application to one bot at a time.
type Client struct {
	opts       Options
	callbacks  *session.Callbacks
	helpers    *session.HelperRegistry
	logger     *core.Logger
	httpClient *http.Client
	audioBuf   *audio.JitterBuffer

	// lifecycle serialises the bodies of Connect and Disconnect.
	lifecycle sync.Mutex

	mu         sync.Mutex
	state      State
	session    *session.Session
	sessionLog *core.SessionLogWriter
}

// New creates a client in StateCreated.
func New(opts Options) (*Client, error) {
	if opts.Engine == nil {
		return nil, errors.New("client: engine is required")
	}
	if opts.Callbacks == nil {
		opts.Callbacks = &session.Callbacks{}
	}
	if opts.Logger == nil {
		opts.Logger = core.GetLogger()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient
	}

	jitter := opts.Jitter
	onUnderrun, onDrop := jitter.OnUnderrun, jitter.OnDrop
	jitter.OnUnderrun = func() {
		metrics.AudioUnderruns.Inc()
		if onUnderrun != nil {
			onUnderrun()
		}
	}
	jitter.OnDrop = func(n int) {
		metrics.AudioSamplesDropped.Add(float64(n))
		if onDrop != nil {
			onDrop(n)
		}
	}

	return &Client{
		opts:       opts,
		callbacks:  opts.Callbacks,
		helpers:    session.NewHelperRegistry(),
		logger:     opts.Logger.With(map[string]interface{}{"component": "rtvi-client"}),
		httpClient: httpClient,
		audioBuf:   audio.NewJitterBuffer(jitter),
	}, nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Initialize acquires the engine's process-wide resources. Calling it again
// is a no-op.
func (c *Client) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateCreated {
		return nil
	}
	if err := c.opts.Engine.Initialize(); err != nil {
		var terr *core.TransportError
		if errors.As(err, &terr) {
			return err
		}
		return &core.TransportError{Op: "initialize", Kind: core.ErrTransportInitFailed, Err: err}
	}
	c.state = StateInitialized
	c.logger.Debug("client initialized")
	return nil
}

// Connect bootstraps a bot and joins its session. It returns nil without
// doing anything when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	prev := c.state
	switch prev {
	case StateCreated:
		c.mu.Unlock()
		return core.ErrNotInitialized
	case StateConnected:
		c.mu.Unlock()
		return nil
	case StateConnecting:
		c.mu.Unlock()
		return core.ErrConnectInProgress
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	sess, logWriter, err := c.open(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = prev
		c.mu.Unlock()
		c.logger.With(map[string]interface{}{"error": err}).Error("connect failed")
		return err
	}

	c.mu.Lock()
	c.session = sess
	c.sessionLog = logWriter
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.With(map[string]interface{}{"session_id": sess.ID()}).Info("connected")
	if cb := c.callbacks.OnConnected; cb != nil {
		cb()
	}
	return nil
}

func (c *Client) open(ctx context.Context) (*session.Session, *core.SessionLogWriter, error) {
	params, err := c.bootstrap(ctx)
	if err != nil {
		return nil, nil, err
	}

	id := uuid.New().String()
	logger := c.opts.Logger
	var logWriter *core.SessionLogWriter
	if c.opts.LogDir != "" {
		logWriter, err = core.NewSessionLogWriter(c.opts.LogDir, id, params.RoomURL)
		if err != nil {
			c.logger.With(map[string]interface{}{"error": err}).Warn("session log disabled")
		} else {
			logger = core.NewSessionLogger(logger, logWriter)
		}
	}

	c.audioBuf.Reset()
	sess := session.New(session.Options{
		ID:                   id,
		Engine:               c.opts.Engine,
		Callbacks:            c.callbacks,
		Helpers:              c.helpers,
		Logger:               logger,
		QueueSize:            c.opts.QueueSize,
		AudioBuffer:          c.audioBuf,
		SubscriptionProfiles: c.opts.SubscriptionProfiles,
		ClientSettings:       c.opts.ClientSettings,
	})
	c.opts.Engine.SetEventHandler(sess.HandleEvent)

	if err := sess.Open(ctx, params); err != nil {
		if logWriter != nil {
			logWriter.Close()
		}
		return nil, nil, err
	}
	return sess, logWriter, nil
}

// Disconnect leaves the current session. It is a no-op unless connected and
// is safe to call concurrently.
func (c *Client) Disconnect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return nil
	}
	sess, logWriter := c.session, c.sessionLog
	c.session, c.sessionLog = nil, nil
	c.state = StateDisconnected
	c.mu.Unlock()

	err := sess.Close(ctx)
	if err != nil {
		c.logger.With(map[string]interface{}{"error": err, "session_id": sess.ID()}).Warn("disconnect finished with errors")
	} else {
		c.logger.With(map[string]interface{}{"session_id": sess.ID()}).Info("disconnected")
	}
	if logWriter != nil {
		logWriter.Close()
	}

	if cb := c.callbacks.OnDisconnected; cb != nil {
		cb()
	}
	return err
}

// Close disconnects and gives back the engine resources taken by
// Initialize. The client must be initialized again before reuse.
func (c *Client) Close(ctx context.Context) error {
	err := c.Disconnect(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCreated {
		return err
	}
	c.state = StateCreated
	if rerr := c.opts.Engine.Release(); rerr != nil {
		return errors.Join(err, fmt.Errorf("client: release engine: %w", rerr))
	}
	return err
}

func (c *Client) current() (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.session == nil {
		return nil, core.ErrNotConnected
	}
	return c.session, nil
}

// SendMessage queues msg for the bot.
func (c *Client) SendMessage(msg *protocol.Message) error {
	sess, err := c.current()
	if err != nil {
		return err
	}
	return sess.SendMessage(msg)
}

// SendAction queues an action without waiting for its response.
func (c *Client) SendAction(msg *protocol.Message) error {
	return c.SendActionWithCallback(msg, nil)
}

// SendActionWithCallback queues an action; cb runs once with the bot's
// action-response or error-response.
func (c *Client) SendActionWithCallback(msg *protocol.Message, cb session.ActionCallback) error {
	sess, err := c.current()
	if err != nil {
		return err
	}
	return sess.SendAction(msg, cb)
}

// SendUserAudio feeds microphone samples to the engine. It returns how many
// samples were accepted, zero when not connected.
func (c *Client) SendUserAudio(frames []int16) int {
	sess, err := c.current()
	if err != nil {
		return 0
	}
	return sess.SendUserAudio(frames)
}

// ReadBotAudio fills out from the client's jitter buffer and returns how many
// real samples were copied. The rest of out is silence.
func (c *Client) ReadBotAudio(out []int16) int {
	return c.audioBuf.Read(out)
}

// RegisterHelper installs h for service, replacing any previous helper.
func (c *Client) RegisterHelper(service string, h session.Helper) {
	c.helpers.Register(service, h)
}

// UnregisterHelper removes the helper for service.
func (c *Client) UnregisterHelper(service string) bool {
	return c.helpers.Unregister(service)
}

// Helper returns the helper registered for service.
func (c *Client) Helper(service string) (session.Helper, bool) {
	return c.helpers.Get(service)
}
