// Package daily implements transports.Engine on top of a WebSocket relay that
// bridges to a Daily call.
package daily

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"rtvikit/core"
	"rtvikit/metrics"
	"rtvikit/transports"
	"rtvikit/utils/audio"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

var errNotOpen = errors.New("daily: call is not open")

// Engine is a Daily call client driven over the relay.
type Engine struct {
	config *Config
	logger *core.Logger

	mu          sync.RWMutex
	handler     transports.EventHandler
	initialized bool
	call        *relayCall
}

// relayCall is the state of one open relay connection.
type relayCall struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	audioCh chan []int16

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closing   atomic.Bool
	closeOnce sync.Once
}

// NewEngine creates a relay engine. A nil config uses DefaultConfig.
func NewEngine(config *Config, logger *core.Logger) *Engine {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Engine{
		config: config.WithDefaults(),
		logger: logger.With(map[string]interface{}{"component": "daily-engine"}),
	}
}

// Initialize implements transports.Engine.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}
	u, err := url.Parse(e.config.RelayURL)
	if err != nil {
		return &core.TransportError{Op: "initialize", Kind: core.ErrTransportInitFailed, Err: err}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return &core.TransportError{
			Op:   "initialize",
			Kind: core.ErrTransportInitFailed,
			Err:  fmt.Errorf("relay url %q: scheme must be ws or wss", e.config.RelayURL),
		}
	}

	acquireContext()
	e.initialized = true
	e.logger.With(map[string]interface{}{"relay_url": e.config.RelayURL}).Debug("daily context acquired")
	return nil
}

// SetEventHandler implements transports.Engine.
func (e *Engine) SetEventHandler(h transports.EventHandler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

// Open dials the relay for the call described by params.
func (e *Engine) Open(ctx context.Context, params transports.SessionParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return &core.TransportError{Op: "connect", Kind: core.ErrTransportConnectFailed, Err: core.ErrNotInitialized}
	}
	if e.call != nil {
		return nil
	}
	if err := params.Validate(); err != nil {
		return &core.TransportError{Op: "connect", Kind: core.ErrTransportConnectFailed, Err: err}
	}

	u, _ := url.Parse(e.config.RelayURL)
	q := u.Query()
	q.Set("room", params.RoomURL)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		HandshakeTimeout: e.config.handshakeTimeout(),
		ReadBufferSize:   e.config.ReadBufferSize,
		WriteBufferSize:  e.config.WriteBufferSize,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return &core.TransportError{
			Op:   "connect",
			Kind: core.ErrTransportConnectFailed,
			Err:  fmt.Errorf("dial %q: %w", e.config.RelayURL, err),
		}
	}
	conn.SetReadLimit(e.config.MaxMessageSize)

	call := &relayCall{
		conn:    conn,
		audioCh: make(chan []int16, e.config.AudioQueueSize),
	}
	call.ctx, call.cancel = context.WithCancel(context.Background())
	e.call = call

	call.wg.Add(2)
	go e.readLoop(call)
	go e.writeLoop(call)

	e.logger.With(map[string]interface{}{"room_url": params.RoomURL}).Info("relay connected")
	return nil
}

// UpdateSubscriptionProfiles implements transports.Engine.
func (e *Engine) UpdateSubscriptionProfiles(requestID uint64, profiles json.RawMessage) error {
	req := request(methodUpdateSubscriptionProfiles, requestID)
	req.Profiles = profiles
	return e.write(req)
}

// Join implements transports.Engine.
func (e *Engine) Join(requestID uint64, params transports.SessionParams, settings json.RawMessage) error {
	req := request(methodJoin, requestID)
	req.RoomURL = params.RoomURL
	req.Token = params.Token
	req.UserName = e.config.UserName
	req.Settings = settings
	return e.write(req)
}

// Leave implements transports.Engine.
func (e *Engine) Leave(requestID uint64) error {
	return e.write(request(methodLeave, requestID))
}

// SendAppMessage broadcasts data to every participant.
func (e *Engine) SendAppMessage(requestID uint64, data []byte) error {
	req := request(methodSendAppMessage, requestID)
	req.MsgData = data
	req.ParticipantID = "*"
	return e.write(req)
}

// SetAudioRenderer routes the participant's microphone track to this client.
func (e *Engine) SetAudioRenderer(requestID uint64, participantID string) error {
	req := request(methodSetAudioRenderer, requestID)
	req.ParticipantID = participantID
	req.Track = "microphone"
	return e.write(req)
}

// WriteAudio queues microphone samples for the relay. When the queue is
// full the oldest chunk is dropped.
func (e *Engine) WriteAudio(frames []int16) int {
	e.mu.RLock()
	call := e.call
	e.mu.RUnlock()
	if call == nil || call.closing.Load() || len(frames) == 0 {
		return 0
	}

	chunk := append([]int16(nil), frames...)
	select {
	case call.audioCh <- chunk:
	default:
		select {
		case <-call.audioCh:
			metrics.UserAudioDropped.Inc()
		default:
		}
		select {
		case call.audioCh <- chunk:
		default:
			metrics.UserAudioDropped.Inc()
			return 0
		}
	}
	return len(frames)
}

// Close tears down the relay connection. The engine may be opened again.
func (e *Engine) Close() error {
	e.mu.Lock()
	call := e.call
	e.call = nil
	e.mu.Unlock()

	if call == nil {
		return nil
	}
	call.close()
	call.wg.Wait()
	e.logger.Info("relay closed")
	return nil
}

// Release implements transports.Engine.
func (e *Engine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil
	}
	releaseContext()
	e.initialized = false
	return nil
}

func (c *relayCall) close() {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.cancel()

		c.writeMu.Lock()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		c.conn.Close()
	})
}

func (e *Engine) write(req RelayRequest) error {
	e.mu.RLock()
	call := e.call
	e.mu.RUnlock()
	if call == nil {
		return errNotOpen
	}
	return e.writeFrame(call, req)
}

func (e *Engine) writeFrame(call *relayCall, req RelayRequest) error {
	data, err := sonic.Marshal(req)
	if err != nil {
		return fmt.Errorf("daily: marshal %s: %w", req.Method, err)
	}

	call.writeMu.Lock()
	defer call.writeMu.Unlock()
	if call.closing.Load() {
		return errNotOpen
	}
	call.conn.SetWriteDeadline(time.Now().Add(e.config.writeTimeout()))
	if err := call.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("daily: write %s: %w", req.Method, err)
	}
	return nil
}

func (e *Engine) readLoop(call *relayCall) {
	defer call.wg.Done()

	for {
		_, data, err := call.conn.ReadMessage()
		if err != nil {
			if call.closing.Load() {
				return
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				e.logger.With(map[string]interface{}{"error": err}).Warn("relay connection lost")
			}
			e.emit(transports.ErrorEvent{Message: err.Error()})
			return
		}

		var frame RelayEvent
		if err := sonic.Unmarshal(data, &frame); err != nil {
			e.logger.With(map[string]interface{}{"error": err}).Warn("invalid frame from relay")
			continue
		}

		ev, err := e.toEvent(&frame)
		if err != nil {
			e.logger.With(map[string]interface{}{"error": err, "action": frame.Action}).Warn("dropping relay event")
			continue
		}
		if ev != nil {
			e.emit(ev)
		}
	}
}

func (e *Engine) writeLoop(call *relayCall) {
	defer call.wg.Done()

	for {
		select {
		case frames := <-call.audioCh:
			payload, err := audio.EncodeSamples(frames, e.config.AudioFormat)
			if err != nil {
				e.logger.With(map[string]interface{}{"error": err}).Warn("failed to encode microphone audio")
				continue
			}
			err = e.writeFrame(call, RelayRequest{
				Method:     methodSendAudio,
				Audio:      base64.StdEncoding.EncodeToString(payload),
				Format:     string(e.config.AudioFormat),
				SampleRate: e.config.AudioSampleRate,
				Channels:   e.config.AudioChannels,
			})
			if err != nil {
				if !call.closing.Load() {
					e.logger.With(map[string]interface{}{"error": err}).Warn("write to relay failed")
				}
				return
			}
		case <-call.ctx.Done():
			return
		}
	}
}

func (e *Engine) emit(ev transports.Event) {
	e.mu.RLock()
	h := e.handler
	e.mu.RUnlock()
	if h != nil {
		h(ev)
	}
}

func (e *Engine) toEvent(frame *RelayEvent) (transports.Event, error) {
	switch frame.Action {
	case actionParticipantJoined:
		p, err := parseParticipant(frame.Participant)
		if err != nil {
			return nil, err
		}
		return transports.ParticipantJoinedEvent{Participant: p}, nil

	case actionParticipantUpdated:
		p, err := parseParticipant(frame.Participant)
		if err != nil {
			return nil, err
		}
		return transports.ParticipantUpdatedEvent{Participant: p}, nil

	case actionParticipantLeft:
		p, err := parseParticipant(frame.Participant)
		if err != nil {
			return nil, err
		}
		return transports.ParticipantLeftEvent{Participant: p, Reason: frame.LeftReason}, nil

	case actionAppMessage:
		if len(frame.MsgData) == 0 {
			return nil, nil
		}
		return transports.AppMessageEvent{Data: frame.MsgData, FromID: frame.FromID}, nil

	case actionError:
		return transports.ErrorEvent{Message: frame.ErrorMsg}, nil

	case actionRequestCompleted:
		if frame.RequestID == nil {
			return nil, errors.New("request-completed without requestId")
		}
		return transports.RequestCompletedEvent{RequestID: frame.RequestID.ID, Error: frame.Error}, nil

	case actionAudioData:
		payload, err := base64.StdEncoding.DecodeString(frame.Audio)
		if err != nil {
			return nil, fmt.Errorf("decode audio payload: %w", err)
		}
		samples, err := audio.DecodeSamples(payload, audio.Format(frame.Format))
		if err != nil {
			return nil, err
		}
		channels := frame.Channels
		if channels == 0 {
			channels = 1
		}
		return transports.AudioDataEvent{Frames: samples, SampleRate: frame.SampleRate, Channels: channels}, nil

	default:
		e.logger.With(map[string]interface{}{"action": frame.Action}).Trace("ignoring relay event")
		return nil, nil
	}
}

func parseParticipant(raw []byte) (transports.Participant, error) {
	var p transports.Participant
	if len(raw) == 0 {
		return p, errors.New("missing participant")
	}
	if err := sonic.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode participant: %w", err)
	}
	p.Raw = append([]byte(nil), raw...)
	return p, nil
}
