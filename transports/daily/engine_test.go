package daily

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"rtvikit/core"
	"rtvikit/transports"
	"rtvikit/utils/audio"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRelay answers every request-bearing frame with request-completed and
// records what it received.
type fakeRelay struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conn   *websocket.Conn
	frames chan RelayRequest
	query  chan string
	failOn string
}

func newFakeRelay(t *testing.T) *fakeRelay {
	r := &fakeRelay{
		frames: make(chan RelayRequest, 64),
		query:  make(chan string, 1),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	r.server = httptest.NewServer(http.HandlerFunc(r.handle))
	t.Cleanup(r.server.Close)
	return r
}

func (r *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http") + "/daily-media"
}

func (r *fakeRelay) handle(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	r.query <- req.URL.Query().Get("room")
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame RelayRequest
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		r.frames <- frame
		if frame.RequestID != nil {
			done := map[string]interface{}{
				"action":    "request-completed",
				"requestId": map[string]uint64{"id": frame.RequestID.ID},
			}
			if frame.Method == r.failOn {
				done["error"] = "boom"
			}
			r.push(done)
		}
	}
}

func (r *fakeRelay) push(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		r.conn.WriteJSON(v)
	}
}

func (r *fakeRelay) next(t *testing.T) RelayRequest {
	t.Helper()
	select {
	case f := <-r.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relay frame")
		return RelayRequest{}
	}
}

type eventSink struct {
	ch chan transports.Event
}

func (s *eventSink) handle(ev transports.Event) { s.ch <- ev }

func (s *eventSink) next(t *testing.T) transports.Event {
	t.Helper()
	select {
	case ev := <-s.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for engine event")
		return nil
	}
}

var testParams = transports.SessionParams{RoomURL: "https://example.daily.co/room", Token: "tok"}

func openEngine(t *testing.T, relay *fakeRelay) (*Engine, *eventSink) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RelayURL = relay.url()
	e := NewEngine(cfg, nil)
	sink := &eventSink{ch: make(chan transports.Event, 64)}
	e.SetEventHandler(sink.handle)

	require.NoError(t, e.Initialize())
	require.NoError(t, e.Open(context.Background(), testParams))
	t.Cleanup(func() {
		e.Close()
		e.Release()
	})
	return e, sink
}

func TestEngineRequestsCompleteThroughRelay(t *testing.T) {
	relay := newFakeRelay(t)
	e, sink := openEngine(t, relay)
	assert.Equal(t, testParams.RoomURL, <-relay.query)

	require.NoError(t, e.Join(7, testParams, json.RawMessage(`{"inputs":{"camera":false}}`)))
	f := relay.next(t)
	assert.Equal(t, methodJoin, f.Method)
	assert.Equal(t, uint64(7), f.RequestID.ID)
	assert.Equal(t, "tok", f.Token)
	assert.JSONEq(t, `{"inputs":{"camera":false}}`, string(f.Settings))

	ev := sink.next(t)
	assert.Equal(t, transports.RequestCompletedEvent{RequestID: 7}, ev)

	require.NoError(t, e.SendAppMessage(8, []byte(`{"label":"rtvi-ai","type":"client-ready","id":"x"}`)))
	f = relay.next(t)
	assert.Equal(t, methodSendAppMessage, f.Method)
	assert.Equal(t, "*", f.ParticipantID)
	assert.JSONEq(t, `{"label":"rtvi-ai","type":"client-ready","id":"x"}`, string(f.MsgData))
	assert.Equal(t, transports.RequestCompletedEvent{RequestID: 8}, sink.next(t))
}

func TestEngineReportsRequestErrors(t *testing.T) {
	relay := newFakeRelay(t)
	relay.failOn = methodLeave
	e, sink := openEngine(t, relay)

	require.NoError(t, e.Leave(3))
	relay.next(t)
	assert.Equal(t, transports.RequestCompletedEvent{RequestID: 3, Error: "boom"}, sink.next(t))
}

func TestEngineDecodesRelayEvents(t *testing.T) {
	relay := newFakeRelay(t)
	_, sink := openEngine(t, relay)
	<-relay.query

	relay.push(map[string]interface{}{
		"action": "participant-updated",
		"participant": map[string]interface{}{
			"id":    "bot-1",
			"info":  map[string]interface{}{"isLocal": false, "userName": "bot"},
			"media": map[string]interface{}{"microphone": map[string]string{"state": "playable"}},
		},
	})
	ev, ok := sink.next(t).(transports.ParticipantUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, "bot-1", ev.Participant.ID)
	assert.True(t, ev.Participant.MicrophonePlayable())
	assert.NotEmpty(t, ev.Participant.Raw)

	relay.push(map[string]interface{}{
		"action":      "participant-left",
		"participant": map[string]interface{}{"id": "bot-1", "info": map[string]bool{"isLocal": false}},
		"leftReason":  "hungUp",
	})
	left, ok := sink.next(t).(transports.ParticipantLeftEvent)
	require.True(t, ok)
	assert.Equal(t, "hungUp", left.Reason)

	relay.push(map[string]interface{}{
		"action":  "app-message",
		"msgData": map[string]string{"label": "rtvi-ai", "type": "bot-ready", "id": "1"},
		"fromId":  "bot-1",
	})
	msg, ok := sink.next(t).(transports.AppMessageEvent)
	require.True(t, ok)
	assert.Equal(t, "bot-1", msg.FromID)
	assert.JSONEq(t, `{"label":"rtvi-ai","type":"bot-ready","id":"1"}`, string(msg.Data))

	ulaw, err := audio.EncodeSamples([]int16{0, 0, 0, 0}, audio.FormatPCMU)
	require.NoError(t, err)
	relay.push(map[string]interface{}{
		"action":     "audio-data",
		"audio":      base64.StdEncoding.EncodeToString(ulaw),
		"format":     "pcmu",
		"sampleRate": 16000,
	})
	au, ok := sink.next(t).(transports.AudioDataEvent)
	require.True(t, ok)
	assert.Len(t, au.Frames, 4)
	assert.Equal(t, 16000, au.SampleRate)
	assert.Equal(t, 1, au.Channels)

	relay.push(map[string]interface{}{"action": "error", "errorMsg": "meeting ended"})
	assert.Equal(t, transports.ErrorEvent{Message: "meeting ended"}, sink.next(t))
}

func TestEngineWritesMicrophoneAudio(t *testing.T) {
	relay := newFakeRelay(t)
	e, _ := openEngine(t, relay)

	samples := []int16{1, -1, 300}
	assert.Equal(t, 3, e.WriteAudio(samples))

	f := relay.next(t)
	assert.Equal(t, methodSendAudio, f.Method)
	assert.Nil(t, f.RequestID)
	assert.Equal(t, 16000, f.SampleRate)

	raw, err := base64.StdEncoding.DecodeString(f.Audio)
	require.NoError(t, err)
	decoded, err := audio.BytesToSamples(raw)
	require.NoError(t, err)
	assert.Equal(t, samples, decoded)
}

func TestEngineOpenValidation(t *testing.T) {
	e := NewEngine(&Config{RelayURL: "ws://127.0.0.1:1/none"}, nil)

	err := e.Open(context.Background(), testParams)
	assert.ErrorIs(t, err, core.ErrTransportConnectFailed)

	require.NoError(t, e.Initialize())
	defer e.Release()

	err = e.Open(context.Background(), transports.SessionParams{RoomURL: "x"})
	assert.ErrorIs(t, err, core.ErrTransportConnectFailed)
	assert.ErrorIs(t, err, core.ErrInvalidSessionParams)

	var terr *core.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "connect", terr.Op)

	assert.Equal(t, errNotOpen, e.Leave(1))
	assert.Equal(t, 0, e.WriteAudio([]int16{1}))
}

func TestEngineInitializeRejectsBadRelayURL(t *testing.T) {
	e := NewEngine(&Config{RelayURL: "http://example.com"}, nil)
	err := e.Initialize()
	assert.ErrorIs(t, err, core.ErrTransportInitFailed)
}

func TestContextIsReferenceCounted(t *testing.T) {
	before := ContextRefs()
	a := NewEngine(nil, nil)
	b := NewEngine(nil, nil)

	require.NoError(t, a.Initialize())
	require.NoError(t, a.Initialize())
	require.NoError(t, b.Initialize())
	assert.Equal(t, before+2, ContextRefs())

	require.NoError(t, a.Release())
	require.NoError(t, a.Release())
	assert.Equal(t, before+1, ContextRefs())
	require.NoError(t, b.Release())
	assert.Equal(t, before, ContextRefs())
}

func TestEngineCanReopenAfterClose(t *testing.T) {
	relay := newFakeRelay(t)
	e, sink := openEngine(t, relay)
	<-relay.query

	require.NoError(t, e.Close())
	require.NoError(t, e.Open(context.Background(), testParams))
	<-relay.query

	require.NoError(t, e.Leave(11))
	relay.next(t)
	assert.Equal(t, transports.RequestCompletedEvent{RequestID: 11}, sink.next(t))
}

func TestConfigTimeoutsAreMilliseconds(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"handshake_timeout_ms": 2500, "write_timeout_ms": 750}`), &cfg))
	filled := cfg.WithDefaults()
	assert.Equal(t, 2500*time.Millisecond, filled.handshakeTimeout())
	assert.Equal(t, 750*time.Millisecond, filled.writeTimeout())

	d := (*Config)(nil).WithDefaults()
	assert.Equal(t, 10*time.Second, d.handshakeTimeout())
	assert.Equal(t, 10*time.Second, d.writeTimeout())
}
