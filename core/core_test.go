package core

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	level string
	msg   string
	attrs map[string]interface{}
}

func capture() (*Logger, *[]record) {
	var out []record
	l := NewLogger(func(level, msg string, attrs map[string]interface{}) {
		out = append(out, record{level, msg, attrs})
	})
	return l, &out
}

func TestLoggerWithMergesAttrs(t *testing.T) {
	l, out := capture()
	child := l.With(map[string]interface{}{"session_id": "s1"}).With(map[string]interface{}{"type": "bot-ready"})

	child.Info("dispatched")
	l.Warn("root")

	require.Len(t, *out, 2)
	assert.Equal(t, "INFO", (*out)[0].level)
	assert.Equal(t, map[string]interface{}{"session_id": "s1", "type": "bot-ready"}, (*out)[0].attrs)
	assert.Empty(t, (*out)[1].attrs)
}

func TestLoggerFormatsAndKeyValues(t *testing.T) {
	l, out := capture()

	l.Debugf("queue depth %d", 3)
	l.Info("joined", "room", "r1")

	require.Len(t, *out, 2)
	assert.Equal(t, "queue depth 3", (*out)[0].msg)
	assert.Equal(t, "joined", (*out)[1].msg)
	assert.Equal(t, "r1", (*out)[1].attrs["room"])
}

func TestJSONLoggerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf)
	l.With(map[string]interface{}{"id": "abc"}).Error("send failed")

	var line map[string]interface{}
	require.NoError(t, sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "send failed", line["message"])
	assert.Equal(t, "abc", line["id"])
}

func TestSetLogLevelRejectsUnknown(t *testing.T) {
	assert.NoError(t, SetLogLevel(""))
	assert.Error(t, SetLogLevel("loud"))
}

func TestSessionLoggerTeesToFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewSessionLogWriter(dir, "sess-1", "https://example.daily.co/room")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "sess-1.active"))
	require.NoError(t, err)

	base, out := capture()
	l := NewSessionLogger(base.With(map[string]interface{}{"component": "client"}), w)
	l.With(map[string]interface{}{"error": errors.New("boom")}).Warn("leave did not complete")
	w.Close()

	require.Len(t, *out, 1)
	assert.Equal(t, "client", (*out)[0].attrs["component"])

	_, err = os.Stat(filepath.Join(dir, "sess-1.active"))
	assert.True(t, os.IsNotExist(err))

	f, err := os.Open(filepath.Join(dir, "sess-1.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var lines [][]byte
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	require.Len(t, lines, 2)

	var meta SessionMetadata
	require.NoError(t, sonic.Unmarshal(lines[0], &meta))
	assert.Equal(t, "sess-1", meta.SessionID)
	assert.Equal(t, "https://example.daily.co/room", meta.RoomURL)

	var entry map[string]interface{}
	require.NoError(t, sonic.Unmarshal(lines[1], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "leave did not complete", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "client", entry["component"])
	assert.Contains(t, entry, "time")
}

func TestSessionLogWriterIgnoresWritesAfterClose(t *testing.T) {
	dir := t.TempDir()
	w, err := NewSessionLogWriter(dir, "sess-2", "")
	require.NoError(t, err)
	w.Close()
	w.Close()

	w.Write("INFO", "late", nil)

	data, err := os.ReadFile(filepath.Join(dir, "sess-2.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(data, []byte("\n")))

	var meta SessionMetadata
	require.NoError(t, sonic.Unmarshal(bytes.TrimSpace(data), &meta))
	assert.Equal(t, "sess-2", meta.SessionID)
	assert.Empty(t, meta.RoomURL)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("dial refused")

	berr := &BootstrapError{URL: "http://x/start", Status: 500, Body: "down"}
	assert.ErrorIs(t, berr, ErrBootstrapFailed)
	assert.Contains(t, berr.Error(), "status 500")

	terr := &TransportError{Op: "connect", Kind: ErrTransportConnectFailed, Err: cause}
	assert.ErrorIs(t, terr, ErrTransportConnectFailed)
	assert.ErrorIs(t, terr, cause)
	assert.NotErrorIs(t, terr, ErrTransportInitFailed)

	merr := &MalformedMessageError{Type: "bot-ready", Err: cause}
	assert.ErrorIs(t, merr, ErrMalformedMessage)
	assert.ErrorIs(t, merr, cause)
}
