package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionMetadata is the header record of a session log file. Every later
// line is a zerolog JSON record.
type SessionMetadata struct {
	SessionID string `json:"session_id"`
	RoomURL   string `json:"room_url,omitempty"`
	StartedAt string `json:"started_at"`
}

// SessionLogWriter owns <dir>/<session>.jsonl and the <session>.active marker
// that exists while the session is open.
type SessionLogWriter struct {
	mu     sync.RWMutex
	file   *os.File
	sink   LogHandler
	marker string
}

// NewSessionLogWriter opens the log file for sessionID under logDir and
// writes the header record.
func NewSessionLogWriter(logDir, sessionID, roomURL string) (*SessionLogWriter, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("session log: mkdir %q: %w", logDir, err)
	}
	path := filepath.Join(logDir, sessionID+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("session log: create %q: %w", path, err)
	}

	zl := zerolog.New(f)
	header := zl.Log().Str("session_id", sessionID)
	if roomURL != "" {
		header = header.Str("room_url", roomURL)
	}
	header.Str("started_at", time.Now().UTC().Format(time.RFC3339)).Send()

	marker := filepath.Join(logDir, sessionID+".active")
	if mf, err := os.Create(marker); err == nil {
		mf.Close()
	}

	return &SessionLogWriter{
		file:   f,
		sink:   NewZerologLogger(f).handlerFunc,
		marker: marker,
	}, nil
}

// Write records one entry. It is a no-op after Close. FATAL and PANIC are
// recorded as errors; terminating the process is left to the base logger.
func (w *SessionLogWriter) Write(level, msg string, attrs map[string]interface{}) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.file == nil {
		return
	}
	if level == "FATAL" || level == "PANIC" {
		level = "ERROR"
	}
	w.sink(level, msg, attrs)
}

// Close closes the file and removes the .active marker.
func (w *SessionLogWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return
	}
	w.file.Close()
	w.file = nil
	os.Remove(w.marker)
}

// NewSessionLogger returns a Logger carrying base's attrs that writes every
// record to both base and w.
func NewSessionLogger(base *Logger, w *SessionLogWriter) *Logger {
	next := base.handlerFunc
	l := base.With(nil)
	l.handlerFunc = func(level string, msg string, attrs map[string]interface{}) {
		w.Write(level, msg, attrs)
		if next != nil {
			next(level, msg, attrs)
		}
	}
	return l
}
