package daily

import (
	"time"

	"rtvikit/utils/audio"
)

// Config holds configuration for the Daily relay engine.
type Config struct {
	// WebSocket relay endpoint bridging to the Daily call.
	RelayURL         string        `json:"relay_url,omitempty"`
	// Timeouts are in milliseconds.
	HandshakeTimeoutMs int   `json:"handshake_timeout_ms,omitempty"`
	WriteTimeoutMs     int   `json:"write_timeout_ms,omitempty"`
	ReadBufferSize     int   `json:"read_buffer_size,omitempty"`
	WriteBufferSize    int   `json:"write_buffer_size,omitempty"`
	MaxMessageSize     int64 `json:"max_message_size,omitempty"`

	// Microphone audio sent to the call.
	AudioSampleRate int          `json:"audio_sample_rate,omitempty"`
	AudioChannels   int          `json:"audio_channels,omitempty"`
	AudioFormat     audio.Format `json:"audio_format,omitempty"`
	// Number of microphone chunks buffered before the oldest is dropped.
	AudioQueueSize int `json:"audio_queue_size,omitempty"`

	// Participant name shown in the Daily room.
	UserName string `json:"user_name,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RelayURL:           "ws://localhost:8090/daily-media",
		HandshakeTimeoutMs: 10000,
		WriteTimeoutMs:     10000,
		ReadBufferSize:     4096,
		WriteBufferSize:    4096,
		MaxMessageSize:     1 << 20,
		AudioSampleRate:    16000,
		AudioChannels:      1,
		AudioFormat:        audio.FormatPCM16,
		AudioQueueSize:     64,
		UserName:           "rtvi-client",
	}
}

func (c *Config) handshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMs) * time.Millisecond
}

func (c *Config) writeTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

// WithDefaults returns a copy with zero fields filled from DefaultConfig. It
// accepts a nil receiver.
func (c *Config) WithDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.RelayURL == "" {
		out.RelayURL = d.RelayURL
	}
	if out.HandshakeTimeoutMs == 0 {
		out.HandshakeTimeoutMs = d.HandshakeTimeoutMs
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.WriteTimeoutMs == 0 {
		out.WriteTimeoutMs = d.WriteTimeoutMs
	}
	if out.AudioSampleRate == 0 {
		out.AudioSampleRate = d.AudioSampleRate
	}
	if out.AudioChannels == 0 {
		out.AudioChannels = d.AudioChannels
	}
	if out.AudioFormat == "" {
		out.AudioFormat = d.AudioFormat
	}
	if out.AudioQueueSize == 0 {
		out.AudioQueueSize = d.AudioQueueSize
	}
	if out.UserName == "" {
		out.UserName = d.UserName
	}
	return &out
}
