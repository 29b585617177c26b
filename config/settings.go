// Package config loads client settings from a JSON file and the environment.
package config

import (
	"fmt"
	"os"

	"rtvikit/client"
	"rtvikit/transports/daily"

	"github.com/bytedance/sonic"
)

// AudioSettings tune bot audio playback.
type AudioSettings struct {
	// PlaybackSampleRate is the rate the playback clock pulls at.
	PlaybackSampleRate int `json:"playback_sample_rate,omitempty"`
	// FramesPerPull is the number of samples taken per playback tick.
	FramesPerPull int `json:"frames_per_pull,omitempty"`
	PrerollFloor  int `json:"preroll_floor,omitempty"`
	// MaxBufferedSamples caps jitter buffer depth. Zero means unbounded.
	MaxBufferedSamples int `json:"max_buffered_samples,omitempty"`
}

// Settings is the top-level config loaded from settings.json.
type Settings struct {
	Client client.Params `json:"client"`
	Relay  *daily.Config `json:"relay,omitempty"`
	Audio  AudioSettings `json:"audio"`

	QueueSize   int    `json:"queue_size,omitempty"`
	LogDir      string `json:"log_dir,omitempty"`
	LogLevel    string `json:"log_level,omitempty"`
	// LogFormat is "console" or "json".
	LogFormat   string `json:"log_format,omitempty"`
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

// DefaultSettings returns Settings pre-filled with defaults.
func DefaultSettings() Settings {
	return Settings{
		Client: client.Params{
			Endpoints: client.Endpoints{Connect: client.DefaultConnectEndpoint},
		},
		Relay: daily.DefaultConfig(),
		Audio: AudioSettings{
			PlaybackSampleRate: 48000,
			FramesPerPull:      480,
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// SettingsFromJSON parses data and fills unset fields with defaults.
func SettingsFromJSON(data []byte) (Settings, error) {
	var s Settings
	if err := sonic.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	s.fillDefaults()
	return s, nil
}

func (s *Settings) fillDefaults() {
	d := DefaultSettings()
	s.Relay = s.Relay.WithDefaults()
	if s.Client.Endpoints.Connect == "" {
		s.Client.Endpoints.Connect = d.Client.Endpoints.Connect
	}
	if s.Audio.PlaybackSampleRate == 0 {
		s.Audio.PlaybackSampleRate = d.Audio.PlaybackSampleRate
	}
	if s.Audio.FramesPerPull == 0 {
		s.Audio.FramesPerPull = d.Audio.FramesPerPull
	}
	if s.LogLevel == "" {
		s.LogLevel = d.LogLevel
	}
	if s.LogFormat == "" {
		s.LogFormat = d.LogFormat
	}
}

// SettingsFromFile reads and parses Settings from a JSON file.
func SettingsFromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettings(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsFromJSON(data)
}

// RequestFromFile reads a bootstrap request body and checks it is JSON.
func RequestFromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("request: read %q: %w", path, err)
	}
	if !sonic.Valid(data) {
		return nil, fmt.Errorf("request: %q is not valid JSON", path)
	}
	return data, nil
}

// Load builds Settings from the optional file at path, then applies
// environment overrides.
func Load(path string) (Settings, error) {
	s := DefaultSettings()
	if path != "" {
		var err error
		if s, err = SettingsFromFile(path); err != nil {
			return Settings{}, err
		}
	}

	env, err := LoadEnv()
	if err != nil {
		return Settings{}, err
	}
	s.ApplyEnv(env)
	return s, nil
}
