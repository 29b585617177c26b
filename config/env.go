package config

import (
	"fmt"

	"rtvikit/transports/daily"

	"github.com/caarlos0/env/v11"
)

// Env holds the environment overrides. Empty values leave settings alone.
type Env struct {
	BaseURL     string `env:"RTVI_BASE_URL"`
	APIKey      string `env:"DAILY_BOTS_API_KEY"`
	RelayURL    string `env:"RTVI_RELAY_URL"`
	LogDir      string `env:"LOG_DIR"`
	LogLevel    string `env:"LOG_LEVEL"`
	LogFormat   string `env:"LOG_FORMAT"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("env: %w", err)
	}
	return e, nil
}

// ApplyEnv overrides settings with the non-empty values of e.
func (s *Settings) ApplyEnv(e Env) {
	if e.BaseURL != "" {
		s.Client.BaseURL = e.BaseURL
	}
	if e.APIKey != "" {
		s.Client.APIKey = e.APIKey
	}
	if e.RelayURL != "" {
		relay := *daily.DefaultConfig()
		if s.Relay != nil {
			relay = *s.Relay
		}
		relay.RelayURL = e.RelayURL
		s.Relay = &relay
	}
	if e.LogDir != "" {
		s.LogDir = e.LogDir
	}
	if e.LogLevel != "" {
		s.LogLevel = e.LogLevel
	}
	if e.LogFormat != "" {
		s.LogFormat = e.LogFormat
	}
	if e.MetricsAddr != "" {
		s.MetricsAddr = e.MetricsAddr
	}
}
