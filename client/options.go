package client

import (
	"encoding/json"
	"net/http"
	"time"

	"rtvikit/core"
	"rtvikit/session"
	"rtvikit/transports"
	"rtvikit/utils/audio"
)

// DefaultConnectEndpoint is appended to BaseURL when Endpoints.Connect is empty.
const DefaultConnectEndpoint = "/start"

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

// Endpoints are paths relative to Params.BaseURL.
type Endpoints struct {
	Connect string `json:"connect,omitempty"`
}

// Params describe the bootstrap request that starts a bot.
type Params struct {
	BaseURL   string            `json:"base_url"`
	Endpoints Endpoints         `json:"endpoints"`
	APIKey    string            `json:"api_key,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	// Request is sent verbatim as the POST body. Empty sends "{}".
	Request json.RawMessage `json:"request,omitempty"`
}

func (p Params) connectURL() string {
	endpoint := p.Endpoints.Connect
	if endpoint == "" {
		endpoint = DefaultConnectEndpoint
	}
	return p.BaseURL + endpoint
}

// Options configure a Client. Engine is required.
type Options struct {
	Params    Params
	Engine    transports.Engine
	Callbacks *session.Callbacks
	Logger    *core.Logger

	HTTPClient *http.Client

	// QueueSize bounds each session's outbound queue. See session.Options.
	QueueSize int
	// Jitter tunes the buffer behind ReadBotAudio.
	Jitter audio.JitterOptions

	// LogDir, when set, receives a jsonl log per session.
	LogDir string

	SubscriptionProfiles json.RawMessage
	ClientSettings       json.RawMessage
}
