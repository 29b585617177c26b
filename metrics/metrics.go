// Package metrics holds the Prometheus instruments for session health: the
// outbound queue, request correlation and the audio paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Outbound messages
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtvi_messages_sent_total",
			Help: "Total number of protocol messages delivered to the engine",
		},
	)

	MessageSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtvi_message_send_failures_total",
			Help: "Total number of protocol messages that failed to encode or send",
		},
	)

	QueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtvi_queue_dropped_total",
			Help: "Total number of outbound messages dropped by the bounded queue",
		},
	)

	// Inbound messages
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtvi_messages_received_total",
			Help: "Total number of protocol messages received, by type",
		},
		[]string{"type"},
	)

	MalformedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtvi_malformed_messages_total",
			Help: "Total number of protocol messages that failed to decode, by type",
		},
		[]string{"type"},
	)

	// Correlation
	ActionsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rtvi_actions_pending",
			Help: "Number of actions waiting for a response",
		},
	)

	ActionsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtvi_actions_resolved_total",
			Help: "Total number of action responses matched to a callback",
		},
	)

	ActionsUnresolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtvi_actions_unresolved_total",
			Help: "Total number of action responses with no registered callback",
		},
	)

	CompletionsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rtvi_completions_pending",
			Help: "Number of engine requests waiting for completion",
		},
	)

	// Audio
	AudioUnderruns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtvi_audio_underruns_total",
			Help: "Total number of playback underruns in the jitter buffer",
		},
	)

	AudioSamplesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtvi_audio_samples_dropped_total",
			Help: "Total number of bot audio samples dropped by the jitter buffer cap",
		},
	)

	BotAudioSamples = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtvi_bot_audio_samples_total",
			Help: "Total number of bot audio samples delivered",
		},
	)

	UserAudioFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtvi_user_audio_frames_total",
			Help: "Total number of microphone samples accepted by the engine",
		},
	)

	UserAudioDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rtvi_user_audio_dropped_total",
			Help: "Total number of microphone chunks dropped before reaching the relay",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
