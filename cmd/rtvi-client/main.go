package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"rtvikit/client"
	"rtvikit/config"
	"rtvikit/core"
	"rtvikit/helpers/llm"
	"rtvikit/metrics"
	"rtvikit/protocol"
	"rtvikit/session"
	"rtvikit/transports"
	"rtvikit/transports/daily"
	"rtvikit/utils/audio"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var (
		baseURL      string
		requestPath  string
		settingsPath string
		recordPath   string
	)
	flag.StringVar(&baseURL, "b", "", "bot server base URL (e.g. https://api.daily.co/v1/bots)")
	flag.StringVar(&requestPath, "c", "", "JSON file sent as the bootstrap request body")
	flag.StringVar(&settingsPath, "settings", "", "settings JSON file")
	flag.StringVar(&recordPath, "record", "", "write bot audio to this WAV file")
	flag.Parse()

	logger := core.GetLogger()
	if err := godotenv.Load(".env.local"); err != nil {
		logger.With(map[string]any{"error": err}).Debug("No .env.local file found or failed to load")
	}

	settings, err := config.Load(settingsPath)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("failed to load settings")
		os.Exit(1)
	}
	if baseURL != "" {
		settings.Client.BaseURL = baseURL
	}
	if settings.Client.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "missing bot server base URL: pass -b or set RTVI_BASE_URL")
		flag.Usage()
		os.Exit(2)
	}
	if requestPath != "" {
		body, err := config.RequestFromFile(requestPath)
		if err != nil {
			logger.With(map[string]any{"error": err}).Error("failed to load request body")
			os.Exit(1)
		}
		settings.Client.Request = body
	}
	if settings.LogFormat == "json" {
		core.SetLogger(*core.NewJSONLogger(os.Stdout))
		logger = core.GetLogger()
	}
	if err := core.SetLogLevel(settings.LogLevel); err != nil {
		logger.With(map[string]any{"error": err}).Warn("ignoring log level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings.MetricsAddr != "" {
		go serveMetrics(ctx, settings.MetricsAddr, logger)
	}

	if err := run(ctx, settings, recordPath, logger); err != nil {
		logger.With(map[string]any{"error": err}).Error("client exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, settings config.Settings, recordPath string, logger *core.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var c *client.Client
	callbacks := &session.Callbacks{
		OnConnected:    func() { logger.Info("connected, waiting for the bot") },
		OnDisconnected: func() { logger.Info("disconnected") },
		OnBotConnected: func(bot transports.Participant) {
			logger.With(map[string]any{"participant_id": bot.ID}).Info("bot joined")
		},
		OnBotDisconnected: func(bot transports.Participant, reason string) {
			logger.With(map[string]any{"participant_id": bot.ID, "reason": reason}).Info("bot left")
			cancel()
		},
		OnBotReady: func(data protocol.BotReadyData) {
			greet(c, logger)
		},
		OnUserTranscript: func(data protocol.UserTranscriptData) {
			if data.Final {
				logger.With(map[string]any{"text": data.Text}).Info("user")
			}
		},
		OnBotTranscript: func(data protocol.BotTranscriptData) {
			logger.With(map[string]any{"text": data.Text}).Info("bot")
		},
		OnError: func(data protocol.ErrorData) {
			logger.With(map[string]any{"error": data.Error, "fatal": data.Fatal}).Error("bot error")
			if data.Fatal {
				cancel()
			}
		},
		OnMessageError: func(err error) {
			logger.With(map[string]any{"error": err}).Debug("message error")
		},
		OnTransportError: func(message string) {
			logger.With(map[string]any{"error": message}).Error("transport error")
		},
	}

	c, err := client.New(client.Options{
		Params:    settings.Client,
		Engine:    daily.NewEngine(settings.Relay, logger),
		Callbacks: callbacks,
		Logger:    logger,
		QueueSize: settings.QueueSize,
		Jitter: audio.JitterOptions{
			PrerollFloor: settings.Audio.PrerollFloor,
			MaxSamples:   settings.Audio.MaxBufferedSamples,
		},
		LogDir: settings.LogDir,
	})
	if err != nil {
		return err
	}
	c.RegisterHelper(llm.Service, llm.New(llm.Callbacks{
		OnFunctionCallStart: func(name string) {
			logger.With(map[string]any{"function": name}).Info("function call started")
		},
		OnFunctionCall: func(call llm.FunctionCallData) interface{} {
			logger.With(map[string]any{"function": call.FunctionName, "args": string(call.Args)}).Info("function call")
			return nil
		},
	}, logger))

	if err := c.Initialize(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := c.Close(shutdownCtx); err != nil {
			logger.With(map[string]any{"error": err}).Warn("shutdown finished with errors")
		}
	}()

	if err := c.Connect(ctx); err != nil {
		return err
	}

	rec := &recorder{}
	playback := &audio.Playback{
		Source:        audio.ReaderFunc(c.ReadBotAudio),
		SampleRate:    settings.Audio.PlaybackSampleRate,
		FramesPerPull: settings.Audio.FramesPerPull,
	}
	if recordPath != "" {
		playback.Sink = rec.write
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := playback.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.With(map[string]any{"error": err}).Error("playback stopped")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	wg.Wait()

	if recordPath != "" {
		if err := rec.save(recordPath, settings.Audio.PlaybackSampleRate); err != nil {
			return err
		}
		logger.With(map[string]any{"path": recordPath, "seconds": rec.seconds(settings.Audio.PlaybackSampleRate)}).Info("recording saved")
	}
	return nil
}

// greet seeds the bot's LLM context once it is ready.
func greet(c *client.Client, logger *core.Logger) {
	msg, err := llm.AppendToMessages([]openai.ChatCompletionMessage{
		llm.UserMessage("Hello! Please introduce yourself in one sentence."),
	}, true)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("failed to build action")
		return
	}
	err = c.SendActionWithCallback(msg, func(resp *protocol.Message) {
		logger.With(map[string]any{"type": string(resp.Type), "data": string(resp.Data)}).Info("action answered")
	})
	if err != nil {
		logger.With(map[string]any{"error": err}).Warn("failed to send action")
	}
}

func serveMetrics(ctx context.Context, addr string, logger *core.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	logger.With(map[string]any{"addr": addr}).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.With(map[string]any{"error": err}).Error("metrics server stopped")
	}
}

// recorder accumulates played frames as little-endian PCM16.
type recorder struct {
	pcm     bytes.Buffer
	samples int
}

func (r *recorder) write(frame []int16) {
	r.pcm.Write(audio.SamplesToBytes(frame))
	r.samples += len(frame)
}

func (r *recorder) seconds(sampleRate int) float64 {
	return audio.DurationSeconds(r.samples, 1, sampleRate)
}

func (r *recorder) save(path string, sampleRate int) error {
	wav, err := audio.PCMBytesToWavBytes(r.pcm.Bytes(), 1, sampleRate)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return fmt.Errorf("record: write %q: %w", path, err)
	}
	return nil
}
