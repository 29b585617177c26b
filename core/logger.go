package core

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var loggerInstance Logger = *NewDevelopmentLogger() // default to development logger

// SetLogger sets the global logger instance
func SetLogger(logger Logger) {
	loggerInstance = logger
}

// GetLogger retrieves the global logger instance
func GetLogger() *Logger {
	return &loggerInstance
}

// LogHandler receives every log record emitted by a Logger.
type LogHandler func(level string, msg string, attrs map[string]interface{})

type Logger struct {
	handlerFunc LogHandler
	attrs       map[string]interface{}
}

func NewLogger(handler LogHandler) *Logger {
	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]interface{}),
	}
}

// NewDevelopmentLogger creates a logger with human readable console output on stdout.
func NewDevelopmentLogger() *Logger {
	return NewZerologLogger(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}

// NewJSONLogger creates a logger emitting one JSON object per line to w.
func NewJSONLogger(w io.Writer) *Logger {
	return NewZerologLogger(w)
}

// NewZerologLogger routes records through a zerolog logger writing to w.
// FATAL exits the process and PANIC panics after the record is written.
func NewZerologLogger(w io.Writer) *Logger {
	zl := zerolog.New(w).With().Timestamp().Logger()
	return NewLogger(func(level string, msg string, attrs map[string]interface{}) {
		var event *zerolog.Event
		switch level {
		case "TRACE":
			event = zl.Trace()
		case "DEBUG":
			event = zl.Debug()
		case "INFO":
			event = zl.Info()
		case "WARN":
			event = zl.Warn()
		case "ERROR":
			event = zl.Error()
		case "FATAL":
			zl.WithLevel(zerolog.FatalLevel).Fields(attrs).Msg(msg)
			os.Exit(1)
		case "PANIC":
			zl.WithLevel(zerolog.PanicLevel).Fields(attrs).Msg(msg)
			panic(msg)
		default:
			event = zl.Log()
		}
		event.Fields(attrs).Msg(msg)
	})
}

// SetLogLevel sets the minimum level for zerolog-backed loggers. Unknown
// names leave the level unchanged and return an error.
func SetLogLevel(name string) error {
	if name == "" {
		return nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("logger: parse level %q: %w", name, err)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

func (l *Logger) log(level string, msg string, args ...interface{}) {
	if l.handlerFunc != nil {
		if len(args) > 0 {
			// Detect slog-style key-value pairs: even number of args where
			// odd-positioned args (keys) are strings.
			if isKeyValuePairs(args) {
				attrs := make(map[string]interface{}, len(l.attrs)+len(args)/2)
				for k, v := range l.attrs {
					attrs[k] = v
				}
				for i := 0; i < len(args)-1; i += 2 {
					key, _ := args[i].(string)
					attrs[key] = args[i+1]
				}
				l.handlerFunc(level, msg, attrs)
				return
			}
			msg = fmt.Sprintf(msg, args...)
		}
		l.handlerFunc(level, msg, l.attrs)
	}
}

// isKeyValuePairs returns true if args look like slog-style key-value pairs:
// even count and every key (even index) is a string.
func isKeyValuePairs(args []interface{}) bool {
	if len(args)%2 != 0 {
		return false
	}
	for i := 0; i < len(args); i += 2 {
		if _, ok := args[i].(string); !ok {
			return false
		}
	}
	return true
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log("DEBUG", msg, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log("DEBUG", format, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.log("INFO", msg, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log("WARN", msg, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log("WARN", format, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.log("ERROR", msg, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log("ERROR", format, args...)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", msg, args...)
}

func (l *Logger) Trace(msg string, args ...interface{}) {
	l.log("TRACE", msg, args...)
}

func (l *Logger) With(attrs map[string]interface{}) *Logger {
	combinedAttrs := make(map[string]interface{})
	for k, v := range l.attrs {
		combinedAttrs[k] = v
	}
	for k, v := range attrs {
		combinedAttrs[k] = v
	}
	return &Logger{
		handlerFunc: l.handlerFunc,
		attrs:       combinedAttrs,
	}
}

// Sync is a no-op; zerolog writes synchronously.
func (l *Logger) Sync() error {
	return nil
}
