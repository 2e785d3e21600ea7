package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Settings controls output format and verbosity for every logger created
// by New.
type Settings struct {
	// Level is a zerolog level name such as "debug" or "info".
	Level string `json:"level"`
	// Format is "json" or "console". An empty format selects console output
	// when APP_ENV=dev and JSON otherwise.
	Format string `json:"format"`
	// Device tags every entry with a "device" field when set.
	Device string `json:"-"`
}

var (
	mu     sync.RWMutex
	output io.Writer = os.Stdout
	format string
	device string
)

// Configure applies s globally. Unknown levels return an error and leave the
// current level untouched.
func Configure(s Settings) error {
	if s.Level != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(s.Level))
		if err != nil {
			return err
		}
		zerolog.SetGlobalLevel(lvl)
	}
	mu.Lock()
	format = strings.ToLower(s.Format)
	device = s.Device
	mu.Unlock()
	return nil
}

// SetOutput redirects all loggers created afterwards.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger. All logs include the provided
// component field.
func NewZerologLogger(component string) Logger {
	mu.RLock()
	w, f, dev := output, format, device
	mu.RUnlock()
	if f == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		f = "console"
	}
	if f == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zc := zerolog.New(w).With().Timestamp().Str("component", component)
	if dev != "" {
		zc = zc.Str("device", dev)
	}
	z := zc.Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Infow(msg string, fields map[string]any) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
