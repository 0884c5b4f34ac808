package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	outputMu sync.RWMutex
	output   io.Writer = os.Stderr
	console  bool
)

// SetOutput redirects loggers created afterwards to w.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	output = w
}

// SetFormat selects "json" or "console" encoding for loggers created
// afterwards. An empty format keeps the current one.
func SetFormat(format string) error {
	outputMu.Lock()
	defer outputMu.Unlock()
	switch strings.ToLower(format) {
	case "":
	case "json":
		console = false
	case "console":
		console = true
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger tagging every entry with the
// component field.
func NewZerologLogger(component string) Logger {
	outputMu.RLock()
	w, pretty := output, console
	outputMu.RUnlock()
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

func (l *ZerologLogger) With(fields map[string]any) Logger {
	return &ZerologLogger{log: l.log.With().Fields(fields).Logger()}
}
