package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Logger provides structured, leveled logging throughout the application.
// Every component receives one by injection; fields added with With are
// carried on each subsequent line.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a Logger writing to stdout. A terminal gets the coloured
// console format, anything else (pipes, files, CI) gets JSON lines.
func NewLogger(level string) *Logger {
	var out io.Writer = os.Stdout
	if term.IsTerminal(int(os.Stdout.Fd())) {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}
	}
	return NewLoggerTo(out, level)
}

// NewLoggerTo creates a Logger writing JSON (or whatever out formats) to out.
func NewLoggerTo(out io.Writer, level string) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zl := zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that attaches key=value to every line.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
