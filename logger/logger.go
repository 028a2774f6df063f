// Package logger builds the slog loggers used across the engine.
package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.trai.ch/zerr"

	"flowroute/diagram"
)

// Options selects the level and output format.
type Options struct {
	Level string
	JSON  bool
}

// New returns a logger writing to w, pretty-printed unless JSON is set.
// An unknown level falls back to info.
func New(w io.Writer, opts Options) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(NewPrettyHandler(w, hopts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel maps a configuration string to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, zerr.With(zerr.Wrap(diagram.ErrInvalidConfig, "unknown log level"), "level", s)
	}
}

// messager matches errors that can report their own message without the chain.
type messager interface {
	Message() string
}

// FormatError renders an error chain as a headline followed by its causes.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var messages []string
	for current := err; current != nil; {
		m, ok := current.(messager)
		if !ok {
			messages = append(messages, current.Error())
			break
		}
		if msg := m.Message(); msg != "" {
			messages = append(messages, msg)
		}
		current = errors.Unwrap(current)
	}
	if len(messages) == 0 {
		return err.Error()
	}

	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(messages[0])
	if len(messages) > 1 {
		b.WriteString("\n\n  Caused by:")
		for _, msg := range messages[1:] {
			b.WriteString("\n    → ")
			b.WriteString(msg)
		}
	}
	return b.String()
}
