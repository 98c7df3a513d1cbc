package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger. Server output is JSON; the CLI passes
// text=true for a human-readable stream.
func New(level string, text bool) *slog.Logger {
	return NewWithWriter(os.Stderr, level, text)
}

func NewWithWriter(w io.Writer, level string, text bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if text {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
