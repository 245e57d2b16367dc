package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a logger with color support using a custom writer.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewDefault creates a logger writing to stderr at the given level.
func NewDefault(level slog.Level) *slog.Logger {
	return New(os.Stderr, level)
}

// ParseLevel converts a configuration string into a slog.Level.
// Unknown strings fall back to info.
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
