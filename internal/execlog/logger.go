// Package execlog provides structured logging for a command pool process.
package execlog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a structured logger writing to os.Stderr. format is "json" or
// "text"; level is "debug", "info", "warn", or "error". verbose forces
// debug level and source-location annotation regardless of level.
func New(format, level string, verbose bool) *slog.Logger {
	logLevel := parseLevel(level)
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	return slog.New(newHandler(os.Stderr, format, opts))
}

// NewWithWriter creates a logger writing to w, for tests that need to
// inspect emitted records.
func NewWithWriter(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	return slog.New(newHandler(w, format, opts))
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(format) {
	case "text":
		return slog.NewTextHandler(w, opts)
	default:
		return slog.NewJSONHandler(w, opts)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// SetDefault installs logger as the package-level slog default.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
