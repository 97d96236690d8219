package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a text logger on stderr, or a JSON logger over a rotating file
// when file is set.
func New(level, file string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.TrimSpace(file) == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "log dir: %v, logging to stderr\n", err)
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	w := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    32, // MB
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Discard is used by tests and by callers that did not wire a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// OrDiscard keeps nil loggers out of the call sites.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
