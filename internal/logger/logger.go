// Package logger installs the process-wide slog handler.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Init sets the default logger to a JSON handler on stderr. level is one
// of debug, info, warn or error; anything else means info. LOG_LEVEL is
// consulted when level is empty.
func Init(level string) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) slog.Level {
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
