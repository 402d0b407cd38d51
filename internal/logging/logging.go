package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds the process-wide *slog.Logger and installs it as the default.
// Recognized levels: debug, info, warn, error (case-insensitive); anything
// else falls back to info.
func Setup(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
