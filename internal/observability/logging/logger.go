package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs a JSON logger tagged with the service name as the
// process-wide default and returns it.
func Setup(service, level string) *slog.Logger {
	return setup(service, level, os.Stdout)
}

// SetupStderr is for processes whose stdout carries a protocol.
func SetupStderr(service, level string) *slog.Logger {
	return setup(service, level, os.Stderr)
}

func setup(service, level string, w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
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
