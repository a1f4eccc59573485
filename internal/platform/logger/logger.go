package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so log lines
// are machine-parseable; level is Info unless LOG_LEVEL=debug.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
