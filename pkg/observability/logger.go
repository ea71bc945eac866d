package observability

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the JSON slog logger used across the service. The level
// defaults to info and can be lowered with LOG_LEVEL=debug.
func NewLogger(serviceName string) *slog.Logger {
	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler).With("service", serviceName)
}
