package logger

import (
	"io"
	"log/slog"
	"os"
)

// NewStructured returns the key/value logger handed to use cases.
// Development gets readable text with debug level, everything else JSON at info.
func NewStructured(environment string) *slog.Logger {
	return newStructured(os.Stdout, environment)
}

func newStructured(w io.Writer, environment string) *slog.Logger {
	if environment == "development" {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Discard is used by tests that do not care about log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
