package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a structured text logger on stdout.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// NewJSON returns a structured JSON logger for machine-scraped deployments.
func NewJSON() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// Discard returns a logger that drops everything. Interactive tools use it so
// log lines do not interleave with their own output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
}
