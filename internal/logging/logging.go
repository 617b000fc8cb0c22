// Package logging builds the process logger: human-readable text on stdout
// and JSON on stderr for collectors.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a logger writing to stdout and stderr at level.
func New(level slog.Leveler) *slog.Logger {
	return NewWithWriters(os.Stdout, os.Stderr, level)
}

// NewWithWriters is New with explicit text and JSON destinations.
func NewWithWriters(text, json io.Writer, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(text, opts),
		slog.NewJSONHandler(json, opts),
	))
}

// Setup installs New(level) as the default logger and returns it.
func Setup(level slog.Leveler) *slog.Logger {
	logger := New(level)
	slog.SetDefault(logger)
	return logger
}
