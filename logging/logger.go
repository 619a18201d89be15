package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a structured JSON logger writing to stdout with source
// locations. Level is a slog level name (DEBUG, INFO, WARN, ERROR);
// unrecognized values fall back to INFO.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     lvl,
	}))
}
