package logging

import (
	"log/slog"
	"os"
)

// NewLogger returns a structured JSON logger on stderr so stdout stays
// clean for tables and exports. verbose lowers the level to Debug.
func NewLogger(verbose bool) *slog.Logger {
	level := new(slog.LevelVar)
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
