package mapper

import (
	"context"
	"log/slog"
)

// LevelTrace is the log level of the placement and routing trace.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs a mapping event at LevelTrace.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}
