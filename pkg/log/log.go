// Package log configures the process-wide slog logger for the engine.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the process-wide logger and returns it. Level strings follow
// slog's text form (debug, info, warn, error, case-insensitive); anything
// unparseable falls back to info, since a bad LOG_LEVEL must not keep the
// engine from starting.
func Setup(logLevel string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return logger
}

// WithModule returns a child of the default logger tagged with the engine
// module it logs for (pipeline_runner, scheduler, step_executor).
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
