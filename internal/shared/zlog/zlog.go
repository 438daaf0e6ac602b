// Package zlog builds the simulator's *slog.Logger: a colorized tint
// handler for interactive CLI runs, or plain JSON when output isn't a
// terminal (piped into a file, CI, etc.).
package zlog

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

type Config struct {
	Level   string
	Service string

	// Pretty selects the tint-colorized handler. Callers typically set
	// this from isatty(os.Stdout); it is false by default so JSON output
	// is the safe choice for unattended runs.
	Pretty bool
}

func New(cfg Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug", "Debug":
		level = slog.LevelDebug
	case "warn", "Warn":
		level = slog.LevelWarn
	case "error", "Error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Pretty {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler)

	if cfg.Service != "" {
		logger = logger.With(slog.String("service", cfg.Service))
	}

	return logger
}
