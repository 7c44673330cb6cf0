// Package corelog configures the process-wide structured logger.
package corelog

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures a global slog logger for the named command. JSON output
// if FIND_SIMDOC_JSON_LOG=1/true/json, text otherwise; level from
// FIND_SIMDOC_LOG_LEVEL (debug/info/warn/error, default info).
func Init(command string) *slog.Logger {
	mode := strings.ToLower(os.Getenv("FIND_SIMDOC_JSON_LOG"))
	var handler slog.Handler
	opts := &slog.HandlerOptions{AddSource: false, Level: levelFromEnv()}
	if mode == "1" || mode == "true" || mode == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler).With("command", command)
	slog.SetDefault(logger)
	return logger
}

func levelFromEnv() slog.Leveler {
	switch strings.ToLower(os.Getenv("FIND_SIMDOC_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
