// Package observability provides structured logging setup for the assistant.
//
// It wraps log/slog so that every component logs through the same handler.
// When a log file is configured the handler writes to both stdout and the
// file, mirroring the console+file layout operators expect from the bot's
// runtime log.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Setup configures the global slog logger according to the provided level and
// format strings (e.g. level="info", format="json"). When filePath is
// non-empty the log output is duplicated into that file (append mode).
//
// Returns a close function for the log file (a no-op when no file is used).
func Setup(level, format, filePath string) (func() error, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	closeFn := func() error { return nil }
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", filePath, err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = f.Close
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}
