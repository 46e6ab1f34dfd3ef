// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger writing to stderr. level is debug, info, warn or
// error (info when unknown); format is text or json.
func Setup(level, format string) {
	slog.SetDefault(slog.New(newHandler(os.Stderr, level, format)))
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, options)
	}

	return slog.NewTextHandler(w, options)
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
