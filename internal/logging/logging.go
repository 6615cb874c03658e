// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type handlerType int

const (
	handlerText handlerType = iota
	handlerJSON
)

// ParseLevel maps debug, info, warn or error to a slog level.
// An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func setup(level slog.Level, w io.Writer, ht handlerType) {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch ht {
	case handlerJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// Setup installs a text handler writing to w (os.Stderr if nil).
func Setup(level slog.Level, w io.Writer) {
	setup(level, w, handlerText)
}

// SetupJSON installs a JSON handler writing to w (os.Stderr if nil).
func SetupJSON(level slog.Level, w io.Writer) {
	setup(level, w, handlerJSON)
}
