// Package logging builds the slog loggers used across dictfocus.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Options configures NewLogger
type Options struct {
	Level     string    // debug, info, warn, error
	Format    string    // auto, text, json
	Writer    io.Writer // defaults to os.Stderr
	Component string
}

// NewLogger returns a logger writing to opts.Writer. With Format "auto" it
// writes text to terminals and JSON everywhere else (launchd, log files).
// Records logged with a context from WithRequestID carry its request_id.
func NewLogger(opts Options) (*slog.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch format := strings.ToLower(opts.Format); format {
	case "", "auto":
		if isTerminal(w) {
			h = slog.NewTextHandler(w, hopts)
		} else {
			h = slog.NewJSONHandler(w, hopts)
		}
	case "text":
		h = slog.NewTextHandler(w, hopts)
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	default:
		return nil, fmt.Errorf("unknown log format: %s (supported: auto, text, json)", opts.Format)
	}

	logger := slog.New(&contextHandler{inner: h})
	if opts.Component != "" {
		logger = logger.With("component", opts.Component)
	}
	return logger, nil
}

// ParseLevel maps a level name to a slog level; empty means info
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", name)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
