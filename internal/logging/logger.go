// internal/logging/logger.go

// Package logging builds the process logger.
//
// Records go to stdout and an optional log file, and are mirrored onto the
// event bus as LogMessage lines for live viewers.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
)

// Options selects outputs and level.
type Options struct {
	Dir    string // empty disables the log file
	File   string
	Level  string // debug|info|warn|error
	Format string // text|json
}

// Init returns the logger and a closer for the log file.
func Init(opts Options, bus *events.Bus) (*slog.Logger, func() error) {
	var w io.Writer = os.Stdout
	closer := func() error { return nil }

	if opts.Dir != "" {
		name := opts.File
		if name == "" {
			name = "massa-osd.log"
		}
		_ = os.MkdirAll(opts.Dir, 0o755)

		f, err := os.OpenFile(filepath.Join(opts.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fallback := slog.New(slog.NewTextHandler(os.Stdout, nil))
			fallback.Error("failed to open log file; falling back to stdout only", "error", err)
		} else {
			w = io.MultiWriter(os.Stdout, f)
			closer = f.Close
		}
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	if bus != nil {
		h = NewBusHandler(h, bus)
	}

	// stdlib log users (gorilla handlers, paho) end up in the same place.
	log.SetOutput(w)

	return slog.New(h), closer
}

// ParseLevel maps a config string to a slog level. Unknown means info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard is a logger for tests and optional dependencies.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
