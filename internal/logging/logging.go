// Package logging configures the process logger: colored console output
// through tint and a plain "timestamp - logger - level - message" file per
// run, both behind a slog-context handler so attributes stored in a context
// are emitted with every record.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	slogctx "github.com/veqryn/slog-context"
)

// NameKey is the attribute that carries a logger's name.
const NameKey = "logger"

// Options configure Setup.
type Options struct {
	Level slog.Level
	// Dir receives one log file per run; empty disables file output.
	Dir string
	// Retention is the number of log files kept in Dir; 0 keeps all.
	Retention int
	// Console defaults to os.Stderr.
	Console io.Writer
	NoColor bool
	// Now defaults to time.Now and names the log file.
	Now func() time.Time
}

// Setup builds the process logger. The returned close function flushes and
// closes the log file.
func Setup(opts Options) (*slog.Logger, func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	handlers := []slog.Handler{
		tint.NewHandler(console, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.TimeOnly,
			NoColor:    opts.NoColor,
		}),
	}
	closeFn := func() error { return nil }

	var path string
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("logging: mkdir: %w", err)
		}
		path = filepath.Join(opts.Dir, NameFromTime(now(), ".log"))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open: %w", err)
		}
		handlers = append(handlers, NewLineHandler(f, opts.Level))
		closeFn = f.Close
	}

	logger := slog.New(slogctx.NewHandler(fanout(handlers), nil))
	if path != "" && opts.Retention > 0 {
		if removed, err := Prune(opts.Dir, ".log", opts.Retention); err != nil {
			logger.Warn("logging: prune", slog.String("error", err.Error()))
		} else if len(removed) > 0 {
			logger.Debug("logging: pruned old log files", slog.Int("count", len(removed)))
		}
	}
	return logger, closeFn, nil
}

// Named returns a logger whose records carry name.
func Named(l *slog.Logger, name string) *slog.Logger {
	return l.With(slog.String(NameKey, name))
}

// ParseLevel accepts debug, info, warn/warning and error.
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
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
