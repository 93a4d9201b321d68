package internal

import (
	"io"
	"log/slog"
	"math/rand/v2"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	logger  *slog.Logger
	rng     *rand.Rand
	stdin   io.Reader
	stdout  io.Writer
	reports bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithRand sets the random source used for shuffling.
func WithRand(r *rand.Rand) Option {
	return func(a *application) {
		a.rng = r
	}
}

// WithIO sets the streams used by interactive sessions and reports.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *application) {
		a.stdin = in
		a.stdout = out
	}
}

// WithReports opens the report database.
func WithReports() Option {
	return func(a *application) {
		a.reports = true
	}
}
