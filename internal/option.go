package internal

import (
	"io"

	"github.com/starford/waypoint/internal/tracker"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config      *Config
	logOutput   io.Writer
	trackerOpts []tracker.Option
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput sets the primary log destination. Defaults to stdout for
// the HTTP server and stderr for MCP, whose stdout carries the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithTrackerOptions passes extra options to the record stores.
func WithTrackerOptions(opts ...tracker.Option) Option {
	return func(a *application) {
		a.trackerOpts = append(a.trackerOpts, opts...)
	}
}
