package reconcile

import (
	"io"

	"github.com/AnatoleLucet/reconcile/internal"
	"github.com/AnatoleLucet/reconcile/internal/config"
	"github.com/AnatoleLucet/reconcile/internal/logging"
	"github.com/AnatoleLucet/reconcile/internal/scheduler"
)

type (
	Config      = config.Config
	Logger      = logging.Logger
	Clock       = scheduler.Clock
	ManualClock = scheduler.ManualClock
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads configuration from path, RECONCILE_CONFIG or ./reconcile.toml, then RECONCILE_* env vars.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// NewLogger returns a JSON logger writing to w at the named level.
func NewLogger(w io.Writer, level string) (*Logger, error) {
	return logging.FromConfig(w, level)
}

// NewManualClock returns a clock that only moves when told to. Useful in tests.
func NewManualClock() *ManualClock {
	return scheduler.NewManualClock()
}

type Option func(*options)

type options struct {
	clock   Clock
	logger  *Logger
	config  Config
	onError func(error)
}

func newOptions(opts []Option) *options {
	o := &options{config: config.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) build() internal.Options {
	cfg := o.config
	return internal.Options{
		Clock:   o.clock,
		Logger:  o.logger,
		Config:  &cfg,
		OnError: o.onError,
	}
}

func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConfig replaces the whole configuration. Options after it still apply on top.
func WithConfig(c Config) Option {
	return func(o *options) { o.config = c }
}

func WithYieldInterval(ms int) Option {
	return func(o *options) { o.config.Scheduler.YieldIntervalMs = ms }
}

func WithNestedUpdateLimit(n int) Option {
	return func(o *options) { o.config.Limits.NestedUpdates = n }
}

func WithNestedPassiveUpdateLimit(n int) Option {
	return func(o *options) { o.config.Limits.NestedPassiveUpdates = n }
}

// WithErrorHandler is called with every error the runtime recovers from, including
// those raised by scheduled work outside of any call.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}
