package refresh

import (
	"log/slog"
	"time"
)

// Observer receives refresh events. metrics.Prometheus implements it.
type Observer interface {
	ObserveRefresh(name string, d time.Duration, err error)
	ObserveFailureStreak(name string, n int)
	ObserveSize(name string, n int)
}

type noopObserver struct{}

func (noopObserver) ObserveRefresh(string, time.Duration, error) {}
func (noopObserver) ObserveFailureStreak(string, int)            {}
func (noopObserver) ObserveSize(string, int)                     {}

type options struct {
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

func defaultOptions() options {
	return options{
		timeout:  30 * time.Second,
		logger:   slog.Default(),
		observer: noopObserver{},
		now:      time.Now,
	}
}

// Option configures a Coordinator.
type Option func(*options)

// WithInterval sets the background refresh period. Zero, the default, means the
// value is built once by Init and never refreshed on a timer.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithTimeout bounds a single cycle. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
