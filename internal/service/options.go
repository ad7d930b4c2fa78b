package service

import (
	"github.com/cloo-solutions/ragpipe/internal/metrics"
	"github.com/rs/zerolog"
)

// Option configures the ambient dependencies of a service.
type Option func(*options)

type options struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func newOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. Services log nothing by default.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records pipeline metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
