package engine

import (
	"time"

	"github.com/wenzapen/scout/collect"
	"github.com/wenzapen/scout/dom"
	"github.com/wenzapen/scout/metrics"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	Logger     *zap.Logger
	Page       dom.Page
	Requester  collect.Requester
	Metrics    *metrics.Metrics
	SampleSize int
	NavTimeout time.Duration
}

var DefaultOptions = options{
	Logger:     zap.NewNop(),
	SampleSize: 3,
	NavTimeout: 30 * time.Second,
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

// WithPage sets the page extraction and navigate steps run against.
func WithPage(p dom.Page) Option {
	return func(opts *options) {
		opts.Page = p
	}
}

// WithRequester sets the client used by http_request steps.
func WithRequester(r collect.Requester) Option {
	return func(opts *options) {
		opts.Requester = r
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *options) {
		opts.Metrics = m
	}
}

// WithSampleSize bounds the number of values kept per trace entry.
func WithSampleSize(n int) Option {
	return func(opts *options) {
		opts.SampleSize = n
	}
}

// WithNavigationTimeout is the navigate timeout for steps without
// timeout_ms.
func WithNavigationTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.NavTimeout = d
	}
}
