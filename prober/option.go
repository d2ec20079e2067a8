package prober

import (
	"time"

	"github.com/wenzapen/scout/dom"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	Logger     *zap.Logger
	WorkCount  int
	Candidates []string
	KnownHrefs []string
	Wait       dom.WaitPolicy
	NavTimeout time.Duration
}

var DefaultOptions = options{
	Logger:     zap.NewNop(),
	WorkCount:  4,
	Wait:       dom.WaitNetworkIdle,
	NavTimeout: 30 * time.Second,
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

// WithWorkCount bounds the number of pages probed at once.
func WithWorkCount(n int) Option {
	return func(opts *options) {
		opts.WorkCount = n
	}
}

// WithCandidates replaces the selectors handed to the scorer.
func WithCandidates(selectors ...string) Option {
	return func(opts *options) {
		opts.Candidates = selectors
	}
}

// WithKnownHrefs seeds the ancestor search with result links found by
// other means.
func WithKnownHrefs(hrefs ...string) Option {
	return func(opts *options) {
		opts.KnownHrefs = hrefs
	}
}

func WithWait(w dom.WaitPolicy) Option {
	return func(opts *options) {
		opts.Wait = w
	}
}

func WithNavigationTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.NavTimeout = d
	}
}
