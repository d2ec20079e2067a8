package collect

import (
	"time"

	"github.com/wenzapen/scout/limiter"
	"github.com/wenzapen/scout/proxy"
	"go.uber.org/zap"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type options struct {
	logger       *zap.Logger
	timeout      time.Duration
	proxy        proxy.Func
	limit        limiter.RateLimiter
	userAgent    string
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	headers      map[string]string
}

var defaultOptions = options{
	logger:       zap.NewNop(),
	timeout:      5 * time.Second,
	userAgent:    defaultUserAgent,
	retryMax:     2,
	retryWaitMin: 500 * time.Millisecond,
	retryWaitMax: 5 * time.Second,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.timeout = timeout
	}
}

func WithProxy(p proxy.Func) Option {
	return func(opts *options) {
		opts.proxy = p
	}
}

func WithLimiter(l limiter.RateLimiter) Option {
	return func(opts *options) {
		opts.limit = l
	}
}

func WithUserAgent(ua string) Option {
	return func(opts *options) {
		opts.userAgent = ua
	}
}

// WithRetry configures retries of connection errors, 429 and 5xx
// responses.
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(opts *options) {
		opts.retryMax = max
		opts.retryWaitMin = waitMin
		opts.retryWaitMax = waitMax
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(opts *options) {
		if opts.headers == nil {
			opts.headers = make(map[string]string)
		}
		opts.headers[key] = value
	}
}
