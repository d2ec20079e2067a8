// Package browser drives Chrome over the DevTools protocol with go-rod.
// Its Page satisfies dom.Page for recipes that need scripts to run, and
// collect.Interceptor for capturing the JSON a page fetches while it
// loads.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

type Config struct {
	// ControlURL attaches to a running Chrome instead of launching one.
	ControlURL          string `json:"controlURL" toml:"controlURL"`
	Bin                 string `json:"bin" toml:"bin"`
	Headless            bool   `json:"headless" toml:"headless"`
	NavigationTimeoutMs int    `json:"navigationTimeout" toml:"navigationTimeout"`
}

func DefaultConfig() Config {
	return Config{Headless: true, NavigationTimeoutMs: 30000}
}

func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

type Option func(opts *options)

type options struct {
	Logger *zap.Logger
}

var defaultOptions = options{
	Logger: zap.NewNop(),
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      Config
	options
}

// Launch connects to cfg.ControlURL, or starts a local Chrome when it
// is empty.
func Launch(ctx context.Context, cfg Config, opts ...Option) (*Browser, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	b := &Browser{cfg: cfg, options: options}

	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless).Context(ctx)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		b.launcher = l
		controlURL = u
		b.Logger.Info("chrome launched", zap.String("control_url", u))
	}

	rb := rod.New().ControlURL(controlURL)
	if err := rb.Connect(); err != nil {
		b.cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	b.browser = rb
	return b, nil
}

// NewPage opens a blank page in a fresh incognito context. Pages do not
// share cookies or storage.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	incognito, err := b.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &Page{
		page:      page.Context(context.Background()),
		contextID: incognito.BrowserContextID,
		browser:   b,
		logger:    b.Logger,
	}, nil
}

func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	b.cleanup()
	return err
}

func (b *Browser) cleanup() {
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
}
