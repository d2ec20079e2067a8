// Package setup holds the wiring shared by the scout commands.
package setup

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/wenzapen/scout/browser"
	"github.com/wenzapen/scout/collect"
	"github.com/wenzapen/scout/config"
	"github.com/wenzapen/scout/dom"
	"github.com/wenzapen/scout/limiter"
	"github.com/wenzapen/scout/log"
	"github.com/wenzapen/scout/prober"
	"github.com/wenzapen/scout/proxy"
)

const (
	ModeStatic  = "static"
	ModeBrowser = "browser"
)

type Env struct {
	Config  config.Config
	Logger  *zap.Logger
	closers []io.Closer
}

// Load reads cfgFile, or uses the defaults when it is empty, and builds
// the process logger.
func Load(cfgFile string) (*Env, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, err
		}
	}
	logger, closer, err := log.FromConfig(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	logger.Debug("config loaded", zap.String("file", cfgFile))
	return &Env{Config: cfg, Logger: logger, closers: []io.Closer{closer}}, nil
}

func (e *Env) Close() {
	_ = e.Logger.Sync()
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			e.Logger.Warn("close", zap.Error(err))
		}
	}
}

// Client is the HTTP client for static pages and http_request steps.
func (e *Env) Client() *collect.Client {
	fc := e.Config.Fetcher
	opts := []collect.Option{
		collect.WithLogger(e.Logger),
		collect.WithTimeout(time.Duration(fc.TimeoutMs) * time.Millisecond),
		collect.WithRetry(fc.RetryMax, 500*time.Millisecond, 5*time.Second),
	}
	if fc.UserAgent != "" {
		opts = append(opts, collect.WithUserAgent(fc.UserAgent))
	}
	if len(fc.Proxy) > 0 {
		p, err := proxy.RoundRobinSwitcher(fc.Proxy...)
		if err != nil {
			e.Logger.Error("RoundRobinSwitcher", zap.Error(err))
		} else {
			opts = append(opts, collect.WithProxy(p))
		}
	}
	if l := limiter.FromConfig(fc.Limits); l != nil {
		opts = append(opts, collect.WithLimiter(l))
	}
	return collect.NewClient(opts...)
}

// Browser launches or attaches to Chrome. It is closed with the Env.
func (e *Env) Browser(ctx context.Context) (*browser.Browser, error) {
	b, err := browser.Launch(ctx, e.Config.Browser, browser.WithLogger(e.Logger))
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, b)
	return b, nil
}

// Page returns a page for mode. Browser pages are closed with the Env.
func (e *Env) Page(ctx context.Context, mode string, client *collect.Client) (dom.Page, error) {
	switch mode {
	case ModeStatic:
		return dom.NewStaticPage(client), nil
	case ModeBrowser:
		b, err := e.Browser(ctx)
		if err != nil {
			return nil, err
		}
		p, err := b.NewPage(ctx)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, p)
		return p, nil
	}
	return nil, fmt.Errorf("unknown mode %q, want %s or %s", mode, ModeStatic, ModeBrowser)
}

// Sessions returns the page factory the prober draws from.
func (e *Env) Sessions(ctx context.Context, mode string, client *collect.Client) (prober.SessionFactory, error) {
	switch mode {
	case ModeStatic:
		return prober.Static(client), nil
	case ModeBrowser:
		b, err := e.Browser(ctx)
		if err != nil {
			return nil, err
		}
		return prober.SessionFunc(func(ctx context.Context) (prober.Session, error) {
			p, err := b.NewPage(ctx)
			if err != nil {
				return nil, err
			}
			return p, nil
		}), nil
	}
	return nil, fmt.Errorf("unknown mode %q, want %s or %s", mode, ModeStatic, ModeBrowser)
}

// PrintJSON writes v indented, with map keys sorted.
func PrintJSON(w io.Writer, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}
