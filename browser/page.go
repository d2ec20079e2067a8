package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wenzapen/scout/collect"
	"github.com/wenzapen/scout/dom"
)

// Page is one browser tab. It is not safe for concurrent use; give every
// goroutine its own Page.
type Page struct {
	page      *rod.Page
	contextID proto.BrowserBrowserContextID
	browser   *Browser
	logger    *zap.Logger
}

func (p *Page) Navigate(ctx context.Context, url string, wait dom.WaitPolicy, timeout time.Duration) error {
	pg := p.page.Context(ctx)
	if timeout > 0 {
		pg = pg.Timeout(timeout)
		defer pg.CancelTimeout()
	}

	var waitFor func()
	switch wait {
	case dom.WaitDOMReady:
		waitFor = pg.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	case dom.WaitNetworkIdle:
		waitFor = pg.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	}
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if waitFor != nil {
		waitFor()
	}
	if err := pg.GetContext().Err(); err != nil {
		return fmt.Errorf("navigate %s: wait %s: %w", url, wait, err)
	}
	p.logger.Debug("navigated", zap.String("url", url), zap.String("wait", string(wait)))
	return nil
}

// URL returns the address of the loaded document.
func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *Page) QueryFirst(ctx context.Context, selector string) (dom.Element, error) {
	all, err := p.QueryAll(ctx, selector)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

// QueryAll never waits for matches to appear.
func (p *Page) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	if err := dom.ValidateSelector(selector); err != nil {
		return nil, err
	}
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrapAll(els), nil
}

func (p *Page) OuterHTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// Close closes the tab and disposes its incognito context.
func (p *Page) Close() error {
	err := p.page.Close()
	if p.contextID != "" {
		dispose := proto.TargetDisposeBrowserContext{BrowserContextID: p.contextID}
		err = multierr.Append(err, dispose.Call(p.browser.browser))
	}
	return err
}

// OnResponse streams the responses to requests selected by match until
// ctx ends. Call it before Navigate to see the page's initial requests.
func (p *Page) OnResponse(ctx context.Context, match collect.Predicate) (<-chan *collect.Intercepted, error) {
	if err := (proto.NetworkEnable{}).Call(p.page); err != nil {
		return nil, fmt.Errorf("enable network events: %w", err)
	}

	out := make(chan *collect.Intercepted, 16)
	pg := p.page.Context(ctx)
	// event callbacks run one at a time, pending needs no lock
	pending := map[proto.NetworkRequestID]*collect.Intercepted{}

	wait := pg.EachEvent(
		func(ev *proto.NetworkRequestWillBeSent) {
			if ev.Request == nil || !match(ev.Request.Method, ev.Request.URL) {
				return
			}
			it := &collect.Intercepted{URL: ev.Request.URL, Method: ev.Request.Method}
			if ev.Request.HasPostData {
				if res, err := (proto.NetworkGetRequestPostData{RequestID: ev.RequestID}).Call(pg); err == nil {
					it.PostData = res.PostData
				}
			}
			pending[ev.RequestID] = it
		},
		func(ev *proto.NetworkResponseReceived) {
			it, ok := pending[ev.RequestID]
			if !ok || ev.Response == nil {
				return
			}
			it.Status = ev.Response.Status
			it.Headers = make(map[string]string, len(ev.Response.Headers))
			for k, v := range ev.Response.Headers {
				it.Headers[k] = v.Str()
			}
		},
		func(ev *proto.NetworkLoadingFailed) {
			delete(pending, ev.RequestID)
		},
		func(ev *proto.NetworkLoadingFinished) bool {
			it, ok := pending[ev.RequestID]
			if !ok {
				return false
			}
			delete(pending, ev.RequestID)
			body, err := (proto.NetworkGetResponseBody{RequestID: ev.RequestID}).Call(pg)
			if err != nil {
				p.logger.Debug("response body unavailable", zap.String("url", it.URL), zap.Error(err))
			} else if body.Base64Encoded {
				it.Body, _ = base64.StdEncoding.DecodeString(body.Body)
			} else {
				it.Body = []byte(body.Body)
			}
			select {
			case out <- it:
				return false
			case <-ctx.Done():
				return true
			}
		},
	)
	go func() {
		wait()
		close(out)
	}()
	return out, nil
}
