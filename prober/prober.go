// Package prober runs the result-list analyzers over several candidate
// pages at once. Every page gets its own session; sessions are never
// shared between workers.
package prober

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wenzapen/scout/dom"
	"github.com/wenzapen/scout/infer"
)

// Session is a page owned by a single probe.
type Session interface {
	dom.Page
	Close() error
}

type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

type SessionFunc func(ctx context.Context) (Session, error)

func (f SessionFunc) NewSession(ctx context.Context) (Session, error) {
	return f(ctx)
}

type staticSession struct {
	*dom.StaticPage
}

func (staticSession) Close() error { return nil }

// Static returns a factory of pages loaded over plain HTTP.
func Static(f dom.HTMLFetcher) SessionFactory {
	return SessionFunc(func(context.Context) (Session, error) {
		return staticSession{dom.NewStaticPage(f)}, nil
	})
}

// Report is the outcome of probing one URL.
type Report struct {
	URL        string                  `json:"url"`
	Selectors  infer.ScoreReport       `json:"selectors"`
	Ancestor   infer.SelectorCandidate `json:"ancestor"`
	Error      string                  `json:"error,omitempty"`
	DurationMs int64                   `json:"duration_ms"`
}

// Found reports whether either analyzer located a result list.
func (r Report) Found() bool {
	return r.Error == "" && (r.Selectors.Found || r.Ancestor.Found)
}

func (r Report) score() int {
	if r.Selectors.Best == nil {
		return 0
	}
	return r.Selectors.Best.Score
}

// Best returns the most promising report: one where both analyzers
// agree, then the highest scorer result. Ties go to the earlier URL.
func Best(reports []Report) (Report, bool) {
	best := -1
	for i, r := range reports {
		if !r.Found() {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := reports[best]
		both, bBoth := r.Selectors.Found && r.Ancestor.Found, b.Selectors.Found && b.Ancestor.Found
		if both != bBoth {
			if both {
				best = i
			}
			continue
		}
		if r.score() > b.score() {
			best = i
		}
	}
	if best < 0 {
		return Report{}, false
	}
	return reports[best], true
}

type Prober struct {
	sessions SessionFactory
	options
}

func New(sessions SessionFactory, opts ...Option) *Prober {
	options := DefaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Prober{sessions: sessions, options: options}
}

// Probe analyzes urls with up to WorkCount workers. Reports are in the
// order of urls. A failing page is recorded in its report; the returned
// error is only set when ctx ends before every URL was probed.
func (p *Prober) Probe(ctx context.Context, urls []string) ([]Report, error) {
	reports := make([]Report, len(urls))
	for i, u := range urls {
		reports[i].URL = u
	}
	workers := p.WorkCount
	if workers > len(urls) {
		workers = len(urls)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range urls {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				reports[i] = p.probe(gctx, urls[i])
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return reports, fmt.Errorf("probe cancelled: %w", err)
	}
	return reports, nil
}

func (p *Prober) probe(ctx context.Context, url string) Report {
	start := time.Now()
	r := Report{URL: url}
	if err := p.analyze(ctx, &r); err != nil {
		r.Error = err.Error()
		p.Logger.Warn("probe failed", zap.String("url", url), zap.Error(err))
	} else {
		p.Logger.Debug("probe finished", zap.String("url", url),
			zap.Bool("selectors", r.Selectors.Found), zap.Bool("ancestor", r.Ancestor.Found))
	}
	r.DurationMs = time.Since(start).Milliseconds()
	return r
}

func (p *Prober) analyze(ctx context.Context, r *Report) error {
	sess, err := p.sessions.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			p.Logger.Warn("close session", zap.String("url", r.URL), zap.Error(err))
		}
	}()

	if err := sess.Navigate(ctx, r.URL, p.Wait, p.NavTimeout); err != nil {
		return err
	}
	doc, err := dom.Snapshot(ctx, sess)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	r.Selectors = infer.ScoreSelectors(doc, p.Candidates)
	r.Ancestor = infer.FindConsecutiveAncestor(doc, infer.Options{KnownHrefs: p.KnownHrefs})
	return nil
}
