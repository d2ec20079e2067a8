package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wenzapen/scout/collect"
	"github.com/wenzapen/scout/dom"
	"github.com/wenzapen/scout/jsonpath"
	"github.com/wenzapen/scout/recipe"
	"github.com/wenzapen/scout/vars"
)

// Extraction is the value a step produced. Found is false when the
// locator or path matched nothing; Value is then "".
type Extraction struct {
	Value any
	Found bool
}

// Outcome is what one executed step reports to the trace.
type Outcome struct {
	Extraction
	// Locator is the rendered locator.
	Locator    string
	MatchCount int
	Samples    []string
	// Unresolved lists placeholders that rendered as "".
	Unresolved []string
}

// Missing returns an error wrapping ErrElementNotFound when the step
// matched nothing, and nil otherwise.
func (o Outcome) Missing() error {
	switch {
	case o.Found:
		return nil
	case o.Locator != "":
		return fmt.Errorf("%s: %w", o.Locator, ErrElementNotFound)
	}
	return ErrElementNotFound
}

// Executor runs single steps against a page, a requester and a variable
// store.
type Executor struct {
	page       dom.Page
	requester  collect.Requester
	store      *vars.Store
	logger     *zap.Logger
	navTimeout time.Duration
	samples    int
	// defaultURL is used by navigate steps without input.
	defaultURL string
}

// NewExecutor returns an executor over store for running steps one at a
// time, outside a Runner.
func NewExecutor(store *vars.Store, opts ...Option) *Executor {
	options := DefaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return newExecutor(store, options, "")
}

func newExecutor(store *vars.Store, o options, defaultURL string) *Executor {
	return &Executor{
		page:       o.Page,
		requester:  o.Requester,
		store:      store,
		logger:     o.Logger,
		navTimeout: o.NavTimeout,
		samples:    o.SampleSize,
		defaultURL: defaultURL,
	}
}

// Execute runs s and stores its value under s.Output.Name. A nil error
// with Found false means the step matched nothing.
func (e *Executor) Execute(ctx context.Context, s recipe.Step) (Outcome, error) {
	var out Outcome
	render := func(tmpl string) string {
		out.Unresolved = appendUnique(out.Unresolved, e.store.Unresolved(tmpl)...)
		return e.store.Render(tmpl)
	}

	var err error
	switch s.Command {
	case recipe.Navigate:
		err = e.navigate(ctx, s, render, &out)
	case recipe.ExtractText, recipe.ExtractAttribute, recipe.ExtractArray:
		err = e.extract(ctx, s, render, &out)
	case recipe.TransformStore:
		out.Extraction = Extraction{Value: render(s.Input), Found: true}
	case recipe.TransformRegex:
		err = e.transformRegex(s, render, &out)
	case recipe.TransformReplace:
		in := render(s.Input)
		if s.Find != "" {
			in = strings.ReplaceAll(in, s.Find, s.Replace)
		}
		out.Extraction = Extraction{Value: in, Found: true}
	case recipe.HTTPRequest:
		err = e.httpRequest(ctx, s, render, &out)
	case recipe.JSONExtract:
		e.jsonExtract(s, &out)
	default:
		return out, &ConfigurationError{Step: -1, Field: "command", Reason: fmt.Sprintf("unknown command %q", s.Command)}
	}
	if err != nil {
		return out, err
	}

	if name := s.Output.Name; name != "" && s.Command != recipe.Navigate {
		e.save(name, s.Command, out.Extraction)
	}
	return out, nil
}

func (e *Executor) save(name string, cmd recipe.Command, x Extraction) {
	if cmd == recipe.ExtractArray {
		if _, ok := e.store.Get(name); !ok {
			e.store.Set(name, []string{})
		}
		if arr, ok := x.Value.([]string); ok && len(arr) > 0 {
			e.store.Append(name, arr...)
		}
		return
	}
	if !x.Found {
		e.store.Set(name, "")
		return
	}
	e.store.Set(name, x.Value)
}

func (e *Executor) navigate(ctx context.Context, s recipe.Step, render func(string) string, out *Outcome) error {
	if e.page == nil {
		return &ConfigurationError{Step: -1, Field: "command", Reason: "navigate needs a page"}
	}
	url := render(s.Input)
	if url == "" {
		url = e.defaultURL
	}
	wait, err := dom.ParseWaitPolicy(s.Wait)
	if err != nil {
		return &ConfigurationError{Step: -1, Field: "wait", Reason: err.Error()}
	}
	timeout := e.navTimeout
	if s.TimeoutMs > 0 {
		timeout = time.Duration(s.TimeoutMs) * time.Millisecond
	}

	if err := e.page.Navigate(ctx, url, wait, timeout); err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx.Err())
		}
		return &NetworkError{Op: "navigate", URL: url, Err: err}
	}
	e.logger.Debug("navigated", zap.String("url", url), zap.String("wait", string(wait)))
	out.Extraction = Extraction{Value: url, Found: true}
	return nil
}

func (e *Executor) extract(ctx context.Context, s recipe.Step, render func(string) string, out *Outcome) error {
	if e.page == nil {
		return &ConfigurationError{Step: -1, Field: "command", Reason: fmt.Sprintf("%s needs a page", s.Command)}
	}
	sel := render(s.Locator)
	out.Locator = sel
	if err := dom.ValidateSelector(sel); err != nil {
		return &ConfigurationError{Step: -1, Field: "locator", Reason: err.Error()}
	}

	els, err := e.page.QueryAll(ctx, sel)
	if err != nil {
		var se *dom.SelectorError
		if errors.As(err, &se) {
			return &ConfigurationError{Step: -1, Field: "locator", Reason: err.Error()}
		}
		if ctx.Err() != nil {
			return cancelled(ctx.Err())
		}
		return fmt.Errorf("query %q: %w", sel, err)
	}
	out.MatchCount = len(els)
	if len(els) == 0 {
		if s.Command == recipe.ExtractArray {
			out.Extraction = Extraction{Value: []string(nil)}
		} else {
			out.Extraction = Extraction{Value: ""}
		}
		return nil
	}

	switch s.Command {
	case recipe.ExtractText:
		text, err := els[0].Text()
		if err != nil {
			return fmt.Errorf("text of %q: %w", sel, err)
		}
		text = strings.TrimSpace(text)
		out.Extraction = Extraction{Value: text, Found: true}
		out.Samples = e.sample(els, func(el dom.Element) string {
			t, _ := el.Text()
			return strings.TrimSpace(t)
		})
	case recipe.ExtractAttribute:
		v, ok, err := els[0].Attr(s.AttributeName)
		if err != nil {
			return fmt.Errorf("attribute %s of %q: %w", s.AttributeName, sel, err)
		}
		out.Extraction = Extraction{Value: v, Found: ok}
		out.Samples = e.sample(els, func(el dom.Element) string {
			v, _, _ := el.Attr(s.AttributeName)
			return v
		})
	case recipe.ExtractArray:
		texts := make([]string, 0, len(els))
		for _, el := range els {
			t, err := el.Text()
			if err != nil {
				return fmt.Errorf("text of %q: %w", sel, err)
			}
			texts = append(texts, strings.TrimSpace(t))
		}
		out.Extraction = Extraction{Value: texts, Found: true}
		out.Samples = e.sample(els, func(el dom.Element) string {
			t, _ := el.Text()
			return strings.TrimSpace(t)
		})
	}
	return nil
}

func (e *Executor) sample(els []dom.Element, value func(dom.Element) string) []string {
	n := e.samples
	if n <= 0 {
		return nil
	}
	if n > len(els) {
		n = len(els)
	}
	out := make([]string, 0, n)
	for _, el := range els[:n] {
		out = append(out, value(el))
	}
	return out
}

func (e *Executor) transformRegex(s recipe.Step, render func(string) string, out *Outcome) error {
	re, err := regexp.Compile(s.Regex)
	if err != nil {
		return &TransformError{Pattern: s.Regex, Err: err}
	}
	in := render(s.Input)
	m := re.FindStringSubmatch(in)
	switch {
	case m == nil:
		out.Extraction = Extraction{Value: in, Found: true}
	case len(m) > 1:
		out.Extraction = Extraction{Value: m[1], Found: true}
	default:
		out.Extraction = Extraction{Value: m[0], Found: true}
	}
	return nil
}

func (e *Executor) httpRequest(ctx context.Context, s recipe.Step, render func(string) string, out *Outcome) error {
	if e.requester == nil {
		return &ConfigurationError{Step: -1, Field: "command", Reason: "http_request needs a requester"}
	}
	req := &collect.Request{
		URL:    render(s.Input),
		Method: s.Method,
		Body:   render(s.Body),
	}
	if len(s.Headers) > 0 {
		req.Headers = make(map[string]string, len(s.Headers))
		for k, v := range s.Headers {
			req.Headers[k] = render(v)
		}
	}

	resp, err := e.requester.Do(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx.Err())
		}
		return &NetworkError{Op: "request", URL: req.URL, Err: err}
	}
	if !resp.OK() {
		return &NetworkError{Op: "request", URL: req.URL, Status: resp.Status}
	}
	payload, err := resp.JSON()
	if err != nil {
		return &NetworkError{Op: "request", URL: req.URL, Status: resp.Status, Err: err}
	}
	out.Extraction = Extraction{Value: payload, Found: true}
	return nil
}

func (e *Executor) jsonExtract(s recipe.Step, out *Outcome) {
	src := strings.TrimPrefix(strings.TrimSpace(s.Input), "$")
	out.Extraction = Extraction{Value: ""}

	v, ok := e.store.Get(src)
	if !ok {
		out.Unresolved = appendUnique(out.Unresolved, "$"+src)
		return
	}
	if str, isStr := v.(string); isStr {
		decoded, err := collect.DecodeJSON([]byte(str))
		if err != nil {
			return
		}
		v = decoded
	}
	got, ok := jsonpath.Get(v, s.Path)
	if !ok || got == nil {
		return
	}
	out.MatchCount = 1
	switch got.(type) {
	case map[string]any, []any:
		out.Extraction = Extraction{Value: got, Found: true}
	default:
		out.Extraction = Extraction{Value: vars.Format(got), Found: true}
	}
	out.Samples = []string{vars.Format(got)}
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
