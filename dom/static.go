package dom

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Static is an immutable parsed HTML document. It is the snapshot form the
// inference analyzers work on.
type Static struct {
	doc *goquery.Document
	url string
}

// NewStatic parses html. baseURL is recorded for resolving relative links
// and may be empty.
func NewStatic(htmlStr, baseURL string) (*Static, error) {
	return NewStaticFromReader(strings.NewReader(htmlStr), baseURL)
}

func NewStaticFromReader(r io.Reader, baseURL string) (*Static, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Static{doc: doc, url: baseURL}, nil
}

// Snapshot returns d itself when it is already static, otherwise a static
// copy of d's current HTML.
func Snapshot(ctx context.Context, d Document) (*Static, error) {
	if s, ok := d.(*Static); ok {
		return s, nil
	}
	if p, ok := d.(*StaticPage); ok {
		if cur := p.current(); cur != nil {
			return cur, nil
		}
	}
	src, err := d.OuterHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	base := ""
	if u, ok := d.(interface{ URL() string }); ok {
		base = u.URL()
	}
	return NewStatic(src, base)
}

// Doc exposes the goquery document.
func (s *Static) Doc() *goquery.Document { return s.doc }

// URL is the address the document was loaded from, if known.
func (s *Static) URL() string { return s.url }

func (s *Static) QueryFirst(ctx context.Context, selector string) (Element, error) {
	all, err := s.QueryAll(ctx, selector)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (s *Static) QueryAll(_ context.Context, selector string) ([]Element, error) {
	return findAll(s.doc.Selection, selector)
}

func (s *Static) OuterHTML(_ context.Context) (string, error) {
	return goquery.OuterHtml(s.doc.Selection)
}

func findAll(root *goquery.Selection, selector string) ([]Element, error) {
	if err := ValidateSelector(selector); err != nil {
		return nil, err
	}
	var out []Element
	root.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, Wrap(sel.Get(0)))
	})
	return out, nil
}

// node adapts *html.Node to Element.
type node struct {
	n *html.Node
}

// Wrap returns the Element for n.
func Wrap(n *html.Node) Element {
	if n == nil {
		return nil
	}
	return node{n: n}
}

// HTMLNode unwraps an Element produced by a Static document.
func HTMLNode(e Element) (*html.Node, bool) {
	n, ok := e.(node)
	if !ok {
		return nil, false
	}
	return n.n, true
}

func (e node) sel() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.n).Selection
}

func (e node) Text() (string, error) {
	return e.sel().Text(), nil
}

func (e node) Attr(name string) (string, bool, error) {
	for _, a := range e.n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

func (e node) OuterHTML() (string, error) {
	return goquery.OuterHtml(e.sel())
}

func (e node) Parent() (Element, error) {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil, nil
	}
	return node{n: p}, nil
}

func (e node) Children() ([]Element, error) {
	var out []Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, node{n: c})
		}
	}
	return out, nil
}

func (e node) TagName() (string, error) {
	return strings.ToLower(e.n.Data), nil
}

func (e node) ClassList() ([]string, error) {
	v, _, _ := e.Attr("class")
	return strings.Fields(v), nil
}

func (e node) QueryAll(selector string) ([]Element, error) {
	return findAll(e.sel(), selector)
}

// HTMLFetcher loads the HTML source of a URL.
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// StaticPage is a Page without a browser: navigation fetches the HTML and
// parses it, scripts never run. Wait policies are accepted and ignored.
type StaticPage struct {
	fetcher HTMLFetcher
	mu      sync.Mutex
	doc     *Static
}

func NewStaticPage(f HTMLFetcher) *StaticPage {
	return &StaticPage{fetcher: f}
}

// StaticPageFromHTML returns a page already showing htmlStr.
func StaticPageFromHTML(htmlStr, baseURL string) (*StaticPage, error) {
	doc, err := NewStatic(htmlStr, baseURL)
	if err != nil {
		return nil, err
	}
	return &StaticPage{doc: doc}, nil
}

func (p *StaticPage) Navigate(ctx context.Context, url string, _ WaitPolicy, timeout time.Duration) error {
	if p.fetcher == nil {
		return fmt.Errorf("navigate %s: static page has no fetcher", url)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	src, err := p.fetcher.FetchHTML(ctx, url)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	doc, err := NewStatic(src, url)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	return nil
}

func (p *StaticPage) current() *Static {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc
}

// URL returns the address of the current document.
func (p *StaticPage) URL() string {
	if d := p.current(); d != nil {
		return d.URL()
	}
	return ""
}

func (p *StaticPage) QueryFirst(ctx context.Context, selector string) (Element, error) {
	d := p.current()
	if d == nil {
		return nil, ValidateSelector(selector)
	}
	return d.QueryFirst(ctx, selector)
}

func (p *StaticPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	d := p.current()
	if d == nil {
		return nil, ValidateSelector(selector)
	}
	return d.QueryAll(ctx, selector)
}

func (p *StaticPage) OuterHTML(ctx context.Context) (string, error) {
	d := p.current()
	if d == nil {
		return "", nil
	}
	return d.OuterHTML(ctx)
}
