// Package dom defines the page access capability recipes run against and
// provides a goquery-backed implementation for static HTML.
//
// Live browser pages live in package browser; both satisfy Page.
package dom

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// WaitPolicy selects when navigation is considered complete.
type WaitPolicy string

const (
	WaitImmediate   WaitPolicy = "immediate"
	WaitDOMReady    WaitPolicy = "dom_ready"
	WaitNetworkIdle WaitPolicy = "network_idle"
)

// ParseWaitPolicy maps the recipe spelling of a wait policy. The empty
// string means WaitDOMReady.
func ParseWaitPolicy(s string) (WaitPolicy, error) {
	switch WaitPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", WaitDOMReady, "domcontentloaded", "load":
		return WaitDOMReady, nil
	case WaitImmediate, "none", "commit":
		return WaitImmediate, nil
	case WaitNetworkIdle, "networkidle":
		return WaitNetworkIdle, nil
	}
	return "", fmt.Errorf("unknown wait policy %q", s)
}

// Element is one node of a loaded page.
type Element interface {
	// Text returns the node's textContent.
	Text() (string, error)
	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool, error)
	OuterHTML() (string, error)
	// Parent returns nil at the document root.
	Parent() (Element, error)
	Children() ([]Element, error)
	// TagName is lower case.
	TagName() (string, error)
	ClassList() ([]string, error)
	QueryAll(selector string) ([]Element, error)
}

// Document is a loaded page that can be queried.
type Document interface {
	// QueryFirst returns nil, nil when nothing matches.
	QueryFirst(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	OuterHTML(ctx context.Context) (string, error)
}

// Page is a Document that can be navigated.
type Page interface {
	Document
	Navigate(ctx context.Context, url string, wait WaitPolicy, timeout time.Duration) error
}
