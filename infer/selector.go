package infer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/wenzapen/scout/dom"
)

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// classes returns the classes of n usable in a selector.
func classes(n *html.Node) []string {
	v, _ := attr(n, "class")
	var out []string
	for _, c := range strings.Fields(v) {
		if isIdent(c) {
			out = append(out, c)
		}
	}
	return out
}

// isIdent accepts names that need no CSS escaping.
func isIdent(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') || strings.HasPrefix(s, "--") {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

func compound(tag string, cls []string) string {
	var b strings.Builder
	b.WriteString(tag)
	for _, c := range cls {
		b.WriteByte('.')
		b.WriteString(c)
	}
	return b.String()
}

func simple(n *html.Node) string {
	return compound(n.Data, classes(n))
}

// uniquePath returns a selector matching only n: its #id when unique,
// otherwise tag.class steps joined by " > " up the tree until the path is
// unique, and positional steps as a last resort.
func uniquePath(doc *dom.Static, n *html.Node) string {
	count := func(sel string) int {
		return doc.Doc().Find(sel).Length()
	}
	if id, ok := attr(n, "id"); ok && isIdent(id) {
		if sel := "#" + id; count(sel) == 1 {
			return sel
		}
	}

	sel := simple(n)
	for p := n.Parent; count(sel) != 1; p = p.Parent {
		if p == nil || p.Type != html.ElementNode {
			return positionalPath(n)
		}
		if id, ok := attr(p, "id"); ok && isIdent(id) && count("#"+id) == 1 {
			sel = "#" + id + " > " + sel
			continue
		}
		sel = simple(p) + " > " + sel
	}
	return sel
}

func positionalPath(n *html.Node) string {
	var steps []string
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if p.Data == "html" {
			steps = append(steps, "html")
			break
		}
		i, _ := siblingIndex(p)
		steps = append(steps, fmt.Sprintf("%s:nth-child(%d)", p.Data, i))
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return strings.Join(steps, " > ")
}

// relative returns a selector for target that, queried inside root, finds
// target first.
func relative(root, target *html.Node) string {
	sel := simple(target)
	first := goquery.NewDocumentFromNode(root).Find(sel).First()
	if first.Length() > 0 && first.Get(0) == target {
		return sel
	}
	return target.Data
}

// fieldsOf derives title, link and image selectors from a sample
// container.
func fieldsOf(container *html.Node) Fields {
	var f Fields
	s := goquery.NewDocumentFromNode(container).Selection

	if h := s.Find("h1, h2, h3, h4, h5, h6").First(); h.Length() > 0 {
		f.Title = relative(container, h.Get(0))
	} else if t := s.Find("[class*=title]").First(); t.Length() > 0 {
		f.Title = relative(container, t.Get(0))
	} else if s.Find("a").Length() > 0 {
		f.Title = "a"
	}

	if container.Data == "a" {
		f.URLAttr = "href"
	} else if a := s.Find("a[href]").First(); a.Length() > 0 {
		f.URL = relative(container, a.Get(0))
		f.URLAttr = "href"
	}

	if img := s.Find("img[src], img[data-src]").First(); img.Length() > 0 {
		f.Image = relative(container, img.Get(0))
		src, _ := img.Attr("src")
		if _, lazy := img.Attr("data-src"); lazy && (src == "" || strings.HasPrefix(src, "data:")) {
			f.ImageAttr = "data-src"
		} else {
			f.ImageAttr = "src"
		}
	} else if bg := s.Find("[style*=background]").FilterFunction(func(_ int, e *goquery.Selection) bool {
		style, _ := e.Attr("style")
		return backgroundImage(style)
	}).First(); bg.Length() > 0 {
		f.Image = relative(container, bg.Get(0))
		f.ImageAttr = "style"
		f.CoverNeedsExtraction = true
	}
	return f
}

// backgroundImage reports whether an inline style sets a background image.
func backgroundImage(style string) bool {
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(prop)) {
		case "background", "background-image":
			if strings.Contains(strings.ToLower(val), "url(") {
				return true
			}
		}
	}
	return false
}
