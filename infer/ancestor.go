package infer

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/wenzapen/scout/dom"
)

const minAnchors = 3

// chromeLandmarks hold site navigation rather than results.
const chromeLandmarks = "nav, header, footer, [role=navigation]"

// Fields are selectors relative to one result container.
type Fields struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	URLAttr string `json:"url_attr,omitempty"`
	Image   string `json:"image,omitempty"`
	// ImageAttr is "style" when the image is a CSS background.
	ImageAttr            string `json:"image_attr,omitempty"`
	CoverNeedsExtraction bool   `json:"cover_needs_extraction"`
}

// SelectorCandidate describes the repeated containers around a set of
// result links and how to loop over them.
type SelectorCandidate struct {
	Found  bool   `json:"found"`
	Reason string `json:"reason,omitempty"`
	// Container addresses the common ancestor of all result items.
	Container    string `json:"container,omitempty"`
	ItemSelector string `json:"item_selector,omitempty"`
	// LoopBase addresses item $i.
	LoopBase      string   `json:"loop_base,omitempty"`
	IsConsecutive bool     `json:"is_consecutive"`
	ChildIndices  []int    `json:"child_indices,omitempty"`
	LoopFrom      int      `json:"loop_from,omitempty"`
	LoopTo        int      `json:"loop_to,omitempty"`
	Fields        Fields   `json:"fields"`
	Warnings      []string `json:"warnings,omitempty"`
}

type Options struct {
	// KnownHrefs are result URLs found by other means, for example from a
	// search API. Anchors whose href matches one of them seed the search.
	KnownHrefs []string
}

// FindConsecutiveAncestor locates the deepest element containing all
// result anchors, the per-result child containers below it, and whether
// those containers are consecutive siblings.
func FindConsecutiveAncestor(doc *dom.Static, opts Options) SelectorCandidate {
	var (
		c       SelectorCandidate
		anchors []*html.Node
	)
	if len(opts.KnownHrefs) > 0 {
		anchors = knownAnchors(doc, opts.KnownHrefs)
		if len(anchors) < minAnchors {
			c.Warnings = append(c.Warnings,
				fmt.Sprintf("only %d of %d known hrefs found on the page; grouping links by path", len(anchors), len(opts.KnownHrefs)))
			anchors = nil
		}
	}
	if anchors == nil {
		anchors = largestLinkGroup(doc)
	}
	if len(anchors) < minAnchors {
		c.Reason = fmt.Sprintf("found %d result anchors, need at least %d", len(anchors), minAnchors)
		return c
	}

	ancestor := commonAncestor(anchors)
	if ancestor == nil || ancestor.Type != html.ElementNode {
		c.Reason = "result anchors share no common element ancestor"
		return c
	}

	containers := containersOf(ancestor, anchors)
	if len(containers) < minAnchors {
		c.Reason = fmt.Sprintf("result anchors fall into %d containers, need at least %d", len(containers), minAnchors)
		return c
	}

	childIdx := make([]int, len(containers))
	typeIdx := make([]int, len(containers))
	for i, n := range containers {
		childIdx[i], typeIdx[i] = siblingIndex(n)
	}
	c.ChildIndices = childIdx
	c.Container = uniquePath(doc, ancestor)
	pattern := itemPattern(containers)
	c.ItemSelector = c.Container + " > " + pattern

	if consecutive(childIdx) {
		c.IsConsecutive = true
		c.LoopBase = c.ItemSelector + ":nth-child($i)"
		c.LoopFrom, c.LoopTo = childIdx[0], childIdx[len(childIdx)-1]
	} else {
		c.LoopBase = c.ItemSelector + ":nth-of-type($i)"
		c.LoopFrom, c.LoopTo = typeIdx[0], typeIdx[len(typeIdx)-1]
		c.Warnings = append(c.Warnings, "result containers are interleaved with other siblings; looping with :nth-of-type")
		if !sameTag(containers) {
			c.Warnings = append(c.Warnings, "result containers differ in tag; :nth-of-type indices are per tag")
		} else if !consecutive(typeIdx) {
			c.Warnings = append(c.Warnings, "loop range includes same-type siblings that are not results")
		}
	}

	c.Fields = fieldsOf(containers[0])
	c.Found = true
	return c
}

// knownAnchors returns the anchors whose href matches a known href, in
// document order.
func knownAnchors(doc *dom.Static, hrefs []string) []*html.Node {
	want := make(map[string]bool, len(hrefs))
	for _, h := range hrefs {
		want[normHref(doc.URL(), h)] = true
	}
	var out []*html.Node
	doc.Doc().Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if want[normHref(doc.URL(), href)] {
			out = append(out, a.Get(0))
		}
	})
	return out
}

// normHref resolves href against base and drops the fragment and a
// trailing slash so equivalent spellings compare equal.
func normHref(base, href string) string {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if b, err := url.Parse(base); err == nil && base != "" {
		u = b.ResolveReference(u)
	}
	u.Fragment = ""
	s := u.String()
	if len(s) > 1 {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

// largestLinkGroup groups result links outside page chrome by host and
// path minus its last segment and returns the largest group. Ties go to the group seen first.
func largestLinkGroup(doc *dom.Static) []*html.Node {
	groups := map[string][]*html.Node{}
	var order []string
	doc.Doc().Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !isResultHref(href) || a.Closest(chromeLandmarks).Length() > 0 {
			return
		}
		key := prefixKey(doc.URL(), href)
		if key == "" {
			return
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], a.Get(0))
	})
	var best []*html.Node
	for _, k := range order {
		if len(groups[k]) > len(best) {
			best = groups[k]
		}
	}
	return best
}

func prefixKey(base, href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if b, err := url.Parse(base); err == nil && base != "" {
		u = b.ResolveReference(u)
	}
	p := strings.TrimSuffix(u.Path, "/")
	if p == "" {
		return ""
	}
	// "/p/1" and "/p/2" share "/p"; "/123" style links share "/"
	return u.Host + path.Dir(p)
}

// commonAncestor returns the deepest node containing every node in ns.
// When that node is itself one of ns its parent is returned.
func commonAncestor(ns []*html.Node) *html.Node {
	path := ancestry(ns[0])
	for _, n := range ns[1:] {
		other := ancestry(n)
		k := 0
		for k < len(path) && k < len(other) && path[k] == other[k] {
			k++
		}
		path = path[:k]
	}
	if len(path) == 0 {
		return nil
	}
	lca := path[len(path)-1]
	for _, n := range ns {
		if n == lca {
			return lca.Parent
		}
	}
	return lca
}

// ancestry returns the chain from the document root down to n.
func ancestry(n *html.Node) []*html.Node {
	var chain []*html.Node
	for p := n; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// containersOf maps each anchor to the child of ancestor that holds it,
// deduplicated and sorted in document order.
func containersOf(ancestor *html.Node, anchors []*html.Node) []*html.Node {
	seen := map[*html.Node]bool{}
	var out []*html.Node
	for _, a := range anchors {
		n := a
		for n != nil && n.Parent != ancestor {
			n = n.Parent
		}
		if n == nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, _ := siblingIndex(out[i])
		cj, _ := siblingIndex(out[j])
		return ci < cj
	})
	return out
}

// siblingIndex returns the 1-based position of n among its element
// siblings, and among the siblings sharing its tag.
func siblingIndex(n *html.Node) (child, ofType int) {
	for s := n; s != nil; s = s.PrevSibling {
		if s.Type != html.ElementNode {
			continue
		}
		child++
		if s.Data == n.Data {
			ofType++
		}
	}
	return child, ofType
}

func consecutive(idx []int) bool {
	for i := 1; i < len(idx); i++ {
		if idx[i] != idx[i-1]+1 {
			return false
		}
	}
	return true
}

func sameTag(ns []*html.Node) bool {
	for _, n := range ns[1:] {
		if n.Data != ns[0].Data {
			return false
		}
	}
	return true
}

// itemPattern is the tag and the classes every container shares. Mixed
// tags fall back to "*".
func itemPattern(ns []*html.Node) string {
	tag := ns[0].Data
	if !sameTag(ns) {
		tag = "*"
	}
	common := classes(ns[0])
	for _, n := range ns[1:] {
		have := map[string]bool{}
		for _, c := range classes(n) {
			have[c] = true
		}
		kept := common[:0]
		for _, c := range common {
			if have[c] {
				kept = append(kept, c)
			}
		}
		common = kept
	}
	return compound(tag, common)
}
