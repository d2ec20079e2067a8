// Package infer guesses the selectors a listing recipe needs by looking at
// the structure of a page snapshot. All functions are pure: the same
// snapshot always yields the same answer.
package infer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wenzapen/scout/dom"
)

const (
	minListSize = 2
	maxListSize = 100
	minTextLen  = 10
)

// DefaultCandidates is the stock list of result-item selectors, most
// specific first.
var DefaultCandidates = []string{
	"div.g",
	"li.b_algo",
	"div.result",
	"div.search-result",
	"li.search-result",
	"div.product",
	"li.product",
	"div.product-item",
	"article",
	"div.card",
	"li.card",
	"div.item",
	"li.item",
	"div[class*=result]",
	"li[class*=result]",
	"div[class*=item]",
	"div[class*=card]",
	"ul > li",
	"ol > li",
	"table tr",
}

var (
	headingSel  = "h1, h2, h3, h4, h5, h6, [class*=title]"
	landmarkSel = "main, [role=main], #content, #main, .content, .main-content"
	chromeWords = []string{"nav", "menu", "sidebar", "footer"}
	// links through these path segments are site chrome, not results
	chromeSegments = map[string]bool{
		"login": true, "signin": true, "sign-in": true, "logout": true,
		"register": true, "signup": true, "sign-up": true, "account": true,
		"cart": true, "checkout": true, "category": true, "categories": true,
		"tag": true, "tags": true, "privacy": true, "terms": true, "help": true, "contact": true,
	}
)

type Candidate struct {
	Selector string `json:"selector"`
	Count    int    `json:"count"`
	Score    int    `json:"score"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

type ScoreReport struct {
	Found      bool        `json:"found"`
	Reason     string      `json:"reason,omitempty"`
	Best       *Candidate  `json:"best,omitempty"`
	Candidates []Candidate `json:"candidates"`
}

// ScoreSelectors evaluates selectors against doc and picks the one most
// likely to address the repeated result items. With no selectors
// DefaultCandidates is used. Ties go to the earlier selector.
func ScoreSelectors(doc *dom.Static, selectors []string) ScoreReport {
	if len(selectors) == 0 {
		selectors = DefaultCandidates
	}
	rep := ScoreReport{Candidates: make([]Candidate, 0, len(selectors))}
	best := -1
	for _, sel := range selectors {
		c := scoreOne(doc, sel)
		rep.Candidates = append(rep.Candidates, c)
		if c.Accepted && (best < 0 || c.Score > rep.Candidates[best].Score) {
			best = len(rep.Candidates) - 1
		}
	}
	if best < 0 {
		rep.Reason = "no candidate selector matched a repeating list of result items"
		return rep
	}
	b := rep.Candidates[best]
	rep.Found = true
	rep.Best = &b
	return rep
}

func scoreOne(doc *dom.Static, sel string) Candidate {
	c := Candidate{Selector: sel}
	if err := dom.ValidateSelector(sel); err != nil {
		c.Reason = err.Error()
		return c
	}
	matches := doc.Doc().Find(sel)
	c.Count = matches.Length()
	switch {
	case c.Count < minListSize:
		c.Reason = "not a repeating list"
		return c
	case c.Count > maxListSize:
		c.Reason = "noise"
		return c
	}

	var withLink, withText int
	inMain := false
	matches.Each(func(_ int, s *goquery.Selection) {
		if s.Find("img").Length() > 0 {
			c.Score += 2
		}
		if s.Find(headingSel).Length() > 0 {
			c.Score += 3
		}
		if hasResultLink(s) {
			withLink++
		}
		if len(normText(s.Text())) >= minTextLen {
			withText++
		}
		if !inMain && s.Closest(landmarkSel).Length() > 0 {
			inMain = true
		}
	})
	if looksLikeChrome(sel) {
		c.Score -= 10
	}
	if inMain {
		c.Score += 5
	}

	switch {
	case withLink*2 <= c.Count:
		c.Reason = "matches lack outbound result links"
	case withText*2 <= c.Count:
		c.Reason = "matches carry too little text"
	default:
		c.Accepted = true
	}
	return c
}

func looksLikeChrome(sel string) bool {
	l := strings.ToLower(sel)
	for _, w := range chromeWords {
		if strings.Contains(l, w) {
			return true
		}
	}
	return false
}

// hasResultLink reports whether s is, or contains, a link that leads to
// content rather than site chrome.
func hasResultLink(s *goquery.Selection) bool {
	links := s.Find("a[href]")
	if goquery.NodeName(s) == "a" {
		links = links.AddSelection(s)
	}
	found := false
	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if isResultHref(href) {
			found = true
			return false
		}
		return true
	})
	return found
}

func isResultHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	if h == "" || h == "/" || strings.HasPrefix(h, "#") {
		return false
	}
	for _, p := range []string{"javascript:", "mailto:", "tel:"} {
		if strings.HasPrefix(h, p) {
			return false
		}
	}
	path := h
	if u, err := url.Parse(h); err == nil {
		path = u.Path
	}
	for _, seg := range strings.Split(path, "/") {
		if chromeSegments[seg] {
			return false
		}
	}
	return true
}

func normText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
