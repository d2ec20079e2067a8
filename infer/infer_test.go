package infer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenzapen/scout/dom"
	"github.com/wenzapen/scout/engine"
)

const shopURL = "https://shop.example/search"

const consecutivePage = `<html><body>
<nav><a href="/login">Login</a><a href="/about">About</a></nav>
<main>
<ul id="results">
  <li class="r item"><a href="/item/1"><h3 class="title">First result title</h3></a><img src="/img/1.jpg"></li>
  <li class="r item"><a href="/item/2"><h3 class="title">Second result title</h3></a><img src="/img/2.jpg"></li>
  <li class="r"><a href="/item/3"><h3 class="title">Third result title</h3></a><img src="/img/3.jpg"></li>
</ul>
</main>
<footer><a href="/terms">Terms</a></footer>
</body></html>`

const interleavedPage = `<html><body>
<div id="list">
  <div class="r"><a href="/p/1">Alpha item</a></div>
  <aside class="ad"><a href="https://ads.example/x">ad</a></aside>
  <div class="r"><a href="/p/2">Beta item</a></div>
  <aside class="ad"><a href="https://ads.example/y">ad</a></aside>
  <div class="r"><a href="/p/3">Gamma item</a></div>
</div>
</body></html>`

const backgroundPage = `<html><body>
<section class="grid">
  <a class="card" href="/v/1"><div class="thumb" style="background-image:url('/c/1.jpg')"></div><span class="video-title">Video one</span></a>
  <a class="card" href="/v/2"><div class="thumb" style="background-image:url('/c/2.jpg')"></div><span class="video-title">Video two</span></a>
  <a class="card" href="/v/3"><div class="thumb" style="background-image:url('/c/3.jpg')"></div><span class="video-title">Video three</span></a>
</section>
</body></html>`

func static(t *testing.T, src, base string) *dom.Static {
	t.Helper()
	doc, err := dom.NewStatic(src, base)
	require.NoError(t, err)
	return doc
}

func TestScoreSelectorsPicksResults(t *testing.T) {
	doc := static(t, consecutivePage, shopURL)
	rep := ScoreSelectors(doc, []string{"nav a", "li.r", "ul > li", "footer a"})

	require.True(t, rep.Found)
	assert.Equal(t, "li.r", rep.Best.Selector)
	assert.Equal(t, 20, rep.Best.Score)

	require.Len(t, rep.Candidates, 4)
	assert.False(t, rep.Candidates[0].Accepted)
	assert.Equal(t, -10, rep.Candidates[0].Score)
	assert.Equal(t, "matches lack outbound result links", rep.Candidates[0].Reason)
	assert.Equal(t, 20, rep.Candidates[2].Score, "equal score loses to the earlier selector")
	assert.Equal(t, "not a repeating list", rep.Candidates[3].Reason)
}

func TestScoreSelectorsDeterministic(t *testing.T) {
	doc := static(t, consecutivePage, shopURL)
	first := ScoreSelectors(doc, nil)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, ScoreSelectors(doc, nil)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
	require.True(t, first.Found)
	assert.Equal(t, len(DefaultCandidates), len(first.Candidates))
}

func TestScoreSelectorsRejections(t *testing.T) {
	var b strings.Builder
	b.WriteString("<div>")
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&b, `<span class="tok"><a href="/w/%d">word number %d</a></span>`, i, i)
	}
	b.WriteString("</div>")
	doc := static(t, b.String(), "")

	rep := ScoreSelectors(doc, []string{"span.tok", "div", `li:contains("x")`})
	assert.False(t, rep.Found)
	assert.NotEmpty(t, rep.Reason)
	assert.Equal(t, "noise", rep.Candidates[0].Reason)
	assert.Equal(t, "not a repeating list", rep.Candidates[1].Reason)
	assert.Contains(t, rep.Candidates[2].Reason, "non-standard pseudo-class")
}

func TestFindConsecutiveAncestor(t *testing.T) {
	doc := static(t, consecutivePage, shopURL)
	c := FindConsecutiveAncestor(doc, Options{})

	require.True(t, c.Found, c.Reason)
	assert.True(t, c.IsConsecutive)
	assert.Equal(t, "#results", c.Container)
	assert.Equal(t, "#results > li.r", c.ItemSelector)
	assert.Equal(t, "#results > li.r:nth-child($i)", c.LoopBase)
	assert.Equal(t, []int{1, 2, 3}, c.ChildIndices)
	assert.Equal(t, 1, c.LoopFrom)
	assert.Equal(t, 3, c.LoopTo)
	assert.Equal(t, Fields{Title: "h3.title", URL: "a", URLAttr: "href", Image: "img", ImageAttr: "src"}, c.Fields)
	assert.Empty(t, c.Warnings)
}

func TestFindConsecutiveAncestorInterleaved(t *testing.T) {
	doc := static(t, interleavedPage, "https://site.example/")
	c := FindConsecutiveAncestor(doc, Options{})

	require.True(t, c.Found, c.Reason)
	assert.False(t, c.IsConsecutive)
	assert.Equal(t, []int{1, 3, 5}, c.ChildIndices)
	assert.Equal(t, "#list > div.r:nth-of-type($i)", c.LoopBase)
	assert.Equal(t, 1, c.LoopFrom)
	assert.Equal(t, 3, c.LoopTo)
	assert.Len(t, c.Warnings, 1)
	assert.Equal(t, "a", c.Fields.Title)
}

func TestFindConsecutiveAncestorKnownHrefs(t *testing.T) {
	doc := static(t, consecutivePage, shopURL)
	c := FindConsecutiveAncestor(doc, Options{KnownHrefs: []string{
		"https://shop.example/item/1",
		"https://shop.example/item/2/",
		"/item/3#reviews",
	}})
	require.True(t, c.Found, c.Reason)
	assert.Empty(t, c.Warnings)
	assert.Equal(t, []int{1, 2, 3}, c.ChildIndices)

	c = FindConsecutiveAncestor(doc, Options{KnownHrefs: []string{"https://shop.example/item/1"}})
	require.True(t, c.Found, c.Reason)
	assert.Len(t, c.Warnings, 1)
}

func TestFindConsecutiveAncestorBackgroundCover(t *testing.T) {
	doc := static(t, backgroundPage, "")
	c := FindConsecutiveAncestor(doc, Options{})

	require.True(t, c.Found, c.Reason)
	assert.Equal(t, "section.grid > a.card:nth-child($i)", c.LoopBase)
	assert.Equal(t, Fields{
		Title:                "span.video-title",
		URLAttr:              "href",
		Image:                "div.thumb",
		ImageAttr:            "style",
		CoverNeedsExtraction: true,
	}, c.Fields)
}

const localizedPage = `<html><body>
<nav><a href="/en/about">About us</a><a href="/en/jobs">Jobs</a><a href="/en/press">Press</a><a href="/en/blog">Blog</a></nav>
<div class="promo"><a href="/en/stores">Find a store</a><a href="/en/news">What's new</a></div>
<div id="grid">
  <div class="r"><a href="/en/product/1">Oak table</a></div>
  <div class="r"><a href="/en/product/2">Pine chair</a></div>
  <div class="r"><a href="/en/product/3">Ash shelf</a></div>
</div>
</body></html>`

func TestFindConsecutiveAncestorLocalizedPaths(t *testing.T) {
	doc := static(t, localizedPage, "https://shop.example/en/search")
	c := FindConsecutiveAncestor(doc, Options{})

	require.True(t, c.Found, c.Reason)
	assert.Equal(t, "#grid", c.Container)
	assert.True(t, c.IsConsecutive)
	assert.Equal(t, []int{1, 2, 3}, c.ChildIndices)
}

func TestPrefixKey(t *testing.T) {
	base := "https://shop.example/en/search"
	assert.Equal(t, "shop.example/en/product", prefixKey(base, "/en/product/1"))
	assert.Equal(t, "shop.example/en/product", prefixKey(base, "product/2/"))
	assert.Equal(t, "shop.example/en", prefixKey(base, "/en/about"))
	assert.Equal(t, "shop.example/", prefixKey(base, "/123"))
}

func TestFindConsecutiveAncestorPlainBackground(t *testing.T) {
	doc := static(t, `<ul id="hits">
<li><a href="/v/1">One</a><span style="background-color:#fff">new</span></li>
<li><a href="/v/2">Two</a><span style="background-color:#fff">new</span></li>
<li><a href="/v/3">Three</a><span style="background: #eee">new</span></li>
</ul>`, "")
	c := FindConsecutiveAncestor(doc, Options{})

	require.True(t, c.Found, c.Reason)
	assert.Empty(t, c.Fields.Image)
	assert.Empty(t, c.Fields.ImageAttr)
	assert.False(t, c.Fields.CoverNeedsExtraction)
}

func TestBackgroundImage(t *testing.T) {
	tests := []struct {
		style string
		want  bool
	}{
		{"background-image:url('/c/1.jpg')", true},
		{"color: red; Background: #000 URL(/c.png) no-repeat", true},
		{"background-color:#fff", false},
		{"background:#fff", false},
		{"mask-image:url(/m.svg)", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backgroundImage(tt.style), tt.style)
	}
}

func TestFindConsecutiveAncestorTooFewAnchors(t *testing.T) {
	doc := static(t, `<ul><li><a href="/a/1">one</a></li><li><a href="/a/2">two</a></li></ul>`, "")
	c := FindConsecutiveAncestor(doc, Options{})
	assert.False(t, c.Found)
	assert.Contains(t, c.Reason, "need at least 3")
}

func TestFindConsecutiveAncestorSharedContainer(t *testing.T) {
	doc := static(t, `<p>intro</p><div id="one"><p><a href="/a/1">1</a><a href="/a/2">2</a><a href="/a/3">3</a></p></div>`, "")
	c := FindConsecutiveAncestor(doc, Options{})
	require.True(t, c.Found, c.Reason)
	assert.Equal(t, "#one > p", c.Container)
}

type fetcher map[string]string

func (f fetcher) FetchHTML(_ context.Context, url string) (string, error) {
	return f[url], nil
}

func TestCandidateRecipeRuns(t *testing.T) {
	tests := []struct {
		name string
		page string
		want []map[string]any
	}{
		{"consecutive", consecutivePage, []map[string]any{
			{"TITLE": "First result title", "URL": "/item/1", "IMAGE": "/img/1.jpg"},
			{"TITLE": "Second result title", "URL": "/item/2", "IMAGE": "/img/2.jpg"},
			{"TITLE": "Third result title", "URL": "/item/3", "IMAGE": "/img/3.jpg"},
		}},
		{"background", backgroundPage, []map[string]any{
			{"TITLE": "Video one", "URL": "/v/1", "IMAGE": "/c/1.jpg"},
			{"TITLE": "Video two", "URL": "/v/2", "IMAGE": "/c/2.jpg"},
			{"TITLE": "Video three", "URL": "/v/3", "IMAGE": "/c/3.jpg"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FindConsecutiveAncestor(static(t, tt.page, shopURL), Options{})
			require.True(t, c.Found, c.Reason)

			rec := c.Recipe(tt.name, shopURL)
			require.NoError(t, rec.Validate())

			page := dom.NewStaticPage(fetcher{shopURL: tt.page})
			res, err := engine.NewRunner(engine.WithPage(page)).Run(context.Background(), rec)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, res.Records()); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}

	assert.Nil(t, SelectorCandidate{}.Recipe("x", shopURL))
}
