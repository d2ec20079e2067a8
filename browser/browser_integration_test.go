//go:build integration

package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenzapen/scout/collect"
	"github.com/wenzapen/scout/dom"
	"github.com/wenzapen/scout/engine"
	"github.com/wenzapen/scout/recipe"
)

const scriptedPage = `<!doctype html><html><body><ul id="list"></ul>
<script>
fetch("/api/search?q=par").then(r => r.json()).then(data => {
  const ul = document.getElementById("list");
  for (const h of data.hits) {
    const li = document.createElement("li");
    li.className = "r";
    li.innerHTML = '<a href="' + h.url + '">' + h.title + '</a>';
    ul.appendChild(li);
  }
});
</script></body></html>`

const apiPayload = `{"hits":[{"title":"Paris","url":"/p/1"},{"title":"Parma","url":"/p/2"},{"title":"Paray","url":"/p/3"}]}`

func newSite(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(scriptedPage))
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(apiPayload))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func launch(t *testing.T) *Browser {
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no chrome binary found")
	}
	b, err := Launch(context.Background(), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestPageRunsRecipeAfterScripts(t *testing.T) {
	srv := newSite(t)
	b := launch(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	page, err := b.NewPage(ctx)
	require.NoError(t, err)
	defer page.Close()

	rec := &recipe.Recipe{
		Name: "scripted",
		URL:  srv.URL + "/",
		Steps: []recipe.Step{
			{Command: recipe.Navigate, Wait: "network_idle"},
			{Command: recipe.ExtractText, Locator: "#list > li.r:nth-child($i) a",
				Output: recipe.Output{Name: "TITLE$i", Show: true},
				Loop:   &recipe.Loop{Index: "i", From: 1, To: 3, Step: 1}},
		},
	}
	res, err := engine.NewRunner(engine.WithPage(page)).Run(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"TITLE": "Paris"}, {"TITLE": "Parma"}, {"TITLE": "Paray"}}, res.Records())
}

func TestPageInterceptsResponses(t *testing.T) {
	srv := newSite(t)
	b := launch(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	page, err := b.NewPage(ctx)
	require.NoError(t, err)
	defer page.Close()

	responses, err := page.OnResponse(ctx, collect.URLContains("/api/search"))
	require.NoError(t, err)
	require.NoError(t, page.Navigate(ctx, srv.URL+"/", dom.WaitNetworkIdle, 30*time.Second))

	select {
	case it := <-responses:
		assert.Equal(t, 200, it.Status)
		assert.Equal(t, "GET", it.Method)
		assert.JSONEq(t, apiPayload, string(it.Body))
	case <-ctx.Done():
		t.Fatal("no response intercepted")
	}
}

func TestPageQueryNoMatch(t *testing.T) {
	srv := newSite(t)
	b := launch(t)
	ctx := context.Background()

	page, err := b.NewPage(ctx)
	require.NoError(t, err)
	defer page.Close()
	require.NoError(t, page.Navigate(ctx, srv.URL+"/", dom.WaitDOMReady, 30*time.Second))

	el, err := page.QueryFirst(ctx, "div.missing")
	require.NoError(t, err)
	assert.Nil(t, el)

	_, err = page.QueryAll(ctx, `li:contains("Paris")`)
	var serr *dom.SelectorError
	assert.ErrorAs(t, err, &serr)
}
