package vars

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLongestMatch(t *testing.T) {
	s := New()
	s.Set("BASE1", "one")
	s.Set("BASE10", "ten")
	s.Set("BASE", "base")

	assert.Equal(t, "ten|one|base", s.Render("$BASE10|$BASE1|$BASE"))
	assert.Equal(t, "one-x", s.Render("$BASE1-x"))
	assert.Empty(t, s.Unresolved("$BASE10|$BASE1|$BASE"))
}

// Substitution safety: a shorter index-qualified key never bleeds into a
// longer placeholder, whatever the digit width.
func TestRenderNeverBleedsShorterKey(t *testing.T) {
	for _, width := range []int{1, 2, 3, 4} {
		width := width
		t.Run(fmt.Sprintf("width_%d", width), func(t *testing.T) {
			s := New()
			s.Set("URL1", "https://a.example/1")
			long := "URL1"
			for i := 1; i < width; i++ {
				long += "0"
			}
			if long != "URL1" {
				s.Set(long, "https://a.example/long")
			}

			got := s.Render("$" + long)
			if long == "URL1" {
				assert.Equal(t, "https://a.example/1", got)
				return
			}
			assert.Equal(t, "https://a.example/long", got)
			assert.NotContains(t, got, "https://a.example/10")
		})
	}
}

func TestRenderUndefinedLongerKeyIsUnresolved(t *testing.T) {
	s := New()
	s.Set("URL1", "u1")
	s.Set("URL", "base")

	// URL10 is not defined: neither URL1 nor URL may claim its prefix.
	assert.Equal(t, "x", s.Render("x$URL10"))
	assert.Equal(t, []string{"$URL10"}, s.Unresolved("x$URL10"))

	// URL3 is an index-qualified name of its own.
	assert.Equal(t, "", s.Render("$URL3"))
	assert.Equal(t, []string{"$URL3"}, s.Unresolved("$URL3$URL3"))

	// TITLE_CLEAN is not defined either; TITLE must not claim its prefix.
	s.Set("TITLE", "Paris")
	assert.Equal(t, "[]", s.Render("[$TITLE_CLEAN]"))
	assert.Equal(t, []string{"$TITLE_CLEAN"}, s.Unresolved("[$TITLE_CLEAN]"))
	assert.Equal(t, "Paris-x", s.Render("$TITLE-x"))
}

func TestRenderLiteralDollar(t *testing.T) {
	s := New()
	s.Set("PRICE", "10")
	assert.Equal(t, "$10 costs $ 5", s.Render("$$$PRICE costs $ 5"))
	assert.Equal(t, "$5.00", s.Render("$5.00"))
}

func TestRenderDomainConcatenation(t *testing.T) {
	s := New()
	s.Set("BASE_URL", "https://shop.example")
	for i := 1; i <= 12; i++ {
		s.Set(fmt.Sprintf("HREF%d", i), fmt.Sprintf("/item/%d", i))
	}
	assert.Equal(t, "https://shop.example/item/12", s.Render("$BASE_URL$HREF12"))
	assert.Equal(t, "https://shop.example/item/1", s.Render("$BASE_URL$HREF1"))
}

func TestAppendAndFormat(t *testing.T) {
	s := New()
	s.Append("TAGS", "a")
	s.Append("TAGS", "b", "c")
	v, ok := s.Get("TAGS")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, v)
	assert.Equal(t, "a,b,c", s.String("TAGS"))

	s.Set("ONE", "x")
	s.Append("ONE", "y")
	assert.Equal(t, []string{"x", "y"}, s.values["ONE"])

	s.Set("API", map[string]any{"n": float64(3)})
	assert.JSONEq(t, `{"n":3}`, s.String("API"))
}

func TestVisibility(t *testing.T) {
	s := New()
	s.Set("TITLE", "t")
	s.Set("TMP", "x")
	s.Expose("TITLE")
	assert.True(t, s.Visible("TITLE"))
	assert.False(t, s.Visible("TMP"))
	assert.Equal(t, []string{"TITLE", "TMP"}, s.Keys())
	assert.Equal(t, 2, s.Len())
}

func TestScanLeaks(t *testing.T) {
	assert.Equal(t, []string{"$URL1", "$HREF"}, ScanLeaks("https://x$URL1/$HREF"))
	assert.Empty(t, ScanLeaks("plain value $5"))
}
