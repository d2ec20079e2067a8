package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const listingJSON = `{
  "name": "results",
  "url": "https://example.com/search",
  "steps": [
    {"command": "navigate", "input": "https://example.com/search", "wait": "network_idle"},
    {"command": "extract_text", "locator": "#list > div.r:nth-child($i) h3",
     "output": {"name": "TITLE$i", "show": true},
     "loop": {"index": "i", "from": 1, "to": 3}}
  ]
}`

func TestParseJSON(t *testing.T) {
	r, err := Parse([]byte(listingJSON))
	require.NoError(t, err)
	assert.Equal(t, ModeListing, r.Mode)
	require.Len(t, r.Steps, 2)
	require.NotNil(t, r.Steps[1].Loop)
	assert.Equal(t, 1, r.Steps[1].Loop.Step, "omitted loop step defaults to 1")
	assert.NoError(t, r.Validate())
}

func TestLoadYAML(t *testing.T) {
	src := `
name: detail
mode: detail
steps:
  - command: navigate
    input: https://example.com/item/1
  - command: extract_attribute
    locator: img.cover
    attribute_name: src
    output: {name: COVER, show: true}
  - command: transform_regex
    input: $COVER
    regex: '/(\d+)\.jpg'
    output: {name: COVER_ID, show: true}
`
	path := filepath.Join(t.TempDir(), "detail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ModeDetail, r.Mode)
	assert.Equal(t, ExtractAttribute, r.Steps[1].Command)
	assert.Equal(t, "src", r.Steps[1].AttributeName)
	assert.True(t, r.Steps[2].Output.Show)
	assert.NoError(t, r.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	r := &Recipe{
		Name: "broken",
		Mode: ModeListing,
		Steps: []Step{
			{Command: "click"},
			{Command: ExtractText, Locator: "div.r:nth-child($i)", Output: Output{Name: "T"}},
			{Command: ExtractText, Locator: `div:contains("x")`, Output: Output{Name: "T"}},
			{Command: ExtractAttribute, Locator: "a", Output: Output{Name: "H"}},
			{Command: ExtractText, Locator: "li:nth-child($n)", Output: Output{Name: "X$n"},
				Loop: &Loop{Index: "i", From: 1, To: 2, Step: 1}},
			{Command: ExtractText, Locator: "li", Output: Output{Name: "Y"},
				Loop: &Loop{Index: "i", From: 3, To: 1, Step: 0}},
		},
	}
	err := r.Validate()
	require.Error(t, err)

	errs := multierr.Errors(err)
	steps := map[int]int{}
	for _, e := range errs {
		var ce *ConfigurationError
		require.True(t, errors.As(e, &ce), e.Error())
		steps[ce.Step]++
	}
	assert.Equal(t, 1, steps[0], "unknown command")
	assert.Equal(t, 1, steps[1], "placeholder without loop")
	assert.Equal(t, 1, steps[2], "non-standard pseudo-class")
	assert.Equal(t, 1, steps[3], "missing attribute_name")
	assert.Equal(t, 2, steps[4], "mismatched loop index in locator and output")
	assert.Equal(t, 2, steps[5], "bad step and reversed bounds")
}

func TestValidateEmpty(t *testing.T) {
	err := (&Recipe{Mode: "grid"}).Validate()
	assert.Len(t, multierr.Errors(err), 2)
}

func TestExpandCardinality(t *testing.T) {
	tests := []struct {
		from, to, step int
		want           []string
	}{
		{1, 3, 1, []string{"1", "2", "3"}},
		{1, 10, 3, []string{"1", "4", "7", "10"}},
		{2, 2, 1, []string{"2"}},
		{0, 9, 5, []string{"0", "5"}},
		{1, 12, 4, []string{"1", "5", "9"}},
	}
	for _, tt := range tests {
		s := Step{
			Command: ExtractText,
			Locator: "div.r:nth-child($i) h3",
			Output:  Output{Name: "TITLE$i"},
			Loop:    &Loop{Index: "i", From: tt.from, To: tt.to, Step: tt.step},
		}
		got, err := Expand(s)
		require.NoError(t, err)
		require.Len(t, got, len(tt.want))
		assert.Equal(t, len(tt.want), s.Loop.Count())
		for k, v := range tt.want {
			assert.Equal(t, "div.r:nth-child("+v+") h3", got[k].Locator)
			assert.Equal(t, "TITLE"+v, got[k].Output.Name)
			assert.Nil(t, got[k].Loop)
		}
	}
}

func TestExpandLeavesOtherPlaceholders(t *testing.T) {
	s := Step{
		Command: TransformStore,
		Input:   "$item $i $$i $URL$i",
		Output:  Output{Name: "X$i"},
		Loop:    &Loop{Index: "i", From: 7, To: 7, Step: 1},
	}
	got, err := Expand(s)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "$item 7 $$i $URL7", got[0].Input)
}

func TestExpandErrors(t *testing.T) {
	_, err := Expand(Step{Command: ExtractText, Locator: "li:nth-child($i)"})
	var ce *ConfigurationError
	assert.True(t, errors.As(err, &ce))

	_, err = Expand(Step{Command: ExtractText, Locator: "li", Loop: &Loop{Index: "i", From: 1, To: 3, Step: -1}})
	assert.True(t, errors.As(err, &ce))

	_, err = Expand(Step{Command: ExtractText, Locator: "li", Loop: &Loop{Index: "i", From: 3, To: 1, Step: 1}})
	assert.True(t, errors.As(err, &ce))
}

func TestExpandAllKeepsSource(t *testing.T) {
	r, err := Parse([]byte(listingJSON))
	require.NoError(t, err)
	steps, err := r.ExpandAll()
	require.NoError(t, err)
	require.Len(t, steps, 4)

	assert.Equal(t, 0, steps[0].Source)
	assert.False(t, steps[0].Looped)
	for k, s := range steps[1:] {
		assert.Equal(t, 1, s.Source)
		assert.True(t, s.Looped)
		assert.Equal(t, k+1, s.Index)
	}
	assert.Equal(t, "TITLE3", steps[3].Output.Name)
}
