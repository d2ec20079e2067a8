package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenzapen/scout/engine"
)

func TestCellsFrom(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))

	listing := &engine.Result{RunID: "r1", Recipe: "shop", Output: engine.Output{Results: []map[string]any{
		{"TITLE": "a"}, {"TITLE": "b"},
	}}}
	cells := CellsFrom(listing, "https://shop.example/", now)
	require.Len(t, cells, 2)
	assert.Equal(t, "2026-01-02T02:04:05Z", cells[0].Time)
	assert.Equal(t, map[string]any{"TITLE": "b"}, cells[1].Data)
	assert.Equal(t, "https://shop.example/", cells[1].URL)

	detail := &engine.Result{RunID: "r2", Output: engine.Output{Results: map[string]any{"PRICE": "3"}}}
	cells = CellsFrom(detail, "", now)
	require.Len(t, cells, 1)
	assert.Equal(t, map[string]any{"PRICE": "3"}, cells[0].Data)

	assert.Empty(t, CellsFrom(&engine.Result{Status: engine.RunInvalid}, "", now))
}
