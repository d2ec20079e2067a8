// Package storage defines the sink extraction results are saved to.
package storage

import (
	"time"

	"github.com/wenzapen/scout/engine"
)

// Cell is one saved record: a listing item or a detail page.
type Cell struct {
	RunID  string `json:"run_id"`
	Recipe string `json:"recipe"`
	URL    string `json:"url,omitempty"`
	Time   string `json:"time"`
	Data   any    `json:"data"`
}

type Storage interface {
	Save(cells ...*Cell) error
	Flush() error
	// Close flushes and releases the sink.
	Close() error
}

// CellsFrom splits a run's output into cells. A run without output
// yields none.
func CellsFrom(res *engine.Result, url string, now time.Time) []*Cell {
	cell := func(data any) *Cell {
		return &Cell{
			RunID:  res.RunID,
			Recipe: res.Recipe,
			URL:    url,
			Time:   now.UTC().Format(time.RFC3339),
			Data:   data,
		}
	}
	switch out := res.Output.Results.(type) {
	case []map[string]any:
		cells := make([]*Cell, 0, len(out))
		for _, rec := range out {
			cells = append(cells, cell(rec))
		}
		return cells
	case nil:
		return nil
	default:
		return []*Cell{cell(out)}
	}
}
