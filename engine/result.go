package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wenzapen/scout/recipe"
	"github.com/wenzapen/scout/vars"
)

// Step statuses recorded in the trace.
const (
	StatusOK        = "ok"
	StatusNotFound  = "not_found"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Run statuses.
const (
	RunOK        = "ok"
	RunPartial   = "partial"
	RunInvalid   = "invalid"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

type TraceEntry struct {
	StepIndex    int            `json:"step_index"`
	SourceIndex  int            `json:"source_index"`
	LoopIndex    *int           `json:"loop_index,omitempty"`
	Command      recipe.Command `json:"command"`
	Locator      string         `json:"locator,omitempty"`
	Output       string         `json:"output,omitempty"`
	MatchCount   int            `json:"match_count"`
	SampleValues []string       `json:"sample_values,omitempty"`
	Status       string         `json:"status"`
	Error        string         `json:"error,omitempty"`
	Unresolved   []string       `json:"unresolved,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
}

// Output is the extraction record: a list of objects in listing mode, one
// object in detail mode.
type Output struct {
	Results any `json:"results"`
}

type Result struct {
	RunID  string       `json:"run_id"`
	Recipe string       `json:"recipe"`
	Mode   recipe.Mode  `json:"mode"`
	Output Output       `json:"output"`
	Trace  []TraceEntry `json:"trace"`
	// Leaks lists $NAME tokens found in output values.
	Leaks  []string `json:"leaks,omitempty"`
	Status string   `json:"status"`
}

// Records returns the listing records, nil in detail mode.
func (r *Result) Records() []map[string]any {
	recs, _ := r.Output.Results.([]map[string]any)
	return recs
}

// Validate returns an error wrapping ErrCollisionRisk when any output value
// still contains a placeholder token or any step rendered an unresolved
// placeholder.
func (r *Result) Validate() error {
	var problems []string
	if len(r.Leaks) > 0 {
		problems = append(problems, fmt.Sprintf("output contains %s", strings.Join(r.Leaks, ", ")))
	}
	for _, t := range r.Trace {
		if len(t.Unresolved) > 0 {
			problems = append(problems, fmt.Sprintf("step %d unresolved %s", t.StepIndex, strings.Join(t.Unresolved, ", ")))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrCollisionRisk, strings.Join(problems, "; "))
}

var suffixRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*?)([0-9]+)$`)

// shapeListing groups visible BASE<n> variables into one record per n,
// ascending. Every record has every base; missing ones are "".
func shapeListing(s *vars.Store) []map[string]any {
	type cell struct {
		base string
		n    int
		key  string
	}
	var (
		cells []cell
		bases = map[string]bool{}
		nums  = map[int]bool{}
	)
	for _, k := range s.Keys() {
		if !s.Visible(k) {
			continue
		}
		m := suffixRe.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		cells = append(cells, cell{base: m[1], n: n, key: k})
		bases[m[1]] = true
		nums[n] = true
	}

	order := make([]int, 0, len(nums))
	for n := range nums {
		order = append(order, n)
	}
	sort.Ints(order)

	byNum := make(map[int]map[string]any, len(order))
	for _, n := range order {
		rec := make(map[string]any, len(bases))
		for b := range bases {
			rec[b] = ""
		}
		byNum[n] = rec
	}
	for _, c := range cells {
		byNum[c.n][c.base] = outputValue(s, c.key)
	}

	records := make([]map[string]any, 0, len(order))
	for _, n := range order {
		records = append(records, byNum[n])
	}
	return records
}

// shapeDetail returns every visible variable.
func shapeDetail(s *vars.Store) map[string]any {
	rec := make(map[string]any)
	for _, k := range s.Keys() {
		if s.Visible(k) {
			rec[k] = outputValue(s, k)
		}
	}
	return rec
}

func outputValue(s *vars.Store, key string) any {
	v, _ := s.Get(key)
	switch t := v.(type) {
	case string, []string:
		return t
	case nil:
		return ""
	case map[string]any, []any:
		return t
	}
	return vars.Format(v)
}

// scanLeaks collects placeholder tokens from string values in v.
func scanLeaks(v any) []string {
	var leaks []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			leaks = appendUnique(leaks, vars.ScanLeaks(t)...)
		case []string:
			for _, s := range t {
				walk(s)
			}
		case []any:
			for _, s := range t {
				walk(s)
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		case []map[string]any:
			for _, m := range t {
				walk(m)
			}
		}
	}
	walk(v)
	return leaks
}
