// Package jsonpath resolves dot and bracket-index paths such as
// "results[0].hits[2].title" against decoded JSON values.
package jsonpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a path: either an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Parse splits path into segments. The empty path addresses the root.
func Parse(path string) ([]Segment, error) {
	var segs []Segment
	path = strings.TrimPrefix(strings.TrimSpace(path), "$")
	path = strings.TrimPrefix(path, ".")
	for i := 0; i < len(path); {
		switch path[i] {
		case '.':
			i++
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated bracket at %d in %q", i, path)
			}
			inner := strings.TrimSpace(path[i+1 : i+end])
			if q := unquote(inner); q != inner {
				segs = append(segs, Segment{Key: q})
			} else {
				n, err := strconv.Atoi(inner)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("bad index %q in %q", inner, path)
				}
				segs = append(segs, Segment{Index: n, IsIndex: true})
			}
			i += end + 1
		default:
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			segs = append(segs, Segment{Key: path[i:j]})
			i = j
		}
	}
	return segs, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// Get looks up path in v. It reports false when any segment is missing or
// addresses the wrong kind of value.
func Get(v any, path string) (any, bool) {
	segs, err := Parse(path)
	if err != nil {
		return nil, false
	}
	cur := v
	for _, s := range segs {
		if s.IsIndex {
			arr, ok := cur.([]any)
			if !ok || s.Index >= len(arr) {
				return nil, false
			}
			cur = arr[s.Index]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[s.Key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Key appends an object key to base.
func Key(base, key string) string {
	if strings.ContainsAny(key, ".[]") {
		key = fmt.Sprintf("[%q]", key)
		return base + key
	}
	if base == "" {
		return key
	}
	return base + "." + key
}

// Index appends an array index to base.
func Index(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}
