// Package apishape finds the result list inside an arbitrary JSON search or
// autocomplete response and the paths of each result's title, link and
// image.
package apishape

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/wenzapen/scout/jsonpath"
)

type StructureKind string

const (
	ObjectArray StructureKind = "object_array"
	StringArray StructureKind = "string_array"
)

// Descriptor locates the results in a payload. Field paths are relative
// to one item.
type Descriptor struct {
	Found         bool          `json:"found"`
	Reason        string        `json:"reason,omitempty"`
	ItemsPath     string        `json:"items_path"`
	TitlePath     string        `json:"title_path,omitempty"`
	URLPath       string        `json:"url_path,omitempty"`
	ImagePath     string        `json:"image_path,omitempty"`
	SampleItem    any           `json:"sample_item,omitempty"`
	StructureKind StructureKind `json:"structure_kind,omitempty"`
	ItemCount     int           `json:"item_count"`
}

const minItems = 3

var (
	titleKeys = []string{
		"title", "name", "label", "text", "heading", "display", "displayname", "value",
		"titel", "nom", "nombre", "titulo", "título", "titre", "naam", "bezeichnung", "nome",
	}
	urlKeys   = []string{"url", "href", "link", "uri", "permalink", "path", "slug"}
	imageKeys = []string{"image", "img", "cover", "thumbnail", "thumb", "picture", "photo", "avatar", "poster", "icon"}
	// vendorMarkers are result list locations of common search backends,
	// best first. They are matched against the items path with indices
	// removed.
	vendorMarkers = []string{"hits", "response.docs", "suggestions", "products", "results", "items", "documents", "records", "data"}
)

// AnalyzeJSON decodes data and analyzes it. Malformed JSON is an error;
// a well formed payload without results is a Descriptor with Found false.
func AnalyzeJSON(data []byte, query string) (Descriptor, error) {
	var v any
	if err := sonic.Unmarshal(data, &v); err != nil {
		return Descriptor{}, fmt.Errorf("decode payload: %w", err)
	}
	return Analyze(v, query), nil
}

type array struct {
	path  string
	items []any
	order int
}

type candidate struct {
	Descriptor
	marker   int
	queryHit bool
	order    int
}

// Analyze picks the array in payload most likely to hold search results
// for query.
func Analyze(payload any, query string) Descriptor {
	var arrays []array
	collect(payload, "", &arrays)

	q := strings.ToLower(strings.TrimSpace(query))
	var cands []candidate
	for _, a := range arrays {
		if c, ok := inspect(a, q); ok {
			cands = append(cands, c)
		}
	}
	if len(cands) == 0 {
		return Descriptor{Reason: "not autocomplete-shaped: no array of titled results found"}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.marker != b.marker {
			return a.marker < b.marker
		}
		if a.queryHit != b.queryHit {
			return a.queryHit
		}
		if a.StructureKind != b.StructureKind {
			return a.StructureKind == ObjectArray
		}
		if a.ItemCount != b.ItemCount {
			return a.ItemCount > b.ItemCount
		}
		return a.order < b.order
	})
	d := cands[0].Descriptor
	d.Found = true
	return d
}

// collect walks v depth first with object keys in sorted order and
// records every non-empty array with its path.
func collect(v any, path string, out *[]array) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collect(t[k], jsonpath.Key(path, k), out)
		}
	case []any:
		if len(t) > 0 {
			*out = append(*out, array{path: path, items: t, order: len(*out)})
		}
		for i, e := range t {
			collect(e, jsonpath.Index(path, i), out)
		}
	}
}

func inspect(a array, q string) (candidate, bool) {
	c := candidate{
		Descriptor: Descriptor{
			ItemsPath:  a.path,
			ItemCount:  len(a.items),
			SampleItem: a.items[0],
		},
		marker: markerRank(a.path),
		order:  a.order,
	}

	if strs, ok := allStrings(a.items); ok {
		c.StructureKind = StringArray
		if q == "" {
			return c, false
		}
		for _, s := range strs {
			if strings.Contains(strings.ToLower(s), q) {
				c.queryHit = true
				return c, true
			}
		}
		return c, false
	}

	obj, ok := a.items[0].(map[string]any)
	if !ok {
		return c, false
	}
	c.StructureKind = ObjectArray
	c.TitlePath = findField(obj, titleKeys, nil)
	c.URLPath = findField(obj, urlKeys, imageKeys)
	c.ImagePath = findField(obj, imageKeys, nil)
	if c.TitlePath == "" {
		return c, false
	}
	if q != "" {
		for _, it := range a.items {
			if titleContains(it, c.TitlePath, q) {
				c.queryHit = true
				break
			}
		}
	}
	return c, c.queryHit || len(a.items) >= minItems
}

func allStrings(items []any) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func markerRank(path string) int {
	p := stripIndices(path)
	for i, m := range vendorMarkers {
		if p == m || strings.HasSuffix(p, "."+m) {
			return i
		}
	}
	return len(vendorMarkers)
}

func stripIndices(path string) string {
	var b strings.Builder
	depth := 0
	for _, r := range path {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// findField returns the path of the first field in obj named like one of
// names, looking at direct keys first, then at keys one level down.
// Keys also named like one of exclude are skipped in the loose pass.
func findField(obj map[string]any, names, exclude []string) string {
	keys := sortedKeys(obj)

	// exact names, in priority order
	for _, n := range names {
		for _, k := range keys {
			if strings.ToLower(k) == n {
				if p, ok := leaf(obj[k], jsonpath.Key("", k)); ok {
					return p
				}
			}
		}
	}
	// names embedded in longer keys such as "product_name" or "imageUrl"
	for _, n := range names {
		for _, k := range keys {
			lk := strings.ToLower(k)
			if strings.Contains(lk, n) && !matchesAny(lk, exclude) {
				if p, ok := leaf(obj[k], jsonpath.Key("", k)); ok {
					return p
				}
			}
		}
	}
	// one nesting level, e.g. {"_source": {"title": ...}}
	for _, k := range keys {
		nested, ok := obj[k].(map[string]any)
		if !ok {
			continue
		}
		nk := sortedKeys(nested)
		for _, n := range names {
			for _, k2 := range nk {
				if strings.ToLower(k2) == n {
					if p, ok := leaf(nested[k2], jsonpath.Key(jsonpath.Key("", k), k2)); ok {
						return p
					}
				}
			}
		}
	}
	return ""
}

// leaf returns the path to a usable string at base: the value itself,
// the only element of a string array, or the first such value inside a
// map (localized fields such as {"en": "Paris"}).
func leaf(v any, base string) (string, bool) {
	switch t := v.(type) {
	case string:
		return base, strings.TrimSpace(t) != ""
	case []any:
		if len(t) == 1 {
			if s, ok := t[0].(string); ok && s != "" {
				return jsonpath.Index(base, 0), true
			}
		}
	case map[string]any:
		for _, k := range sortedKeys(t) {
			switch inner := t[k].(type) {
			case string:
				if inner != "" {
					return jsonpath.Key(base, k), true
				}
			case []any:
				if len(inner) == 1 {
					if s, ok := inner[0].(string); ok && s != "" {
						return jsonpath.Index(jsonpath.Key(base, k), 0), true
					}
				}
			}
		}
	}
	return "", false
}

// titleContains reports whether the title at path in item contains q.
func titleContains(item any, path, q string) bool {
	v, ok := jsonpath.Get(item, path)
	if !ok {
		return false
	}
	t, ok := v.(string)
	return ok && strings.Contains(strings.ToLower(t), q)
}

func matchesAny(s string, names []string) bool {
	for _, n := range names {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
