// Package vars holds the per-run variable store used by recipe steps.
//
// Values are strings, string slices (extract_array) or decoded JSON
// (http_request). Templates reference variables as $NAME. Rendering always
// resolves the longest defined name at a placeholder, so $URL1 is never
// substituted inside $URL10.
package vars

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// leakRe matches placeholders that survived rendering.
var leakRe = regexp.MustCompile(`\$[A-Z_]+[0-9]*`)

// Store is a name to value map. It is owned by a single run and is not safe
// for concurrent use.
type Store struct {
	values  map[string]any
	visible map[string]bool
	// byLen is the key set sorted longest first; rebuilt lazily on Set.
	byLen []string
	dirty bool
}

func New() *Store {
	return &Store{
		values:  make(map[string]any),
		visible: make(map[string]bool),
	}
}

func (s *Store) Set(name string, value any) {
	if _, ok := s.values[name]; !ok {
		s.dirty = true
	}
	s.values[name] = value
}

func (s *Store) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// String returns the value of name formatted the way templates see it.
func (s *Store) String(name string) string {
	v, ok := s.values[name]
	if !ok {
		return ""
	}
	return Format(v)
}

// Append adds values to the array variable name, creating it if needed.
// A scalar already stored under name becomes the first element.
func (s *Store) Append(name string, values ...string) {
	var arr []string
	switch cur := s.values[name].(type) {
	case nil:
	case []string:
		arr = cur
	default:
		arr = []string{Format(cur)}
	}
	s.Set(name, append(arr, values...))
}

// Expose marks name as externally visible in run output.
func (s *Store) Expose(name string) {
	s.visible[name] = true
}

func (s *Store) Visible(name string) bool {
	return s.visible[name]
}

// Keys returns all defined names in lexical order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of defined names.
func (s *Store) Len() int {
	return len(s.values)
}

func (s *Store) sortedByLen() []string {
	if s.dirty || s.byLen == nil {
		s.byLen = s.Keys()
		sort.SliceStable(s.byLen, func(i, j int) bool {
			return len(s.byLen[i]) > len(s.byLen[j])
		})
		s.dirty = false
	}
	return s.byLen
}

// Render substitutes every $NAME in tmpl. Unresolved placeholders render as
// the empty string; use Unresolved to find them. "$$" renders a literal "$".
func (s *Store) Render(tmpl string) string {
	out, _ := s.render(tmpl)
	return out
}

// Unresolved lists the placeholders in tmpl that Render cannot resolve, in
// order of appearance and without duplicates.
func (s *Store) Unresolved(tmpl string) []string {
	_, missing := s.render(tmpl)
	return missing
}

func (s *Store) render(tmpl string) (string, []string) {
	if !strings.Contains(tmpl, "$") {
		return tmpl, nil
	}
	var (
		b       strings.Builder
		missing []string
		seen    map[string]bool
	)
	b.Grow(len(tmpl))
	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(tmpl) && tmpl[i+1] == '$' {
			b.WriteByte('$')
			i += 2
			continue
		}
		rest := tmpl[i+1:]
		if key := s.match(rest); key != "" {
			b.WriteString(s.String(key))
			i += 1 + len(key)
			continue
		}
		tok := token(rest)
		if tok == "" {
			// a lone "$" is plain text
			b.WriteByte('$')
			i++
			continue
		}
		if seen == nil {
			seen = make(map[string]bool)
		}
		if !seen[tok] {
			seen[tok] = true
			missing = append(missing, "$"+tok)
		}
		i += 1 + len(tok)
	}
	return b.String(), missing
}

// match returns the longest defined key that rest starts with and whose end
// falls on a name boundary: $URL1 cannot match the text $URL10, $URL cannot
// match $URL3 and $TITLE cannot match $TITLE_CLEAN.
func (s *Store) match(rest string) string {
	for _, key := range s.sortedByLen() {
		if key == "" || !strings.HasPrefix(rest, key) {
			continue
		}
		if len(rest) > len(key) && (isIdent(rest[len(key)]) || isDigit(rest[len(key)])) {
			continue
		}
		return key
	}
	return ""
}

// token returns the placeholder name at the start of rest: identifier
// characters followed by an optional digit suffix.
func token(rest string) string {
	n := 0
	for n < len(rest) && isIdent(rest[n]) {
		n++
	}
	if n == 0 {
		return ""
	}
	for n < len(rest) && (isIdent(rest[n]) || isDigit(rest[n])) {
		n++
	}
	return rest[:n]
}

func isIdent(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ScanLeaks reports $NAME tokens left in s.
func ScanLeaks(s string) []string {
	return leakRe.FindAllString(s, -1)
}

// Format renders a stored value as template text.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
