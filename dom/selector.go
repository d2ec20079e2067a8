package dom

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// standardPseudo is the set of pseudo-classes a browser's querySelector
// accepts. Anything else (:contains, :visible, :eq, ...) makes the browser
// throw a syntax error instead of reporting "no match".
var standardPseudo = map[string]bool{
	"root": true, "empty": true, "scope": true,
	"first-child": true, "last-child": true, "only-child": true,
	"first-of-type": true, "last-of-type": true, "only-of-type": true,
	"nth-child": true, "nth-last-child": true, "nth-of-type": true, "nth-last-of-type": true,
	"not": true, "is": true, "where": true, "has": true,
	"link": true, "any-link": true, "visited": true, "target": true, "lang": true, "dir": true,
	"hover": true, "active": true, "focus": true, "focus-within": true, "focus-visible": true,
	"checked": true, "disabled": true, "enabled": true, "required": true, "optional": true,
	"read-only": true, "read-write": true, "placeholder-shown": true, "default": true,
	"indeterminate": true, "valid": true, "invalid": true, "in-range": true, "out-of-range": true,
	"defined": true,
}

// SelectorError reports a locator that must not reach a page.
type SelectorError struct {
	Selector string
	Reason   string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("selector %q: %s", e.Selector, e.Reason)
}

// CheckPseudoClasses rejects non-standard pseudo-classes. It tolerates
// unrendered $placeholders so recipes can be checked before execution.
func CheckPseudoClasses(sel string) error {
	for _, name := range pseudoClasses(sel) {
		if !standardPseudo[strings.ToLower(name)] {
			return &SelectorError{Selector: sel, Reason: fmt.Sprintf("non-standard pseudo-class :%s", name)}
		}
	}
	return nil
}

// ValidateSelector checks a fully rendered selector: pseudo-classes first,
// then full syntax.
func ValidateSelector(sel string) error {
	if strings.TrimSpace(sel) == "" {
		return &SelectorError{Selector: sel, Reason: "empty selector"}
	}
	if err := CheckPseudoClasses(sel); err != nil {
		return err
	}
	for _, name := range pseudoClasses(sel) {
		if !cascadiaPseudo[strings.ToLower(name)] {
			// standard, but beyond what cascadia parses; the page decides
			return nil
		}
	}
	if _, err := cascadia.ParseGroupWithPseudoElements(sel); err != nil {
		return &SelectorError{Selector: sel, Reason: err.Error()}
	}
	return nil
}

// cascadiaPseudo lists the standard pseudo-classes cascadia can parse.
var cascadiaPseudo = map[string]bool{
	"root": true, "empty": true, "not": true, "has": true, "link": true, "lang": true,
	"enabled": true, "disabled": true, "checked": true,
	"first-child": true, "last-child": true, "only-child": true,
	"first-of-type": true, "last-of-type": true, "only-of-type": true,
	"nth-child": true, "nth-last-child": true, "nth-of-type": true, "nth-last-of-type": true,
}

// pseudoClasses returns the names following a single ':' outside attribute
// brackets and quoted strings. Pseudo-elements ("::before") are skipped.
func pseudoClasses(sel string) []string {
	var (
		names   []string
		bracket int
		quote   byte
	)
	for i := 0; i < len(sel); i++ {
		c := sel[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '\\':
			i++
		case c == '[':
			bracket++
		case c == ']':
			if bracket > 0 {
				bracket--
			}
		case c == ':' && bracket == 0:
			if i+1 < len(sel) && sel[i+1] == ':' {
				i++
				continue
			}
			j := i + 1
			for j < len(sel) && (sel[j] == '-' || sel[j] == '_' || isAlnum(sel[j])) {
				j++
			}
			if j > i+1 {
				names = append(names, sel[i+1:j])
			}
			i = j - 1
		}
	}
	return names
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
