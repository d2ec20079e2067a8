package recipe

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/multierr"

	"github.com/wenzapen/scout/dom"
)

// ConfigurationError is a recipe defect detected before any step runs, or
// a locator rejected at execution time. It is always fatal to the run.
type ConfigurationError struct {
	// Step is the index of the offending step, -1 for recipe level.
	Step   int
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Step >= 0 {
		fmt.Fprintf(&b, ": step %d", e.Step)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func configErr(step int, field, format string, args ...any) error {
	return &ConfigurationError{Step: step, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// indexRe finds loop index placeholders: "$" followed by a lower case
// identifier. Store variables are upper case by convention.
var indexRe = regexp.MustCompile(`\$[a-z][a-z0-9_]*`)

// Placeholders returns the loop index placeholders in s without the "$".
// Escaped "$$" sequences are ignored.
func Placeholders(s string) []string {
	var names []string
	for _, loc := range indexRe.FindAllStringIndex(s, -1) {
		if loc[0] > 0 && s[loc[0]-1] == '$' {
			continue
		}
		names = append(names, s[loc[0]+1:loc[1]])
	}
	return names
}

// Validate reports every configuration problem in r. The returned error
// combines one *ConfigurationError per problem; use multierr.Errors to list
// them.
func (r *Recipe) Validate() error {
	var err error
	switch r.Mode {
	case ModeListing, ModeDetail:
	default:
		err = multierr.Append(err, configErr(-1, "mode", "unknown mode %q", r.Mode))
	}
	if len(r.Steps) == 0 {
		err = multierr.Append(err, configErr(-1, "steps", "recipe has no steps"))
	}
	for i, s := range r.Steps {
		err = multierr.Append(err, s.validate(i, r.URL))
	}
	return err
}

func (s Step) validate(i int, recipeURL string) error {
	if !s.Command.Known() {
		return configErr(i, "command", "unknown command %q", s.Command)
	}
	var err error
	if s.Loop != nil {
		if s.Loop.Index == "" {
			err = multierr.Append(err, configErr(i, "loop.index", "missing index name"))
		}
		if s.Loop.Step <= 0 {
			err = multierr.Append(err, configErr(i, "loop.step", "step must be positive, got %d", s.Loop.Step))
		}
		if s.Loop.To < s.Loop.From {
			err = multierr.Append(err, configErr(i, "loop", "to %d is before from %d", s.Loop.To, s.Loop.From))
		}
	}
	for _, f := range s.templated() {
		field := f[0]
		for _, name := range Placeholders(f[1]) {
			switch {
			case s.Loop == nil:
				err = multierr.Append(err, configErr(i, field, "placeholder $%s used without a loop", name))
			case name != s.Loop.Index:
				err = multierr.Append(err, configErr(i, field, "placeholder $%s does not match loop index %q", name, s.Loop.Index))
			}
		}
	}

	if s.Command.UsesLocator() {
		if strings.TrimSpace(s.Locator) == "" {
			err = multierr.Append(err, configErr(i, "locator", "required by %s", s.Command))
		} else if perr := dom.CheckPseudoClasses(s.Locator); perr != nil {
			err = multierr.Append(err, configErr(i, "locator", "%v", perr))
		}
	}
	if s.Command != Navigate && s.Output.Name == "" {
		err = multierr.Append(err, configErr(i, "output.name", "required by %s", s.Command))
	}

	switch s.Command {
	case Navigate:
		if s.Input == "" && recipeURL == "" {
			err = multierr.Append(err, configErr(i, "input", "navigate needs a url"))
		}
		if _, werr := dom.ParseWaitPolicy(s.Wait); werr != nil {
			err = multierr.Append(err, configErr(i, "wait", "%v", werr))
		}
	case ExtractAttribute:
		if s.AttributeName == "" {
			err = multierr.Append(err, configErr(i, "attribute_name", "required by extract_attribute"))
		}
	case TransformRegex:
		if s.Regex == "" {
			err = multierr.Append(err, configErr(i, "regex", "required by transform_regex"))
		}
	case HTTPRequest:
		if s.Input == "" {
			err = multierr.Append(err, configErr(i, "input", "http_request needs a url"))
		}
		switch strings.ToUpper(s.Method) {
		case "", "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD":
		default:
			err = multierr.Append(err, configErr(i, "method", "unsupported method %q", s.Method))
		}
	case JSONExtract:
		if s.Input == "" {
			err = multierr.Append(err, configErr(i, "input", "json_extract needs a source variable"))
		}
	}
	if s.TimeoutMs < 0 {
		err = multierr.Append(err, configErr(i, "timeout_ms", "negative timeout"))
	}
	return err
}

// templated returns the field name and value pairs that loop expansion
// substitutes.
func (s Step) templated() [][2]string {
	return [][2]string{
		{"locator", s.Locator},
		{"input", s.Input},
		{"path", s.Path},
		{"output.name", s.Output.Name},
	}
}
