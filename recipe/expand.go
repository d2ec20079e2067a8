package recipe

import (
	"strconv"
	"strings"
)

// Expanded is a step ready for execution. Looped source steps produce one
// Expanded per index value.
type Expanded struct {
	Step
	// Source is the position of the step in Recipe.Steps.
	Source int
	// Index is the loop value substituted into the step; valid when Looped.
	Index  int
	Looped bool
}

// Expand unrolls a looped step by replacing every literal $<index> in its
// locator, input, path and output name. A step without a loop is returned
// as is.
func Expand(s Step) ([]Step, error) {
	if s.Loop == nil {
		if names := placeholdersIn(s); len(names) > 0 {
			return nil, configErr(-1, "loop", "placeholder $%s used without a loop", names[0])
		}
		return []Step{s}, nil
	}
	l := *s.Loop
	if l.Step <= 0 {
		return nil, configErr(-1, "loop.step", "step must be positive, got %d", l.Step)
	}
	if l.To < l.From {
		return nil, configErr(-1, "loop", "to %d is before from %d", l.To, l.From)
	}
	out := make([]Step, 0, l.Count())
	for v := l.From; v <= l.To; v += l.Step {
		c := s
		c.Loop = nil
		val := strconv.Itoa(v)
		c.Locator = substitute(s.Locator, l.Index, val)
		c.Input = substitute(s.Input, l.Index, val)
		c.Path = substitute(s.Path, l.Index, val)
		c.Output.Name = substitute(s.Output.Name, l.Index, val)
		out = append(out, c)
	}
	return out, nil
}

// ExpandAll expands every step of r in order.
func (r *Recipe) ExpandAll() ([]Expanded, error) {
	var out []Expanded
	for i, s := range r.Steps {
		steps, err := Expand(s)
		if err != nil {
			if ce, ok := err.(*ConfigurationError); ok {
				ce.Step = i
			}
			return nil, err
		}
		for j, es := range steps {
			e := Expanded{Step: es, Source: i}
			if s.Loop != nil {
				e.Looped = true
				e.Index = s.Loop.From + j*s.Loop.Step
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func placeholdersIn(s Step) []string {
	var names []string
	for _, v := range []string{s.Locator, s.Input, s.Path, s.Output.Name} {
		names = append(names, Placeholders(v)...)
	}
	return names
}

// substitute replaces $name in s with val where the placeholder is not
// followed by another identifier character.
func substitute(s, name, val string) string {
	if name == "" || !strings.Contains(s, "$"+name) {
		return s
	}
	var b strings.Builder
	ph := "$" + name
	for {
		i := strings.Index(s, ph)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := i + len(ph)
		if (end < len(s) && isIdentChar(s[end])) || (i > 0 && s[i-1] == '$') {
			b.WriteString(s[:end])
			s = s[end:]
			continue
		}
		b.WriteString(s[:i])
		b.WriteString(val)
		s = s[end:]
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
