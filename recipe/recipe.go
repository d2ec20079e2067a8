// Package recipe defines the declarative extraction program run by the
// engine, how it is loaded from JSON or YAML, validated, and how looped
// steps are expanded before execution.
package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeListing Mode = "listing"
	ModeDetail  Mode = "detail"
)

type Command string

const (
	Navigate         Command = "navigate"
	ExtractText      Command = "extract_text"
	ExtractAttribute Command = "extract_attribute"
	ExtractArray     Command = "extract_array"
	TransformStore   Command = "transform_store"
	TransformRegex   Command = "transform_regex"
	TransformReplace Command = "transform_replace"
	HTTPRequest      Command = "http_request"
	JSONExtract      Command = "json_extract"
)

var commands = map[Command]bool{
	Navigate: true, ExtractText: true, ExtractAttribute: true, ExtractArray: true,
	TransformStore: true, TransformRegex: true, TransformReplace: true,
	HTTPRequest: true, JSONExtract: true,
}

// Known reports whether c is a command the engine can execute.
func (c Command) Known() bool { return commands[c] }

// UsesLocator reports whether c reads from the page.
func (c Command) UsesLocator() bool {
	return c == ExtractText || c == ExtractAttribute || c == ExtractArray
}

type Recipe struct {
	Name  string `json:"name" yaml:"name"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Mode  Mode   `json:"mode" yaml:"mode"`
	Steps []Step `json:"steps" yaml:"steps"`
}

type Output struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// Show exposes the variable in run output.
	Show bool `json:"show" yaml:"show"`
}

type Loop struct {
	Index string `json:"index" yaml:"index"`
	From  int    `json:"from" yaml:"from"`
	To    int    `json:"to" yaml:"to"`
	Step  int    `json:"step" yaml:"step"`
}

// UnmarshalJSON defaults an omitted step to 1.
func (l *Loop) UnmarshalJSON(b []byte) error {
	type plain Loop
	p := plain{Step: 1}
	if err := sonic.Unmarshal(b, &p); err != nil {
		return err
	}
	*l = Loop(p)
	return nil
}

func (l *Loop) UnmarshalYAML(n *yaml.Node) error {
	type plain Loop
	p := plain{Step: 1}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*l = Loop(p)
	return nil
}

// Count is the number of steps the loop expands to.
func (l Loop) Count() int {
	if l.Step <= 0 || l.To < l.From {
		return 0
	}
	return (l.To-l.From)/l.Step + 1
}

type Step struct {
	Command       Command           `json:"command" yaml:"command"`
	Locator       string            `json:"locator,omitempty" yaml:"locator,omitempty"`
	Input         string            `json:"input,omitempty" yaml:"input,omitempty"`
	Output        Output            `json:"output" yaml:"output"`
	Loop          *Loop             `json:"loop,omitempty" yaml:"loop,omitempty"`
	AttributeName string            `json:"attribute_name,omitempty" yaml:"attribute_name,omitempty"`
	Regex         string            `json:"regex,omitempty" yaml:"regex,omitempty"`
	Find          string            `json:"find,omitempty" yaml:"find,omitempty"`
	Replace       string            `json:"replace,omitempty" yaml:"replace,omitempty"`
	Method        string            `json:"method,omitempty" yaml:"method,omitempty"`
	Headers       map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body          string            `json:"body,omitempty" yaml:"body,omitempty"`
	Path          string            `json:"path,omitempty" yaml:"path,omitempty"`
	Wait          string            `json:"wait,omitempty" yaml:"wait,omitempty"`
	TimeoutMs     int               `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// Parse decodes a JSON recipe.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := sonic.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	r.normalize()
	return &r, nil
}

// ParseYAML decodes a YAML recipe.
func ParseYAML(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	r.normalize()
	return &r, nil
}

// Load reads a recipe file. Files ending in .yaml or .yml are YAML,
// anything else is JSON.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	}
	return Parse(data)
}

// Marshal encodes r as indented JSON.
func (r *Recipe) Marshal() ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(r, "", "  ")
}

func (r *Recipe) normalize() {
	if r.Mode == "" {
		r.Mode = ModeListing
	}
	r.Mode = Mode(strings.ToLower(string(r.Mode)))
	for i := range r.Steps {
		r.Steps[i].Command = Command(strings.ToLower(strings.TrimSpace(string(r.Steps[i].Command))))
	}
}
