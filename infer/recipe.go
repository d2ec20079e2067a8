package infer

import (
	"github.com/wenzapen/scout/recipe"
)

// backgroundURLRe pulls the URL out of a background-image style.
const backgroundURLRe = `url\(\s*['"]?([^'")]+)['"]?\s*\)`

// Recipe drafts a listing recipe that loops over the items c found. It
// returns nil when c was not found.
func (c SelectorCandidate) Recipe(name, pageURL string) *recipe.Recipe {
	if !c.Found {
		return nil
	}
	loop := func() *recipe.Loop {
		return &recipe.Loop{Index: "i", From: c.LoopFrom, To: c.LoopTo, Step: 1}
	}
	field := func(sel string) string {
		if sel == "" {
			return c.LoopBase
		}
		return c.LoopBase + " " + sel
	}

	r := &recipe.Recipe{Name: name, URL: pageURL, Mode: recipe.ModeListing}
	r.Steps = append(r.Steps, recipe.Step{Command: recipe.Navigate, Input: pageURL, Wait: "network_idle"})
	if c.Fields.Title != "" {
		r.Steps = append(r.Steps, recipe.Step{
			Command: recipe.ExtractText,
			Locator: field(c.Fields.Title),
			Output:  recipe.Output{Name: "TITLE$i", Type: "string", Show: true},
			Loop:    loop(),
		})
	}
	if c.Fields.URLAttr != "" {
		r.Steps = append(r.Steps, recipe.Step{
			Command:       recipe.ExtractAttribute,
			Locator:       field(c.Fields.URL),
			AttributeName: c.Fields.URLAttr,
			Output:        recipe.Output{Name: "URL$i", Type: "string", Show: true},
			Loop:          loop(),
		})
	}
	if c.Fields.Image != "" {
		if c.Fields.CoverNeedsExtraction {
			r.Steps = append(r.Steps,
				recipe.Step{
					Command:       recipe.ExtractAttribute,
					Locator:       field(c.Fields.Image),
					AttributeName: c.Fields.ImageAttr,
					Output:        recipe.Output{Name: "STYLE$i", Type: "string"},
					Loop:          loop(),
				},
				recipe.Step{
					Command: recipe.TransformRegex,
					Input:   "$STYLE$i",
					Regex:   backgroundURLRe,
					Output:  recipe.Output{Name: "IMAGE$i", Type: "string", Show: true},
					Loop:    loop(),
				})
		} else {
			r.Steps = append(r.Steps, recipe.Step{
				Command:       recipe.ExtractAttribute,
				Locator:       field(c.Fields.Image),
				AttributeName: c.Fields.ImageAttr,
				Output:        recipe.Output{Name: "IMAGE$i", Type: "string", Show: true},
				Loop:          loop(),
			})
		}
	}
	return r
}
