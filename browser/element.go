package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"

	"github.com/wenzapen/scout/dom"
)

type element struct {
	el *rod.Element
}

func wrapAll(els rod.Elements) []dom.Element {
	out := make([]dom.Element, len(els))
	for i, el := range els {
		out[i] = element{el}
	}
	return out
}

func (e element) eval(js string) (string, error) {
	res, err := e.el.Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Text is the node's textContent, not its rendered innerText.
func (e element) Text() (string, error) {
	return e.eval(`() => this.textContent`)
}

func (e element) Attr(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e element) OuterHTML() (string, error) {
	return e.el.HTML()
}

func (e element) Parent() (dom.Element, error) {
	tag, err := e.TagName()
	if err != nil {
		return nil, err
	}
	if tag == "html" {
		return nil, nil
	}
	p, err := e.el.Parent()
	if err != nil {
		return nil, fmt.Errorf("parent of <%s>: %w", tag, err)
	}
	return element{p}, nil
}

func (e element) Children() ([]dom.Element, error) {
	els, err := e.el.Elements(":scope > *")
	if err != nil {
		return nil, err
	}
	return wrapAll(els), nil
}

func (e element) TagName() (string, error) {
	tag, err := e.eval(`() => this.tagName`)
	return strings.ToLower(tag), err
}

func (e element) ClassList() ([]string, error) {
	v, _, err := e.Attr("class")
	if err != nil {
		return nil, err
	}
	return strings.Fields(v), nil
}

func (e element) QueryAll(selector string) ([]dom.Element, error) {
	if err := dom.ValidateSelector(selector); err != nil {
		return nil, err
	}
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrapAll(els), nil
}
