package dom

import (
	"sort"
	"sync"
)

// Common attribute names.
const (
	AttrValue    = "value"
	AttrMin      = "min"
	AttrMax      = "max"
	AttrHref     = "href"
	AttrDisabled = "disabled"
	AttrRole     = "data-role"
	AttrTarget   = "data-target"
	AttrOn       = "data-on"
	AttrDevice   = "data-device"
)

// Element is one node of the page model.
type Element struct {
	id string

	mu      sync.RWMutex
	classes []string
	attrs   map[string]string
	html    string
}

// NewElement creates an element with the given ID and classes.
func NewElement(id string, classes ...string) *Element {
	return &Element{
		id:      id,
		classes: append([]string(nil), classes...),
		attrs:   make(map[string]string),
	}
}

// ID returns the element ID.
func (e *Element) ID() string {
	return e.id
}

// Attr returns the attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.attrs[name]
	return v, ok
}

// AttrOr returns the attribute value or fallback when absent.
func (e *Element) AttrOr(name, fallback string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return fallback
}

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// SetAttr sets an attribute and returns the element for chaining.
func (e *Element) SetAttr(name, value string) *Element {
	e.mu.Lock()
	e.attrs[name] = value
	e.mu.Unlock()
	return e
}

// RemoveAttr removes an attribute.
func (e *Element) RemoveAttr(name string) *Element {
	e.mu.Lock()
	delete(e.attrs, name)
	e.mu.Unlock()
	return e
}

// Attrs returns a copy of all attributes.
func (e *Element) Attrs() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]string, len(e.attrs))
	for k, v := range e.attrs {
		out[k] = v
	}
	return out
}

// AttrNames returns the attribute names in sorted order.
func (e *Element) AttrNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Disabled reports whether the element carries the disabled attribute.
func (e *Element) Disabled() bool {
	return e.HasAttr(AttrDisabled)
}

// SetEnabled adds or removes the disabled attribute.
func (e *Element) SetEnabled(enabled bool) *Element {
	if enabled {
		return e.RemoveAttr(AttrDisabled)
	}
	return e.SetAttr(AttrDisabled, AttrDisabled)
}

// HasClass reports whether the element has the class.
func (e *Element) HasClass(class string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, c := range e.classes {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass adds a class if absent.
func (e *Element) AddClass(class string) *Element {
	if e.HasClass(class) {
		return e
	}
	e.mu.Lock()
	e.classes = append(e.classes, class)
	e.mu.Unlock()
	return e
}

// InnerHTML returns the element's markup.
func (e *Element) InnerHTML() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.html
}

// SetInnerHTML replaces the element's markup.
func (e *Element) SetInnerHTML(html string) *Element {
	e.mu.Lock()
	e.html = html
	e.mu.Unlock()
	return e
}
