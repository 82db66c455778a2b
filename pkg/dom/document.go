package dom

import (
	"sync"
)

// Document is the page model of one mounted view.
type Document struct {
	mu       sync.RWMutex
	elements map[string]*Element
	order    []string

	modal     string
	location  string
	refreshes map[string]int
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{
		elements:  make(map[string]*Element),
		refreshes: make(map[string]int),
	}
}

// Add inserts an element, replacing any element with the same ID.
func (d *Document) Add(el *Element) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.elements[el.id]; !exists {
		d.order = append(d.order, el.id)
	}
	d.elements[el.id] = el
	return el
}

// Remove deletes an element by ID.
func (d *Document) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.elements[id]; !ok {
		return
	}
	delete(d.elements, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// ByID returns the element with the ID, or nil.
func (d *Document) ByID(id string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.elements[id]
}

// Elements returns all elements in insertion order.
func (d *Document) Elements() []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Element, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.elements[id])
	}
	return out
}

// ByClass returns the elements with the class in insertion order.
func (d *Document) ByClass(class string) []*Element {
	var out []*Element
	for _, el := range d.Elements() {
		if el.HasClass(class) {
			out = append(out, el)
		}
	}
	return out
}

// ByAttr returns the elements whose attribute equals value.
func (d *Document) ByAttr(name, value string) []*Element {
	var out []*Element
	for _, el := range d.Elements() {
		if v, ok := el.Attr(name); ok && v == value {
			out = append(out, el)
		}
	}
	return out
}

// ShowModal marks the modal with the ID as displayed.
func (d *Document) ShowModal(id string) {
	d.mu.Lock()
	d.modal = id
	d.mu.Unlock()
}

// HideModal hides any displayed modal.
func (d *Document) HideModal() {
	d.ShowModal("")
}

// ActiveModal returns the displayed modal ID, or "".
func (d *Document) ActiveModal() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modal
}

// Navigate records a navigation to url.
func (d *Document) Navigate(url string) {
	d.mu.Lock()
	d.location = url
	d.mu.Unlock()
}

// Location returns the last navigation target.
func (d *Document) Location() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.location
}

// RequestRefresh records a refresh request for a data table.
func (d *Document) RequestRefresh(table string) {
	d.mu.Lock()
	d.refreshes[table]++
	d.mu.Unlock()
}

// Refreshes returns how many refreshes the table received.
func (d *Document) Refreshes(table string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refreshes[table]
}
