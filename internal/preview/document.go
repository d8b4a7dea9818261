package preview

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"strconv"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a rendered preview page. It answers the lookups actions
// need and keeps the values typed into each form.
type Document struct {
	mu     sync.RWMutex
	root   *html.Node
	values map[string]map[string]any // form id -> values entered since render
}

func newDocument(root *html.Node) *Document {
	return &Document{root: root, values: map[string]map[string]any{}}
}

// Parse reads a preview document from HTML, such as a snapshot sent back
// by the browser.
func Parse(r io.Reader) (*Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse preview: %w", err)
	}
	return newDocument(doc), nil
}

// HTML serializes the document.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return buf.String(), nil
}

func nodeID(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	id, _ := getAttr(n, "data-node-id")
	return id
}

func isForm(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Form && nodeID(n) != ""
}

func isTable(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Table && nodeID(n) != ""
}

func (d *Document) byID(id string) *html.Node {
	if id == "" {
		return nil
	}
	return findFirst(d.root, func(n *html.Node) bool { return nodeID(n) == id })
}

// Has reports whether an element with the node id was rendered.
func (d *Document) Has(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byID(id) != nil
}

// IsForm reports whether id names a rendered form.
func (d *Document) IsForm(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := d.byID(id)
	return n != nil && isForm(n)
}

// IsTable reports whether id names a rendered table.
func (d *Document) IsTable(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := d.byID(id)
	return n != nil && isTable(n)
}

// NearestForm finds the form closest to the element with node id from:
// the form enclosing it, or else the first form inside the nearest
// ancestor that holds one. An unknown from searches the whole page.
func (d *Document) NearestForm(from string) (string, bool) {
	return d.nearest(from, isForm)
}

// NearestTable finds the table closest to the element with node id from,
// the same way NearestForm does.
func (d *Document) NearestTable(from string) (string, bool) {
	return d.nearest(from, isTable)
}

func (d *Document) nearest(from string, match func(*html.Node) bool) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	start := d.byID(from)
	if start == nil {
		start = d.root
	}
	for a := start; a != nil; a = a.Parent {
		if m := findFirst(a, match); m != nil {
			return nodeID(m), true
		}
	}
	return "", false
}

// SetFormValues records values entered into a form. An empty string
// clears a field.
func (d *Document) SetFormValues(formID string, vals map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur := d.values[formID]
	if cur == nil {
		cur = map[string]any{}
		d.values[formID] = cur
	}
	for k, v := range vals {
		if s, ok := v.(string); ok && s == "" {
			cur[k] = nil
			continue
		}
		cur[k] = v
	}
}

// FormValues collects the named, non-empty values of a form: the values
// its controls were rendered with, overlaid by values set since. It
// returns nil when formID is not a rendered form.
func (d *Document) FormValues(formID string) map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	form := d.byID(formID)
	if form == nil || !isForm(form) {
		return nil
	}

	out := map[string]any{}
	for _, c := range findAll(form, isControl) {
		name, _ := getAttr(c, "name")
		if v, ok := controlValue(c); ok {
			out[name] = v
		}
	}
	for k, v := range d.values[formID] {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return maps.Clone(out)
}

func isControl(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Input, atom.Select, atom.Textarea:
		name, _ := getAttr(n, "name")
		return name != ""
	}
	return false
}

func controlValue(n *html.Node) (any, bool) {
	_, checked := getAttr(n, "checked")
	switch n.DataAtom {
	case atom.Textarea:
		s := textContent(n)
		return s, s != ""
	case atom.Select:
		opt := findFirst(n, func(o *html.Node) bool {
			_, sel := getAttr(o, "selected")
			return o.DataAtom == atom.Option && sel
		})
		if opt == nil {
			return nil, false
		}
		v, _ := getAttr(opt, "value")
		return v, v != ""
	}

	typ, _ := getAttr(n, "type")
	val, _ := getAttr(n, "value")
	switch typ {
	case "submit", "reset", "button", "file":
		return nil, false
	case "checkbox":
		if role, _ := getAttr(n, "role"); role == "switch" {
			return checked, true
		}
		return val, checked
	case "radio":
		return val, checked
	case "number":
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
		return nil, false
	}
	return val, val != ""
}
