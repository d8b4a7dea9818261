package markup

import "strings"

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeType() string
	Pos() int // byte offset in source
}

// Element is one tag with its attributes and content. An empty Name is a
// fragment (<>...</>).
type Element struct {
	TokenPos    int
	End         int
	Line        int
	Col         int
	Name        string
	Attrs       []*Attr
	Children    []Node
	SelfClosing bool
	Closed      bool // false when the source ended or broke before the closing tag
}

func (e *Element) nodeType() string { return "Element" }
func (e *Element) Pos() int         { return e.TokenPos }

// Attr returns the named attribute, or nil.
func (e *Element) Attr(name string) *Attr {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Elements returns the child elements, including elements found inside
// child expression containers, in source order.
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, c := range e.Children {
		switch x := c.(type) {
		case *Element:
			out = append(out, x)
		case *ExprContainer:
			out = append(out, x.Elements...)
		}
	}
	return out
}

// Text returns the element's text content with JSX whitespace rules
// applied: lines are trimmed and blank lines dropped, the rest joined
// with single spaces.
func (e *Element) Text() string {
	var parts []string
	for _, c := range e.Children {
		if t, ok := c.(*Text); ok {
			if s := t.Trimmed(); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// ValueKind classifies an attribute value.
type ValueKind int

const (
	ValueBool   ValueKind = iota // bare attribute, implicitly true
	ValueString                  // "quoted"
	ValueExpr                    // {expression}
	ValueSpread                  // {...expr}
)

// Attr is one attribute. Raw is the string contents or the expression
// source without braces.
type Attr struct {
	TokenPos int
	Line     int
	Col      int
	Name     string
	Kind     ValueKind
	Raw      string
}

func (a *Attr) nodeType() string { return "Attr" }
func (a *Attr) Pos() int         { return a.TokenPos }

// Text is literal content between tags.
type Text struct {
	TokenPos int
	Value    string
}

func (t *Text) nodeType() string { return "Text" }
func (t *Text) Pos() int         { return t.TokenPos }

// Trimmed collapses the text the way JSX does.
func (t *Text) Trimmed() string {
	var parts []string
	for _, line := range strings.Split(t.Value, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// ExprContainer is a braced expression in element content. Elements holds
// markup found inside the expression, such as the items of a map call.
type ExprContainer struct {
	TokenPos int
	Line     int
	Col      int
	Source   string
	Elements []*Element
}

func (x *ExprContainer) nodeType() string { return "ExprContainer" }
func (x *ExprContainer) Pos() int         { return x.TokenPos }

// Document is every top-level element found in a source file.
type Document struct {
	Elements []*Element
}

// Walk visits every element depth-first in source order, including
// elements nested in expression containers. Returning false from fn skips
// that element's descendants.
func Walk(els []*Element, fn func(el *Element, parent *Element) bool) {
	var visit func(es []*Element, parent *Element)
	visit = func(es []*Element, parent *Element) {
		for _, e := range es {
			if fn(e, parent) {
				visit(e.Elements(), e)
			}
		}
	}
	visit(els, nil)
}
