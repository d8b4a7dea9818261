// Package codesync turns page source text back into a component tree.
// It walks the markup AST, keeps the elements whose type the registry
// recognizes, and rebuilds parent links from element nesting. Every parse
// issues fresh node ids; Reconcile can map them back onto a previous tree.
package codesync

import (
	"strings"
	"sync"
	"unicode"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/cdrslab/fundam-builder/internal/idgen"
	"github.com/cdrslab/fundam-builder/internal/markup"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// Severity grades a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a problem found while parsing. Diagnostics never stop a
// parse.
type Diagnostic struct {
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Line       int      `json:"line"`
	Col        int      `json:"col"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Result is the outcome of one parse.
type Result struct {
	Nodes       []types.ComponentNode `json:"nodes"`
	Diagnostics []Diagnostic          `json:"diagnostics"`
}

// generic lists markup that is never a tracked component, even when a
// registry overlay defines a type of the same name.
var generic = map[string]bool{
	"div": true, "span": true, "p": true, "a": true, "img": true, "br": true,
	"ul": true, "ol": true, "li": true, "section": true, "header": true,
	"footer": true, "main": true, "nav": true, "form": true, "input": true,
	"button": true, "label": true, "table": true, "h1": true, "h2": true,
	"h3": true, "Fragment": true, "React.Fragment": true,
}

// maxSuggestDistance bounds the edit distance for "did you mean".
const maxSuggestDistance = 2

// Option configures a Parser.
type Option func(*Parser)

// WithIDGenerator sets the id source for parsed nodes.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(p *Parser) { p.newID = gen }
}

// Parser converts source text to component nodes. It is safe for
// concurrent use.
type Parser struct {
	reg   *registry.Registry
	newID idgen.Generator

	mu  sync.Mutex // guards cue
	cue *cue.Context
}

// New creates a parser recognizing the registry's component types.
func New(reg *registry.Registry, opts ...Option) *Parser {
	p := &Parser{reg: reg, newID: idgen.Node, cue: cuecontext.New()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse re-derives the component tree from src. Malformed input yields a
// partial tree plus diagnostics, never an error.
func (p *Parser) Parse(src string) Result {
	doc, perrs := markup.ParseDocument(src)
	res := Result{Nodes: []types.ComponentNode{}}
	for _, e := range perrs {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity:   SeverityError,
			Message:    e.Message,
			Line:       e.Line,
			Col:        e.Col,
			Suggestion: e.Suggestion,
		})
	}

	// Component id of each element kept so far; elements that are not
	// components pass their nearest component ancestor down.
	owner := map[*markup.Element]string{}
	markup.Walk(doc.Elements, func(el, parent *markup.Element) bool {
		parentID := owner[parent]
		typ, ok := p.resolve(el.Name)
		if !ok {
			if d, bad := p.unknown(el); bad {
				res.Diagnostics = append(res.Diagnostics, d)
			}
			owner[el] = parentID
			return true
		}
		n := p.node(typ, el)
		n.ParentID = types.StringPtr(parentID)
		res.Nodes = append(res.Nodes, n)
		owner[el] = n.ID
		return true
	})
	return res
}

// resolve maps a tag name to a registered type. Member names such as
// Typography.Title resolve when the registry destructures the type from
// that parent.
func (p *Parser) resolve(name string) (string, bool) {
	if name == "" || generic[name] {
		return "", false
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		def, ok := p.reg.Lookup(name[i+1:])
		if !ok || def.Destructure != name[:i] {
			return "", false
		}
		return def.Type, true
	}
	if !p.reg.Recognized(name) {
		return "", false
	}
	return name, true
}

// unknown reports a capitalised tag the registry does not know.
func (p *Parser) unknown(el *markup.Element) (Diagnostic, bool) {
	name := el.Name
	if name == "" || generic[name] || strings.Contains(name, ".") {
		return Diagnostic{}, false
	}
	if r := []rune(name)[0]; !unicode.IsUpper(r) {
		return Diagnostic{}, false
	}
	return Diagnostic{
		Severity:   SeverityWarning,
		Message:    "unknown component <" + name + ">",
		Line:       el.Line,
		Col:        el.Col,
		Suggestion: markup.SuggestFrom(name, p.reg.Types(), maxSuggestDistance),
	}, true
}

func (p *Parser) node(typ string, el *markup.Element) types.ComponentNode {
	n := types.ComponentNode{
		ID:          p.newID(),
		Type:        typ,
		Name:        typ,
		Props:       map[string]any{},
		IsContainer: p.reg.IsContainer(typ),
		Source:      &types.SourcePos{Line: el.Line, Column: el.Col, Offset: el.TokenPos},
	}
	for _, a := range el.Attrs {
		switch {
		case a.Kind == markup.ValueSpread:
		case isEvent(a.Name):
			if n.Events == nil {
				n.Events = map[string]string{}
			}
			n.Events[a.Name] = strings.TrimSpace(a.Raw)
		default:
			n.Props[a.Name] = p.value(a)
		}
	}
	if v, ok := p.children(el); ok {
		n.Props["children"] = v
	}
	n.IsVisible = !p.reg.HiddenByDefault(typ) || truthy(n.Props["open"]) || truthy(n.Props["visible"])
	return n
}

// children extracts text content: literal text, or a single expression
// that holds no markup.
func (p *Parser) children(el *markup.Element) (any, bool) {
	if s := el.Text(); s != "" {
		return s, true
	}
	var expr *markup.ExprContainer
	for _, c := range el.Children {
		switch x := c.(type) {
		case *markup.ExprContainer:
			if expr != nil || len(x.Elements) > 0 {
				return nil, false
			}
			expr = x
		case *markup.Element:
			return nil, false
		}
	}
	if expr == nil || strings.TrimSpace(expr.Source) == "" {
		return nil, false
	}
	return p.literal(expr.Source), true
}

// isEvent reports whether an attribute is an event handler: "on" followed
// by an upper-case letter.
func isEvent(name string) bool {
	if len(name) < 3 || !strings.HasPrefix(name, "on") {
		return false
	}
	return unicode.IsUpper(rune(name[2]))
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x == "true"
	}
	return false
}
