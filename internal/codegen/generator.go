// Package codegen serializes a component tree into page source text.
//
// Generation is a pure function of the node list: the same tree always
// produces the same text. The flat list is nested by parent before any
// markup is written, template types are expanded into their scaffold, and
// the import block is derived from every type that ends up in the output.
package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/tree"
	"github.com/cdrslab/fundam-builder/internal/types"
)

const indentUnit = "  "

// Options tune the page scaffold.
type Options struct {
	ComponentName string // default "Page"
	RootClass     string // default "page"
}

// Generator emits page source for trees built from one registry.
type Generator struct {
	reg  *registry.Registry
	opts Options
}

// New creates a generator.
func New(reg *registry.Registry, opts Options) *Generator {
	if opts.ComponentName == "" {
		opts.ComponentName = "Page"
	}
	if opts.RootClass == "" {
		opts.RootClass = "page"
	}
	return &Generator{reg: reg, opts: opts}
}

type cw struct {
	bytes.Buffer
	depth int
}

func (w *cw) line(format string, args ...any) {
	if format == "" {
		w.WriteByte('\n')
		return
	}
	w.WriteString(strings.Repeat(indentUnit, w.depth))
	fmt.Fprintf(&w.Buffer, format+"\n", args...)
}

// Generate returns the full page module for nodes: imports, destructuring,
// and a component returning the markup. An empty tree yields the scaffold
// around an empty root element.
func (g *Generator) Generate(nodes []types.ComponentNode) string {
	forest := g.expand(tree.Nest(nodes))

	var w cw
	w.line("import React from 'react';")
	for _, imp := range g.imports(forest) {
		w.line("import { %s } from '%s';", strings.Join(imp.names, ", "), imp.module)
	}
	if ds := g.destructures(forest); len(ds) > 0 {
		w.line("")
		for _, d := range ds {
			w.line("const { %s } = %s;", strings.Join(d.names, ", "), d.parent)
		}
	}
	w.line("")
	w.line("const %s = () => {", g.opts.ComponentName)
	w.depth++
	w.line("return (")
	w.depth++
	if len(forest) == 0 {
		w.line(`<div className="%s"></div>`, g.opts.RootClass)
	} else {
		w.line(`<div className="%s">`, g.opts.RootClass)
		w.depth++
		for _, e := range forest {
			g.element(&w, e)
		}
		w.depth--
		w.line("</div>")
	}
	w.depth--
	w.line(");")
	w.depth--
	w.line("};")
	w.line("")
	w.line("export default %s;", g.opts.ComponentName)
	return w.String()
}

// Markup returns only the element markup for nodes, without scaffold.
func (g *Generator) Markup(nodes []types.ComponentNode) string {
	var w cw
	for _, e := range g.expand(tree.Nest(nodes)) {
		g.element(&w, e)
	}
	return w.String()
}

// Imports returns the import statements nodes need, one per module.
func (g *Generator) Imports(nodes []types.ComponentNode) []string {
	var out []string
	for _, imp := range g.imports(g.expand(tree.Nest(nodes))) {
		out = append(out, fmt.Sprintf("import { %s } from '%s';", strings.Join(imp.names, ", "), imp.module))
	}
	return out
}

// expand replaces template elements by their scaffold. Children of a
// template node are appended after the scaffold as siblings.
func (g *Generator) expand(els []*tree.Element) []*tree.Element {
	out := make([]*tree.Element, 0, len(els))
	for _, e := range els {
		e.Children = g.expand(e.Children)
		if scaffold, ok := Expand(g.reg, e.Node); ok {
			out = append(out, scaffold)
			out = append(out, e.Children...)
			continue
		}
		out = append(out, e)
	}
	return out
}

// element writes one element. Containers nest their children; any other
// type with children is followed by them as a sibling block.
func (g *Generator) element(w *cw, e *tree.Element) {
	n := e.Node
	a := attrs(n.Props, n.Events)
	child, hasText := n.Props["children"]
	nest := len(e.Children) > 0 && g.reg.IsContainer(n.Type)

	switch {
	case !nest && !hasText:
		w.line("<%s%s />", n.Type, a)
	case !nest:
		w.line("<%s%s>%s</%s>", n.Type, a, text(child), n.Type)
	default:
		w.line("<%s%s>", n.Type, a)
		w.depth++
		if hasText {
			w.line("%s", text(child))
		}
		for _, c := range e.Children {
			g.element(w, c)
		}
		w.depth--
		w.line("</%s>", n.Type)
	}

	if !nest {
		for _, c := range e.Children {
			g.element(w, c)
		}
	}
}

type importLine struct {
	module string
	names  []string
}

type destructure struct {
	parent string
	names  []string
}

func (g *Generator) collect(forest []*tree.Element) []*types.ComponentDefinition {
	seen := make(map[string]bool)
	var defs []*types.ComponentDefinition
	tree.Walk(forest, func(e *tree.Element, _ int) {
		if seen[e.Node.Type] {
			return
		}
		seen[e.Node.Type] = true
		if d, ok := g.reg.Lookup(e.Node.Type); ok {
			defs = append(defs, d)
		}
	})
	return defs
}

func (g *Generator) imports(forest []*tree.Element) []importLine {
	byModule := make(map[string]map[string]bool)
	for _, d := range g.collect(forest) {
		name := d.Type
		if d.Destructure != "" {
			name = d.Destructure
		}
		if byModule[d.Module] == nil {
			byModule[d.Module] = make(map[string]bool)
		}
		byModule[d.Module][name] = true
	}
	out := make([]importLine, 0, len(byModule))
	for mod, names := range byModule {
		out = append(out, importLine{module: mod, names: sortedKeys(names)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].module < out[j].module })
	return out
}

func (g *Generator) destructures(forest []*tree.Element) []destructure {
	byParent := make(map[string]map[string]bool)
	for _, d := range g.collect(forest) {
		if d.Destructure == "" {
			continue
		}
		if byParent[d.Destructure] == nil {
			byParent[d.Destructure] = make(map[string]bool)
		}
		byParent[d.Destructure][d.Type] = true
	}
	out := make([]destructure, 0, len(byParent))
	for p, names := range byParent {
		out = append(out, destructure{parent: p, names: sortedKeys(names)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].parent < out[j].parent })
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
