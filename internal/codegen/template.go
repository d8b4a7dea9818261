package codegen

import (
	"fmt"

	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/tree"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// expander turns a template node into a nested element scaffold built
// from its structured props.
type expander func(n types.ComponentNode) *tree.Element

var templates = map[string]expander{
	"list_query":  expandListQuery,
	"detail_page": expandDetailPage,
}

// Expand returns the scaffold a template node stands for. It reports
// false for types that are not templates.
func Expand(reg *registry.Registry, n types.ComponentNode) (*tree.Element, bool) {
	def, ok := reg.Lookup(n.Type)
	if !ok || def.Template == "" {
		return nil, false
	}
	fn, ok := templates[def.Template]
	if !ok {
		return nil, false
	}
	return fn(n), true
}

func el(typ string, props map[string]any, children ...*tree.Element) *tree.Element {
	return &tree.Element{
		Node:     types.ComponentNode{Type: typ, Props: props},
		Children: children,
	}
}

var searchFieldTypes = map[string]string{
	"input":  "FormInput",
	"number": "FormInputNumber",
	"select": "FormSelect",
	"date":   "FormDatePicker",
	"range":  "FormRangePicker",
}

// ListQuery becomes a card holding an inline search form and the data
// table wired to the query api.
func expandListQuery(n types.ComponentNode) *tree.Element {
	p := n.Props
	form := el("Form", map[string]any{"layout": "inline", "name": "search"})
	for _, raw := range asList(p["searchFields"]) {
		f, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		typ := searchFieldTypes[fmt.Sprint(f["type"])]
		if typ == "" {
			typ = "FormInput"
		}
		props := map[string]any{}
		for _, k := range []string{"name", "label", "placeholder", "options"} {
			if v, ok := f[k]; ok {
				props[k] = v
			}
		}
		form.Children = append(form.Children, el(typ, props))
	}
	form.Children = append(form.Children,
		el("Button", map[string]any{"type": "primary", "htmlType": "submit", "children": "Search"}),
		el("Button", map[string]any{"htmlType": "reset", "children": "Reset"}),
	)

	table := el("Table", map[string]any{"rowKey": or(p["rowKey"], "id"), "columns": or(p["columns"], []any{})})
	if api, ok := p["api"].(string); ok && api != "" {
		table.Node.Props["api"] = api
	}

	return el("Card", map[string]any{"title": or(p["title"], "List")},
		form,
		el("Divider", map[string]any{}),
		table,
	)
}

// DetailPage becomes a card with one descriptions block per section.
func expandDetailPage(n types.ComponentNode) *tree.Element {
	p := n.Props
	card := el("Card", map[string]any{"title": or(p["title"], "Details")})
	api, _ := p["api"].(string)
	for _, raw := range asList(p["sections"]) {
		sec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		var items []any
		for _, ri := range asList(sec["items"]) {
			it, ok := ri.(map[string]any)
			if !ok {
				continue
			}
			field := fmt.Sprint(or(it["field"], ""))
			items = append(items, map[string]any{
				"key":      field,
				"label":    or(it["label"], field),
				"children": "{" + field + "}",
			})
		}
		props := map[string]any{"title": or(sec["title"], ""), "items": or(any(items), []any{})}
		if api != "" {
			props["api"] = api
		}
		card.Children = append(card.Children, el("Descriptions", props))
	}
	return card
}

func asList(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case []map[string]any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out
	}
	return nil
}

func or(v, fallback any) any {
	switch x := v.(type) {
	case nil:
		return fallback
	case string:
		if x == "" {
			return fallback
		}
	case []any:
		if x == nil {
			return fallback
		}
	}
	return v
}
