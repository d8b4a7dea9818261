// Package editor is the property editor: it describes a node's property
// form from its type's schema and writes coerced values back to the store.
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/tree"
	"github.com/cdrslab/fundam-builder/internal/types"
)

var (
	// ErrInvalidValue is returned when a submitted value cannot be coerced
	// to its property's kind.
	ErrInvalidValue = errors.New("invalid property value")
	// ErrNodeNotFound is returned when the edited node does not exist.
	ErrNodeNotFound = errors.New("node not found")
)

// Field is one input of a property form.
type Field struct {
	Name     string         `json:"name"`
	Kind     types.PropKind `json:"kind"`
	Label    string         `json:"label"`
	Options  []string       `json:"options,omitempty"`
	Required bool           `json:"required,omitempty"`
	Default  any            `json:"default,omitempty"`
	Value    any            `json:"value"`
}

// Form is the editor description of one node.
type Form struct {
	NodeID  string                `json:"nodeId"`
	Type    string                `json:"type"`
	Name    string                `json:"name"`
	Depth   int                   `json:"depth"`
	Fields  []Field               `json:"fields"`
	Extra   map[string]any        `json:"extra,omitempty"` // props outside the schema
	Actions []*types.ActionSchema `json:"actions,omitempty"`
}

// Editor binds the registry and a tree store.
type Editor struct {
	reg   *registry.Registry
	store *tree.Store
}

// New creates an editor for store.
func New(reg *registry.Registry, store *tree.Store) *Editor {
	return &Editor{reg: reg, store: store}
}

// Form describes the property form for a node. Schema fields come first
// in schema order; props the schema does not know are listed under Extra.
func (e *Editor) Form(id string) (Form, error) {
	n, ok := e.store.Get(id)
	if !ok {
		return Form{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	f := Form{NodeID: n.ID, Type: n.Type, Name: n.Name, Depth: tree.Depth(e.store.Nodes(), n.ID)}
	def, known := e.reg.Lookup(n.Type)
	inSchema := make(map[string]bool)
	if known {
		for _, pt := range def.PropTypes {
			inSchema[pt.Name] = true
			v, set := n.Props[pt.Name]
			if !set {
				v = pt.Default
			}
			f.Fields = append(f.Fields, Field{
				Name:     pt.Name,
				Kind:     pt.Kind,
				Label:    pt.Label,
				Options:  pt.Options,
				Required: pt.Required,
				Default:  pt.Default,
				Value:    v,
			})
			if pt.Kind == types.PropActions {
				f.Actions = e.reg.ActionSchemas()
			}
		}
	}
	for k, v := range n.Props {
		if inSchema[k] {
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]any)
		}
		f.Extra[k] = v
	}
	return f, nil
}

// Apply coerces values against the node's schema and merges them into the
// node's props. Nothing is written unless every value is valid. A nil
// value removes nothing; it is stored as nil.
func (e *Editor) Apply(id string, values map[string]any) error {
	n, ok := e.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	def, _ := e.reg.Lookup(n.Type)

	out := make(map[string]any, len(values))
	var errs []error
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := values[k]
		if def == nil {
			out[k] = v
			continue
		}
		pt, ok := def.PropType(k)
		if !ok {
			out[k] = v
			continue
		}
		cv, err := e.Coerce(pt, v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[k] = cv
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	e.store.UpdateProps(id, out)
	return nil
}

// Rename sets a node's display name. Blank names are rejected.
func (e *Editor) Rename(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidValue)
	}
	if !e.store.Rename(id, name) {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return nil
}

// Coerce converts v to the kind of pt.
func (e *Editor) Coerce(pt types.PropType, v any) (any, error) {
	if v == nil {
		if pt.Required {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidValue, pt.Name)
		}
		return nil, nil
	}
	switch pt.Kind {
	case types.PropString, types.PropText, types.PropColor:
		switch x := v.(type) {
		case string:
			if pt.Required && strings.TrimSpace(x) == "" {
				return nil, fmt.Errorf("%w: %s is required", ErrInvalidValue, pt.Name)
			}
			return x, nil
		case float64, int, bool:
			return fmt.Sprint(x), nil
		}
	case types.PropNumber:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err == nil {
				return f, nil
			}
		}
	case types.PropBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err == nil {
				return b, nil
			}
		}
	case types.PropSelect:
		s := fmt.Sprint(v)
		if len(pt.Options) == 0 {
			return v, nil
		}
		for _, o := range pt.Options {
			if o == s {
				return v, nil
			}
		}
		return nil, fmt.Errorf("%w: %s must be one of %s", ErrInvalidValue, pt.Name, strings.Join(pt.Options, ", "))
	case types.PropJSON:
		if s, ok := v.(string); ok {
			var out any
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, pt.Name, err)
			}
			return out, nil
		}
		return v, nil
	case types.PropActions:
		if s, ok := v.(string); ok {
			var raw any
			if err := json.Unmarshal([]byte(s), &raw); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, pt.Name, err)
			}
			v = raw
		}
		acts, err := types.DecodeActions(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, pt.Name, err)
		}
		for _, a := range acts {
			if err := e.reg.ValidateAction(a); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, pt.Name, err)
			}
		}
		return acts, nil
	default:
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s expects %s, got %T", ErrInvalidValue, pt.Name, pt.Kind, v)
}
