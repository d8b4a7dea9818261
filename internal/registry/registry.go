// Package registry holds the component catalog: every component type the
// builder can place, its category, default props, property schema, render
// strategy, and the configuration schemas of button actions.
//
// The catalog is written in CUE (catalog.cue) and validated against closed
// definitions when the registry is loaded. A Registry is safe for concurrent
// read access once loading and any Extend calls have finished.
package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/cdrslab/fundam-builder/internal/types"
)

//go:embed catalog.cue
var catalogSource []byte

var (
	// ErrUnknownAction is returned when an action type has no schema.
	ErrUnknownAction = errors.New("unknown action type")
	// ErrMissingField is returned when a required action field is empty.
	ErrMissingField = errors.New("required field missing")
	// ErrBadOption is returned when a select field holds a value outside its options.
	ErrBadOption = errors.New("value not in options")
)

// Category groups component types for the palette, in catalog order.
type Category struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

// Registry is the loaded component catalog.
type Registry struct {
	cue        *cue.Context
	base       cue.Value
	components map[string]*types.ComponentDefinition
	order      []string
	actions    map[types.ActionType]*types.ActionSchema
	actionList []types.ActionType
}

// Default loads the embedded catalog.
func Default() (*Registry, error) {
	return Load(catalogSource, "catalog.cue")
}

// MustDefault is Default for package-level initialisation in tests and tools.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Load compiles a CUE catalog and decodes its components and actions lists.
func Load(src []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(src, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", filename, err)
	}
	if err := val.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", filename, err)
	}

	r := &Registry{
		cue:        ctx,
		base:       val,
		components: make(map[string]*types.ComponentDefinition),
		actions:    make(map[types.ActionType]*types.ActionSchema),
	}

	var defs []types.ComponentDefinition
	if err := decode(val.LookupPath(cue.ParsePath("components")), &defs); err != nil {
		return nil, fmt.Errorf("decoding components: %w", err)
	}
	for i := range defs {
		if err := r.register(defs[i]); err != nil {
			return nil, err
		}
	}

	var schemas []types.ActionSchema
	if err := decode(val.LookupPath(cue.ParsePath("actions")), &schemas); err != nil {
		return nil, fmt.Errorf("decoding actions: %w", err)
	}
	for i := range schemas {
		s := schemas[i]
		r.actions[s.Type] = &s
		r.actionList = append(r.actionList, s.Type)
	}
	return r, nil
}

// Extend adds or overrides component types from a CUE file of the form
// `components: [...]`. Every entry is checked against the catalog's
// #Component definition before it is registered.
func (r *Registry) Extend(src []byte, filename string) error {
	overlay := r.cue.CompileBytes(src, cue.Filename(filename))
	if err := overlay.Err(); err != nil {
		return fmt.Errorf("compiling %s: %w", filename, err)
	}
	def := r.base.LookupPath(cue.ParsePath("#Component"))
	list := overlay.LookupPath(cue.ParsePath("components"))
	if !list.Exists() {
		return fmt.Errorf("%s: no components list", filename)
	}
	iter, err := list.List()
	if err != nil {
		return fmt.Errorf("%s: components: %w", filename, err)
	}
	for iter.Next() {
		entry := def.Unify(iter.Value())
		if err := entry.Validate(cue.Concrete(true)); err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		var d types.ComponentDefinition
		if err := decode(entry, &d); err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		if err := r.register(d); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(d types.ComponentDefinition) error {
	if d.Type == "" {
		return errors.New("component with empty type")
	}
	if d.DefaultProps == nil {
		d.DefaultProps = map[string]any{}
	}
	if _, exists := r.components[d.Type]; !exists {
		r.order = append(r.order, d.Type)
	}
	r.components[d.Type] = &d
	return nil
}

// decode goes through JSON so numbers land as float64, matching what
// props decoded from requests and source text look like.
func decode(v cue.Value, dst any) error {
	if !v.Exists() {
		return errors.New("value not found")
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// Lookup returns the definition for a component type.
func (r *Registry) Lookup(typ string) (*types.ComponentDefinition, bool) {
	d, ok := r.components[typ]
	return d, ok
}

// Recognized reports whether typ is a registered component type.
func (r *Registry) Recognized(typ string) bool {
	_, ok := r.components[typ]
	return ok
}

// IsContainer reports whether typ may hold children. Unknown types are leaves.
func (r *Registry) IsContainer(typ string) bool {
	d, ok := r.components[typ]
	return ok && d.IsContainer
}

// HiddenByDefault reports whether typ is a modal-like type rendered only
// when opened.
func (r *Registry) HiddenByDefault(typ string) bool {
	d, ok := r.components[typ]
	return ok && d.HiddenByDefault
}

// DefaultProps returns a fresh deep copy of the type's default props.
func (r *Registry) DefaultProps(typ string) map[string]any {
	d, ok := r.components[typ]
	if !ok {
		return map[string]any{}
	}
	return deepCopy(d.DefaultProps).(map[string]any)
}

// Types returns all registered type names in catalog order.
func (r *Registry) Types() []string {
	return r.order
}

// All returns every definition in catalog order.
func (r *Registry) All() []*types.ComponentDefinition {
	out := make([]*types.ComponentDefinition, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.components[t])
	}
	return out
}

// Categories groups types by category, keeping the order in which each
// category first appears in the catalog.
func (r *Registry) Categories() []Category {
	idx := make(map[string]int)
	var cats []Category
	for _, t := range r.order {
		c := r.components[t].Category
		i, ok := idx[c]
		if !ok {
			i = len(cats)
			idx[c] = i
			cats = append(cats, Category{Name: c})
		}
		cats[i].Types = append(cats[i].Types, t)
	}
	return cats
}

// Modules returns the distinct import modules of the given types, sorted.
// Unknown types are skipped.
func (r *Registry) Modules(typs []string) []string {
	seen := make(map[string]bool)
	var mods []string
	for _, t := range typs {
		d, ok := r.components[t]
		if !ok || seen[d.Module] {
			continue
		}
		seen[d.Module] = true
		mods = append(mods, d.Module)
	}
	sort.Strings(mods)
	return mods
}

// ActionSchema returns the configuration schema of an action type.
func (r *Registry) ActionSchema(t types.ActionType) (*types.ActionSchema, bool) {
	s, ok := r.actions[t]
	return s, ok
}

// ActionSchemas returns all action schemas in catalog order.
func (r *Registry) ActionSchemas() []*types.ActionSchema {
	out := make([]*types.ActionSchema, 0, len(r.actionList))
	for _, t := range r.actionList {
		out = append(out, r.actions[t])
	}
	return out
}

// ValidateAction checks an action's config against its schema: required
// fields must be non-empty, select fields must hold one of their options,
// and nested action lists are validated recursively. All problems are
// reported together.
func (r *Registry) ValidateAction(a types.ButtonAction) error {
	s, ok := r.actions[a.Type]
	if !ok {
		return fmt.Errorf("action %q: %w: %q", a.ID, ErrUnknownAction, a.Type)
	}
	var errs []error
	for _, f := range s.Fields {
		v, present := a.Config[f.Name]
		if f.Required && (!present || isEmpty(v)) {
			errs = append(errs, fmt.Errorf("action %q: %w: %s", a.ID, ErrMissingField, f.Name))
			continue
		}
		if !present || v == nil {
			continue
		}
		switch f.Type {
		case types.PropSelect:
			sv := fmt.Sprint(v)
			if len(f.Options) > 0 && !contains(f.Options, sv) {
				errs = append(errs, fmt.Errorf("action %q: field %s: %w: %q", a.ID, f.Name, ErrBadOption, sv))
			}
		case types.PropActions:
			nested, err := types.DecodeActions(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("action %q: field %s: %w", a.ID, f.Name, err))
				continue
			}
			for _, n := range nested {
				if err := r.ValidateAction(n); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return errors.Join(errs...)
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = deepCopy(e)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = deepCopy(e)
		}
		return s
	default:
		return v
	}
}
