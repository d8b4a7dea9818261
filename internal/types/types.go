// Package types provides the Go structs shared by the builder engine: the
// component node model, registry definitions, drop instructions, button
// actions, and the persisted page document.
package types

import (
	"encoding/json"
	"maps"
)

// ComponentNode is a single component instance in a builder tree. Nodes are
// stored flat; nesting comes from ParentID and sibling order from the node's
// index in the ordered collection.
type ComponentNode struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	Props       map[string]any    `json:"props"`
	ParentID    *string           `json:"parentId"`
	IsContainer bool              `json:"isContainer"`
	IsVisible   bool              `json:"isVisible"`
	Events      map[string]string `json:"events,omitempty"` // code-builder only: onXxx -> handler source
	Source      *SourcePos        `json:"source,omitempty"` // code-builder only
}

// SourcePos is a 1-based editor position of a parsed element.
type SourcePos struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

// Parent returns the parent id, or "" for root nodes.
func (n ComponentNode) Parent() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// IsRoot reports whether the node has no parent.
func (n ComponentNode) IsRoot() bool {
	return n.ParentID == nil
}

// Clone returns a copy whose maps and parent pointer are not shared with n.
// Prop values are copied shallowly.
func (n ComponentNode) Clone() ComponentNode {
	c := n
	c.Props = maps.Clone(n.Props)
	if c.Props == nil {
		c.Props = map[string]any{}
	}
	c.Events = maps.Clone(n.Events)
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	if n.Source != nil {
		s := *n.Source
		c.Source = &s
	}
	return c
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PropKind is the value kind of a property, which selects the editor widget.
type PropKind string

const (
	PropString  PropKind = "string"
	PropText    PropKind = "text"
	PropNumber  PropKind = "number"
	PropBoolean PropKind = "boolean"
	PropSelect  PropKind = "select"
	PropColor   PropKind = "color"
	PropJSON    PropKind = "json"
	PropActions PropKind = "actions"
)

// PropType describes one editable property of a component type.
type PropType struct {
	Name     string   `json:"name"`
	Kind     PropKind `json:"kind"`
	Label    string   `json:"label"`
	Default  any      `json:"default,omitempty"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// ComponentDefinition is an immutable registry entry.
type ComponentDefinition struct {
	Type            string         `json:"type"`
	Label           string         `json:"label"`
	Category        string         `json:"category"`
	Module          string         `json:"module"`                // import source, e.g. "antd"
	Destructure     string         `json:"destructure,omitempty"` // parent export, e.g. TextArea comes from Input
	IsContainer     bool           `json:"isContainer"`
	HiddenByDefault bool           `json:"hiddenByDefault,omitempty"`
	Template        string         `json:"template,omitempty"`
	Render          string         `json:"render"`
	DefaultProps    map[string]any `json:"defaultProps"`
	PropTypes       []PropType     `json:"propTypes"`
}

// PropType returns the named property schema.
func (d ComponentDefinition) PropType(name string) (PropType, bool) {
	for _, p := range d.PropTypes {
		if p.Name == name {
			return p, true
		}
	}
	return PropType{}, false
}

// DropKind is where a dragged item lands relative to a target.
type DropKind string

const (
	DropBefore DropKind = "before"
	DropAfter  DropKind = "after"
	DropInside DropKind = "inside"
)

// Valid reports whether k is one of the three drop kinds.
func (k DropKind) Valid() bool {
	return k == DropBefore || k == DropAfter || k == DropInside
}

// DropPosition is a transient placement instruction.
type DropPosition struct {
	Kind     DropKind `json:"kind"`
	TargetID string   `json:"targetId"`
}

// ActionType enumerates button action kinds.
type ActionType string

const (
	ActionModal        ActionType = "modal"
	ActionAPI          ActionType = "api"
	ActionNavigation   ActionType = "navigation"
	ActionFormSubmit   ActionType = "form_submit"
	ActionTableRefresh ActionType = "table_refresh"
	ActionCustom       ActionType = "custom"
)

// ButtonAction is one step of a button's click behaviour. It is never
// mutated while executing.
type ButtonAction struct {
	ID     string         `json:"id"`
	Type   ActionType     `json:"type"`
	Config map[string]any `json:"config"`
}

// DecodeActions converts a props.actions value (as decoded from JSON, YAML
// or source text) into typed actions.
func DecodeActions(v any) ([]ButtonAction, error) {
	if v == nil {
		return nil, nil
	}
	if acts, ok := v.([]ButtonAction); ok {
		return acts, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var acts []ButtonAction
	if err := json.Unmarshal(b, &acts); err != nil {
		return nil, err
	}
	return acts, nil
}

// PageComponent is one entry in the export format.
type PageComponent struct {
	ID       string         `json:"id" yaml:"id"`
	Type     string         `json:"type" yaml:"type"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Props    map[string]any `json:"props" yaml:"props"`
	ParentID string         `json:"parentId,omitempty" yaml:"parentId,omitempty"`
}

// PageDocument is the persisted page config: a flat component list whose
// parent relationships are reconstructible from ParentID.
type PageDocument struct {
	Version    string          `json:"version" yaml:"version"`
	Components []PageComponent `json:"components" yaml:"components"`
}

// ActionField is one named configuration field of an action type.
type ActionField struct {
	Name     string   `json:"name"`
	Type     PropKind `json:"type"`
	Label    string   `json:"label"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// ActionSchema is the configuration contract for one action type, consumed
// by the property editor to render the right inputs.
type ActionSchema struct {
	Type   ActionType    `json:"type"`
	Label  string        `json:"label"`
	Fields []ActionField `json:"fields"`
}

// Field returns the named configuration field.
func (s ActionSchema) Field(name string) (ActionField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return ActionField{}, false
}
