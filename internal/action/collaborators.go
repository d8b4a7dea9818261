package action

import (
	"context"
	"maps"
	"slices"
)

// API is a named endpoint that api and form_submit actions call.
type API struct {
	ID      string            `json:"id" yaml:"id"`
	Name    string            `json:"name,omitempty" yaml:"name"`
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers"`
	Mock    any               `json:"mock,omitempty" yaml:"mock"` // response returned by the simulated caller
}

// Modal is a named dialog that modal actions open.
type Modal struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title,omitempty" yaml:"title"`
	NodeID string `json:"nodeId,omitempty" yaml:"node_id"` // modal component to open, ID when empty
}

// Target returns the component id the modal opens.
func (m Modal) Target() string {
	if m.NodeID != "" {
		return m.NodeID
	}
	return m.ID
}

// Catalog resolves collaborators by id.
type Catalog interface {
	API(id string) (API, bool)
	Modal(id string) (Modal, bool)
}

// StaticCatalog is a fixed set of collaborators.
type StaticCatalog struct {
	apis   map[string]API
	modals map[string]Modal
}

// NewCatalog indexes the given collaborators by id. Later entries win.
func NewCatalog(apis []API, modals []Modal) *StaticCatalog {
	c := &StaticCatalog{apis: map[string]API{}, modals: map[string]Modal{}}
	for _, a := range apis {
		c.apis[a.ID] = a
	}
	for _, m := range modals {
		c.modals[m.ID] = m
	}
	return c
}

func (c *StaticCatalog) API(id string) (API, bool) {
	a, ok := c.apis[id]
	return a, ok
}

func (c *StaticCatalog) Modal(id string) (Modal, bool) {
	m, ok := c.modals[id]
	return m, ok
}

// APIs lists the catalog's APIs sorted by id.
func (c *StaticCatalog) APIs() []API {
	out := make([]API, 0, len(c.apis))
	for _, id := range slices.Sorted(maps.Keys(c.apis)) {
		out = append(out, c.apis[id])
	}
	return out
}

// Modals lists the catalog's modals sorted by id.
func (c *StaticCatalog) Modals() []Modal {
	out := make([]Modal, 0, len(c.modals))
	for _, id := range slices.Sorted(maps.Keys(c.modals)) {
		out = append(out, c.modals[id])
	}
	return out
}

// Catalogs searches several catalogs in order.
type Catalogs []Catalog

func (cs Catalogs) API(id string) (API, bool) {
	for _, c := range cs {
		if a, ok := c.API(id); ok {
			return a, true
		}
	}
	return API{}, false
}

func (cs Catalogs) Modal(id string) (Modal, bool) {
	for _, c := range cs {
		if m, ok := c.Modal(id); ok {
			return m, true
		}
	}
	return Modal{}, false
}

// Level grades a user notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notification is a transient message shown to the user.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Navigation is a routing request.
type Navigation struct {
	Mode     string         `json:"mode"` // push, replace or back
	Path     string         `json:"path,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
	Location string         `json:"location,omitempty"` // resulting location when history is tracked
}

// UI receives the visible effects of actions.
type UI interface {
	Notify(ctx context.Context, n Notification)
	OpenModal(ctx context.Context, modalID string, data any)
	Navigate(ctx context.Context, nav Navigation)
	RefreshTable(ctx context.Context, tableID string, params map[string]any)
}

// DOM answers lookups against the rendered page. from is the node id of
// the element that triggered the action.
type DOM interface {
	NearestForm(from string) (string, bool)
	NearestTable(from string) (string, bool)
	FormValues(formID string) map[string]any
}
