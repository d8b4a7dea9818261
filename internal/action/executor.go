// Package action runs the click behaviour configured on buttons: opening
// modals, calling APIs, navigating, submitting forms, refreshing tables
// and evaluating custom expressions.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/cdrslab/fundam-builder/internal/types"
)

var (
	// ErrCollaboratorNotFound is returned when an action names an API,
	// modal, form or table that does not exist.
	ErrCollaboratorNotFound = errors.New("collaborator not found")
	// ErrValidation is returned when a form fails validation before submit.
	ErrValidation = errors.New("validation failed")
	// ErrUnsupported is returned for an unknown action type.
	ErrUnsupported = errors.New("unsupported action type")
)

const defaultMaxDepth = 8

// Outcome records what one action did.
type Outcome struct {
	ActionID string           `json:"actionId"`
	Type     types.ActionType `json:"type"`
	Result   any              `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
	Chained  []Outcome        `json:"chained,omitempty"` // onSuccess or onError actions that ran after it

	Err error `json:"-"`
}

// Failed reports whether the action or anything it chained failed.
func (o Outcome) Failed() bool {
	if o.Err != nil {
		return true
	}
	for _, c := range o.Chained {
		if c.Failed() {
			return true
		}
	}
	return false
}

// Executor runs action lists against a UI.
type Executor struct {
	catalog  Catalog
	ui       UI
	dom      DOM
	caller   Caller
	history  *History
	maxDepth int
	log      *slog.Logger
}

type Option func(*Executor)

// WithDOM sets where forms and tables are looked up.
func WithDOM(d DOM) Option { return func(e *Executor) { e.dom = d } }

// WithCaller sets how APIs are invoked. The default simulates them.
func WithCaller(c Caller) Option { return func(e *Executor) { e.caller = c } }

// WithHistory tracks navigation in h.
func WithHistory(h *History) Option { return func(e *Executor) { e.history = h } }

// WithMaxDepth bounds how deep onSuccess/onError chains may nest.
func WithMaxDepth(n int) Option { return func(e *Executor) { e.maxDepth = n } }

func WithLogger(l *slog.Logger) Option { return func(e *Executor) { e.log = l } }

func New(catalog Catalog, ui UI, opts ...Option) *Executor {
	e := &Executor{
		catalog:  catalog,
		ui:       ui,
		caller:   SimulatedCaller{},
		maxDepth: defaultMaxDepth,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.catalog == nil {
		e.catalog = NewCatalog(nil, nil)
	}
	return e
}

// Run executes actions in order on behalf of the element with node id
// from. A failing action is reported to the user and the rest still run.
func (e *Executor) Run(ctx context.Context, actions []types.ButtonAction, from string) []Outcome {
	return e.run(ctx, actions, from, 0)
}

func (e *Executor) run(ctx context.Context, actions []types.ButtonAction, from string, depth int) []Outcome {
	out := make([]Outcome, 0, len(actions))
	for _, a := range actions {
		out = append(out, e.runOne(ctx, a, from, depth))
	}
	return out
}

func (e *Executor) runOne(ctx context.Context, a types.ButtonAction, from string, depth int) (out Outcome) {
	out = Outcome{ActionID: a.ID, Type: a.Type}

	res, next, err := e.dispatch(ctx, a, from, depth)
	if err != nil {
		e.fail(ctx, &out, err)
	}
	out.Result = res

	if next != nil {
		acts, derr := types.DecodeActions(next)
		if derr != nil {
			chained := Outcome{Type: a.Type}
			e.fail(ctx, &chained, fmt.Errorf("decode chained actions: %w", derr))
			out.Chained = []Outcome{chained}
			return out
		}
		out.Chained = e.run(ctx, acts, from, depth+1)
	}
	return out
}

// dispatch runs one action. next holds the actions to chain afterwards.
func (e *Executor) dispatch(ctx context.Context, a types.ButtonAction, from string, depth int) (res, next any, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, next, err = nil, nil, fmt.Errorf("%s action panicked: %v", a.Type, p)
		}
	}()
	if depth > e.maxDepth {
		return nil, nil, fmt.Errorf("action chain deeper than %d", e.maxDepth)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	cfg := a.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	switch a.Type {
	case types.ActionModal:
		return nil, nil, e.openModal(ctx, cfg)
	case types.ActionAPI:
		return e.callAPI(ctx, cfg, nil)
	case types.ActionNavigation:
		res, err := e.navigate(ctx, cfg)
		return res, nil, err
	case types.ActionFormSubmit:
		return e.submitForm(ctx, cfg, from)
	case types.ActionTableRefresh:
		return nil, nil, e.refreshTable(ctx, cfg, from)
	case types.ActionCustom:
		res, err := e.custom(ctx, cfg, from)
		return res, nil, err
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnsupported, a.Type)
}

func (e *Executor) fail(ctx context.Context, out *Outcome, err error) {
	out.Err = err
	out.Error = err.Error()
	e.log.Warn("action failed", "action", out.ActionID, "type", out.Type, "error", err)
	e.ui.Notify(ctx, Notification{Level: LevelError, Message: err.Error()})
}

// ── Handlers ───────────────────────────────────────────────────────────────

func (e *Executor) openModal(ctx context.Context, cfg map[string]any) error {
	id := str(cfg, "modalId")
	m, ok := e.catalog.Modal(id)
	if !ok {
		return fmt.Errorf("modal %q: %w", id, ErrCollaboratorNotFound)
	}
	e.ui.OpenModal(ctx, m.Target(), cfg["data"])
	return nil
}

// callAPI invokes the configured API with its params merged with extra.
// The chained actions are onSuccess or onError depending on the result.
func (e *Executor) callAPI(ctx context.Context, cfg map[string]any, extra map[string]any) (any, any, error) {
	id := str(cfg, "apiId")
	api, ok := e.catalog.API(id)
	if !ok {
		return nil, nil, fmt.Errorf("api %q: %w", id, ErrCollaboratorNotFound)
	}

	params := maps.Clone(object(cfg, "params"))
	if params == nil {
		params = map[string]any{}
	}
	maps.Copy(params, extra)

	res, err := e.caller.Call(ctx, api, params)
	if err != nil {
		return nil, cfg["onError"], fmt.Errorf("api %q: %w", id, err)
	}
	if msg := str(cfg, "successMessage"); msg != "" {
		e.ui.Notify(ctx, Notification{Level: LevelSuccess, Message: msg})
	}
	return res, cfg["onSuccess"], nil
}

func (e *Executor) navigate(ctx context.Context, cfg map[string]any) (any, error) {
	nav := Navigation{Mode: str(cfg, "mode"), Path: str(cfg, "path"), Params: object(cfg, "params")}
	switch nav.Mode {
	case "push", "replace":
		if nav.Path == "" {
			return nil, fmt.Errorf("%s navigation needs a path", nav.Mode)
		}
	case "back":
	default:
		return nil, fmt.Errorf("unknown navigation mode %q", nav.Mode)
	}
	if e.history != nil {
		nav.Location = e.history.Apply(nav)
	}
	e.ui.Navigate(ctx, nav)
	return nav, nil
}

func (e *Executor) submitForm(ctx context.Context, cfg map[string]any, from string) (any, any, error) {
	formID, err := e.form(str(cfg, "formId"), from)
	if err != nil {
		return nil, nil, err
	}
	values := e.dom.FormValues(formID)
	if boolean(cfg, "validateFirst") && len(values) == 0 {
		return nil, nil, fmt.Errorf("form %q has no values: %w", formID, ErrValidation)
	}

	if str(cfg, "apiId") == "" {
		e.ui.Notify(ctx, Notification{Level: LevelSuccess, Message: "Form submitted"})
		return values, cfg["onSuccess"], nil
	}
	return e.callAPI(ctx, map[string]any{
		"apiId":     cfg["apiId"],
		"onSuccess": cfg["onSuccess"],
		"onError":   cfg["onError"],
	}, values)
}

func (e *Executor) refreshTable(ctx context.Context, cfg map[string]any, from string) error {
	tableID, err := e.table(str(cfg, "tableId"), from)
	if err != nil {
		return err
	}
	var params map[string]any
	if boolean(cfg, "useFormData") {
		formID, err := e.form(str(cfg, "formId"), from)
		if err != nil {
			return err
		}
		params = e.dom.FormValues(formID)
	}
	e.ui.RefreshTable(ctx, tableID, params)
	return nil
}

// form resolves an explicit form id, or the form nearest to from.
func (e *Executor) form(id, from string) (string, error) {
	if e.dom == nil {
		return "", fmt.Errorf("form %q: %w", id, ErrCollaboratorNotFound)
	}
	if id == "" {
		if near, ok := e.dom.NearestForm(from); ok {
			return near, nil
		}
		return "", fmt.Errorf("no form near %q: %w", from, ErrCollaboratorNotFound)
	}
	if e.dom.FormValues(id) == nil {
		return "", fmt.Errorf("form %q: %w", id, ErrCollaboratorNotFound)
	}
	return id, nil
}

func (e *Executor) table(id, from string) (string, error) {
	if id != "" {
		if t, ok := e.dom.(interface{ IsTable(string) bool }); ok && !t.IsTable(id) {
			return "", fmt.Errorf("table %q: %w", id, ErrCollaboratorNotFound)
		}
		return id, nil
	}
	if e.dom != nil {
		if near, ok := e.dom.NearestTable(from); ok {
			return near, nil
		}
	}
	return "", fmt.Errorf("no table near %q: %w", from, ErrCollaboratorNotFound)
}

// ── Config access ──────────────────────────────────────────────────────────

func str(cfg map[string]any, key string) string {
	switch v := cfg[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func boolean(cfg map[string]any, key string) bool {
	switch v := cfg[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

func object(cfg map[string]any, key string) map[string]any {
	m, _ := cfg[key].(map[string]any)
	return m
}
