package action

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdrslab/fundam-builder/internal/preview"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/types"
)

type refresh struct {
	table  string
	params map[string]any
}

type fakeUI struct {
	mu       sync.Mutex
	notes    []Notification
	modals   []string
	navs     []Navigation
	refreshs []refresh
	panicOn  string
}

func (u *fakeUI) Notify(_ context.Context, n Notification) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notes = append(u.notes, n)
}

func (u *fakeUI) OpenModal(_ context.Context, id string, _ any) {
	if id == u.panicOn {
		panic("modal exploded")
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.modals = append(u.modals, id)
}

func (u *fakeUI) Navigate(_ context.Context, nav Navigation) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.navs = append(u.navs, nav)
}

func (u *fakeUI) RefreshTable(_ context.Context, id string, params map[string]any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.refreshs = append(u.refreshs, refresh{id, params})
}

func (u *fakeUI) levels() []Level {
	var out []Level
	for _, n := range u.notes {
		out = append(out, n.Level)
	}
	return out
}

type recordingCaller struct {
	calls []map[string]any
	err   error
}

func (c *recordingCaller) Call(_ context.Context, api API, params map[string]any) (any, error) {
	c.calls = append(c.calls, params)
	if c.err != nil {
		return nil, c.err
	}
	return map[string]any{"api": api.ID}, nil
}

func act(id string, typ types.ActionType, cfg map[string]any) types.ButtonAction {
	return types.ButtonAction{ID: id, Type: typ, Config: cfg}
}

func catalog() *StaticCatalog {
	return NewCatalog(
		[]API{{ID: "users", Method: "GET", URL: "/api/users", Mock: []any{"ada"}}},
		[]Modal{{ID: "edit", Title: "Edit"}, {ID: "create", NodeID: "modal_2"}},
	)
}

func page(t *testing.T) *preview.Document {
	t.Helper()
	n := func(id, typ, parent string, props map[string]any) types.ComponentNode {
		if props == nil {
			props = map[string]any{}
		}
		return types.ComponentNode{ID: id, Type: typ, Props: props, ParentID: types.StringPtr(parent), IsVisible: true}
	}
	return preview.New(registry.MustDefault()).Render([]types.ComponentNode{
		n("card", "Card", "", nil),
		n("f", "Form", "card", nil),
		n("kw", "FormInput", "f", map[string]any{"name": "keyword", "value": "abc"}),
		n("btn", "Button", "card", map[string]any{"children": "Search"}),
		n("tbl", "Table", "card", nil),
		n("empty", "Form", "", nil),
		n("lonely", "Button", "empty", nil),
	}, preview.State{})
}

func TestRun_FailureDoesNotStopLaterActions(t *testing.T) {
	ui := &fakeUI{}
	e := New(catalog(), ui)

	out := e.Run(context.Background(), []types.ButtonAction{
		act("a1", types.ActionAPI, map[string]any{"apiId": "missing"}),
		act("a2", types.ActionModal, map[string]any{"modalId": "edit"}),
	}, "btn")

	require.Len(t, out, 2)
	assert.ErrorIs(t, out[0].Err, ErrCollaboratorNotFound)
	assert.True(t, out[0].Failed())
	assert.NoError(t, out[1].Err)
	assert.Equal(t, []string{"edit"}, ui.modals)
	assert.Equal(t, []Level{LevelError}, ui.levels())
}

func TestRun_ModalTarget(t *testing.T) {
	ui := &fakeUI{}
	New(catalog(), ui).Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionModal, map[string]any{"modalId": "create"}),
	}, "")
	assert.Equal(t, []string{"modal_2"}, ui.modals)
}

func TestRun_APISuccessChains(t *testing.T) {
	ui := &fakeUI{}
	e := New(catalog(), ui)

	out := e.Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionAPI, map[string]any{
			"apiId":          "users",
			"successMessage": "Loaded",
			"onSuccess":      []any{map[string]any{"id": "s", "type": "modal", "config": map[string]any{"modalId": "edit"}}},
			"onError":        []any{map[string]any{"id": "f", "type": "modal", "config": map[string]any{"modalId": "create"}}},
		}),
	}, "")

	require.Len(t, out, 1)
	assert.Equal(t, []any{"ada"}, out[0].Result)
	require.Len(t, out[0].Chained, 1)
	assert.Equal(t, "s", out[0].Chained[0].ActionID)
	assert.Equal(t, []string{"edit"}, ui.modals)
	assert.Equal(t, []Notification{{Level: LevelSuccess, Message: "Loaded"}}, ui.notes)
}

func TestRun_APIFailureChainsOnError(t *testing.T) {
	ui := &fakeUI{}
	caller := &recordingCaller{err: errors.New("connection refused")}
	e := New(catalog(), ui, WithCaller(caller))

	out := e.Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionAPI, map[string]any{
			"apiId":     "users",
			"params":    map[string]any{"page": 1.0},
			"onSuccess": []any{map[string]any{"id": "s", "type": "modal", "config": map[string]any{"modalId": "edit"}}},
			"onError":   []any{map[string]any{"id": "f", "type": "modal", "config": map[string]any{"modalId": "create"}}},
		}),
	}, "")

	require.Len(t, out, 1)
	assert.ErrorContains(t, out[0].Err, "connection refused")
	require.Len(t, out[0].Chained, 1)
	assert.Equal(t, "f", out[0].Chained[0].ActionID)
	assert.Equal(t, []string{"modal_2"}, ui.modals)
	assert.Equal(t, []map[string]any{{"page": 1.0}}, caller.calls)
}

func TestRun_BadChainedActions(t *testing.T) {
	ui := &fakeUI{}
	out := New(catalog(), ui).Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionAPI, map[string]any{"apiId": "users", "onSuccess": "nope"}),
	}, "")
	require.Len(t, out[0].Chained, 1)
	assert.ErrorContains(t, out[0].Chained[0].Err, "decode chained actions")
	assert.True(t, out[0].Failed())
}

func TestRun_ChainDepthIsBounded(t *testing.T) {
	leaf := map[string]any{"id": "leaf", "type": "modal", "config": map[string]any{"modalId": "edit"}}
	cfg := map[string]any{"apiId": "users", "onSuccess": []any{leaf}}
	for range 4 {
		cfg = map[string]any{"apiId": "users", "onSuccess": []any{map[string]any{"id": "x", "type": "api", "config": cfg}}}
	}

	ui := &fakeUI{}
	out := New(catalog(), ui, WithMaxDepth(2)).Run(context.Background(), []types.ButtonAction{
		act("root", types.ActionAPI, cfg),
	}, "")

	assert.True(t, out[0].Failed())
	assert.Empty(t, ui.modals)
	assert.Contains(t, ui.levels(), LevelError)
}

func TestRun_PanicIsContained(t *testing.T) {
	ui := &fakeUI{panicOn: "edit"}
	out := New(catalog(), ui).Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionModal, map[string]any{"modalId": "edit"}),
		act("b", types.ActionModal, map[string]any{"modalId": "create"}),
	}, "")

	assert.ErrorContains(t, out[0].Err, "modal action panicked: modal exploded")
	assert.Equal(t, []string{"modal_2"}, ui.modals)
}

func TestRun_UnsupportedType(t *testing.T) {
	out := New(catalog(), &fakeUI{}).Run(context.Background(), []types.ButtonAction{
		act("a", "teleport", nil),
	}, "")
	assert.ErrorIs(t, out[0].Err, ErrUnsupported)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ui := &fakeUI{}
	out := New(catalog(), ui).Run(ctx, []types.ButtonAction{
		act("a", types.ActionModal, map[string]any{"modalId": "edit"}),
	}, "")
	assert.ErrorIs(t, out[0].Err, context.Canceled)
	assert.Empty(t, ui.modals)
}

func TestFormSubmit_NearestFormToAPI(t *testing.T) {
	ui := &fakeUI{}
	caller := &recordingCaller{}
	e := New(catalog(), ui, WithDOM(page(t)), WithCaller(caller))

	out := e.Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionFormSubmit, map[string]any{"apiId": "users", "validateFirst": true}),
	}, "btn")

	require.NoError(t, out[0].Err)
	assert.Equal(t, []map[string]any{{"keyword": "abc"}}, caller.calls)
	assert.Equal(t, map[string]any{"api": "users"}, out[0].Result)
}

func TestFormSubmit_WithoutAPI(t *testing.T) {
	ui := &fakeUI{}
	out := New(catalog(), ui, WithDOM(page(t))).Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionFormSubmit, map[string]any{"formId": "f"}),
	}, "")
	require.NoError(t, out[0].Err)
	assert.Equal(t, map[string]any{"keyword": "abc"}, out[0].Result)
	assert.Equal(t, []Level{LevelSuccess}, ui.levels())
}

func TestFormSubmit_ValidationFails(t *testing.T) {
	ui := &fakeUI{}
	caller := &recordingCaller{}
	out := New(catalog(), ui, WithDOM(page(t)), WithCaller(caller)).Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionFormSubmit, map[string]any{"apiId": "users", "validateFirst": true}),
	}, "lonely")

	assert.ErrorIs(t, out[0].Err, ErrValidation)
	assert.Empty(t, caller.calls)
}

func TestFormSubmit_UnknownForm(t *testing.T) {
	out := New(catalog(), &fakeUI{}, WithDOM(page(t))).Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionFormSubmit, map[string]any{"formId": "btn"}),
	}, "")
	assert.ErrorIs(t, out[0].Err, ErrCollaboratorNotFound)
}

func TestTableRefresh(t *testing.T) {
	ui := &fakeUI{}
	e := New(catalog(), ui, WithDOM(page(t)))

	out := e.Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionTableRefresh, map[string]any{"useFormData": true}),
		act("b", types.ActionTableRefresh, map[string]any{"tableId": "tbl"}),
		act("c", types.ActionTableRefresh, map[string]any{"tableId": "nope"}),
	}, "btn")

	assert.NoError(t, out[0].Err)
	assert.NoError(t, out[1].Err)
	assert.ErrorIs(t, out[2].Err, ErrCollaboratorNotFound)
	assert.Equal(t, []refresh{
		{"tbl", map[string]any{"keyword": "abc"}},
		{"tbl", nil},
	}, ui.refreshs)
}

func TestTableRefresh_NoTable(t *testing.T) {
	out := New(catalog(), &fakeUI{}).Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionTableRefresh, nil),
	}, "btn")
	assert.ErrorIs(t, out[0].Err, ErrCollaboratorNotFound)
}

func TestNavigation(t *testing.T) {
	ui := &fakeUI{}
	h := NewHistory("/home")
	e := New(catalog(), ui, WithHistory(h))

	out := e.Run(context.Background(), []types.ButtonAction{
		act("a", types.ActionNavigation, map[string]any{"mode": "push", "path": "/users", "params": map[string]any{"id": 7.0}}),
		act("b", types.ActionNavigation, map[string]any{"mode": "replace", "path": "/orders"}),
		act("c", types.ActionNavigation, map[string]any{"mode": "push"}),
		act("d", types.ActionNavigation, map[string]any{"mode": "back"}),
		act("e", types.ActionNavigation, map[string]any{"mode": "sideways"}),
	}, "")

	assert.NoError(t, out[0].Err)
	assert.NoError(t, out[1].Err)
	assert.ErrorContains(t, out[2].Err, "push navigation needs a path")
	assert.NoError(t, out[3].Err)
	assert.ErrorContains(t, out[4].Err, `unknown navigation mode "sideways"`)

	require.Len(t, ui.navs, 3)
	assert.Equal(t, "/users?id=7", ui.navs[0].Location)
	assert.Equal(t, "/orders", ui.navs[1].Location)
	assert.Equal(t, "/home", ui.navs[2].Location)
	assert.Equal(t, 1, h.Len())
}

func TestHistory_BackAtStartStays(t *testing.T) {
	h := NewHistory("")
	assert.Equal(t, "/", h.Apply(Navigation{Mode: "back"}))
	assert.Equal(t, "/a?x=1&y=2", h.Apply(Navigation{Mode: "push", Path: "/a", Params: map[string]any{"y": 2, "x": 1}}))
	assert.Equal(t, "/a?x=1&y=2", h.Location())
}

func TestCatalogs_FirstMatchWins(t *testing.T) {
	cs := Catalogs{
		NewCatalog(nil, []Modal{{ID: "edit", NodeID: "first"}}),
		NewCatalog([]API{{ID: "users"}}, []Modal{{ID: "edit", NodeID: "second"}}),
	}
	m, ok := cs.Modal("edit")
	require.True(t, ok)
	assert.Equal(t, "first", m.Target())
	_, ok = cs.API("users")
	assert.True(t, ok)
	_, ok = cs.API("orders")
	assert.False(t, ok)
}

func TestStaticCatalog_Listing(t *testing.T) {
	c := NewCatalog([]API{{ID: "b"}, {ID: "a"}}, []Modal{{ID: "z"}, {ID: "y"}})
	assert.Equal(t, []API{{ID: "a"}, {ID: "b"}}, c.APIs())
	assert.Equal(t, []Modal{{ID: "y"}, {ID: "z"}}, c.Modals())
}
