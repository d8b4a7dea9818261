package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdrslab/fundam-builder/internal/action"
	"github.com/cdrslab/fundam-builder/internal/event"
	"github.com/cdrslab/fundam-builder/internal/idgen"
	"github.com/cdrslab/fundam-builder/internal/page"
	"github.com/cdrslab/fundam-builder/internal/types"
)

type nopUI struct {
	notes  []action.Notification
	modals []string
}

func (u *nopUI) Notify(_ context.Context, n action.Notification)     { u.notes = append(u.notes, n) }
func (u *nopUI) OpenModal(_ context.Context, id string, _ any)       { u.modals = append(u.modals, id) }
func (u *nopUI) Navigate(context.Context, action.Navigation)         {}
func (u *nopUI) RefreshTable(context.Context, string, map[string]any) {}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newManager(t *testing.T, stable bool) (*Manager, *event.Journal, *clock) {
	t.Helper()
	j := event.NewJournal(100)
	c := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(Services{
		Recorder:   j,
		NodeIDs:    idgen.Sequence("n"),
		SessionIDs: idgen.Sequence("s"),
		StableIDs:  stable,
		Catalog:    action.NewCatalog([]action.API{{ID: "save"}}, nil),
	}, time.Hour, 10*time.Minute)
	m.now = c.now
	return m, j, c
}

func TestSession_TreeChangesAreRecorded(t *testing.T) {
	m, j, _ := newManager(t, false)
	s := m.Create(CreateOptions{PageID: "page_1", Name: "Users"})
	assert.Equal(t, "s1", s.ID)

	id := s.Store().Add("Button", map[string]any{"children": "OK"}, nil)
	require.Equal(t, "n1", id)
	s.Store().Select("")

	evs := j.Events("s1", 0)
	require.Len(t, evs, 2)
	assert.Equal(t, event.TypeTreeChanged, evs[0].EventType)
	assert.Equal(t, []string{"n1"}, evs[0].NodeIDs)
	assert.Equal(t, "page_1", evs[0].PageID)
	assert.Equal(t, event.TypeSessionOpened, evs[1].EventType)
}

func TestSession_SourceRoundTrip(t *testing.T) {
	m, _, _ := newManager(t, false)
	s := m.Create(CreateOptions{})
	s.Store().Add("Button", map[string]any{"children": "OK", "type": "primary"}, nil)

	require.NoError(t, s.SetMode(ModeCode))
	src := s.Source()
	assert.Contains(t, src, `<Button type="primary">OK</Button>`)

	res := s.SetSource(src)
	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Nodes, 1)
	assert.NotEqual(t, "n1", res.Nodes[0].ID, "fresh ids on every parse")
	assert.Equal(t, "OK", res.Nodes[0].Props["children"])
	assert.Equal(t, src, s.Source())
}

func TestSession_StableIDs(t *testing.T) {
	m, _, _ := newManager(t, true)
	s := m.Create(CreateOptions{})
	id := s.Store().Add("Button", map[string]any{"children": "OK"}, nil)

	res := s.SetSource(`<div><Button>Renamed</Button><Divider /></div>`)
	require.Len(t, res.Nodes, 2)
	assert.Equal(t, id, res.Nodes[0].ID)
	assert.Equal(t, "Renamed", res.Nodes[0].Props["children"])
}

func TestSession_SourceDiagnostics(t *testing.T) {
	m, j, _ := newManager(t, false)
	s := m.Create(CreateOptions{})
	s.SetSource(`<Buton>x</Buton>`)

	d := s.Diagnostics()
	require.Len(t, d, 1)
	assert.Equal(t, "did you mean 'Button'?", d[0].Suggestion)
	assert.Equal(t, 0, s.Store().Len())
	assert.Equal(t, event.TypeSourceParsed, j.Events(s.ID, 1)[0].EventType)
}

func TestSession_SetModeRejectsUnknown(t *testing.T) {
	m, _, _ := newManager(t, false)
	s := m.Create(CreateOptions{})
	assert.Error(t, s.SetMode("split"))
	assert.Equal(t, ModeCanvas, s.Mode())
}

func formNodes() []types.ComponentNode {
	return []types.ComponentNode{
		{ID: "f", Type: "Form", Props: map[string]any{}, IsVisible: true},
		{ID: "kw", Type: "FormInput", Props: map[string]any{"name": "keyword"}, ParentID: types.StringPtr("f"), IsVisible: true},
		{ID: "b", Type: "Button", ParentID: types.StringPtr("f"), IsVisible: true, Props: map[string]any{
			"children": "Edit",
			"actions": []any{
				map[string]any{"id": "a1", "type": "form_submit", "config": map[string]any{"apiId": "save", "validateFirst": true}},
				map[string]any{"id": "a2", "type": "modal", "config": map[string]any{"modalId": "dlg"}},
			},
		}},
		{ID: "dlg", Type: "Modal", Props: map[string]any{"title": "Edit", "open": false}, IsVisible: false},
	}
}

func TestSession_RunActionsFromNode(t *testing.T) {
	m, j, _ := newManager(t, false)
	s := m.Create(CreateOptions{Nodes: formNodes()})
	ui := &nopUI{}

	assert.Contains(t, html(t, s), `data-node-id="dlg" data-type="Modal" data-open="false" hidden=""`)

	out, err := s.RunActions(context.Background(), ui, "b", nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.ErrorIs(t, out[0].Err, action.ErrValidation)
	require.NoError(t, out[1].Err)
	assert.Equal(t, []string{"dlg"}, ui.modals)
	assert.True(t, s.OpenModals()["dlg"])
	assert.Contains(t, html(t, s), `data-node-id="dlg" data-type="Modal" data-open="true">`)

	require.NoError(t, s.SetFormValues("f", map[string]any{"keyword": "ada"}))
	out, err = s.RunActions(context.Background(), ui, "b", nil)
	require.NoError(t, err)
	assert.NoError(t, out[0].Err)

	ran := j.Events(s.ID, 1)[0]
	assert.Equal(t, event.TypeActionsRun, ran.EventType)
	assert.Equal(t, []string{"b"}, ran.NodeIDs)
}

func TestSession_FormValuesSurviveRerender(t *testing.T) {
	m, _, _ := newManager(t, false)
	s := m.Create(CreateOptions{Nodes: formNodes()})
	require.NoError(t, s.SetFormValues("f", map[string]any{"keyword": "ada"}))

	s.Store().UpdateProps("kw", map[string]any{"label": "Keyword"})
	assert.Equal(t, map[string]any{"keyword": "ada"}, s.Preview().FormValues("f"))

	assert.ErrorIs(t, s.SetFormValues("b", nil), action.ErrCollaboratorNotFound)
}

func TestSession_RunActionsUnknownNode(t *testing.T) {
	m, _, _ := newManager(t, false)
	s := m.Create(CreateOptions{})
	_, err := s.RunActions(context.Background(), &nopUI{}, "ghost", nil)
	assert.ErrorIs(t, err, action.ErrCollaboratorNotFound)
}

func TestSession_ShowHidden(t *testing.T) {
	m, _, _ := newManager(t, false)
	s := m.Create(CreateOptions{Nodes: formNodes()})
	s.SetShowHidden(true)
	assert.NotContains(t, html(t, s), `hidden=""`)
	s.SetModalOpen("dlg", true)
	s.SetModalOpen("dlg", false)
	assert.Empty(t, s.OpenModals())
}

func html(t *testing.T, s *Session) string {
	t.Helper()
	out, err := s.Preview().HTML()
	require.NoError(t, err)
	return out
}

func TestManager_Expiry(t *testing.T) {
	m, j, c := newManager(t, false)
	a := m.Create(CreateOptions{})
	b := m.Create(CreateOptions{})

	c.t = c.t.Add(5 * time.Minute)
	b.Touch()
	c.t = c.t.Add(6 * time.Minute)

	assert.Nil(t, m.Get(a.ID), "idle longer than ten minutes")
	assert.Same(t, b, m.Get(b.ID))
	assert.Equal(t, event.TypeSessionClosed, j.Events(a.ID, 1)[0].EventType)

	c.t = c.t.Add(time.Hour)
	assert.Equal(t, 1, m.Cleanup())
	assert.Empty(t, m.List())
}

func TestManager_ListAndRemove(t *testing.T) {
	m, _, _ := newManager(t, false)
	m.Create(CreateOptions{Name: "B"})
	m.Create(CreateOptions{Name: "A", Mode: ModeCode})

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "s1", list[0].ID)
	assert.Equal(t, "B", list[0].Name)
	assert.Equal(t, ModeCode, list[1].Mode)

	assert.True(t, m.Remove("s1"))
	assert.False(t, m.Remove("s1"))
}

func TestManager_Snapshot(t *testing.T) {
	m, _, _ := newManager(t, false)
	withPage := m.Create(CreateOptions{PageID: "page_1", Name: "Users", Nodes: formNodes()})
	without := m.Create(CreateOptions{})

	p, v, ok := m.Snapshot(withPage.ID)
	require.True(t, ok)
	assert.Equal(t, "page_1", p.ID)
	assert.Len(t, p.Document.Components, 4)
	assert.Equal(t, withPage.Store().Version(), v)

	_, _, ok = m.Snapshot(without.ID)
	assert.False(t, ok)
}

func TestManager_Open(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, false)
	pages := page.NewMemoryStore()
	require.NoError(t, pages.Save(ctx, &page.Page{ID: "page_1", Name: "Users", Document: page.Export(formNodes())}))

	s, err := m.Open(ctx, pages, "page_1")
	require.NoError(t, err)
	assert.Equal(t, "page_1", s.PageID)
	assert.Equal(t, "Users", s.Name)
	assert.Equal(t, 4, s.Store().Len())

	_, err = m.Open(ctx, pages, "missing")
	assert.ErrorIs(t, err, page.ErrNotFound)
}
