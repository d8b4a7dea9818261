// Package session manages builder sessions: one component tree per open
// page, edited on the canvas or as source text, with a live preview that
// button actions run against.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cdrslab/fundam-builder/internal/action"
	"github.com/cdrslab/fundam-builder/internal/codegen"
	"github.com/cdrslab/fundam-builder/internal/codesync"
	"github.com/cdrslab/fundam-builder/internal/editor"
	"github.com/cdrslab/fundam-builder/internal/event"
	"github.com/cdrslab/fundam-builder/internal/idgen"
	"github.com/cdrslab/fundam-builder/internal/page"
	"github.com/cdrslab/fundam-builder/internal/placement"
	"github.com/cdrslab/fundam-builder/internal/preview"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/tree"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// Mode is how the page is being edited.
type Mode string

const (
	ModeCanvas Mode = "canvas"
	ModeCode   Mode = "code"
)

// Services are shared by every session of a manager.
type Services struct {
	Registry  *registry.Registry
	Generator *codegen.Generator
	Parser    *codesync.Parser
	Renderer  *preview.Renderer
	Catalog   action.Catalog // global APIs and modals
	Caller    action.Caller
	Recorder  event.Recorder
	Log       *slog.Logger

	NodeIDs    idgen.Generator
	SessionIDs idgen.Generator
	Inset      int  // drop inside band in pixels
	StableIDs  bool // keep node ids across source edits
}

func (s *Services) defaults() {
	if s.Registry == nil {
		s.Registry = registry.MustDefault()
	}
	if s.Generator == nil {
		s.Generator = codegen.New(s.Registry, codegen.Options{})
	}
	if s.NodeIDs == nil {
		s.NodeIDs = idgen.Node
	}
	if s.Parser == nil {
		s.Parser = codesync.New(s.Registry, codesync.WithIDGenerator(s.NodeIDs))
	}
	if s.Renderer == nil {
		s.Renderer = preview.New(s.Registry)
	}
	if s.Catalog == nil {
		s.Catalog = action.NewCatalog(nil, nil)
	}
	if s.Caller == nil {
		s.Caller = action.SimulatedCaller{}
	}
	if s.Log == nil {
		s.Log = slog.Default()
	}
	if s.SessionIDs == nil {
		s.SessionIDs = idgen.Session
	}
	if s.Inset <= 0 {
		s.Inset = 20
	}
}

// Session holds the editing state of one page.
type Session struct {
	ID        string    `json:"id"`
	PageID    string    `json:"pageId,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`

	svc     *Services
	now     func() time.Time
	store   *tree.Store
	drag    *placement.Drag
	editor  *editor.Editor
	history *action.History
	stale   atomic.Bool // tree changed since the preview was rendered

	mu          sync.Mutex
	mode        Mode
	source      string
	diagnostics []codesync.Diagnostic
	openModals  map[string]bool
	formValues  map[string]map[string]any
	showHidden  bool
	doc         *preview.Document
	lastActive  time.Time
}

func newSession(svc *Services, now func() time.Time, id, pageID, name string) *Session {
	t := now()
	s := &Session{
		ID:         id,
		PageID:     pageID,
		Name:       name,
		CreatedAt:  t,
		svc:        svc,
		now:        now,
		history:    action.NewHistory("/"),
		mode:       ModeCanvas,
		openModals: map[string]bool{},
		formValues: map[string]map[string]any{},
		lastActive: t,
	}
	s.store = tree.New(svc.Registry, tree.WithIDGenerator(svc.NodeIDs), tree.WithListener(s.changed))
	s.drag = placement.NewDrag(s.store, svc.Inset)
	s.editor = editor.New(svc.Registry, s.store)
	return s
}

func (s *Session) scope() event.Scope {
	return event.Scope{SessionID: s.ID, PageID: s.PageID}
}

func (s *Session) record(evt event.DomainEvent) {
	if s.svc.Recorder == nil {
		return
	}
	if err := s.svc.Recorder.Record(context.Background(), evt); err != nil {
		s.svc.Log.Warn("record event", "session_id", s.ID, "event", evt.EventType, "error", err)
	}
}

// changed runs after every tree mutation, outside the store lock.
func (s *Session) changed(ch tree.Change) {
	s.stale.Store(true)
	if ch.Op == tree.OpSelect {
		return
	}
	s.record(event.NewTreeChanged(s.scope(), event.TreeChangedPayload{
		Op:       string(ch.Op),
		Selected: ch.Selected,
		Nodes:    s.store.Len(),
	}, ch.NodeIDs, ch.Version))
}

func (s *Session) Store() *tree.Store       { return s.store }
func (s *Session) Drag() *placement.Drag    { return s.drag }
func (s *Session) Editor() *editor.Editor   { return s.editor }
func (s *Session) History() *action.History { return s.history }

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// IsExpired reports whether the session is older than maxAge.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return maxAge > 0 && s.now().Sub(s.CreatedAt) > maxAge
}

// IsIdle reports whether the session has been idle longer than timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return timeout > 0 && s.now().Sub(s.LastActive()) > timeout
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches between canvas and code editing. Entering code mode
// starts the source from the generated code.
func (s *Session) SetMode(m Mode) error {
	switch m {
	case ModeCanvas, ModeCode:
	default:
		return fmt.Errorf("unknown mode %q", m)
	}
	code := ""
	if m == ModeCode {
		code = s.Code()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == m {
		return nil
	}
	s.mode = m
	s.source = code
	s.diagnostics = nil
	return nil
}

// Code generates source for the current tree.
func (s *Session) Code() string {
	return s.svc.Generator.Generate(s.store.Nodes())
}

// Source is the text shown in the code editor: what the user typed in code
// mode, the generated code otherwise.
func (s *Session) Source() string {
	s.mu.Lock()
	src, mode := s.source, s.mode
	s.mu.Unlock()
	if mode == ModeCode && src != "" {
		return src
	}
	return s.Code()
}

// SetSource re-derives the tree from edited source text. The parsed tree
// replaces the current one even when it has errors.
func (s *Session) SetSource(src string) codesync.Result {
	res := s.svc.Parser.Parse(src)
	if s.svc.StableIDs {
		res.Nodes = codesync.Reconcile(s.store.Nodes(), res.Nodes)
	}
	s.store.Replace(res.Nodes)
	res.Nodes = s.store.Nodes()

	s.mu.Lock()
	s.source = src
	s.diagnostics = res.Diagnostics
	s.mu.Unlock()

	p := event.SourceParsedPayload{Nodes: len(res.Nodes)}
	for _, d := range res.Diagnostics {
		if d.Severity == codesync.SeverityError {
			p.Errors++
		} else {
			p.Warnings++
		}
	}
	s.record(event.NewSourceParsed(s.scope(), p))
	return res
}

// Diagnostics are the problems found by the last SetSource.
func (s *Session) Diagnostics() []codesync.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]codesync.Diagnostic(nil), s.diagnostics...)
}

// Load replaces the tree with nodes, as when a page is opened.
func (s *Session) Load(nodes []types.ComponentNode) {
	s.store.Replace(nodes)
	s.mu.Lock()
	s.source = ""
	s.diagnostics = nil
	s.openModals = map[string]bool{}
	s.formValues = map[string]map[string]any{}
	s.mu.Unlock()
}

// Snapshot exports the current tree as the session's page.
func (s *Session) Snapshot() (page.Page, uint64) {
	version := s.store.Version()
	return page.Page{ID: s.PageID, Name: s.Name, Document: page.Export(s.store.Nodes())}, version
}

// ── Preview ─────────────────────────────────────────────────────────────────

// SetShowHidden toggles rendering closed modals, as the canvas does.
func (s *Session) SetShowHidden(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.showHidden != show {
		s.showHidden = show
		s.doc = nil
	}
}

// Preview returns the rendered preview, rendering again when the tree or
// the preview state changed since the last call.
func (s *Session) Preview() *preview.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil && !s.stale.Load() {
		return s.doc
	}
	s.stale.Store(false)
	doc := s.svc.Renderer.Render(s.store.Nodes(), preview.State{
		OpenModals: maps.Clone(s.openModals),
		ShowHidden: s.showHidden,
	})
	for id, vals := range s.formValues {
		if doc.IsForm(id) {
			doc.SetFormValues(id, vals)
		}
	}
	s.doc = doc
	return doc
}

// SetFormValues records values typed into a preview form.
func (s *Session) SetFormValues(formID string, vals map[string]any) error {
	doc := s.Preview()
	if !doc.IsForm(formID) {
		return fmt.Errorf("form %q: %w", formID, action.ErrCollaboratorNotFound)
	}
	doc.SetFormValues(formID, vals)

	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.formValues[formID]
	if cur == nil {
		cur = map[string]any{}
		s.formValues[formID] = cur
	}
	maps.Copy(cur, vals)
	return nil
}

// SetModalOpen opens or closes a modal in the preview.
func (s *Session) SetModalOpen(id string, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.openModals[id] = true
	} else {
		delete(s.openModals, id)
	}
	s.doc = nil
}

// OpenModals lists the modals opened in the preview.
func (s *Session) OpenModals() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.openModals)
}

// ── Actions ─────────────────────────────────────────────────────────────────

// RunActions executes a button's actions against the preview. With nil
// actions the actions configured on node from are used.
func (s *Session) RunActions(ctx context.Context, ui action.UI, from string, actions []types.ButtonAction) ([]action.Outcome, error) {
	if actions == nil {
		n, ok := s.store.Get(from)
		if !ok {
			return nil, fmt.Errorf("node %q: %w", from, action.ErrCollaboratorNotFound)
		}
		var err error
		if actions, err = types.DecodeActions(n.Props["actions"]); err != nil {
			return nil, fmt.Errorf("node %q actions: %w", from, err)
		}
	}

	exec := action.New(
		action.Catalogs{s.svc.Catalog, treeModals{s}},
		&previewUI{UI: ui, s: s},
		action.WithDOM(s.Preview()),
		action.WithCaller(s.svc.Caller),
		action.WithHistory(s.history),
		action.WithLogger(s.svc.Log.With("session_id", s.ID)),
	)
	out := exec.Run(ctx, actions, from)

	p := event.ActionsRunPayload{From: from, Ran: len(out)}
	for _, o := range out {
		if o.Failed() {
			p.Failed = append(p.Failed, o.ActionID)
		}
	}
	s.record(event.NewActionsRun(s.scope(), p))
	return out, nil
}

// treeModals resolves modal ids naming a Modal or Drawer node of the tree.
type treeModals struct{ s *Session }

func (t treeModals) API(string) (action.API, bool) { return action.API{}, false }

func (t treeModals) Modal(id string) (action.Modal, bool) {
	n, ok := t.s.store.Get(id)
	if !ok || !t.s.svc.Registry.HiddenByDefault(n.Type) {
		return action.Modal{}, false
	}
	title, _ := n.Props["title"].(string)
	return action.Modal{ID: id, Title: title, NodeID: id}, true
}

// previewUI keeps the preview's open modals in step with what actions do.
type previewUI struct {
	action.UI
	s *Session
}

func (u *previewUI) OpenModal(ctx context.Context, id string, data any) {
	u.s.SetModalOpen(id, true)
	u.UI.OpenModal(ctx, id, data)
}
