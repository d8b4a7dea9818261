package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/cdrslab/fundam-builder/internal/action"
	"github.com/cdrslab/fundam-builder/internal/autocomplete"
	"github.com/cdrslab/fundam-builder/internal/editor"
	"github.com/cdrslab/fundam-builder/internal/page"
	"github.com/cdrslab/fundam-builder/internal/placement"
	"github.com/cdrslab/fundam-builder/internal/session"
)

// Handler manages WebSocket connections for live editing.
type Handler struct {
	sessions     *session.Manager
	pages        page.Store
	autocomplete *autocomplete.Engine
	log          *slog.Logger
}

// NewHandler creates a WebSocket handler. pages may be nil when pages are
// not persisted; a nil engine completes against the sessions' registry.
func NewHandler(sessions *session.Manager, pages page.Store, ac *autocomplete.Engine, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if ac == nil {
		ac = autocomplete.New(sessions.Services().Registry)
	}
	return &Handler{sessions: sessions, pages: pages, autocomplete: ac, log: log}
}

// conn is one client connection bound to a session.
type conn struct {
	h    *Handler
	ws   *websocket.Conn
	sess *session.Session
	wg   sync.WaitGroup
}

// ServeHTTP upgrades to WebSocket and runs the message loop. The query
// parameter session attaches to a live session, page opens a saved page,
// and neither starts an empty session.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, status, err := h.attach(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("wire: websocket accept", "error", err)
		return
	}
	defer ws.CloseNow()

	c := &conn{h: h, ws: ws, sess: sess}
	ctx := r.Context()
	defer c.wg.Wait()

	c.send(ctx, ServerMessage{Type: MsgSession, Data: SessionData{
		SessionID: sess.ID,
		PageID:    sess.PageID,
		Mode:      string(sess.Mode()),
	}})
	c.sendTree(ctx, "")
	c.sendCode(ctx, "")

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.log.Debug("wire: connection closed", "session_id", sess.ID, "status", websocket.CloseStatus(err))
			}
			return
		}
		sess.Touch()
		c.handle(ctx, msg)
	}
}

func (h *Handler) attach(r *http.Request) (*session.Session, int, error) {
	q := r.URL.Query()
	if id := q.Get("session"); id != "" {
		s := h.sessions.Get(id)
		if s == nil {
			return nil, http.StatusNotFound, fmt.Errorf("session %s not found", id)
		}
		return s, 0, nil
	}
	if id := q.Get("page"); id != "" {
		if h.pages == nil {
			return nil, http.StatusNotFound, page.ErrNotFound
		}
		s, err := h.sessions.Open(r.Context(), h.pages, id)
		switch {
		case errors.Is(err, page.ErrNotFound):
			return nil, http.StatusNotFound, err
		case err != nil:
			return nil, http.StatusInternalServerError, err
		}
		return s, 0, nil
	}
	return h.sessions.Create(session.CreateOptions{}), 0, nil
}

func (c *conn) handle(ctx context.Context, msg ClientMessage) {
	s := c.sess
	switch msg.Type {
	case MsgPing:
		c.send(ctx, ServerMessage{Type: MsgPong, RequestID: msg.ID})

	case MsgDragStart:
		var src placement.Source
		if !c.decode(ctx, msg, &src) {
			return
		}
		if !s.Drag().Begin(src) {
			c.sendError(ctx, msg.ID, "invalid_drag", "nothing to drag")
		}
	case MsgHover:
		var d PointerData
		if !c.decode(ctx, msg, &d) {
			return
		}
		var data IndicatorData
		if ind, ok := s.Drag().Hover(d.TargetID, d.Box.rect(), d.Point.pt()); ok {
			data.Indicator = &ind
		}
		c.send(ctx, ServerMessage{Type: MsgIndicator, RequestID: msg.ID, Data: data})
	case MsgLeave:
		var d NodeData
		if !c.decode(ctx, msg, &d) {
			return
		}
		s.Drag().Leave(d.NodeID)
		c.send(ctx, ServerMessage{Type: MsgIndicator, RequestID: msg.ID, Data: IndicatorData{}})
	case MsgDrop:
		var d PointerData
		if !c.decode(ctx, msg, &d) {
			return
		}
		var ok bool
		if d.TargetID == "" {
			_, ok = s.Drag().DropOnCanvas()
		} else {
			_, ok = s.Drag().Drop(d.TargetID, d.Box.rect(), d.Point.pt())
		}
		c.send(ctx, ServerMessage{Type: MsgIndicator, RequestID: msg.ID, Data: IndicatorData{}})
		if ok {
			c.changed(ctx, msg.ID)
		}
	case MsgDragEnd:
		s.Drag().End()
		c.send(ctx, ServerMessage{Type: MsgIndicator, RequestID: msg.ID, Data: IndicatorData{}})

	case MsgAdd:
		var d AddData
		if !c.decode(ctx, msg, &d) {
			return
		}
		if !s.Store().Registry().Recognized(d.Type) {
			c.sendError(ctx, msg.ID, "unknown_component", fmt.Sprintf("unknown component type %q", d.Type))
			return
		}
		if s.Store().Add(d.Type, d.Props, d.Position) != "" {
			c.changed(ctx, msg.ID)
		}
	case MsgMove:
		var d MoveData
		if !c.decode(ctx, msg, &d) {
			return
		}
		if s.Store().Move(d.NodeID, d.Position) {
			c.changed(ctx, msg.ID)
		}
	case MsgSelect:
		var d NodeData
		if !c.decode(ctx, msg, &d) {
			return
		}
		s.Store().Select(d.NodeID)
		c.sendTree(ctx, msg.ID)
	case MsgRemove:
		var d NodeData
		if !c.decode(ctx, msg, &d) {
			return
		}
		if len(s.Store().Remove(d.NodeID)) > 0 {
			c.changed(ctx, msg.ID)
		}
	case MsgUpdateProps:
		var d UpdatePropsData
		if !c.decode(ctx, msg, &d) {
			return
		}
		if err := s.Editor().Apply(d.NodeID, d.Props); err != nil {
			c.sendError(ctx, msg.ID, errorCode(err), err.Error())
			return
		}
		c.changed(ctx, msg.ID)
	case MsgRename:
		var d RenameData
		if !c.decode(ctx, msg, &d) {
			return
		}
		if err := s.Editor().Rename(d.NodeID, d.Name); err != nil {
			c.sendError(ctx, msg.ID, errorCode(err), err.Error())
			return
		}
		c.changed(ctx, msg.ID)
	case MsgPropertyForm:
		var d NodeData
		if !c.decode(ctx, msg, &d) {
			return
		}
		form, err := s.Editor().Form(d.NodeID)
		if err != nil {
			c.sendError(ctx, msg.ID, errorCode(err), err.Error())
			return
		}
		c.send(ctx, ServerMessage{Type: MsgForm, RequestID: msg.ID, Data: form})

	case MsgSetMode:
		var d ModeData
		if !c.decode(ctx, msg, &d) {
			return
		}
		if err := s.SetMode(session.Mode(d.Mode)); err != nil {
			c.sendError(ctx, msg.ID, "invalid_mode", err.Error())
			return
		}
		c.sendCode(ctx, msg.ID)
	case MsgSetSource:
		var d SourceData
		if !c.decode(ctx, msg, &d) {
			return
		}
		res := s.SetSource(d.Source)
		c.sendTree(ctx, msg.ID)
		c.send(ctx, ServerMessage{Type: MsgDiagnostics, RequestID: msg.ID, Data: DiagnosticsData{Items: res.Diagnostics}})
	case MsgComplete:
		var d CompleteData
		if !c.decode(ctx, msg, &d) {
			return
		}
		items := c.h.autocomplete.Complete(d.Source, d.Cursor)
		c.send(ctx, ServerMessage{Type: MsgCompletions, RequestID: msg.ID, Data: CompletionsData{Items: items}})

	case MsgPreview:
		var d PreviewData
		if len(msg.Data) > 0 && !c.decode(ctx, msg, &d) {
			return
		}
		s.SetShowHidden(d.ShowHidden)
		c.sendPreview(ctx, msg.ID)
	case MsgRunActions:
		var d RunActionsData
		if !c.decode(ctx, msg, &d) {
			return
		}
		// Chains from different clicks interleave; each runs on its own.
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			out, err := s.RunActions(ctx, &connUI{c: c, requestID: msg.ID}, d.NodeID, d.Actions)
			if err != nil {
				c.sendError(ctx, msg.ID, errorCode(err), err.Error())
				return
			}
			c.send(ctx, ServerMessage{Type: MsgOutcomes, RequestID: msg.ID, Data: OutcomesData{Outcomes: out}})
		}()
	case MsgSetFormValues:
		var d FormValuesData
		if !c.decode(ctx, msg, &d) {
			return
		}
		if err := s.SetFormValues(d.FormID, d.Values); err != nil {
			c.sendError(ctx, msg.ID, errorCode(err), err.Error())
		}
	case MsgCloseModal:
		var d ModalData
		if !c.decode(ctx, msg, &d) {
			return
		}
		s.SetModalOpen(d.ModalID, false)
		c.sendPreview(ctx, msg.ID)

	default:
		c.sendError(ctx, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (r Rect) rect() image.Rectangle { return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H) }
func (p Point) pt() image.Point      { return image.Pt(p.X, p.Y) }

func errorCode(err error) string {
	switch {
	case errors.Is(err, editor.ErrNodeNotFound), errors.Is(err, action.ErrCollaboratorNotFound):
		return "not_found"
	case errors.Is(err, editor.ErrInvalidValue):
		return "invalid_value"
	}
	return "failed"
}

func (c *conn) decode(ctx context.Context, msg ClientMessage, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.sendError(ctx, msg.ID, "invalid_data", fmt.Sprintf("invalid %s data", msg.Type))
		return false
	}
	return true
}

// changed reports a tree mutation: the new tree and, on the canvas, the
// regenerated code. In code mode the user's text stays as typed.
func (c *conn) changed(ctx context.Context, requestID string) {
	c.sendTree(ctx, requestID)
	if c.sess.Mode() == session.ModeCanvas {
		c.sendCode(ctx, requestID)
	}
}

func (c *conn) sendTree(ctx context.Context, requestID string) {
	st := c.sess.Store()
	c.send(ctx, ServerMessage{Type: MsgTree, RequestID: requestID, Data: TreeData{
		Nodes:    st.Nodes(),
		Selected: st.Selected(),
		Version:  st.Version(),
	}})
}

func (c *conn) sendCode(ctx context.Context, requestID string) {
	c.send(ctx, ServerMessage{Type: MsgCode, RequestID: requestID, Data: CodeData{Source: c.sess.Source()}})
}

func (c *conn) sendPreview(ctx context.Context, requestID string) {
	out, err := c.sess.Preview().HTML()
	if err != nil {
		c.sendError(ctx, requestID, "render_failed", err.Error())
		return
	}
	c.send(ctx, ServerMessage{Type: MsgPreviewHTML, RequestID: requestID, Data: PreviewHTMLData{HTML: out}})
}

func (c *conn) send(ctx context.Context, msg ServerMessage) {
	if err := wsjson.Write(ctx, c.ws, msg); err != nil {
		c.h.log.Debug("wire: write error", "session_id", c.sess.ID, "error", err)
	}
}

func (c *conn) sendError(ctx context.Context, requestID, code, message string) {
	c.send(ctx, ServerMessage{
		Type:      MsgError,
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}

// connUI forwards action effects to the client that ran them.
type connUI struct {
	c         *conn
	requestID string
}

func (u *connUI) Notify(ctx context.Context, n action.Notification) {
	u.c.send(ctx, ServerMessage{Type: MsgNotification, RequestID: u.requestID, Data: n})
}

func (u *connUI) OpenModal(ctx context.Context, id string, data any) {
	u.c.send(ctx, ServerMessage{Type: MsgModalOpen, RequestID: u.requestID, Data: ModalOpenData{ModalID: id, Data: data}})
}

func (u *connUI) Navigate(ctx context.Context, nav action.Navigation) {
	u.c.send(ctx, ServerMessage{Type: MsgNavigate, RequestID: u.requestID, Data: nav})
}

func (u *connUI) RefreshTable(ctx context.Context, id string, params map[string]any) {
	u.c.send(ctx, ServerMessage{Type: MsgTableRefresh, RequestID: u.requestID, Data: TableRefreshData{TableID: id, Params: params}})
}
