package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cdrslab/fundam-builder/internal/codesync"
	"github.com/cdrslab/fundam-builder/internal/event"
	"github.com/cdrslab/fundam-builder/internal/page"
	"github.com/cdrslab/fundam-builder/internal/session"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// SessionHandler implements HTTP handlers for builder sessions. Editing
// itself happens over the WebSocket protocol.
type SessionHandler struct {
	sessions *session.Manager
	pages    page.Store
	journal  *event.Journal
}

// NewSessionHandler creates a new SessionHandler. journal may be nil.
func NewSessionHandler(sessions *session.Manager, pages page.Store, journal *event.Journal) *SessionHandler {
	return &SessionHandler{sessions: sessions, pages: pages, journal: journal}
}

type createSessionRequest struct {
	PageID string       `json:"pageId,omitempty"`
	Name   string       `json:"name,omitempty"`
	Mode   session.Mode `json:"mode,omitempty"`
}

type sessionResponse struct {
	session.Info
	Nodes       []types.ComponentNode `json:"nodes"`
	Selected    string                `json:"selected,omitempty"`
	Source      string                `json:"source"`
	Diagnostics []codesync.Diagnostic `json:"diagnostics"`
}

func toSessionResponse(s *session.Session) sessionResponse {
	d := s.Diagnostics()
	if d == nil {
		d = []codesync.Diagnostic{}
	}
	return sessionResponse{
		Info:        s.Info(),
		Nodes:       s.Store().Nodes(),
		Selected:    s.Store().Selected(),
		Source:      s.Source(),
		Diagnostics: d,
	}
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
	}
	switch req.Mode {
	case "", session.ModeCanvas, session.ModeCode:
	default:
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "mode must be canvas or code")
		return
	}

	var s *session.Session
	if req.PageID != "" {
		if h.pages == nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "pages are not stored")
			return
		}
		var err error
		if s, err = h.sessions.Open(r.Context(), h.pages, req.PageID); err != nil {
			errorToHTTP(w, err)
			return
		}
		if req.Mode != "" {
			if err := s.SetMode(req.Mode); err != nil {
				writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
		}
	} else {
		s = h.sessions.Create(session.CreateOptions{Name: req.Name, Mode: req.Mode})
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(s))
}

func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.List())
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents returns the session's recent builder events, newest first.
func (h *SessionHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.journal == nil {
		writeJSON(w, http.StatusOK, []event.DomainEvent{})
		return
	}
	evs := h.journal.Events(id, parseLimit(r))
	if evs == nil {
		evs = []event.DomainEvent{}
	}
	writeJSON(w, http.StatusOK, evs)
}

// SaveSession writes the session's tree to its page immediately.
func (h *SessionHandler) SaveSession(w http.ResponseWriter, r *http.Request) {
	p, _, ok := h.sessions.Snapshot(chi.URLParam(r, "id"))
	if !ok || h.pages == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no session with a page")
		return
	}
	if err := h.pages.Save(r.Context(), &p); err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s := h.sessions.Get(chi.URLParam(r, "id"))
	if s == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return nil, false
	}
	return s, true
}
