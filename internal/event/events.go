// Package event defines builder events: what happened in a session, to
// which nodes, at which tree version.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeSessionOpened = "session_opened"
	TypeSessionClosed = "session_closed"
	TypeTreeChanged   = "tree_changed"
	TypeSourceParsed  = "source_parsed"
	TypeActionsRun    = "actions_run"
	TypePageSaved     = "page_saved"
)

// DomainEvent carries the canonical shape of every builder event.
type DomainEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	SessionID  string          `json:"sessionId,omitempty"`
	PageID     string          `json:"pageId,omitempty"`
	NodeIDs    []string        `json:"nodeIds,omitempty"`
	Version    uint64          `json:"version,omitempty"` // tree version after the change
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// Scope identifies the session an event belongs to.
type Scope struct {
	SessionID string
	PageID    string
}

func (s Scope) event(typ, summary string) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  typ,
		OccurredAt: time.Now(),
		SessionID:  s.SessionID,
		PageID:     s.PageID,
		Summary:    summary,
	}
}

// ── Session events ───────────────────────────────────────────────────────────

func NewSessionOpened(s Scope, mode string) DomainEvent {
	e := s.event(TypeSessionOpened, fmt.Sprintf("Session opened in %s mode", mode))
	e.Payload = mustJSON(map[string]string{"mode": mode})
	return e
}

func NewSessionClosed(s Scope, reason string) DomainEvent {
	e := s.event(TypeSessionClosed, "Session closed: "+reason)
	e.Payload = mustJSON(map[string]string{"reason": reason})
	return e
}

// ── Tree events ──────────────────────────────────────────────────────────────

// TreeChangedPayload carries the mutation that was applied.
type TreeChangedPayload struct {
	Op       string `json:"op"`
	Selected string `json:"selected,omitempty"`
	Nodes    int    `json:"nodes"`
}

func NewTreeChanged(s Scope, p TreeChangedPayload, nodeIDs []string, version uint64) DomainEvent {
	e := s.event(TypeTreeChanged, treeSummary(p.Op, nodeIDs))
	e.NodeIDs = nodeIDs
	e.Version = version
	e.Payload = mustJSON(p)
	return e
}

func treeSummary(op string, ids []string) string {
	switch len(ids) {
	case 0:
		return "Tree " + op
	case 1:
		return fmt.Sprintf("Tree %s %s", op, ids[0])
	}
	return fmt.Sprintf("Tree %s %d nodes", op, len(ids))
}

// SourceParsedPayload summarises one code-mode parse.
type SourceParsedPayload struct {
	Nodes    int `json:"nodes"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

func NewSourceParsed(s Scope, p SourceParsedPayload) DomainEvent {
	e := s.event(TypeSourceParsed, fmt.Sprintf("Source parsed into %d nodes with %d errors", p.Nodes, p.Errors))
	e.Payload = mustJSON(p)
	return e
}

// ── Action events ────────────────────────────────────────────────────────────

// ActionsRunPayload summarises one action list execution.
type ActionsRunPayload struct {
	From   string   `json:"from,omitempty"`
	Ran    int      `json:"ran"`
	Failed []string `json:"failed,omitempty"` // ids of failed actions
}

func NewActionsRun(s Scope, p ActionsRunPayload) DomainEvent {
	e := s.event(TypeActionsRun, fmt.Sprintf("Ran %d actions, %d failed", p.Ran, len(p.Failed)))
	if p.From != "" {
		e.NodeIDs = []string{p.From}
	}
	e.Payload = mustJSON(p)
	return e
}

// ── Page events ──────────────────────────────────────────────────────────────

// PageSavedPayload describes a persisted page.
type PageSavedPayload struct {
	Name       string `json:"name"`
	Components int    `json:"components"`
}

func NewPageSaved(s Scope, p PageSavedPayload) DomainEvent {
	e := s.event(TypePageSaved, fmt.Sprintf("Page %q saved with %d components", p.Name, p.Components))
	e.Payload = mustJSON(p)
	return e
}
