// Package wire defines the WebSocket protocol for live page editing.
package wire

import (
	"encoding/json"

	"github.com/cdrslab/fundam-builder/internal/action"
	"github.com/cdrslab/fundam-builder/internal/autocomplete"
	"github.com/cdrslab/fundam-builder/internal/codesync"
	"github.com/cdrslab/fundam-builder/internal/placement"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"` // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// Client message types.
const (
	MsgDragStart     = "drag_start"
	MsgHover         = "hover"
	MsgLeave         = "leave"
	MsgDrop          = "drop"
	MsgDragEnd       = "drag_end"
	MsgAdd           = "add"
	MsgMove          = "move"
	MsgSelect        = "select"
	MsgUpdateProps   = "update_props"
	MsgRename        = "rename"
	MsgRemove        = "remove"
	MsgSetMode       = "set_mode"
	MsgSetSource     = "set_source"
	MsgComplete      = "complete"
	MsgPropertyForm  = "property_form"
	MsgPreview       = "preview"
	MsgRunActions    = "run_actions"
	MsgSetFormValues = "set_form_values"
	MsgCloseModal    = "close_modal"
	MsgPing          = "ping"
)

// Rect is an element's bounding box in canvas pixels.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Point is a pointer position in canvas pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PointerData is the payload for "hover" and "drop". An empty TargetID on
// drop means the canvas background.
type PointerData struct {
	TargetID string `json:"targetId"`
	Box      Rect   `json:"box"`
	Point    Point  `json:"point"`
}

// AddData is the payload for "add".
type AddData struct {
	Type     string              `json:"type"`
	Props    map[string]any      `json:"props,omitempty"`
	Position *types.DropPosition `json:"position,omitempty"`
}

// MoveData is the payload for "move".
type MoveData struct {
	NodeID   string              `json:"nodeId"`
	Position *types.DropPosition `json:"position,omitempty"`
}

// NodeData is the payload for messages naming one node.
type NodeData struct {
	NodeID string `json:"nodeId"`
}

// UpdatePropsData is the payload for "update_props".
type UpdatePropsData struct {
	NodeID string         `json:"nodeId"`
	Props  map[string]any `json:"props"`
}

// RenameData is the payload for "rename".
type RenameData struct {
	NodeID string `json:"nodeId"`
	Name   string `json:"name"`
}

// ModeData is the payload for "set_mode".
type ModeData struct {
	Mode string `json:"mode"`
}

// SourceData is the payload for "set_source".
type SourceData struct {
	Source string `json:"source"`
}

// CompleteData is the payload for "complete".
type CompleteData struct {
	Source string `json:"source"`
	Cursor int    `json:"cursor"`
}

// PreviewData is the payload for "preview".
type PreviewData struct {
	ShowHidden bool `json:"showHidden"`
}

// RunActionsData is the payload for "run_actions". Without actions the
// actions configured on the node are run.
type RunActionsData struct {
	NodeID  string               `json:"nodeId"`
	Actions []types.ButtonAction `json:"actions,omitempty"`
}

// FormValuesData is the payload for "set_form_values".
type FormValuesData struct {
	FormID string         `json:"formId"`
	Values map[string]any `json:"values"`
}

// ModalData is the payload for "close_modal".
type ModalData struct {
	ModalID string `json:"modalId"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// Server message types.
const (
	MsgSession      = "session"
	MsgTree         = "tree"
	MsgCode         = "code"
	MsgDiagnostics  = "diagnostics"
	MsgIndicator    = "indicator"
	MsgCompletions  = "completions"
	MsgForm         = "form"
	MsgPreviewHTML  = "preview_html"
	MsgOutcomes     = "outcomes"
	MsgNotification = "notification"
	MsgModalOpen    = "modal_open"
	MsgNavigate     = "navigate"
	MsgTableRefresh = "table_refresh"
	MsgError        = "error"
	MsgPong         = "pong"
)

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
	PageID    string `json:"page_id,omitempty"`
	Mode      string `json:"mode"`
}

// TreeData carries the whole tree after a change.
type TreeData struct {
	Nodes    []types.ComponentNode `json:"nodes"`
	Selected string                `json:"selected,omitempty"`
	Version  uint64                `json:"version"`
}

// CodeData carries the source text of the page.
type CodeData struct {
	Source string `json:"source"`
}

// DiagnosticsData carries problems found in the source text.
type DiagnosticsData struct {
	Items []codesync.Diagnostic `json:"items"`
}

// IndicatorData carries the drop indicator; nil hides it.
type IndicatorData struct {
	Indicator *placement.Indicator `json:"indicator"`
}

// CompletionsData carries autocomplete suggestions.
type CompletionsData struct {
	Items []autocomplete.CompletionItem `json:"items"`
}

// PreviewHTMLData carries the rendered preview.
type PreviewHTMLData struct {
	HTML string `json:"html"`
}

// OutcomesData reports what a run_actions request did.
type OutcomesData struct {
	Outcomes []action.Outcome `json:"outcomes"`
}

// ModalOpenData asks the client to open a modal.
type ModalOpenData struct {
	ModalID string `json:"modalId"`
	Data    any    `json:"data,omitempty"`
}

// TableRefreshData asks the client to reload a table.
type TableRefreshData struct {
	TableID string         `json:"tableId"`
	Params  map[string]any `json:"params,omitempty"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
