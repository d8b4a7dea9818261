package handler

import (
	"bytes"
	"net/http"

	"github.com/cdrslab/fundam-builder/internal/autocomplete"
	"github.com/cdrslab/fundam-builder/internal/codegen"
	"github.com/cdrslab/fundam-builder/internal/codesync"
	"github.com/cdrslab/fundam-builder/internal/page"
	"github.com/cdrslab/fundam-builder/internal/preview"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// BuilderHandler exposes the stateless conversions between component
// trees, source text, page documents and preview HTML.
type BuilderHandler struct {
	reg      *registry.Registry
	gen      *codegen.Generator
	parser   *codesync.Parser
	renderer *preview.Renderer
	ac       *autocomplete.Engine
}

// NewBuilderHandler creates a new BuilderHandler.
func NewBuilderHandler(reg *registry.Registry, gen *codegen.Generator, parser *codesync.Parser, renderer *preview.Renderer) *BuilderHandler {
	return &BuilderHandler{
		reg:      reg,
		gen:      gen,
		parser:   parser,
		renderer: renderer,
		ac:       autocomplete.New(reg),
	}
}

type nodesRequest struct {
	Nodes []types.ComponentNode `json:"nodes"`
}

type generateResponse struct {
	Source  string   `json:"source"`
	Imports []string `json:"imports"`
	Modules []string `json:"modules"`
}

func (h *BuilderHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req nodesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Source:  h.gen.Generate(req.Nodes),
		Imports: h.gen.Imports(req.Nodes),
		Modules: h.modules(req.Nodes),
	})
}

// modules lists the packages the page depends on, never nil.
func (h *BuilderHandler) modules(nodes []types.ComponentNode) []string {
	typs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		typs = append(typs, n.Type)
	}
	if mods := h.reg.Modules(typs); mods != nil {
		return mods
	}
	return []string{}
}

type parseRequest struct {
	Source string `json:"source"`
	// Previous, when set, is reconciled with the parsed tree so unchanged
	// nodes keep their ids.
	Previous []types.ComponentNode `json:"previous,omitempty"`
}

func (h *BuilderHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	res := h.parser.Parse(req.Source)
	if len(req.Previous) > 0 {
		res.Nodes = codesync.Reconcile(req.Previous, res.Nodes)
	}
	if res.Diagnostics == nil {
		res.Diagnostics = []codesync.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, res)
}

type previewRequest struct {
	Nodes      []types.ComponentNode `json:"nodes"`
	OpenModals []string              `json:"openModals,omitempty"`
	ShowHidden bool                  `json:"showHidden,omitempty"`
}

func (h *BuilderHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	st := preview.State{OpenModals: make(map[string]bool), ShowHidden: req.ShowHidden}
	for _, id := range req.OpenModals {
		st.OpenModals[id] = true
	}
	out, err := h.renderer.HTML(req.Nodes, st)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(out))
}

type completeRequest struct {
	Source string `json:"source"`
	Cursor int    `json:"cursor"`
}

func (h *BuilderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	items := h.ac.Complete(req.Source, req.Cursor)
	if items == nil {
		items = []autocomplete.CompletionItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Export encodes a tree as a page document. The format query parameter
// picks json (default) or yaml.
func (h *BuilderHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, ok := formatParam(w, r)
	if !ok {
		return
	}
	var req nodesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	var buf bytes.Buffer
	if err := page.Encode(&buf, page.Export(req.Nodes), f); err != nil {
		errorToHTTP(w, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Import decodes a page document body into component nodes.
func (h *BuilderHandler) Import(w http.ResponseWriter, r *http.Request) {
	f, ok := formatParam(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()
	doc, err := page.Decode(r.Body, f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DOCUMENT", err.Error())
		return
	}
	nodes, err := page.Import(doc, h.reg)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodesRequest{Nodes: nodes})
}

func formatParam(w http.ResponseWriter, r *http.Request) (page.Format, bool) {
	v := r.URL.Query().Get("format")
	if v == "" {
		return page.FormatJSON, true
	}
	f, err := page.ParseFormat(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
		return "", false
	}
	return f, true
}
