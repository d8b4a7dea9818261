package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cdrslab/fundam-builder/internal/codegen"
	"github.com/cdrslab/fundam-builder/internal/idgen"
	"github.com/cdrslab/fundam-builder/internal/page"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// PageHandler implements HTTP handlers for saved pages.
type PageHandler struct {
	pages page.Store
	reg   *registry.Registry
	gen   *codegen.Generator
	newID idgen.Generator
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(pages page.Store, reg *registry.Registry, gen *codegen.Generator, newID idgen.Generator) *PageHandler {
	if newID == nil {
		newID = idgen.Page
	}
	return &PageHandler{pages: pages, reg: reg, gen: gen, newID: newID}
}

type savePageRequest struct {
	Name     string              `json:"name"`
	Document *types.PageDocument `json:"document,omitempty"`
}

// validate checks that doc imports cleanly and returns it re-exported in
// the current format version.
func (h *PageHandler) validate(doc *types.PageDocument) (types.PageDocument, error) {
	if doc == nil {
		return page.Export(nil), nil
	}
	nodes, err := page.Import(*doc, h.reg)
	if err != nil {
		return types.PageDocument{}, err
	}
	return page.Export(nodes), nil
}

func (h *PageHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req savePageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}
	doc, err := h.validate(req.Document)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	p := &page.Page{ID: h.newID(), Name: req.Name, Document: doc}
	if err := h.pages.Save(r.Context(), p); err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	p, err := h.pages.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PageHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	list, err := h.pages.List(r.Context(), page.ListOptions{
		Query: r.URL.Query().Get("q"),
		Limit: parseLimit(r),
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if list == nil {
		list = []page.Page{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PageHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	var req savePageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	p, err := h.pages.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Document != nil {
		doc, err := h.validate(req.Document)
		if err != nil {
			errorToHTTP(w, err)
			return
		}
		p.Document = doc
	}
	if err := h.pages.Save(r.Context(), p); err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PageHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.pages.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		errorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportPage downloads the page document as JSON or YAML.
func (h *PageHandler) ExportPage(w http.ResponseWriter, r *http.Request) {
	f, ok := formatParam(w, r)
	if !ok {
		return
	}
	p, err := h.pages.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	var buf bytes.Buffer
	if err := page.Encode(&buf, p.Document, f); err != nil {
		errorToHTTP(w, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", p.ID+"."+string(f)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ImportPage creates a page from an uploaded document. The page name comes
// from the name query parameter.
func (h *PageHandler) ImportPage(w http.ResponseWriter, r *http.Request) {
	f, ok := formatParam(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "Imported page"
	}
	defer r.Body.Close()
	doc, err := page.Decode(r.Body, f)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	clean, err := h.validate(&doc)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	p := &page.Page{ID: h.newID(), Name: name, Document: clean}
	if err := h.pages.Save(r.Context(), p); err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// PageSource returns the generated source of a saved page.
func (h *PageHandler) PageSource(w http.ResponseWriter, r *http.Request) {
	p, err := h.pages.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	nodes, err := page.Import(p.Document, h.reg)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.gen.Generate(nodes)))
}
