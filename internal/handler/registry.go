package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cdrslab/fundam-builder/internal/registry"
)

// RegistryHandler serves the component catalog to the palette and the
// property editor.
type RegistryHandler struct {
	reg *registry.Registry
}

// NewRegistryHandler creates a new RegistryHandler.
func NewRegistryHandler(reg *registry.Registry) *RegistryHandler {
	return &RegistryHandler{reg: reg}
}

func (h *RegistryHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.All())
}

func (h *RegistryHandler) GetComponent(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	def, ok := h.reg.Lookup(typ)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown component type: "+typ)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (h *RegistryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.Categories())
}

func (h *RegistryHandler) ListActionSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.ActionSchemas())
}
