package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plantops/engine/internal/api/types"
	"github.com/plantops/engine/internal/services"
)

type DiagramsHandler struct {
	svc services.DiagramService
}

func NewDiagramsHandler(svc services.DiagramService) *DiagramsHandler {
	return &DiagramsHandler{svc: svc}
}

func (h *DiagramsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetDiagram(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, rec)
}

// Save stores a diagram document directly: an id updates, no id creates.
func (h *DiagramsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req types.DiagramSaveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.svc.SaveDiagram(r.Context(), services.DiagramRecord{
		ID: req.ID, FolderID: req.FolderID, Name: req.Name, Data: req.Data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	writeData(w, r, status, map[string]string{"id": id})
}

func (h *DiagramsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDiagram(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
