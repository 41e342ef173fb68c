package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plantops/engine/internal/api/middleware"
	"github.com/plantops/engine/internal/api/types"
	"github.com/plantops/engine/internal/services"
)

type FoldersHandler struct {
	svc services.DiagramService
}

func NewFoldersHandler(svc services.DiagramService) *FoldersHandler {
	return &FoldersHandler{svc: svc}
}

// List returns every folder with the names of its diagrams.
func (h *FoldersHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListFolders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items, Meta: &types.Meta{RequestID: middleware.GetRequestID(r.Context()), Total: int64(len(items))}})
}

func (h *FoldersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.FolderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := h.svc.CreateFolder(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, f)
}

func (h *FoldersHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req types.FolderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.RenameFolder(r.Context(), id, req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]string{"id": id, "name": req.Name})
}

// Delete removes the folder and all of its diagrams.
func (h *FoldersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFolder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateDiagram stores a new empty diagram in the folder.
func (h *FoldersHandler) CreateDiagram(w http.ResponseWriter, r *http.Request) {
	var req types.DiagramCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.svc.CreateDiagram(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, rec)
}
