package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plantops/engine/internal/api/middleware"
	"github.com/plantops/engine/internal/api/types"
	"github.com/plantops/engine/internal/editor"
	"github.com/plantops/engine/internal/logic"
	"github.com/plantops/engine/internal/services"
	"github.com/plantops/engine/internal/simulation"
	appErr "github.com/plantops/engine/pkg/errors"
)

// SessionsHandler exposes live sessions: lifecycle, diagram load and save,
// the run switch, and editor gestures.
type SessionsHandler struct {
	sessions *simulation.Registry
	diagrams services.DiagramService
	editor   *editor.Editor
}

func NewSessionsHandler(reg *simulation.Registry, diagrams services.DiagramService, ed *editor.Editor) *SessionsHandler {
	return &SessionsHandler{sessions: reg, diagrams: diagrams, editor: ed}
}

func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) (*simulation.Session, bool) {
	s, err := h.sessions.Owned(chi.URLParam(r, "sessionID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return s, true
}

// Create opens a session carrying the caller's role and bound to the
// caller's subject.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.sessions.Create(middleware.GetRole(ctx), middleware.GetUserID(ctx))
	writeData(w, r, http.StatusCreated, s.Snapshot())
}

func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeData(w, r, http.StatusOK, s.Snapshot())
}

func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Close(s.ID()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Load replaces the working copy with a stored diagram.
func (h *SessionsHandler) Load(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := h.diagrams.Load(r.Context(), s, chi.URLParam(r, "diagramID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, snap)
}

func (h *SessionsHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req types.SessionSaveRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	ref, err := h.diagrams.Save(r.Context(), s, services.SaveOptions{Name: req.Name, FolderID: req.FolderID, AsNew: req.AsNew})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, ref)
}

func (h *SessionsHandler) Start(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Start(s); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, s.Snapshot())
}

// Stop halts the simulation and de-energizes the diagram.
func (h *SessionsHandler) Stop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Stop()
	writeData(w, r, http.StatusOK, s.Snapshot())
}

func (h *SessionsHandler) EditMode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req types.EditModeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.editor.SetEditMode(s, req.On); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, s.Snapshot())
}

func (h *SessionsHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req types.NodeCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.editor.AddNode(s, editor.NewNode{Type: req.Type, Position: req.Position, InputCount: req.InputCount})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, n)
}

func (h *SessionsHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.editor.RemoveNode(s, chi.URLParam(r, "nodeID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req types.PositionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.editor.MoveNode(s, chi.URLParam(r, "nodeID"), req.Position); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) Configure(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req types.ConfigRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.editor.Configure(s, chi.URLParam(r, "nodeID"), req.Fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, n)
}

// Force drives an input node: "on" for digital inputs, "value" for analog.
func (h *SessionsHandler) Force(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req types.ForceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "nodeID")
	var err error
	switch {
	case req.On != nil:
		err = h.editor.ForceDigital(s, id, *req.On)
	case req.Value != nil:
		err = h.editor.ForceAnalog(s, id, *req.Value)
	default:
		err = appErr.New(appErr.CodeInvalid, "either on or value is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) Connect(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req types.EdgeCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.editor.Connect(s, logic.Edge{
		ID:           req.ID,
		Source:       req.Source,
		Target:       req.Target,
		SourceHandle: req.SourceHandle,
		TargetHandle: req.TargetHandle,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, e)
}

func (h *SessionsHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.editor.Disconnect(s, chi.URLParam(r, "edgeID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
