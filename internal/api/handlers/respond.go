package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/plantops/engine/internal/api/middleware"
	"github.com/plantops/engine/internal/api/types"
	"github.com/plantops/engine/internal/api/validators"
	"github.com/plantops/engine/internal/editor"
	"github.com/plantops/engine/internal/logic"
	"github.com/plantops/engine/internal/simulation"
	appErr "github.com/plantops/engine/pkg/errors"
	"github.com/plantops/engine/pkg/logger"
	"go.uber.org/zap"
)

const maxBody = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{
		Success: true,
		Data:    data,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	err = classify(err)
	code := appErr.CodeOf(err)
	status := appErr.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed", zap.String("id", middleware.GetRequestID(r.Context())), zap.Error(err))
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   types.FromAppError(err),
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

// classify maps domain errors onto application codes.
func classify(err error) error {
	var ae *appErr.AppError
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, editor.ErrForbidden):
		return appErr.Wrap(err, appErr.CodeForbidden, "role may not edit diagrams")
	case errors.Is(err, editor.ErrNotEditing), errors.Is(err, simulation.ErrNoDiagram):
		return appErr.Wrap(err, appErr.CodeConflict, "diagram is not open for editing")
	case errors.Is(err, editor.ErrPortInUse), errors.Is(err, logic.ErrDuplicateID):
		return appErr.Wrap(err, appErr.CodeConflict, "already exists")
	case errors.Is(err, simulation.ErrSessionNotFound), errors.Is(err, simulation.ErrClosed):
		return appErr.Wrap(err, appErr.CodeNotFound, "session not found")
	case errors.Is(err, logic.ErrNodeNotFound), errors.Is(err, logic.ErrEdgeNotFound):
		return appErr.Wrap(err, appErr.CodeNotFound, "element not found")
	case errors.Is(err, editor.ErrUnknownKind), errors.Is(err, editor.ErrInvalidPort),
		errors.Is(err, editor.ErrNoOutput), errors.Is(err, editor.ErrNotConfigurable),
		errors.Is(err, editor.ErrNotInput), errors.Is(err, logic.ErrDanglingEdge):
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid edit")
	}
	return appErr.Wrap(err, appErr.CodeInternal, "internal error")
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(dst); err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid json")
	}
	if err := validators.New().Struct(dst); err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "validation failed")
	}
	return nil
}
