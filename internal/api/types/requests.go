package types

import "github.com/plantops/engine/internal/logic"

type FolderRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type DiagramCreateRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// DiagramSaveRequest stores a diagram directly, without a session. An id
// updates, no id creates.
type DiagramSaveRequest struct {
	ID       string         `json:"id" validate:"omitempty,uuid"`
	FolderID string         `json:"folderId" validate:"omitempty,uuid"`
	Name     string         `json:"name" validate:"required,max=200"`
	Data     logic.Document `json:"data"`
}

type SessionSaveRequest struct {
	Name     string `json:"name" validate:"omitempty,max=200"`
	FolderID string `json:"folderId" validate:"omitempty,uuid"`
	AsNew    bool   `json:"asNew"`
}

type EditModeRequest struct {
	On bool `json:"on"`
}

type NodeCreateRequest struct {
	Type       logic.Kind     `json:"type" validate:"required"`
	Position   logic.Position `json:"position"`
	InputCount int            `json:"inputCount" validate:"gte=0"`
}

type PositionRequest struct {
	Position logic.Position `json:"position"`
}

// ConfigRequest carries raw field text as typed by the operator; numeric
// fields are coerced server side.
type ConfigRequest struct {
	Fields map[string]string `json:"fields" validate:"required,min=1"`
}

// ForceRequest sets a digital input (On) or an analog input (Value).
type ForceRequest struct {
	On    *bool         `json:"on"`
	Value *logic.Number `json:"value"`
}

type EdgeCreateRequest struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
}
