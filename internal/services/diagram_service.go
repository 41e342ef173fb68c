package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/plantops/engine/internal/logic"
	"github.com/plantops/engine/internal/simulation"
	appErr "github.com/plantops/engine/pkg/errors"
	"github.com/plantops/engine/pkg/logger"
)

// Detacher drops deleted diagrams from the live sessions working on them.
type Detacher interface {
	DetachDiagram(diagramID string) int
	DetachFolder(folderID string) int
}

// SaveOptions adjusts a save from a session. Blank fields keep the
// session's current values; AsNew stores a new diagram instead of
// overwriting the loaded one.
type SaveOptions struct {
	Name     string `json:"name"`
	FolderID string `json:"folderId"`
	AsNew    bool   `json:"asNew"`
}

// DiagramService manages folders and diagrams and moves diagrams between
// storage and live sessions.
type DiagramService interface {
	ListFolders(ctx context.Context) ([]FolderSummary, error)
	CreateFolder(ctx context.Context, name string) (FolderSummary, error)
	RenameFolder(ctx context.Context, id, name string) error
	DeleteFolder(ctx context.Context, id string) error

	// CreateDiagram stores an empty diagram under the folder right away.
	CreateDiagram(ctx context.Context, folderID, name string) (DiagramRecord, error)
	GetDiagram(ctx context.Context, id string) (DiagramRecord, error)
	SaveDiagram(ctx context.Context, rec DiagramRecord) (string, error)
	DeleteDiagram(ctx context.Context, id string) error

	Load(ctx context.Context, s *simulation.Session, diagramID string) (simulation.Snapshot, error)
	Save(ctx context.Context, s *simulation.Session, opts SaveOptions) (simulation.DiagramRef, error)
}

type diagramService struct {
	gw       Gateway
	sessions Detacher
}

// NewDiagramService wires the gateway to the live sessions.
func NewDiagramService(gw Gateway, sessions Detacher) DiagramService {
	return &diagramService{gw: gw, sessions: sessions}
}

// Ensure interfaces are satisfied at compile time
var _ DiagramService = (*diagramService)(nil)

func (s *diagramService) ListFolders(ctx context.Context) ([]FolderSummary, error) {
	return s.gw.ListFolders(ctx)
}

func (s *diagramService) CreateFolder(ctx context.Context, name string) (FolderSummary, error) {
	return s.gw.CreateFolder(ctx, name)
}

func (s *diagramService) RenameFolder(ctx context.Context, id, name string) error {
	return s.gw.RenameFolder(ctx, id, name)
}

func (s *diagramService) DeleteFolder(ctx context.Context, id string) error {
	if err := s.gw.DeleteFolder(ctx, id); err != nil {
		return err
	}
	if n := s.sessions.DetachFolder(id); n > 0 {
		logger.L().Info("sessions detached from deleted folder", zap.String("folder_id", id), zap.Int("sessions", n))
	}
	return nil
}

func (s *diagramService) CreateDiagram(ctx context.Context, folderID, name string) (DiagramRecord, error) {
	if strings.TrimSpace(folderID) == "" {
		return DiagramRecord{}, appErr.New(appErr.CodeInvalid, "folder id is required")
	}
	rec := DiagramRecord{
		FolderID: folderID,
		Name:     strings.TrimSpace(name),
		Data:     logic.Document{Nodes: []logic.Node{}, Edges: []logic.Edge{}},
	}
	id, err := s.gw.SaveDiagram(ctx, rec)
	if err != nil {
		return DiagramRecord{}, err
	}
	rec.ID = id
	return rec, nil
}

func (s *diagramService) GetDiagram(ctx context.Context, id string) (DiagramRecord, error) {
	return s.gw.LoadDiagram(ctx, id)
}

func (s *diagramService) SaveDiagram(ctx context.Context, rec DiagramRecord) (string, error) {
	return s.gw.SaveDiagram(ctx, rec)
}

func (s *diagramService) DeleteDiagram(ctx context.Context, id string) error {
	if err := s.gw.DeleteDiagram(ctx, id); err != nil {
		return err
	}
	if n := s.sessions.DetachDiagram(id); n > 0 {
		logger.L().Info("sessions detached from deleted diagram", zap.String("diagram_id", id), zap.Int("sessions", n))
	}
	return nil
}

// Load fetches a diagram and makes it the session's working copy. The
// session is left untouched when the fetch fails.
func (s *diagramService) Load(ctx context.Context, sess *simulation.Session, diagramID string) (simulation.Snapshot, error) {
	rec, err := s.gw.LoadDiagram(ctx, diagramID)
	if err != nil {
		return simulation.Snapshot{}, err
	}
	sess.Load(simulation.DiagramRef{ID: rec.ID, FolderID: rec.FolderID, Name: rec.Name}, rec.Data)
	return sess.Snapshot(), nil
}

// Save writes the session's working copy and records it as saved. The
// session only learns the new identity once the gateway confirmed it.
func (s *diagramService) Save(ctx context.Context, sess *simulation.Session, opts SaveOptions) (simulation.DiagramRef, error) {
	ref, doc, err := sess.Diagram()
	if err != nil {
		return simulation.DiagramRef{}, appErr.Wrap(err, appErr.CodeConflict, "no diagram loaded")
	}
	if opts.Name != "" {
		ref.Name = strings.TrimSpace(opts.Name)
	}
	if opts.FolderID != "" {
		ref.FolderID = opts.FolderID
	}
	if opts.AsNew {
		ref.ID = ""
	}

	id, err := s.gw.SaveDiagram(ctx, DiagramRecord{ID: ref.ID, FolderID: ref.FolderID, Name: ref.Name, Data: doc})
	if err != nil {
		return simulation.DiagramRef{}, err
	}
	ref.ID = id
	sess.MarkSaved(ref, doc)
	return ref, nil
}
