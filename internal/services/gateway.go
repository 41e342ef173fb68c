package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/plantops/engine/internal/logic"
	"github.com/plantops/engine/internal/models"
	"github.com/plantops/engine/internal/repository"
	appErr "github.com/plantops/engine/pkg/errors"
	"github.com/plantops/engine/pkg/logger"
)

// Gateway persists folders and diagrams.
type Gateway interface {
	ListFolders(ctx context.Context) ([]FolderSummary, error)
	CreateFolder(ctx context.Context, name string) (FolderSummary, error)
	RenameFolder(ctx context.Context, id, name string) error
	// DeleteFolder deletes the folder and every diagram in it.
	DeleteFolder(ctx context.Context, id string) error

	// SaveDiagram updates the diagram when rec.ID is set and creates it
	// otherwise. It returns the diagram's id.
	SaveDiagram(ctx context.Context, rec DiagramRecord) (string, error)
	LoadDiagram(ctx context.Context, id string) (DiagramRecord, error)
	DeleteDiagram(ctx context.Context, id string) error
}

type DiagramSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FolderSummary struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Diagrams []DiagramSummary `json:"diagrams"`
}

// DiagramRecord is a diagram as the gateway exchanges it.
type DiagramRecord struct {
	ID       string         `json:"id,omitempty"`
	FolderID string         `json:"folderId"`
	Name     string         `json:"name"`
	Data     logic.Document `json:"data"`
}

type gormGateway struct {
	db *gorm.DB
}

// NewGormGateway returns a Gateway backed by db.
func NewGormGateway(db *gorm.DB) Gateway {
	return &gormGateway{db: db}
}

// Ensure interfaces are satisfied at compile time
var _ Gateway = (*gormGateway)(nil)

func parseID(kind, id string) (uuid.UUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid "+kind+" id").WithMeta("id", id)
	}
	return u, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", appErr.New(appErr.CodeInvalid, "name is required")
	}
	if len(name) > 200 {
		return "", appErr.New(appErr.CodeInvalid, "name is too long")
	}
	return name, nil
}

func (g *gormGateway) ListFolders(ctx context.Context) ([]FolderSummary, error) {
	folders, err := repository.NewFolderRepository(g.db).ListWithDiagrams(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]FolderSummary, 0, len(folders))
	for _, f := range folders {
		fs := FolderSummary{ID: f.ID.String(), Name: f.Name, Diagrams: make([]DiagramSummary, 0, len(f.Diagrams))}
		for _, d := range f.Diagrams {
			fs.Diagrams = append(fs.Diagrams, DiagramSummary{ID: d.ID.String(), Name: d.Name})
		}
		out = append(out, fs)
	}
	return out, nil
}

func (g *gormGateway) CreateFolder(ctx context.Context, name string) (FolderSummary, error) {
	name, err := cleanName(name)
	if err != nil {
		return FolderSummary{}, err
	}
	f := &models.Folder{Name: name}
	if err := repository.NewFolderRepository(g.db).Create(ctx, f); err != nil {
		return FolderSummary{}, err
	}
	logger.L().Info("folder created", zap.String("folder_id", f.ID.String()), zap.String("name", name))
	return FolderSummary{ID: f.ID.String(), Name: f.Name, Diagrams: []DiagramSummary{}}, nil
}

func (g *gormGateway) RenameFolder(ctx context.Context, id, name string) error {
	fid, err := parseID("folder", id)
	if err != nil {
		return err
	}
	if name, err = cleanName(name); err != nil {
		return err
	}
	return repository.NewFolderRepository(g.db).Rename(ctx, fid, name)
}

func (g *gormGateway) DeleteFolder(ctx context.Context, id string) error {
	fid, err := parseID("folder", id)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repository.NewDiagramRepository(tx).DeleteByFolder(ctx, fid)
		if err != nil {
			return err
		}
		if err := repository.NewFolderRepository(tx).Delete(ctx, fid); err != nil {
			return err
		}
		logger.L().Info("folder deleted", zap.String("folder_id", id), zap.Int64("diagrams", n))
		return nil
	})
}

func (g *gormGateway) SaveDiagram(ctx context.Context, rec DiagramRecord) (string, error) {
	name, err := cleanName(rec.Name)
	if err != nil {
		return "", err
	}
	data, err := logic.Encode(rec.Data)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInvalid, "invalid diagram data")
	}

	var saved string
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		folders, diagrams := repository.NewFolderRepository(tx), repository.NewDiagramRepository(tx)

		var d models.Diagram
		if rec.ID != "" {
			did, err := parseID("diagram", rec.ID)
			if err != nil {
				return err
			}
			if err := diagrams.GetByID(ctx, did, &d); err != nil {
				return err
			}
		}
		if rec.FolderID != "" {
			fid, err := parseID("folder", rec.FolderID)
			if err != nil {
				return err
			}
			d.FolderID = fid
		}
		if d.FolderID == uuid.Nil {
			return appErr.New(appErr.CodeInvalid, "folder id is required")
		}
		var f models.Folder
		if err := folders.GetByID(ctx, d.FolderID, &f); err != nil {
			if appErr.IsCode(err, appErr.CodeNotFound) {
				return appErr.New(appErr.CodeNotFound, "folder not found").WithMeta("folder_id", d.FolderID.String())
			}
			return err
		}

		d.Name = name
		d.Data = datatypes.JSON(data)
		if d.ID == uuid.Nil {
			if err := diagrams.Create(ctx, &d); err != nil {
				return err
			}
		} else if err := diagrams.Update(ctx, &d); err != nil {
			return err
		}
		saved = d.ID.String()
		return nil
	})
	if err != nil {
		return "", err
	}
	logger.L().Info("diagram saved", zap.String("diagram_id", saved), zap.String("name", name),
		zap.Int("nodes", len(rec.Data.Nodes)), zap.Int("edges", len(rec.Data.Edges)))
	return saved, nil
}

func (g *gormGateway) LoadDiagram(ctx context.Context, id string) (DiagramRecord, error) {
	did, err := parseID("diagram", id)
	if err != nil {
		return DiagramRecord{}, err
	}
	var d models.Diagram
	if err := repository.NewDiagramRepository(g.db).GetByID(ctx, did, &d); err != nil {
		return DiagramRecord{}, err
	}
	doc, err := logic.Decode(d.Data)
	if err != nil {
		return DiagramRecord{}, appErr.Wrap(err, appErr.CodeInternal, "stored diagram is corrupt").WithMeta("diagram_id", id)
	}
	return DiagramRecord{ID: d.ID.String(), FolderID: d.FolderID.String(), Name: d.Name, Data: doc}, nil
}

func (g *gormGateway) DeleteDiagram(ctx context.Context, id string) error {
	did, err := parseID("diagram", id)
	if err != nil {
		return err
	}
	return repository.NewDiagramRepository(g.db).Delete(ctx, did)
}
