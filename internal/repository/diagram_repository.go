package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/plantops/engine/internal/models"
	appErr "github.com/plantops/engine/pkg/errors"
	"gorm.io/gorm"
)

type DiagramRepository interface {
	BaseRepository[models.Diagram]
	ListByFolder(ctx context.Context, folderID uuid.UUID) ([]models.Diagram, error)
	DeleteByFolder(ctx context.Context, folderID uuid.UUID) (int64, error)
}

type diagramRepository struct {
	BaseRepository[models.Diagram]
	db *gorm.DB
}

func NewDiagramRepository(db *gorm.DB) DiagramRepository {
	return &diagramRepository{BaseRepository: NewBaseRepository[models.Diagram](db), db: db}
}

func (r *diagramRepository) ListByFolder(ctx context.Context, folderID uuid.UUID) ([]models.Diagram, error) {
	var out []models.Diagram
	if err := r.db.WithContext(ctx).Where("folder_id = ?", folderID).Order("name ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list diagrams failed")
	}
	return out, nil
}

func (r *diagramRepository) DeleteByFolder(ctx context.Context, folderID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("folder_id = ?", folderID).Delete(&models.Diagram{})
	if res.Error != nil {
		return 0, appErr.Wrap(res.Error, appErr.CodeInternal, "delete folder diagrams failed")
	}
	return res.RowsAffected, nil
}
