package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/plantops/engine/internal/models"
	appErr "github.com/plantops/engine/pkg/errors"
	"gorm.io/gorm"
)

type FolderRepository interface {
	BaseRepository[models.Folder]
	// ListWithDiagrams returns every folder by name with its diagrams'
	// ids and names, but not their data.
	ListWithDiagrams(ctx context.Context) ([]models.Folder, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
}

type folderRepository struct {
	BaseRepository[models.Folder]
	db *gorm.DB
}

func NewFolderRepository(db *gorm.DB) FolderRepository {
	return &folderRepository{BaseRepository: NewBaseRepository[models.Folder](db), db: db}
}

func (r *folderRepository) ListWithDiagrams(ctx context.Context) ([]models.Folder, error) {
	var out []models.Folder
	err := r.db.WithContext(ctx).
		Preload("Diagrams", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "folder_id", "name", "created_at", "updated_at").Order("name ASC")
		}).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list folders failed")
	}
	return out, nil
}

func (r *folderRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	res := r.db.WithContext(ctx).Model(&models.Folder{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return translate(res.Error, "rename folder failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "folder not found")
	}
	return nil
}
