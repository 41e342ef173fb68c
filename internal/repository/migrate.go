package repository

import (
	"gorm.io/gorm"

	"github.com/plantops/engine/internal/models"
)

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addDiagramRecencyIndex,
	}
	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}
	return nil
}

// addDiagramRecencyIndex indexes diagrams by last update within a folder.
func addDiagramRecencyIndex(db *gorm.DB) error {
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_diagrams_folder_updated ON diagrams(folder_id, updated_at DESC)`).Error
}
