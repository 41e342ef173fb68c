package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Diagram is a persisted logic diagram: its nodes and edges in sanitized
// form, without live values.
type Diagram struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FolderID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_diagrams_folder_name" json:"folder_id" validate:"required"`
	Name      string         `gorm:"not null;uniqueIndex:idx_diagrams_folder_name" json:"name" validate:"required,max=200"`
	Data      datatypes.JSON `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (d *Diagram) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// All lists every model the service migrates.
func All() []any {
	return []any{&Folder{}, &Diagram{}}
}
