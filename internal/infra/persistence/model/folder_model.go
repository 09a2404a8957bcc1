package model

import (
	"time"

	"github.com/google/uuid"
)

// FolderModel mirrors the 'folders' table.
// SiblingScope and NameKey back the case-insensitive sibling uniqueness rule.
type FolderModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Namespace    string     `gorm:"type:varchar(64);not null;index:idx_folders_namespace_order,priority:1"`
	Name         string     `gorm:"type:varchar(255);not null"`
	NameKey      string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_folders_sibling_name,priority:2"`
	SiblingScope string     `gorm:"type:varchar(80);not null;uniqueIndex:idx_folders_sibling_name,priority:1"`
	Subtitle     string     `gorm:"type:varchar(255);not null;default:''"`
	Badge        string     `gorm:"type:varchar(64);not null;default:''"`
	SortOrder    int        `gorm:"not null;default:0;index:idx_folders_namespace_order,priority:2"`
	ParentID     *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (FolderModel) TableName() string {
	return "folders"
}
