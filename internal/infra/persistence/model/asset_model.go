package model

import (
	"time"

	"github.com/google/uuid"
)

// AssetModel mirrors the 'assets' table.
type AssetModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	FolderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Title        string    `gorm:"type:varchar(255);not null"`
	Description  string    `gorm:"type:text;not null;default:''"`
	Tutor        string    `gorm:"type:varchar(255);not null;default:''"`
	Tag          string    `gorm:"type:varchar(64);not null;default:''"`
	Duration     string    `gorm:"type:varchar(32);not null;default:''"`
	ThumbnailRef string    `gorm:"type:varchar(1024);not null;default:''"`
	StoragePath  string    `gorm:"type:varchar(512);not null;uniqueIndex"`
	MimeType     string    `gorm:"type:varchar(127);not null"`
	Kind         string    `gorm:"type:varchar(16);not null"`
	SizeBytes    int64     `gorm:"not null;default:0"`
	OriginalName string    `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time

	Folder *FolderModel `gorm:"foreignKey:FolderID;references:ID;constraint:OnDelete:RESTRICT"`
}

// TableName explicitly sets the table name for GORM.
func (AssetModel) TableName() string {
	return "assets"
}
