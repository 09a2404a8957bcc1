package model

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&AccountModel{},
		&FolderModel{},
		&AssetModel{},
	}
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}

	return nil
}
