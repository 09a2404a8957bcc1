// Package model holds the GORM persistence structs. IDs are generated by the application (UUIDv7)
// so that the same schema works on PostgreSQL and SQLite.
package model

import (
	"time"

	"github.com/google/uuid"
)

// AccountModel mirrors the 'accounts' table.
type AccountModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Identifier     string    `gorm:"type:varchar(255);not null"`
	IdentifierKey  string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_accounts_identifier_key"`
	CredentialHash string    `gorm:"type:varchar(255);not null"`
	Role           string    `gorm:"type:varchar(16);not null;default:user"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}
