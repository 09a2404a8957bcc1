// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"lecturehall/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateIdentifier is returned when the case-folded identifier is already taken.
	ErrDuplicateIdentifier = errors.New("identifier already registered")
)

// AccountRepository defines the standard operations for account persistence.
type AccountRepository interface {
	// Create persists a new account. The identifier is unique case-insensitively.
	Create(ctx context.Context, account *entity.Account) error

	// FindByID retrieves a single account by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindByIdentifier retrieves an account by username or email, ignoring case.
	FindByIdentifier(ctx context.Context, identifier string) (*entity.Account, error)

	// LockForSignup blocks concurrent account creation until the surrounding transaction ends.
	LockForSignup(ctx context.Context) error

	// Count returns the number of registered accounts.
	Count(ctx context.Context) (int64, error)

	// List returns every account ordered by creation time.
	List(ctx context.Context) ([]*entity.Account, error)

	// UpdateRole changes the role of an account.
	UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) error

	// UpdateCredential replaces the stored credential hash.
	UpdateCredential(ctx context.Context, id uuid.UUID, credentialHash string) error
}
