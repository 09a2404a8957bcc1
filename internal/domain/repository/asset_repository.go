package repository

import (
	"context"
	"errors"

	"lecturehall/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrAssetNotFound is returned when an asset does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrDuplicateStoragePath is returned when a storage path is already referenced.
	ErrDuplicateStoragePath = errors.New("storage path already in use")
)

// AssetFilter narrows asset listings. Zero values mean "no restriction".
type AssetFilter struct {
	FolderID  *uuid.UUID
	Namespace string
}

// AssetRepository defines persistence for media asset metadata.
type AssetRepository interface {
	// Create persists a new asset. It fails with ErrFolderNotFound when the owning folder is gone.
	Create(ctx context.Context, asset *entity.Asset) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Asset, error)

	// List returns assets newest first.
	List(ctx context.Context, filter AssetFilter) ([]*entity.Asset, error)

	// Update saves metadata and placement. A missing target folder yields ErrFolderNotFound.
	Update(ctx context.Context, asset *entity.Asset) error

	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByFolder removes every asset owned by the folder and returns the removed rows.
	DeleteByFolder(ctx context.Context, folderID uuid.UUID) ([]*entity.Asset, error)
}
