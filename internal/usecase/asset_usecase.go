package usecase

import (
	"context"
	"io"
	"time"

	"lecturehall/internal/domain/entity"

	"github.com/google/uuid"
)

// AssetFilter narrows ListAssets.
type AssetFilter struct {
	FolderID  *uuid.UUID
	Namespace string
}

// AssetView is an asset together with a summary of its folder.
type AssetView struct {
	*entity.Asset
	Folder *entity.Folder
}

// UpdateAssetInput holds the optional fields of an edit. Nil fields are left unchanged.
type UpdateAssetInput struct {
	Title        *string
	Description  *string
	Tutor        *string
	Tag          *string
	Duration     *string
	ThumbnailRef *string
	FolderID     *uuid.UUID
}

// AssetContent is an open stream over an asset's stored bytes. Callers must close it.
type AssetContent struct {
	io.ReadCloser
	MimeType string
	Size     int64
	Name     string
}

// SignedURL is a time-limited direct download link.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}

// AssetUsecase reads and maintains the media catalog.
type AssetUsecase interface {
	// ListAssets returns assets newest first.
	ListAssets(ctx context.Context, actor *entity.Session, filter AssetFilter) ([]*AssetView, error)
	GetAsset(ctx context.Context, actor *entity.Session, id uuid.UUID) (*AssetView, error)
	UpdateAsset(ctx context.Context, actor *entity.Session, id uuid.UUID, input *UpdateAssetInput) (*AssetView, error)

	// DeleteAsset removes the row, then the blob. A blob failure does not restore the row.
	DeleteAsset(ctx context.Context, actor *entity.Session, id uuid.UUID) error

	OpenContent(ctx context.Context, actor *entity.Session, id uuid.UUID) (*AssetContent, error)
	ContentURL(ctx context.Context, actor *entity.Session, id uuid.UUID) (*SignedURL, error)
}
