package usecase

import (
	"context"
	"io"

	"lecturehall/internal/domain/entity"

	"github.com/google/uuid"
)

// UploadFile is the file part of an upload. Content is read at most twice: once to sniff, once to store.
type UploadFile struct {
	Name         string
	Size         int64
	DeclaredMIME string
	Content      io.ReadSeeker
}

// UploadInput defines a new asset together with its bytes.
type UploadInput struct {
	FolderID uuid.UUID
	Title    string
	Metadata entity.AssetMetadata
	File     *UploadFile
}

// UploadUsecase validates, stores and records new assets.
type UploadUsecase interface {
	Upload(ctx context.Context, actor *entity.Session, input *UploadInput) (*AssetView, error)
}
