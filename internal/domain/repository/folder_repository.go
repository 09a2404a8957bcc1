package repository

import (
	"context"
	"errors"

	"lecturehall/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrFolderNotFound is returned when a folder does not exist.
	ErrFolderNotFound = errors.New("folder not found")

	// ErrDuplicateFolderName is returned when a sibling already uses the case-folded name.
	ErrDuplicateFolderName = errors.New("folder name already used by a sibling")
)

// FolderFilter narrows folder listings. Zero values mean "no restriction".
type FolderFilter struct {
	Namespace string
	ParentID  *uuid.UUID
	RootsOnly bool
}

// FolderRepository defines persistence for the folder tree.
type FolderRepository interface {
	Create(ctx context.Context, folder *entity.Folder) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Folder, error)

	// LockByID loads a folder and holds a row lock on it until the transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Folder, error)

	// FindByIDs returns the folders that exist among ids, in no particular order.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Folder, error)

	// FindSibling looks up a folder by case-insensitive name inside a sibling scope.
	FindSibling(ctx context.Context, namespace string, parentID *uuid.UUID, name string) (*entity.Folder, error)

	// List returns folders ordered by namespace, sort order and creation time.
	List(ctx context.Context, filter FolderFilter) ([]*entity.Folder, error)

	// Update saves name, metadata and placement of an existing folder.
	Update(ctx context.Context, folder *entity.Folder) error

	// ReparentChildren moves every direct child of parentID under newParentID and
	// returns the number of folders moved.
	ReparentChildren(ctx context.Context, parentID uuid.UUID, newParentID *uuid.UUID) (int64, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
