package usecase

import (
	"context"

	"lecturehall/internal/domain/entity"

	"github.com/google/uuid"
)

// CreateFolderInput defines a new folder. Children inherit the parent's namespace.
type CreateFolderInput struct {
	ParentID  *uuid.UUID
	Namespace string
	Name      string
	Subtitle  string
	Badge     string
	SortOrder int
}

// UpdateFolderInput holds the optional fields of a rename. Nil fields are left unchanged.
type UpdateFolderInput struct {
	Name      *string
	Subtitle  *string
	Badge     *string
	SortOrder *int
}

// FolderFilter narrows ListFolders.
type FolderFilter struct {
	Namespace string
	ParentID  *uuid.UUID
	RootsOnly bool
}

// DeleteFolderOutput reports the effect of a cascading delete.
type DeleteFolderOutput struct {
	DeletedAssetCount  int
	ReparentedChildren int64
}

// FolderUsecase manages the folder forest.
type FolderUsecase interface {
	CreateFolder(ctx context.Context, actor *entity.Session, input *CreateFolderInput) (*entity.Folder, error)
	RenameFolder(ctx context.Context, actor *entity.Session, id uuid.UUID, input *UpdateFolderInput) (*entity.Folder, error)

	// MoveFolder changes the parent. A nil parent promotes the folder to a root of its namespace.
	MoveFolder(ctx context.Context, actor *entity.Session, id uuid.UUID, newParentID *uuid.UUID) (*entity.Folder, error)

	// DeleteFolder removes the folder and its assets and hands its children to its own parent.
	DeleteFolder(ctx context.Context, actor *entity.Session, id uuid.UUID) (*DeleteFolderOutput, error)

	GetFolder(ctx context.Context, actor *entity.Session, id uuid.UUID) (*entity.Folder, error)
	ListFolders(ctx context.Context, actor *entity.Session, filter FolderFilter) ([]*entity.Folder, error)
	ListChildren(ctx context.Context, actor *entity.Session, parentID *uuid.UUID) ([]*entity.Folder, error)

	// ListPath returns the chain from the root down to id.
	ListPath(ctx context.Context, actor *entity.Session, id uuid.UUID) ([]*entity.Folder, error)
}
