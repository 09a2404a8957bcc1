package impl

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"lecturehall/config"
	deliverycontext "lecturehall/internal/delivery/context"
	"lecturehall/internal/domain/access"
	"lecturehall/internal/domain/entity"
	domainerrors "lecturehall/internal/domain/errors"
	"lecturehall/internal/domain/repository"
	"lecturehall/internal/domain/service"
	"lecturehall/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	maxFolderNameLength = 255
	defaultMaxDepth     = 64
)

// folderService implements the FolderUsecase interface.
type folderService struct {
	txManager  repository.TransactionManager
	folderRepo repository.FolderRepository
	blobStore  service.BlobStore
	namespaces []string
	maxDepth   int
	logger     *slog.Logger
}

// FolderServiceParams holds dependencies for FolderService, injected by Fx.
type FolderServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	FolderRepo repository.FolderRepository
	BlobStore  service.BlobStore
	Config     *config.Config
	Logger     *slog.Logger
}

// NewFolderService is the constructor for folderService.
func NewFolderService(params FolderServiceParams) usecase.FolderUsecase {
	srv := &folderService{
		txManager:  params.TxManager,
		folderRepo: params.FolderRepo,
		blobStore:  params.BlobStore,
		maxDepth:   defaultMaxDepth,
		logger:     params.Logger,
	}
	if params.Config != nil && params.Config.Content != nil {
		for _, ns := range params.Config.Content.Namespaces {
			if ns = entity.NormalizeNamespace(ns); ns != "" {
				srv.namespaces = append(srv.namespaces, ns)
			}
		}
		if params.Config.Content.MaxDepth > 0 {
			srv.maxDepth = params.Config.Content.MaxDepth
		}
	}

	return srv
}

func (srv *folderService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// CreateFolder adds a root or child folder after checking the parent and sibling names.
func (srv *folderService) CreateFolder(ctx context.Context, actor *entity.Session, input *usecase.CreateFolderInput) (*entity.Folder, error) {
	if err := access.Authorize(actor, access.OpManageFolders); err != nil {
		return nil, err
	}

	name, err := normalizeFolderName(input.Name)
	if err != nil {
		return nil, err
	}

	folder := &entity.Folder{
		Name:      name,
		Subtitle:  strings.TrimSpace(input.Subtitle),
		Badge:     strings.TrimSpace(input.Badge),
		SortOrder: input.SortOrder,
		ParentID:  input.ParentID,
	}
	namespace := entity.NormalizeNamespace(input.Namespace)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		folderRepo := repoFactory.FolderRepo()

		if input.ParentID != nil {
			parent, err := folderRepo.FindByID(ctx, *input.ParentID)
			if errors.Is(err, repository.ErrFolderNotFound) {
				return errors.Wrapf(domainerrors.ErrInvalidParent, "parent %s does not exist", input.ParentID)
			}
			if err != nil {
				return storageFailure(err, "failed to load parent folder")
			}
			if namespace != "" && namespace != parent.Namespace {
				return errors.Wrapf(domainerrors.ErrValidationFailed, "namespace %q differs from parent namespace %q", namespace, parent.Namespace)
			}
			folder.Namespace = parent.Namespace
		} else {
			if err := srv.checkNamespace(namespace); err != nil {
				return err
			}
			folder.Namespace = namespace
		}

		if err := ensureNameFree(ctx, folderRepo, folder, uuid.Nil); err != nil {
			return err
		}

		if err := folderRepo.Create(ctx, folder); err != nil {
			return translateFolderWriteError(err, "failed to create folder")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Folder created",
		slog.Any("folder_id", folder.ID),
		slog.String("namespace", folder.Namespace),
		slog.String("name", folder.Name),
	)

	return folder, nil
}

// RenameFolder updates the name and display fields of a folder in place.
func (srv *folderService) RenameFolder(ctx context.Context, actor *entity.Session, id uuid.UUID, input *usecase.UpdateFolderInput) (*entity.Folder, error) {
	if err := access.Authorize(actor, access.OpManageFolders); err != nil {
		return nil, err
	}

	var folder *entity.Folder
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		folderRepo := repoFactory.FolderRepo()

		var err error
		folder, err = loadFolder(ctx, folderRepo, id)
		if err != nil {
			return err
		}

		if input.Name != nil {
			name, err := normalizeFolderName(*input.Name)
			if err != nil {
				return err
			}
			folder.Name = name
		}
		if input.Subtitle != nil {
			folder.Subtitle = strings.TrimSpace(*input.Subtitle)
		}
		if input.Badge != nil {
			folder.Badge = strings.TrimSpace(*input.Badge)
		}
		if input.SortOrder != nil {
			folder.SortOrder = *input.SortOrder
		}

		if err := ensureNameFree(ctx, folderRepo, folder, folder.ID); err != nil {
			return err
		}

		return translateFolderWriteError(folderRepo.Update(ctx, folder), "failed to rename folder")
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Folder renamed", slog.Any("folder_id", folder.ID), slog.String("name", folder.Name))

	return folder, nil
}

// MoveFolder attaches the folder to a new parent within the same namespace.
func (srv *folderService) MoveFolder(ctx context.Context, actor *entity.Session, id uuid.UUID, newParentID *uuid.UUID) (*entity.Folder, error) {
	if err := access.Authorize(actor, access.OpManageFolders); err != nil {
		return nil, err
	}

	var folder *entity.Folder
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		folderRepo := repoFactory.FolderRepo()

		var err error
		folder, err = loadFolder(ctx, folderRepo, id)
		if err != nil {
			return err
		}

		if newParentID != nil {
			if err := srv.checkNewParent(ctx, folderRepo, folder, *newParentID); err != nil {
				return err
			}
		}
		folder.ParentID = newParentID

		if err := ensureNameFree(ctx, folderRepo, folder, folder.ID); err != nil {
			return err
		}

		return translateFolderWriteError(folderRepo.Update(ctx, folder), "failed to move folder")
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Folder moved", slog.Any("folder_id", folder.ID), slog.Any("parent_id", newParentID))

	return folder, nil
}

// DeleteFolder removes the folder's assets, reparents its children to its own parent and removes
// the folder, all in one metadata transaction. Blobs of removed assets are deleted after commit.
func (srv *folderService) DeleteFolder(ctx context.Context, actor *entity.Session, id uuid.UUID) (*usecase.DeleteFolderOutput, error) {
	if err := access.Authorize(actor, access.OpManageFolders); err != nil {
		return nil, err
	}

	var (
		removed    []*entity.Asset
		reparented int64
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		folderRepo := repoFactory.FolderRepo()

		// Held until commit so an upload cannot land an asset between the sweep and the delete.
		folder, err := folderRepo.LockByID(ctx, id)
		if errors.Is(err, repository.ErrFolderNotFound) {
			return errors.Wrapf(domainerrors.ErrFolderNotFound, "folder %s", id)
		}
		if err != nil {
			return storageFailure(err, "failed to lock folder")
		}

		removed, err = repoFactory.AssetRepo().DeleteByFolder(ctx, id)
		if err != nil {
			return storageFailure(err, "failed to delete folder assets")
		}

		// The folder row goes first so a child may take over its name.
		if err := folderRepo.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrFolderNotFound) {
				return errors.Wrapf(domainerrors.ErrFolderNotFound, "folder %s", id)
			}

			return storageFailure(err, "failed to delete folder")
		}

		reparented, err = folderRepo.ReparentChildren(ctx, id, folder.ParentID)
		if err != nil {
			return translateFolderWriteError(err, "failed to reparent child folders")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Folder delete rolled back", slog.Any("folder_id", id), slog.Any("error", err))

		return nil, err
	}

	for _, asset := range removed {
		deleteBlobBestEffort(ctx, srv.blobStore, srv.log(ctx), asset)
	}

	srv.log(ctx).Info("Folder deleted",
		slog.Any("folder_id", id),
		slog.Int("deleted_assets", len(removed)),
		slog.Int64("reparented_children", reparented),
	)

	return &usecase.DeleteFolderOutput{
		DeletedAssetCount:  len(removed),
		ReparentedChildren: reparented,
	}, nil
}

// GetFolder returns a single folder.
func (srv *folderService) GetFolder(ctx context.Context, actor *entity.Session, id uuid.UUID) (*entity.Folder, error) {
	if err := access.Authorize(actor, access.OpReadContent); err != nil {
		return nil, err
	}

	return loadFolder(ctx, srv.folderRepo, id)
}

// ListFolders returns folders ordered by namespace, sort order and creation time.
func (srv *folderService) ListFolders(ctx context.Context, actor *entity.Session, filter usecase.FolderFilter) ([]*entity.Folder, error) {
	if err := access.Authorize(actor, access.OpReadContent); err != nil {
		return nil, err
	}

	folders, err := srv.folderRepo.List(ctx, repository.FolderFilter{
		Namespace: filter.Namespace,
		ParentID:  filter.ParentID,
		RootsOnly: filter.RootsOnly,
	})
	if err != nil {
		return nil, storageFailure(err, "failed to list folders")
	}

	return folders, nil
}

// ListChildren returns the direct children of parentID, or every root when parentID is nil.
func (srv *folderService) ListChildren(ctx context.Context, actor *entity.Session, parentID *uuid.UUID) ([]*entity.Folder, error) {
	if err := access.Authorize(actor, access.OpReadContent); err != nil {
		return nil, err
	}

	if parentID != nil {
		if _, err := loadFolder(ctx, srv.folderRepo, *parentID); err != nil {
			return nil, err
		}
	}

	folders, err := srv.folderRepo.List(ctx, repository.FolderFilter{
		ParentID:  parentID,
		RootsOnly: parentID == nil,
	})
	if err != nil {
		return nil, storageFailure(err, "failed to list child folders")
	}

	return folders, nil
}

// ListPath follows parent links from id up to its root and returns the chain root first.
// A revisited folder or a chain longer than maxDepth means the stored hierarchy is corrupt.
func (srv *folderService) ListPath(ctx context.Context, actor *entity.Session, id uuid.UUID) ([]*entity.Folder, error) {
	if err := access.Authorize(actor, access.OpReadContent); err != nil {
		return nil, err
	}

	node, err := loadFolder(ctx, srv.folderRepo, id)
	if err != nil {
		return nil, err
	}

	path := []*entity.Folder{node}
	visited := map[uuid.UUID]bool{node.ID: true}

	for node.ParentID != nil {
		if len(path) >= srv.maxDepth {
			return nil, errors.Wrapf(domainerrors.ErrHierarchyCorrupted, "path of %s exceeds %d levels", id, srv.maxDepth)
		}
		if visited[*node.ParentID] {
			return nil, errors.Wrapf(domainerrors.ErrHierarchyCorrupted, "cycle at folder %s", *node.ParentID)
		}

		parent, err := srv.folderRepo.FindByID(ctx, *node.ParentID)
		if errors.Is(err, repository.ErrFolderNotFound) {
			return nil, errors.Wrapf(domainerrors.ErrHierarchyCorrupted, "folder %s points at missing parent %s", node.ID, *node.ParentID)
		}
		if err != nil {
			return nil, storageFailure(err, "failed to load parent folder")
		}

		visited[parent.ID] = true
		path = append(path, parent)
		node = parent
	}

	slices.Reverse(path)

	return path, nil
}

// checkNewParent rejects missing parents, other namespaces and moves into the folder's own subtree.
func (srv *folderService) checkNewParent(ctx context.Context, folderRepo repository.FolderRepository, folder *entity.Folder, parentID uuid.UUID) error {
	if parentID == folder.ID {
		return errors.Wrap(domainerrors.ErrInvalidParent, "a folder cannot be its own parent")
	}

	parent, err := folderRepo.FindByID(ctx, parentID)
	if errors.Is(err, repository.ErrFolderNotFound) {
		return errors.Wrapf(domainerrors.ErrInvalidParent, "parent %s does not exist", parentID)
	}
	if err != nil {
		return storageFailure(err, "failed to load parent folder")
	}
	if parent.Namespace != folder.Namespace {
		return errors.Wrapf(domainerrors.ErrInvalidParent, "parent belongs to namespace %q", parent.Namespace)
	}

	for depth := 0; parent.ParentID != nil; depth++ {
		if *parent.ParentID == folder.ID {
			return errors.Wrap(domainerrors.ErrInvalidParent, "a folder cannot move below its own descendant")
		}
		if depth >= srv.maxDepth {
			return errors.Wrap(domainerrors.ErrHierarchyCorrupted, "ancestor chain too deep")
		}

		parent, err = folderRepo.FindByID(ctx, *parent.ParentID)
		if err != nil {
			return storageFailure(err, "failed to walk ancestors")
		}
	}

	return nil
}

func (srv *folderService) checkNamespace(namespace string) error {
	if namespace == "" {
		return errors.Wrap(domainerrors.ErrValidationFailed, "namespace is required for root folders")
	}
	if len(srv.namespaces) > 0 && !slices.Contains(srv.namespaces, namespace) {
		return errors.Wrapf(domainerrors.ErrValidationFailed, "namespace %q is not configured", namespace)
	}

	return nil
}

func normalizeFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Wrap(domainerrors.ErrValidationFailed, "folder name is required")
	}
	if utf8.RuneCountInString(name) > maxFolderNameLength {
		return "", errors.Wrap(domainerrors.ErrValidationFailed, "folder name is too long")
	}

	return name, nil
}

func loadFolder(ctx context.Context, folderRepo repository.FolderRepository, id uuid.UUID) (*entity.Folder, error) {
	folder, err := folderRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrFolderNotFound) {
		return nil, errors.Wrapf(domainerrors.ErrFolderNotFound, "folder %s", id)
	}
	if err != nil {
		return nil, storageFailure(err, "failed to load folder")
	}

	return folder, nil
}

// ensureNameFree fails with ErrDuplicateName when another folder in the same sibling scope
// already uses the case-folded name. self is excluded from the check.
func ensureNameFree(ctx context.Context, folderRepo repository.FolderRepository, folder *entity.Folder, self uuid.UUID) error {
	sibling, err := folderRepo.FindSibling(ctx, folder.Namespace, folder.ParentID, folder.Name)
	if errors.Is(err, repository.ErrFolderNotFound) {
		return nil
	}
	if err != nil {
		return storageFailure(err, "failed to check sibling names")
	}
	if sibling.ID == self {
		return nil
	}

	return errors.Wrapf(domainerrors.ErrDuplicateName, "%q already exists here", folder.Name)
}

func translateFolderWriteError(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicateFolderName):
		return errors.Wrap(domainerrors.ErrDuplicateName, message)
	case errors.Is(err, repository.ErrFolderNotFound):
		return errors.Wrap(domainerrors.ErrFolderNotFound, message)
	default:
		return storageFailure(err, message)
	}
}

// deleteBlobBestEffort removes an asset's blob and only logs failures.
func deleteBlobBestEffort(ctx context.Context, blobStore service.BlobStore, logger *slog.Logger, asset *entity.Asset) {
	err := blobStore.Delete(ctx, asset.StoragePath)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrBlobNotFound):
		logger.Debug("Blob already absent", slog.String("storage_path", asset.StoragePath))
	default:
		logger.Warn("Failed to delete blob, leaving it orphaned",
			slog.Any("asset_id", asset.ID),
			slog.String("storage_path", asset.StoragePath),
			slog.Any("error", err),
		)
	}
}
