package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

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

const defaultSignedURLTTL = 15 * time.Minute

// assetService implements the AssetUsecase interface.
type assetService struct {
	txManager    repository.TransactionManager
	assetRepo    repository.AssetRepository
	folderRepo   repository.FolderRepository
	blobStore    service.BlobStore
	signedURLTTL time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// AssetServiceParams holds dependencies for AssetService, injected by Fx.
type AssetServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	AssetRepo  repository.AssetRepository
	FolderRepo repository.FolderRepository
	BlobStore  service.BlobStore
	Config     *config.Config
	Logger     *slog.Logger
}

// NewAssetService is the constructor for assetService.
func NewAssetService(params AssetServiceParams) usecase.AssetUsecase {
	ttl := defaultSignedURLTTL
	if params.Config != nil && params.Config.Blob != nil && params.Config.Blob.SignedURLTTL > 0 {
		ttl = params.Config.Blob.SignedURLTTL
	}

	return &assetService{
		txManager:    params.TxManager,
		assetRepo:    params.AssetRepo,
		folderRepo:   params.FolderRepo,
		blobStore:    params.BlobStore,
		signedURLTTL: ttl,
		now:          time.Now,
		logger:       params.Logger,
	}
}

func (srv *assetService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListAssets returns matching assets newest first, each with its folder.
func (srv *assetService) ListAssets(ctx context.Context, actor *entity.Session, filter usecase.AssetFilter) ([]*usecase.AssetView, error) {
	if err := access.Authorize(actor, access.OpReadContent); err != nil {
		return nil, err
	}

	assets, err := srv.assetRepo.List(ctx, repository.AssetFilter{
		FolderID:  filter.FolderID,
		Namespace: filter.Namespace,
	})
	if err != nil {
		return nil, storageFailure(err, "failed to list assets")
	}

	return srv.attachFolders(ctx, assets)
}

// GetAsset returns one asset with its folder.
func (srv *assetService) GetAsset(ctx context.Context, actor *entity.Session, id uuid.UUID) (*usecase.AssetView, error) {
	if err := access.Authorize(actor, access.OpReadContent); err != nil {
		return nil, err
	}

	asset, err := loadAsset(ctx, srv.assetRepo, id)
	if err != nil {
		return nil, err
	}

	views, err := srv.attachFolders(ctx, []*entity.Asset{asset})
	if err != nil {
		return nil, err
	}

	return views[0], nil
}

// UpdateAsset edits descriptive metadata and optionally moves the asset to another folder.
func (srv *assetService) UpdateAsset(ctx context.Context, actor *entity.Session, id uuid.UUID, input *usecase.UpdateAssetInput) (*usecase.AssetView, error) {
	if err := access.Authorize(actor, access.OpManageAssets); err != nil {
		return nil, err
	}

	var (
		asset  *entity.Asset
		folder *entity.Folder
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		asset, err = loadAsset(ctx, repoFactory.AssetRepo(), id)
		if err != nil {
			return err
		}

		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return errors.Wrap(domainerrors.ErrValidationFailed, "title is required")
			}
			asset.Title = title
		}
		applyOptional(&asset.Description, input.Description)
		applyOptional(&asset.Tutor, input.Tutor)
		applyOptional(&asset.Tag, input.Tag)
		applyOptional(&asset.Duration, input.Duration)
		applyOptional(&asset.ThumbnailRef, input.ThumbnailRef)
		if input.FolderID != nil {
			asset.FolderID = *input.FolderID
		}

		folder, err = repoFactory.FolderRepo().LockByID(ctx, asset.FolderID)
		if errors.Is(err, repository.ErrFolderNotFound) {
			return errors.Wrapf(domainerrors.ErrInvalidFolder, "folder %s does not exist", asset.FolderID)
		}
		if err != nil {
			return storageFailure(err, "failed to load folder")
		}

		if err := repoFactory.AssetRepo().Update(ctx, asset); err != nil {
			if errors.Is(err, repository.ErrAssetNotFound) {
				return errors.Wrapf(domainerrors.ErrAssetNotFound, "asset %s", id)
			}
			if errors.Is(err, repository.ErrFolderNotFound) {
				return errors.Wrapf(domainerrors.ErrInvalidFolder, "folder %s does not exist", asset.FolderID)
			}

			return storageFailure(err, "failed to update asset")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Asset updated", slog.Any("asset_id", asset.ID))

	return &usecase.AssetView{Asset: asset, Folder: folder}, nil
}

// DeleteAsset removes the metadata row, then the blob on a best-effort basis.
func (srv *assetService) DeleteAsset(ctx context.Context, actor *entity.Session, id uuid.UUID) error {
	if err := access.Authorize(actor, access.OpManageAssets); err != nil {
		return err
	}

	asset, err := loadAsset(ctx, srv.assetRepo, id)
	if err != nil {
		return err
	}

	if err := srv.assetRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAssetNotFound) {
			return errors.Wrapf(domainerrors.ErrAssetNotFound, "asset %s", id)
		}

		return storageFailure(err, "failed to delete asset")
	}

	deleteBlobBestEffort(ctx, srv.blobStore, srv.log(ctx), asset)

	srv.log(ctx).Info("Asset deleted", slog.Any("asset_id", id), slog.String("storage_path", asset.StoragePath))

	return nil
}

// OpenContent streams the stored bytes of an asset.
func (srv *assetService) OpenContent(ctx context.Context, actor *entity.Session, id uuid.UUID) (*usecase.AssetContent, error) {
	if err := access.Authorize(actor, access.OpReadContent); err != nil {
		return nil, err
	}

	asset, err := loadAsset(ctx, srv.assetRepo, id)
	if err != nil {
		return nil, err
	}

	object, err := srv.blobStore.Open(ctx, asset.StoragePath)
	if errors.Is(err, service.ErrBlobNotFound) {
		srv.log(ctx).Warn("Asset row has no blob", slog.Any("asset_id", id), slog.String("storage_path", asset.StoragePath))

		return nil, errors.Wrapf(domainerrors.ErrAssetNotFound, "content of asset %s is missing", id)
	}
	if err != nil {
		return nil, storageFailure(err, "failed to open asset content")
	}

	size := object.Size
	if size <= 0 {
		size = asset.SizeBytes
	}

	return &usecase.AssetContent{
		ReadCloser: object.ReadCloser,
		MimeType:   asset.MimeType,
		Size:       size,
		Name:       asset.OriginalName,
	}, nil
}

// ContentURL asks the blob store for a time-limited download URL.
func (srv *assetService) ContentURL(ctx context.Context, actor *entity.Session, id uuid.UUID) (*usecase.SignedURL, error) {
	if err := access.Authorize(actor, access.OpReadContent); err != nil {
		return nil, err
	}

	asset, err := loadAsset(ctx, srv.assetRepo, id)
	if err != nil {
		return nil, err
	}

	url, err := srv.blobStore.SignedURL(ctx, asset.StoragePath, srv.signedURLTTL)
	if errors.Is(err, service.ErrSignedURLUnsupported) {
		return nil, errors.Wrap(domainerrors.ErrUnsupported, "blob backend cannot sign urls")
	}
	if errors.Is(err, service.ErrBlobNotFound) {
		return nil, errors.Wrapf(domainerrors.ErrAssetNotFound, "content of asset %s is missing", id)
	}
	if err != nil {
		return nil, storageFailure(err, "failed to sign content url")
	}

	return &usecase.SignedURL{URL: url, ExpiresAt: srv.now().UTC().Add(srv.signedURLTTL)}, nil
}

func (srv *assetService) attachFolders(ctx context.Context, assets []*entity.Asset) ([]*usecase.AssetView, error) {
	ids := make([]uuid.UUID, 0, len(assets))
	seen := make(map[uuid.UUID]bool, len(assets))
	for _, asset := range assets {
		if !seen[asset.FolderID] {
			seen[asset.FolderID] = true
			ids = append(ids, asset.FolderID)
		}
	}

	folders, err := srv.folderRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storageFailure(err, "failed to load asset folders")
	}

	byID := make(map[uuid.UUID]*entity.Folder, len(folders))
	for _, folder := range folders {
		byID[folder.ID] = folder
	}

	views := make([]*usecase.AssetView, 0, len(assets))
	for _, asset := range assets {
		views = append(views, &usecase.AssetView{Asset: asset, Folder: byID[asset.FolderID]})
	}

	return views, nil
}

func loadAsset(ctx context.Context, assetRepo repository.AssetRepository, id uuid.UUID) (*entity.Asset, error) {
	asset, err := assetRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAssetNotFound) {
		return nil, errors.Wrapf(domainerrors.ErrAssetNotFound, "asset %s", id)
	}
	if err != nil {
		return nil, storageFailure(err, "failed to load asset")
	}

	return asset, nil
}

func applyOptional(field *string, value *string) {
	if value != nil {
		*field = strings.TrimSpace(*value)
	}
}
