package gormrepo

import (
	"context"
	"time"

	"lecturehall/internal/domain/entity"
	domainerrors "lecturehall/internal/domain/errors"
	"lecturehall/internal/domain/repository"
	"lecturehall/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Newest first; UUIDv7 ids break ties between rows created in the same instant.
const assetOrder = "created_at DESC, id DESC"

// assetRepository implements the repository.AssetRepository interface.
type assetRepository struct {
	db *gorm.DB
}

// NewAssetRepository is the constructor for assetRepository.
func NewAssetRepository(db *gorm.DB) repository.AssetRepository {
	return &assetRepository{
		db: db,
	}
}

// Create persists a new asset row.
func (repo *assetRepository) Create(ctx context.Context, asset *entity.Asset) error {
	if asset.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return errors.Wrap(err, "failed to generate asset id")
		}
		asset.ID = id
	}

	assetM := fromAssetDomain(asset)

	if err := repo.db.WithContext(ctx).Create(assetM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateStoragePath
		}
		if isForeignKeyViolation(err) {
			return repository.ErrFolderNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create asset")
	}

	asset.CreatedAt = assetM.CreatedAt
	asset.UpdatedAt = assetM.UpdatedAt

	return nil
}

// FindByID retrieves an asset by its unique ID.
func (repo *assetRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Asset, error) {
	var assetM model.AssetModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&assetM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAssetNotFound
		}

		return nil, errors.Wrap(err, "failed to find asset by id")
	}

	return toAssetDomain(&assetM), nil
}

// List retrieves assets matching the filter, newest first.
func (repo *assetRepository) List(ctx context.Context, filter repository.AssetFilter) ([]*entity.Asset, error) {
	var assetModels []*model.AssetModel

	query := repo.db.WithContext(ctx).Model(&model.AssetModel{})
	if filter.FolderID != nil {
		query = query.Where("folder_id = ?", *filter.FolderID)
	}
	if filter.Namespace != "" {
		namespaceFolders := repo.db.Model(&model.FolderModel{}).
			Select("id").
			Where("namespace = ?", entity.NormalizeNamespace(filter.Namespace))
		query = query.Where("folder_id IN (?)", namespaceFolders)
	}

	if err := query.Order(assetOrder).Find(&assetModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list assets")
	}

	return toAssetDomains(assetModels), nil
}

// Update saves the descriptive metadata and placement of an asset.
func (repo *assetRepository) Update(ctx context.Context, asset *entity.Asset) error {
	asset.UpdatedAt = time.Now().UTC()

	result := repo.db.WithContext(ctx).
		Model(&model.AssetModel{}).
		Where("id = ?", asset.ID).
		Updates(map[string]any{
			"folder_id":     asset.FolderID,
			"title":         asset.Title,
			"description":   asset.Description,
			"tutor":         asset.Tutor,
			"tag":           asset.Tag,
			"duration":      asset.Duration,
			"thumbnail_ref": asset.ThumbnailRef,
			"updated_at":    asset.UpdatedAt,
		})

	if result.Error != nil {
		if isForeignKeyViolation(result.Error) {
			return repository.ErrFolderNotFound
		}

		return errors.Wrap(result.Error, "failed to update asset")
	}

	if result.RowsAffected == 0 {
		return repository.ErrAssetNotFound
	}

	return nil
}

// Delete removes an asset row.
func (repo *assetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.AssetModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete asset")
	}

	if result.RowsAffected == 0 {
		return repository.ErrAssetNotFound
	}

	return nil
}

// DeleteByFolder removes all assets owned by the folder and returns what was removed.
func (repo *assetRepository) DeleteByFolder(ctx context.Context, folderID uuid.UUID) ([]*entity.Asset, error) {
	owned, err := repo.List(ctx, repository.AssetFilter{FolderID: &folderID})
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return owned, nil
	}

	if err := repo.db.WithContext(ctx).
		Where("folder_id = ?", folderID).
		Delete(&model.AssetModel{}).Error; err != nil {
		return nil, errors.Wrap(err, "failed to delete folder assets")
	}

	return owned, nil
}

// --- Mapper Functions ---

// toAssetDomain converts a GORM AssetModel to a domain Asset entity.
func toAssetDomain(data *model.AssetModel) *entity.Asset {
	if data == nil {
		return nil
	}

	return &entity.Asset{
		ID:           data.ID,
		FolderID:     data.FolderID,
		Title:        data.Title,
		Description:  data.Description,
		Tutor:        data.Tutor,
		Tag:          data.Tag,
		Duration:     data.Duration,
		ThumbnailRef: data.ThumbnailRef,
		StoragePath:  data.StoragePath,
		MimeType:     data.MimeType,
		Kind:         entity.MediaKind(data.Kind),
		SizeBytes:    data.SizeBytes,
		OriginalName: data.OriginalName,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

func toAssetDomains(assetModels []*model.AssetModel) []*entity.Asset {
	assets := make([]*entity.Asset, 0, len(assetModels))
	for _, assetM := range assetModels {
		assets = append(assets, toAssetDomain(assetM))
	}

	return assets
}

// fromAssetDomain converts a domain Asset entity to a GORM AssetModel.
func fromAssetDomain(data *entity.Asset) *model.AssetModel {
	if data == nil {
		return nil
	}

	return &model.AssetModel{
		ID:           data.ID,
		FolderID:     data.FolderID,
		Title:        data.Title,
		Description:  data.Description,
		Tutor:        data.Tutor,
		Tag:          data.Tag,
		Duration:     data.Duration,
		ThumbnailRef: data.ThumbnailRef,
		StoragePath:  data.StoragePath,
		MimeType:     data.MimeType,
		Kind:         string(data.Kind),
		SizeBytes:    data.SizeBytes,
		OriginalName: data.OriginalName,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}
