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
	"gorm.io/gorm/clause"
)

const folderOrder = "namespace ASC, sort_order ASC, created_at ASC, id ASC"

// folderRepository implements the repository.FolderRepository interface.
type folderRepository struct {
	db *gorm.DB
}

// NewFolderRepository is the constructor for folderRepository.
func NewFolderRepository(db *gorm.DB) repository.FolderRepository {
	return &folderRepository{
		db: db,
	}
}

// Create persists a new folder. A sibling with the same case-folded name is reported as ErrDuplicateFolderName.
func (repo *folderRepository) Create(ctx context.Context, folder *entity.Folder) error {
	if folder.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return errors.Wrap(err, "failed to generate folder id")
		}
		folder.ID = id
	}

	folderM := fromFolderDomain(folder)

	if err := repo.db.WithContext(ctx).Create(folderM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateFolderName
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create folder")
	}

	folder.CreatedAt = folderM.CreatedAt
	folder.UpdatedAt = folderM.UpdatedAt

	return nil
}

// FindByID retrieves a folder by its unique ID.
func (repo *folderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Folder, error) {
	var folderM model.FolderModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&folderM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrFolderNotFound
		}

		return nil, errors.Wrap(err, "failed to find folder by id")
	}

	return toFolderDomain(&folderM), nil
}

// LockByID retrieves a folder with SELECT ... FOR UPDATE. SQLite ignores the locking clause;
// its single writer connection already serializes the transaction.
func (repo *folderRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Folder, error) {
	var folderM model.FolderModel

	if err := repo.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&folderM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrFolderNotFound
		}

		return nil, errors.Wrap(err, "failed to lock folder")
	}

	return toFolderDomain(&folderM), nil
}

// FindByIDs retrieves the folders that exist among ids.
func (repo *folderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Folder, error) {
	if len(ids) == 0 {
		return []*entity.Folder{}, nil
	}

	var folderModels []*model.FolderModel

	if err := repo.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&folderModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find folders by ids")
	}

	return toFolderDomains(folderModels), nil
}

// FindSibling looks up a folder by case-insensitive name within a sibling scope.
func (repo *folderRepository) FindSibling(ctx context.Context, namespace string, parentID *uuid.UUID, name string) (*entity.Folder, error) {
	var folderM model.FolderModel

	if err := repo.db.WithContext(ctx).
		Where("sibling_scope = ? AND name_key = ?", entity.SiblingScope(namespace, parentID), entity.FoldKey(name)).
		First(&folderM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrFolderNotFound
		}

		return nil, errors.Wrap(err, "failed to find sibling folder")
	}

	return toFolderDomain(&folderM), nil
}

// List retrieves folders matching the filter in display order.
func (repo *folderRepository) List(ctx context.Context, filter repository.FolderFilter) ([]*entity.Folder, error) {
	var folderModels []*model.FolderModel

	query := repo.db.WithContext(ctx).Model(&model.FolderModel{})
	if filter.Namespace != "" {
		query = query.Where("namespace = ?", entity.NormalizeNamespace(filter.Namespace))
	}
	switch {
	case filter.ParentID != nil:
		query = query.Where("parent_id = ?", *filter.ParentID)
	case filter.RootsOnly:
		query = query.Where("parent_id IS NULL")
	}

	if err := query.Order(folderOrder).Find(&folderModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list folders")
	}

	return toFolderDomains(folderModels), nil
}

// Update saves the mutable columns of a folder.
func (repo *folderRepository) Update(ctx context.Context, folder *entity.Folder) error {
	folder.UpdatedAt = time.Now().UTC()

	result := repo.db.WithContext(ctx).
		Model(&model.FolderModel{}).
		Where("id = ?", folder.ID).
		Updates(map[string]any{
			"namespace":     entity.NormalizeNamespace(folder.Namespace),
			"name":          folder.Name,
			"name_key":      entity.FoldKey(folder.Name),
			"sibling_scope": folder.SiblingScope(),
			"subtitle":      folder.Subtitle,
			"badge":         folder.Badge,
			"sort_order":    folder.SortOrder,
			"parent_id":     folder.ParentID,
			"updated_at":    folder.UpdatedAt,
		})

	if result.Error != nil {
		if isUniqueConstraintViolation(result.Error) {
			return repository.ErrDuplicateFolderName
		}

		return errors.Wrap(result.Error, "failed to update folder")
	}

	if result.RowsAffected == 0 {
		return repository.ErrFolderNotFound
	}

	return nil
}

// ReparentChildren moves every direct child of parentID under newParentID.
// Each child's sibling scope is recomputed from its own namespace.
func (repo *folderRepository) ReparentChildren(ctx context.Context, parentID uuid.UUID, newParentID *uuid.UUID) (int64, error) {
	children, err := repo.List(ctx, repository.FolderFilter{ParentID: &parentID})
	if err != nil {
		return 0, err
	}

	var moved int64
	for _, child := range children {
		child.ParentID = newParentID
		if err := repo.Update(ctx, child); err != nil {
			return moved, errors.Wrapf(err, "failed to reparent folder %s", child.ID)
		}
		moved++
	}

	return moved, nil
}

// Delete removes a folder row.
func (repo *folderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.FolderModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete folder")
	}

	if result.RowsAffected == 0 {
		return repository.ErrFolderNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toFolderDomain converts a GORM FolderModel to a domain Folder entity.
func toFolderDomain(data *model.FolderModel) *entity.Folder {
	if data == nil {
		return nil
	}

	return &entity.Folder{
		ID:        data.ID,
		Namespace: data.Namespace,
		Name:      data.Name,
		Subtitle:  data.Subtitle,
		Badge:     data.Badge,
		SortOrder: data.SortOrder,
		ParentID:  data.ParentID,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

func toFolderDomains(folderModels []*model.FolderModel) []*entity.Folder {
	folders := make([]*entity.Folder, 0, len(folderModels))
	for _, folderM := range folderModels {
		folders = append(folders, toFolderDomain(folderM))
	}

	return folders
}

// fromFolderDomain converts a domain Folder entity to a GORM FolderModel.
func fromFolderDomain(data *entity.Folder) *model.FolderModel {
	if data == nil {
		return nil
	}

	return &model.FolderModel{
		ID:           data.ID,
		Namespace:    entity.NormalizeNamespace(data.Namespace),
		Name:         data.Name,
		NameKey:      entity.FoldKey(data.Name),
		SiblingScope: data.SiblingScope(),
		Subtitle:     data.Subtitle,
		Badge:        data.Badge,
		SortOrder:    data.SortOrder,
		ParentID:     data.ParentID,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}
