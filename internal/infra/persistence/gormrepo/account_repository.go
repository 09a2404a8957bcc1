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

// accountRepository implements the repository.AccountRepository interface.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository is the constructor for accountRepository.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{
		db: db,
	}
}

// Create persists a new account and fills in its generated ID and timestamps.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	if account.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return errors.Wrap(err, "failed to generate account id")
		}
		account.ID = id
	}

	accountM := fromAccountDomain(account)

	if err := repo.db.WithContext(ctx).Create(accountM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateIdentifier
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required account information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create account")
	}

	account.CreatedAt = accountM.CreatedAt
	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// FindByID retrieves an account by its unique ID.
func (repo *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	var accountM model.AccountModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&accountM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to find account by id")
	}

	return toAccountDomain(&accountM), nil
}

// FindByIdentifier retrieves an account by its case-folded identifier.
func (repo *accountRepository) FindByIdentifier(ctx context.Context, identifier string) (*entity.Account, error) {
	var accountM model.AccountModel

	if err := repo.db.WithContext(ctx).
		Where("identifier_key = ?", entity.FoldKey(identifier)).
		First(&accountM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to find account by identifier")
	}

	return toAccountDomain(&accountM), nil
}

// LockForSignup takes a table lock that conflicts with itself and with inserts, so two signups
// cannot both see an empty table. SQLite needs no lock: its single connection runs one
// transaction at a time.
func (repo *accountRepository) LockForSignup(ctx context.Context) error {
	if repo.db.Dialector.Name() != "postgres" {
		return nil
	}

	if err := repo.db.WithContext(ctx).
		Exec("LOCK TABLE " + model.AccountModel{}.TableName() + " IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
		return errors.Wrap(err, "failed to lock accounts")
	}

	return nil
}

// Count returns the number of accounts.
func (repo *accountRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := repo.db.WithContext(ctx).Model(&model.AccountModel{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count accounts")
	}

	return count, nil
}

// List returns every account, oldest first.
func (repo *accountRepository) List(ctx context.Context) ([]*entity.Account, error) {
	var accountModels []*model.AccountModel

	if err := repo.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&accountModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}

	accounts := make([]*entity.Account, 0, len(accountModels))
	for _, accountM := range accountModels {
		accounts = append(accounts, toAccountDomain(accountM))
	}

	return accounts, nil
}

// UpdateRole changes the stored role of an account.
func (repo *accountRepository) UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) error {
	return repo.updateColumns(ctx, id, map[string]any{"role": role.String()}, "failed to update account role")
}

// UpdateCredential replaces the stored credential hash.
func (repo *accountRepository) UpdateCredential(ctx context.Context, id uuid.UUID, credentialHash string) error {
	return repo.updateColumns(ctx, id, map[string]any{"credential_hash": credentialHash}, "failed to update account credential")
}

func (repo *accountRepository) updateColumns(ctx context.Context, id uuid.UUID, columns map[string]any, failure string) error {
	columns["updated_at"] = time.Now().UTC()

	result := repo.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ?", id).
		Updates(columns)

	if result.Error != nil {
		return errors.Wrap(result.Error, failure)
	}

	if result.RowsAffected == 0 {
		return repository.ErrAccountNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toAccountDomain converts a GORM AccountModel to a domain Account entity.
func toAccountDomain(data *model.AccountModel) *entity.Account {
	if data == nil {
		return nil
	}

	return &entity.Account{
		ID:             data.ID,
		Identifier:     data.Identifier,
		CredentialHash: data.CredentialHash,
		Role:           entity.Role(data.Role),
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}

// fromAccountDomain converts a domain Account entity to a GORM AccountModel.
func fromAccountDomain(data *entity.Account) *model.AccountModel {
	if data == nil {
		return nil
	}

	return &model.AccountModel{
		ID:             data.ID,
		Identifier:     data.Identifier,
		IdentifierKey:  entity.FoldKey(data.Identifier),
		CredentialHash: data.CredentialHash,
		Role:           data.Role.String(),
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}
