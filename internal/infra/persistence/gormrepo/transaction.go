// Package gormrepo implements the domain repositories on top of GORM.
// The same code serves PostgreSQL in production and SQLite for embedded deployments and tests.
package gormrepo

import (
	"context"

	"lecturehall/internal/domain/repository"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// txManager runs units of work against one *gorm.DB.
type txManager struct {
	db *gorm.DB
}

// NewTransactionManager returns a repository.TransactionManager backed by db.
func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &txManager{db: db}
}

// txRepositories hands out repositories bound to a single open transaction.
type txRepositories struct {
	tx *gorm.DB
}

func (r txRepositories) AccountRepo() repository.AccountRepository {
	return NewAccountRepository(r.tx)
}

func (r txRepositories) FolderRepo() repository.FolderRepository {
	return NewFolderRepository(r.tx)
}

func (r txRepositories) AssetRepo() repository.AssetRepository {
	return NewAssetRepository(r.tx)
}

// Execute commits when fn returns nil and rolls back otherwise. A panic inside fn rolls back
// and is re-raised. The error returned by fn is passed through unwrapped so callers can match
// domain sentinels.
func (m *txManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) (err error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "failed to begin transaction")
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		rbErr := tx.Rollback().Error
		if r := recover(); r != nil {
			panic(r)
		}
		if rbErr != nil && !errors.Is(rbErr, gorm.ErrInvalidTransaction) {
			err = errors.WithMessagef(err, "rollback failed: %v", rbErr)
		}
	}()

	if err = fn(txRepositories{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit().Error; err != nil {
		// A failed commit has already ended the transaction.
		finished = true

		return errors.Wrap(err, "failed to commit transaction")
	}
	finished = true

	return nil
}
