// Package testsupport provides fixtures shared by package tests: an in-memory SQLite
// metadata store with the schema applied and a discarding logger.
package testsupport

import (
	"io"
	"log/slog"
	"testing"

	"lecturehall/internal/infra/persistence/model"
	"lecturehall/internal/infra/persistence/sqlite"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory database with every table migrated.
// The handle is closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := sqlite.Open(sqlite.MemoryPath, &gorm.Config{
		Logger:                 logger.Discard,
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
