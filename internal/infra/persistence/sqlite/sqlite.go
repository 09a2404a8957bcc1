// Package sqlite opens an embedded SQLite database through the pure-Go modernc driver.
package sqlite

import (
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

const (
	foreignKeysPragma = "_pragma=foreign_keys(1)"
	filePragmas       = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&" + foreignKeysPragma
)

// Open connects to the database file at path, or to a private in-memory database when path is empty
// or MemoryPath. Foreign keys are enforced unless path carries its own query. SQLite serializes writers, so the pool is held to a single connection; this also keeps
// an in-memory database alive for the lifetime of the handle.
func Open(path string, opts ...gorm.Option) (*gorm.DB, error) {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = MemoryPath
	}
	switch {
	case dsn == MemoryPath:
		dsn += "?" + foreignKeysPragma
	case !strings.Contains(dsn, "?"):
		dsn += "?" + filePragmas
	}

	if len(opts) == 0 {
		opts = []gorm.Option{&gorm.Config{}}
	}

	db, err := gorm.Open(sqlite.Open(dsn), opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database %q", path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sqlite sql.DB")
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	return db, nil
}
