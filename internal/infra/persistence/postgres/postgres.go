// Package postgres opens the production PostgreSQL connection (with optional read replicas).
package postgres

import (
	"github.com/pkg/errors"
	pgLib "github.com/slighter12/go-lib/database/postgres"
	"gorm.io/gorm"
)

// Open creates the PostgreSQL client from the postgres config section.
func Open(cfg *pgLib.DBConn) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.New("postgres configuration is missing")
	}

	db, err := pgLib.New(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL client")
	}

	return db, nil
}
