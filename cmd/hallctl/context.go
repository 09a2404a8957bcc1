package main

import (
	"log/slog"
	"sync"

	"lecturehall/config"
	"lecturehall/internal/infra/auth"
	logs "lecturehall/internal/infra/log"
	"lecturehall/internal/infra/persistence/gormrepo"
	"lecturehall/internal/usecase"
	"lecturehall/internal/usecase/impl"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// dbOpener returns a handle and the function that releases it.
type dbOpener func(cfg *config.Config, logger *slog.Logger) (*gorm.DB, func() error, error)

type commandContext struct {
	loadConfig func() (*config.Config, error)
	openDB     dbOpener

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(loadConfig func() (*config.Config, error), openDB dbOpener) *commandContext {
	return &commandContext{
		loadConfig: loadConfig,
		openDB:     openDB,
	}
}

// openDatabase adapts a plain opener so that the pool is closed after the command.
func openDatabase(open func(*config.Config, *slog.Logger) (*gorm.DB, error)) dbOpener {
	return func(cfg *config.Config, logger *slog.Logger) (*gorm.DB, func() error, error) {
		db, err := open(cfg, logger)
		if err != nil {
			return nil, nil, err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to get sql.DB")
		}

		return db, sqlDB.Close, nil
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.loadConfig()
	})

	return c.config, c.configErr
}

// environment is what a command needs to talk to the metadata store.
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

// withEnvironment loads config, opens the database and logs to the command's stderr.
func (c *commandContext) withEnvironment(cmd *cobra.Command, fn func(*environment) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := logs.NewWithWriter(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	db, release, err := c.openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			logger.Warn("Failed to close database", slog.Any("error", err))
		}
	}()

	return fn(&environment{
		cfg:    cfg,
		logger: logger,
		db:     db.WithContext(cmd.Context()),
	})
}

func (env *environment) identity() usecase.IdentityUsecase {
	return impl.NewIdentityService(impl.IdentityServiceParams{
		TxManager:   gormrepo.NewTransactionManager(env.db),
		AccountRepo: gormrepo.NewAccountRepository(env.db),
		Hasher:      auth.NewBcryptHasher(env.cfg),
		RolePolicy:  auth.NewRolePolicy(env.cfg),
		Config:      env.cfg,
		Logger:      env.logger,
	})
}
