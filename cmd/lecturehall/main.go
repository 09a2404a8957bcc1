package main

import (
	"context"
	"log/slog"
	"os"

	"lecturehall/config"
	"lecturehall/internal/delivery"
	"lecturehall/internal/delivery/api"
	"lecturehall/internal/delivery/api/middleware"
	"lecturehall/internal/delivery/api/router/handler"
	"lecturehall/internal/infra/auth"
	"lecturehall/internal/infra/blob"
	logs "lecturehall/internal/infra/log"
	"lecturehall/internal/infra/media"
	"lecturehall/internal/infra/persistence"
	"lecturehall/internal/infra/persistence/gormrepo"
	"lecturehall/internal/infra/session"
	"lecturehall/internal/usecase/impl"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			fxLogger := &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
			fxLogger.UseLogLevel(slog.LevelDebug)

			return fxLogger
		}),
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		persistence.New,
		blob.New,
		session.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			gormrepo.NewAccountRepository,
			gormrepo.NewFolderRepository,
			gormrepo.NewAssetRepository,
			gormrepo.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewRolePolicy,
			auth.NewTokenService,
			media.NewProbe,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewIdentityService,
			impl.NewSessionService,
			impl.NewAuthService,
			impl.NewFolderService,
			impl.NewAssetService,
			impl.NewUploadPipeline,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewFolderHandler,
			handler.NewAssetHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
