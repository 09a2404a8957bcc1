package blob

import (
	"context"
	"io"
	"log/slog"

	"lecturehall/config"
	"lecturehall/internal/domain/lifecycle"
	"lecturehall/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Store is a BlobStore that owns resources released at shutdown.
type Store interface {
	service.BlobStore
	io.Closer
}

// Params holds dependencies for the blob store, injected by Fx.
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the blob store selected by blob.provider and closes it on shutdown.
func New(params Params) (service.BlobStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancel()

	store, err := Open(ctx, params.Config.Blob)
	if err != nil {
		return nil, err
	}

	params.Logger.Info("Blob store initialized", slog.String("provider", params.Config.Blob.Provider))

	params.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}

// Open builds the configured store without lifecycle hooks. The CLI uses it directly.
func Open(ctx context.Context, cfg *config.BlobConfig) (Store, error) {
	if cfg == nil {
		return nil, errors.New("blob configuration is required")
	}

	switch cfg.Provider {
	case config.BlobProviderGoCloud:
		return OpenBucketStore(ctx, cfg.URL)
	case config.BlobProviderSupabase:
		return NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Bucket)
	default:
		return nil, errors.Errorf("unsupported blob provider: %s", cfg.Provider)
	}
}
