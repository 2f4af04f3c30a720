package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/config"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Open builds and initializes the store selected by cfg. Durable backends
// are optionally compressed and always guarded by a circuit breaker.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("storage").With(zap.String("backend", cfg.Backend))

	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case BackendMemory, "":
		store = NewMemory()
	case BackendFile:
		store = NewFile(cfg.Dir, log)
	case BackendPostgres:
		store, err = NewPostgres(cfg.PostgresDSN, log)
	case BackendS3:
		store, err = NewS3(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		}, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if _, inMemory := store.(*Memory); !inMemory {
		if cfg.Compress {
			compressed, err := NewCompressed(store)
			if err != nil {
				store.Close()
				return nil, err
			}
			store = compressed
		}
		timeout := time.Duration(cfg.BreakerTimeoutSeconds) * time.Second
		store = NewGuarded(cfg.Backend, store, cfg.BreakerMaxFailures, timeout, log)
	}

	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init %s store: %w", cfg.Backend, err)
	}
	log.Info("snapshot store ready", zap.Bool("compress", cfg.Compress))
	return store, nil
}
