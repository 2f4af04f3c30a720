package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/commands/builtin"
	"github.com/aedmark/OopisOS-sub001/internal/domain/session"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/config"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/storage"
)

// App is the assembled runtime.
type App struct {
	Config   *config.Config
	Store    storage.Store
	Registry *commands.Registry
	Sessions *session.Manager

	log *zap.Logger
}

// New opens storage and builds the session manager. metrics may be nil.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics session.Recorder) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	reg := commands.NewRegistry(logger.Named("commands"))
	if err := builtin.Register(reg); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	sessions := session.NewManager(session.ManagerOptions{
		Registry:  reg,
		Persister: vfs.NewPersister(store, logger.Named("vfs")),
		Shell:     cfg.Shell,
		Logger:    logger,
		Metrics:   metrics,
	})

	logger.Info("shell runtime ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("commands", len(reg.Names())),
		zap.Bool("autosave", cfg.Shell.Autosave),
	)

	return &App{
		Config:   cfg,
		Store:    store,
		Registry: reg,
		Sessions: sessions,
		log:      logger,
	}, nil
}

// Close saves every open session and closes the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Sessions.Close(ctx); err != nil {
		a.log.Error("failed to save sessions", zap.Error(err))
		errs = append(errs, err)
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	return errors.Join(errs...)
}
