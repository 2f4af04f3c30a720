package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS vfs_snapshots (
	owner      TEXT PRIMARY KEY,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres keeps one row per key in the vfs_snapshots table.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgres opens a connection pool. Init verifies connectivity and
// creates the table.
func NewPostgres(dsn string, logger *zap.Logger) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres: DSN is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{db: db, logger: logger}, nil
}

// Init implements Store.
func (p *Postgres) Init(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("create vfs_snapshots: %w", err)
	}
	p.logger.Info("postgres snapshot store ready")
	return nil
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM vfs_snapshots WHERE owner = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return data, true, nil
}

// Put implements Store.
func (p *Postgres) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO vfs_snapshots (owner, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (owner) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		key, data)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM vfs_snapshots WHERE owner = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Clear implements Store.
func (p *Postgres) Clear(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM vfs_snapshots`); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// Close implements Store.
func (p *Postgres) Close() error {
	return p.db.Close()
}
