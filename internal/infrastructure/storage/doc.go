// Package storage provides the key-value stores that hold serialized
// trees, one key per owner.
//
// Backends:
//   - memory: process-local map, the default
//   - file: one file per key under a directory
//   - postgres: rows in a vfs_snapshots table (lib/pq)
//   - s3: objects under a key prefix in a bucket (aws-sdk-go-v2)
//
// Wrappers:
//   - Compressed: zstd-compresses values on the way in
//   - Guarded: trips a circuit breaker when the backend keeps failing
//
// Open builds the configured stack:
//
//	store, err := storage.Open(ctx, cfg.Storage, logger)
//	defer store.Close()
//	persister := vfs.NewPersister(store, logger)
package storage
