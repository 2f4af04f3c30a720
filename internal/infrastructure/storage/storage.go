package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by backends internally when a key is
	// absent. Get reports absence as found=false instead.
	ErrNotFound = errors.New("key not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store is closed")
	// ErrInvalidKey rejects keys that cannot be stored safely.
	ErrInvalidKey = errors.New("invalid key")
)

// Store is a key-value store for tree snapshots. Get reports a missing
// key with found=false and a nil error.
type Store interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// ValidateKey rejects empty keys and keys that could escape a directory
// or prefix.
func ValidateKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
