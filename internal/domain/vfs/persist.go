package vfs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SnapshotStore is the slice of the external key-value store the tree
// needs. Get reports absence with found=false rather than an error.
type SnapshotStore interface {
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// LoadStatus describes how Load obtained the tree.
type LoadStatus int

const (
	// LoadRestored means a valid snapshot was found.
	LoadRestored LoadStatus = iota
	// LoadInitialized means no snapshot existed and a fresh tree was saved.
	LoadInitialized
	// LoadRecovered means the snapshot was invalid and was replaced.
	LoadRecovered
)

func (s LoadStatus) String() string {
	switch s {
	case LoadRestored:
		return "restored"
	case LoadInitialized:
		return "initialized"
	case LoadRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// Persister saves and loads trees keyed by owner.
type Persister struct {
	store  SnapshotStore
	logger *zap.Logger
	now    func() time.Time
}

// NewPersister creates a persister over store.
func NewPersister(store SnapshotStore, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{store: store, logger: logger, now: time.Now}
}

// Save deep-copies the tree and hands it to the store under owner.
func (p *Persister) Save(ctx context.Context, t *Tree, owner string) error {
	snapshot := t.Snapshot()
	if snapshot == nil || !snapshot.IsDir() {
		p.logger.Error("refusing to save corrupt tree", zap.String("owner", owner))
		return fmt.Errorf("save %s: %w", owner, ErrCorruptSnapshot)
	}

	data, err := EncodeSnapshot(snapshot, owner, p.now())
	if err != nil {
		return fmt.Errorf("save %s: %w", owner, err)
	}
	if err := p.store.Put(ctx, owner, data); err != nil {
		return fmt.Errorf("save %s: %w", owner, err)
	}

	p.logger.Debug("tree saved", zap.String("owner", owner), zap.Int("bytes", len(data)))
	return nil
}

// Load fetches the tree for owner. On absence or corruption a fresh tree is
// initialized and saved; if that save fails the tree is still returned with
// the error. When the store cannot be read at all, Load returns a nil tree
// and an error wrapping ErrStoreUnavailable.
func (p *Persister) Load(ctx context.Context, owner string) (*Tree, LoadStatus, error) {
	now := p.now()

	data, found, err := p.store.Get(ctx, owner)
	if err != nil {
		p.logger.Warn("snapshot fetch failed", zap.String("owner", owner), zap.Error(err))
		return nil, LoadInitialized, fmt.Errorf("load %s: %w: %w", owner, ErrStoreUnavailable, err)
	}

	status := LoadInitialized
	if found {
		root, filled, decodeErr := DecodeSnapshot(data, owner, now)
		if decodeErr == nil {
			if filled > 0 {
				p.logger.Info("back-filled snapshot attributes",
					zap.String("owner", owner), zap.Int("fields", filled))
			}
			return FromRoot(root), LoadRestored, nil
		}
		p.logger.Warn("snapshot invalid, reinitializing",
			zap.String("owner", owner), zap.Error(decodeErr))
		status = LoadRecovered
	}

	tree := New(owner, now)
	if err := p.Save(ctx, tree, owner); err != nil {
		return tree, status, err
	}
	return tree, status, nil
}

// Remove deletes the stored tree for owner.
func (p *Persister) Remove(ctx context.Context, owner string) error {
	if err := p.store.Delete(ctx, owner); err != nil {
		return fmt.Errorf("remove %s: %w", owner, err)
	}
	return nil
}

// IsCorrupt reports whether err stems from a corrupt snapshot or tree.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptSnapshot)
}
