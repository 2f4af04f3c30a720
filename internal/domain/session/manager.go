package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/config"
	"github.com/aedmark/OopisOS-sub001/internal/shared/utils"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Registry  *commands.Registry
	Persister *vfs.Persister
	Shell     config.ShellConfig
	Logger    *zap.Logger
	Metrics   Recorder
	Clock     func() time.Time
}

// Stats summarizes the manager.
type Stats struct {
	ActiveSessions int        `json:"active_sessions"`
	LastSaved      *time.Time `json:"last_saved,omitempty"`
	LastRemoved    *time.Time `json:"last_removed,omitempty"`
}

// Manager keeps one session per user.
type Manager struct {
	sessions sync.Map
	opts     ManagerOptions
	log      *zap.Logger

	// open serializes loading so two callers never load the same user.
	open sync.Mutex

	mu          sync.RWMutex
	lastSaved   *time.Time
	lastRemoved *time.Time
}

// NewManager creates a session manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Manager{opts: opts, log: opts.Logger.Named("sessions")}
}

// Get returns the open session for user.
func (m *Manager) Get(user string) (*Session, bool) {
	if cached, ok := m.sessions.Load(user); ok {
		return cached.(*Session), true
	}
	return nil, false
}

// Open returns the session for user, loading the saved tree on first use.
// If the store cannot be read, Open fails and caches nothing, so a later
// call retries the load. If only the fallback save of a fresh tree failed,
// the session opens and LoadErr reports why.
func (m *Manager) Open(ctx context.Context, user string) (*Session, error) {
	if s, ok := m.Get(user); ok {
		return s, nil
	}
	if err := utils.ValidateUsername(user); err != nil {
		return nil, err
	}

	m.open.Lock()
	defer m.open.Unlock()
	if s, ok := m.Get(user); ok {
		return s, nil
	}

	var (
		tree    *vfs.Tree
		loadErr error
	)
	if m.opts.Persister != nil {
		var status vfs.LoadStatus
		tree, status, loadErr = m.opts.Persister.Load(ctx, user)
		m.opts.Metrics.RecordSnapshotLoad(status.String(), loadErr)
		if tree == nil {
			m.log.Warn("store unavailable, session not opened", zap.String("user", user), zap.Error(loadErr))
			return nil, loadErr
		}
		if loadErr != nil {
			m.log.Warn("failed to load tree", zap.String("user", user), zap.Error(loadErr))
		} else {
			m.log.Info("tree loaded", zap.String("user", user), zap.Stringer("status", status))
		}
	} else {
		tree = vfs.New(user, m.opts.Clock())
	}

	s := New(Options{
		User:      user,
		Tree:      tree,
		Registry:  m.opts.Registry,
		Persister: m.opts.Persister,
		Shell:     m.opts.Shell,
		Logger:    m.opts.Logger,
		Metrics:   m.opts.Metrics,
		Clock:     m.opts.Clock,
	})
	s.loadErr = loadErr

	m.sessions.Store(user, s)
	m.opts.Metrics.SetSessionsActive(m.count())
	return s, nil
}

// Remove closes the user's session and deletes the stored tree. The next
// Open starts from an empty tree.
func (m *Manager) Remove(ctx context.Context, user string) error {
	if cached, ok := m.sessions.LoadAndDelete(user); ok {
		if err := cached.(*Session).Close(ctx, false); err != nil {
			return err
		}
		m.opts.Metrics.SetSessionsActive(m.count())
	}

	if m.opts.Persister != nil {
		if err := m.opts.Persister.Remove(ctx, user); err != nil {
			return fmt.Errorf("failed to remove tree: %w", err)
		}
	}

	now := m.opts.Clock()
	m.mu.Lock()
	m.lastRemoved = &now
	m.mu.Unlock()

	m.log.Info("tree removed", zap.String("user", user))
	return nil
}

// SaveAll persists every open session. Failures are collected.
func (m *Manager) SaveAll(ctx context.Context) error {
	var errs []error
	m.sessions.Range(func(_, value interface{}) bool {
		s := value.(*Session)
		if err := s.Save(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.User, err))
		}
		return true
	})

	now := m.opts.Clock()
	m.mu.Lock()
	m.lastSaved = &now
	m.mu.Unlock()

	return errors.Join(errs...)
}

// Close saves and closes every session.
func (m *Manager) Close(ctx context.Context) error {
	var errs []error
	m.sessions.Range(func(key, value interface{}) bool {
		if err := value.(*Session).Close(ctx, true); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		m.sessions.Delete(key)
		return true
	})
	m.opts.Metrics.SetSessionsActive(0)
	return errors.Join(errs...)
}

// Stats returns manager statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	lastSaved := m.lastSaved
	lastRemoved := m.lastRemoved
	m.mu.RUnlock()

	return Stats{
		ActiveSessions: m.count(),
		LastSaved:      lastSaved,
		LastRemoved:    lastRemoved,
	}
}

func (m *Manager) count() int {
	var total int
	m.sessions.Range(func(_, _ interface{}) bool {
		total++
		return true
	})
	return total
}
