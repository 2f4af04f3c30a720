package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/resilience"
)

// Guarded fails fast while the wrapped backend keeps failing.
type Guarded struct {
	Store
	breaker *resilience.Breaker
}

// NewGuarded wraps inner in a breaker that opens after maxFailures
// consecutive backend errors and probes again after timeout.
func NewGuarded(name string, inner Store, maxFailures uint32, timeout time.Duration, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFailures == 0 {
		maxFailures = 5
	}
	breaker := resilience.New(name, resilience.Settings{
		Timeout: timeout,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrInvalidKey) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("storage breaker state changed",
				zap.String("store", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	return &Guarded{Store: inner, breaker: breaker}
}

// State reports the breaker state.
func (g *Guarded) State() resilience.State {
	return g.breaker.State()
}

func (g *Guarded) call(op string, fn func() error) error {
	err := g.breaker.Call(fn)
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return fmt.Errorf("%s: storage unavailable: %w", op, err)
	}
	return err
}

// Init implements Store.
func (g *Guarded) Init(ctx context.Context) error {
	return g.call("init", func() error { return g.Store.Init(ctx) })
}

// Get implements Store.
func (g *Guarded) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data  []byte
		found bool
	)
	err := g.call("get", func() error {
		var err error
		data, found, err = g.Store.Get(ctx, key)
		return err
	})
	return data, found, err
}

// Put implements Store.
func (g *Guarded) Put(ctx context.Context, key string, data []byte) error {
	return g.call("put", func() error { return g.Store.Put(ctx, key, data) })
}

// Delete implements Store.
func (g *Guarded) Delete(ctx context.Context, key string) error {
	return g.call("delete", func() error { return g.Store.Delete(ctx, key) })
}

// Clear implements Store.
func (g *Guarded) Clear(ctx context.Context) error {
	return g.call("clear", func() error { return g.Store.Clear(ctx) })
}
