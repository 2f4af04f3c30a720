package commands

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

// Confirmer asks the user a yes/no question. It blocks until exactly one
// line of input answers the prompt; anything but the confirmation token is
// a refusal.
type Confirmer interface {
	Confirm(ctx context.Context, prompt []string) (bool, error)
}

// Runner runs a full command line inside the current execution. Used by
// find -exec.
type Runner interface {
	RunLine(ctx context.Context, line string) types.Result
}

// ScriptRunner executes a script file from the tree line by line.
type ScriptRunner interface {
	RunScript(ctx context.Context, path string, args []string) types.Result
}

// JobInfo is a read-only view of a background job.
type JobInfo struct {
	ID       int       `json:"id"`
	Command  string    `json:"command"`
	State    string    `json:"state"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitempty"`
}

// JobLister exposes the background job table.
type JobLister interface {
	List() []JobInfo
}

// Env is everything a command may touch during one invocation. The
// executor builds a fresh Env per segment.
type Env struct {
	Tree     *vfs.Tree
	User     string
	Stdin    string
	HasStdin bool

	Registry  *Registry
	Confirmer Confirmer
	Runner    Runner
	Scripts   ScriptRunner
	Jobs      JobLister
	Logger    *zap.Logger

	// Background is set for segments of a backgrounded pipeline.
	Background bool

	// Clock overrides time.Now.
	Clock func() time.Time
	// Yield releases the executor gate for the duration of fn.
	Yield func(fn func())
	// OnMutate is called by MarkDirty.
	OnMutate func()
}

// Now returns the current time.
func (e *Env) Now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// Log returns the logger, never nil.
func (e *Env) Log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Suspend runs fn at a cooperative suspension point: other work, such as
// background jobs, may use the tree while fn blocks.
func (e *Env) Suspend(fn func()) {
	if e.Yield == nil {
		fn()
		return
	}
	e.Yield(fn)
}

// Confirm asks for confirmation at a suspension point. Without a
// confirmer the answer is always no.
func (e *Env) Confirm(ctx context.Context, prompt ...string) bool {
	if e.Confirmer == nil {
		return false
	}
	var ok bool
	var err error
	e.Suspend(func() {
		ok, err = e.Confirmer.Confirm(ctx, prompt)
	})
	if err != nil {
		e.Log().Debug("confirmation aborted", zap.Error(err))
		return false
	}
	return ok
}

// MarkDirty records that the tree changed and must be persisted.
func (e *Env) MarkDirty() {
	if e.OnMutate != nil {
		e.OnMutate()
	}
}

// Can applies the tree's permission policy for the acting user.
func (e *Env) Can(node *vfs.Node, perm vfs.Permission) bool {
	return e.Tree.Can(node, e.User, perm)
}
