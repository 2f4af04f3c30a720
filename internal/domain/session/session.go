package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/executor"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/config"
	"github.com/aedmark/OopisOS-sub001/internal/shared/id"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
	"github.com/aedmark/OopisOS-sub001/internal/shared/utils"
)

// Recorder receives session metrics. *monitoring.Metrics satisfies it.
type Recorder interface {
	executor.Recorder
	RecordSnapshotSave(err error)
	RecordSnapshotLoad(status string, err error)
	SetSessionsActive(count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCommand(string, bool, time.Duration) {}
func (nopRecorder) RecordPipeline(bool, bool, time.Duration) {}
func (nopRecorder) JobStarted() {}
func (nopRecorder) JobFinished(bool) {}
func (nopRecorder) RecordSnapshotSave(error) {}
func (nopRecorder) RecordSnapshotLoad(string, error) {}
func (nopRecorder) SetSessionsActive(int) {}

// Options configures a Session.
type Options struct {
	User     string
	Tree     *vfs.Tree
	Registry *commands.Registry
	// Persister saves the tree after mutations. Nil disables persistence.
	Persister *vfs.Persister
	Shell     config.ShellConfig
	Logger    *zap.Logger
	Metrics   Recorder
	Clock     func() time.Time
}

// Outcome is the answer to one submitted line. Pending means the line is
// parked at a confirmation showing Prompt; the next Submit answers it.
type Outcome struct {
	Result  types.Result `json:"result"`
	Pending bool         `json:"pending"`
	Prompt  []string     `json:"prompt,omitempty"`
}

type event struct {
	prompt []string
	result types.Result
	done   bool
}

// activeLine is a foreground computation that has not finished yet.
type activeLine struct {
	events  chan event
	answers chan bool
	prompt  []string
}

// Session is one user's shell.
type Session struct {
	ID      id.SessionID
	User    string
	Created time.Time

	tree      *vfs.Tree
	exec      *executor.Executor
	sink      *executor.FanoutSink
	persister *vfs.Persister
	shell     config.ShellConfig
	metrics   Recorder
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	active    *activeLine
	scripting atomic.Bool
	loadErr   error
}

// New creates a session over an already loaded tree.
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Shell.ConfirmToken == "" {
		opts.Shell.ConfirmToken = "YES"
	}
	if opts.Shell.AdminUser != "" {
		opts.Tree.SetPolicy(vfs.AdminPolicy{Admin: opts.Shell.AdminUser})
	}

	sid := id.NewSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        sid,
		User:      opts.User,
		Created:   opts.Clock(),
		tree:      opts.Tree,
		sink:      executor.NewFanoutSink(),
		persister: opts.Persister,
		shell:     opts.Shell,
		metrics:   opts.Metrics,
		log:       opts.Logger.With(zap.String("session", sid.String()), zap.String("user", opts.User)),
		ctx:       ctx,
		cancel:    cancel,
	}

	execOpts := executor.Options{
		Registry:  opts.Registry,
		Tree:      opts.Tree,
		User:      opts.User,
		Sink:      s.sink,
		Confirmer: s,
		Scripts:   s,
		Logger:    s.log,
		Metrics:   opts.Metrics,
		Clock:     opts.Clock,
		MaxJobs:   opts.Shell.MaxJobs,
	}
	if opts.Persister != nil && opts.Shell.Autosave {
		execOpts.OnDirty = s.persist
	}
	s.exec = executor.New(execOpts)
	return s
}

// Subscribe adds a sink that sees everything the session presents.
func (s *Session) Subscribe(sink executor.Sink) func() {
	return s.sink.Subscribe(sink)
}

// Jobs lists background jobs.
func (s *Session) Jobs() []commands.JobInfo {
	return s.exec.Jobs().List()
}

// Cwd returns the working directory, waiting for any command that holds
// the tree.
func (s *Session) Cwd() string {
	var cwd string
	s.exec.WithTree(func(t *vfs.Tree) { cwd = t.Cwd() })
	return cwd
}

// LoadErr reports why the saved tree could not be restored when the
// session was opened, if it could not.
func (s *Session) LoadErr() error {
	return s.loadErr
}

// Pending reports whether a line is parked at a confirmation.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil && s.active.prompt != nil
}

// ScriptRunning reports whether a script holds the session.
func (s *Session) ScriptRunning() bool {
	return s.scripting.Load()
}

// Submit feeds one line of input to the session. It returns when the line
// finished or parked at a confirmation.
func (s *Session) Submit(ctx context.Context, line string) Outcome {
	s.mu.Lock()
	if a := s.active; a != nil {
		if a.prompt == nil {
			s.mu.Unlock()
			return s.reject(s.busyReason())
		}
		a.prompt = nil
		s.mu.Unlock()

		a.answers <- line == s.shell.ConfirmToken
		return s.await(a)
	}
	s.mu.Unlock()

	if err := utils.ValidateCommandLine(line); err != nil {
		return s.reject(err.Error())
	}
	return s.start(ctx, func(runCtx context.Context) types.Result {
		return s.exec.ExecuteLine(runCtx, line)
	})
}

// SubmitSource runs script text that does not live in the tree, such as
// a file handed to the command-line client.
func (s *Session) SubmitSource(ctx context.Context, name, content string, args []string) Outcome {
	return s.start(ctx, func(runCtx context.Context) types.Result {
		return s.exec.Do(runCtx, func(run commands.Runner) types.Result {
			return s.runSource(runCtx, name, content, args, run)
		})
	})
}

func (s *Session) busyReason() string {
	if s.scripting.Load() {
		return "script running"
	}
	return "a command is still running"
}

func (s *Session) reject(reason string) Outcome {
	res := types.Fail("%s", reason)
	s.sink.Present(res.Error, types.HintError)
	return Outcome{Result: res}
}

// start runs fn in its own goroutine so it can park at a confirmation
// and be resumed by a later Submit. The computation outlives ctx's
// cancellation but not the session.
func (s *Session) start(ctx context.Context, fn func(context.Context) types.Result) Outcome {
	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return s.reject(s.busyReason())
	}
	a := &activeLine{events: make(chan event, 1), answers: make(chan bool, 1)}
	s.active = a
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.ctx, cancel)
	go func() {
		defer stop()
		defer cancel()
		a.events <- event{result: fn(runCtx), done: true}
	}()
	return s.await(a)
}

func (s *Session) await(a *activeLine) Outcome {
	ev := <-a.events

	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.done {
		s.active = nil
		return Outcome{Result: ev.result}
	}
	a.prompt = ev.prompt
	return Outcome{Result: types.OK(""), Pending: true, Prompt: ev.prompt}
}

// Confirm implements commands.Confirmer. It parks the running line until
// the next Submit answers.
func (s *Session) Confirm(ctx context.Context, prompt []string) (bool, error) {
	s.mu.Lock()
	a := s.active
	s.mu.Unlock()
	if a == nil {
		return false, nil
	}

	s.sink.Present(strings.Join(prompt, "\n"), types.HintWarning)
	s.sink.Present(fmt.Sprintf("Type '%s' to confirm.", s.shell.ConfirmToken), types.HintInfo)
	a.events <- event{prompt: prompt}

	select {
	case ok := <-a.answers:
		if !ok {
			s.log.Debug("confirmation cancelled", zap.Strings("prompt", prompt))
		}
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// persist runs under the executor gate after a line changed the tree.
func (s *Session) persist(ctx context.Context) error {
	err := s.persister.Save(ctx, s.tree, s.User)
	s.metrics.RecordSnapshotSave(err)
	return err
}

// Save persists the tree now, waiting for any running command.
func (s *Session) Save(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	var err error
	s.exec.WithTree(func(*vfs.Tree) {
		err = s.persist(ctx)
	})
	return err
}

// Close stops the session. Parked confirmations are cancelled and
// background jobs are waited for. With save set the tree is persisted
// one last time.
func (s *Session) Close(ctx context.Context, save bool) error {
	s.cancel()
	s.exec.Wait()
	if !save {
		return nil
	}
	return s.Save(ctx)
}
