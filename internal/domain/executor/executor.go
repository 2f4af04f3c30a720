package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/syntax"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

// Recorder receives execution metrics. *monitoring.Metrics satisfies it.
type Recorder interface {
	RecordCommand(name string, success bool, d time.Duration)
	RecordPipeline(background, success bool, d time.Duration)
	JobStarted()
	JobFinished(success bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordCommand(string, bool, time.Duration) {}
func (nopRecorder) RecordPipeline(bool, bool, time.Duration) {}
func (nopRecorder) JobStarted() {}
func (nopRecorder) JobFinished(bool) {}

// ScriptHost runs script files. Each line of the script goes through run,
// which executes under the caller's gate.
type ScriptHost interface {
	RunScript(ctx context.Context, path string, args []string, run commands.Runner) types.Result
}

// Options configures an Executor. Registry and Tree are required.
type Options struct {
	Registry  *commands.Registry
	Tree      *vfs.Tree
	User      string
	Sink      Sink
	Confirmer commands.Confirmer
	Scripts   ScriptHost
	Logger    *zap.Logger
	Metrics   Recorder
	Clock     func() time.Time

	// OnDirty persists the tree after a pipeline mutated it. It runs
	// under the gate.
	OnDirty func(ctx context.Context) error

	// MaxJobs caps running background jobs; zero means unlimited.
	MaxJobs int
}

// Executor runs pipelines for one user and tree.
type Executor struct {
	opts Options
	gate sync.Mutex
	jobs *JobManager
	log  *zap.Logger
}

// New creates an executor.
func New(opts Options) *Executor {
	if opts.Sink == nil {
		opts.Sink = Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Executor{
		opts: opts,
		jobs: NewJobManager(opts.MaxJobs, opts.Clock),
		log:  opts.Logger.Named("executor"),
	}
}

// Jobs returns the background job table.
func (e *Executor) Jobs() *JobManager {
	return e.jobs
}

// Wait blocks until all background jobs have finished.
func (e *Executor) Wait() {
	e.jobs.Wait()
}

// WithTree runs fn while no command is executing.
func (e *Executor) WithTree(fn func(*vfs.Tree)) {
	e.gate.Lock()
	defer e.gate.Unlock()
	fn(e.opts.Tree)
}

// ExecuteLine parses and runs one command line. A parse error aborts the
// line before anything runs.
func (e *Executor) ExecuteLine(ctx context.Context, line string) types.Result {
	p, err := syntax.ParseLine(line)
	if err != nil {
		res := types.Fail("%v", err)
		e.present(res)
		return res
	}
	return e.Execute(ctx, p)
}

// Execute runs a parsed pipeline in the foreground, or starts it as a job
// when it is backgrounded. The outcome is presented to the sink and also
// returned.
func (e *Executor) Execute(ctx context.Context, p *syntax.Pipeline) types.Result {
	if p.IsEmpty() {
		return types.OK("")
	}
	if p.Background {
		res := e.startJob(ctx, p)
		e.present(res)
		return res
	}

	r := &run{exec: e, confirmer: e.opts.Confirmer}
	res := r.pipeline(ctx, p, false)
	e.present(res)
	r.persist(ctx)
	return res
}

// Do runs fn as one foreground run holding the gate. Lines fn starts
// through the runner behave like lines started by a running command.
func (e *Executor) Do(ctx context.Context, fn func(commands.Runner) types.Result) types.Result {
	r := &run{exec: e, confirmer: e.opts.Confirmer}
	e.gate.Lock()
	res := fn(r)
	e.gate.Unlock()
	e.present(res)
	r.persist(ctx)
	return res
}

func (e *Executor) present(res types.Result) {
	sink := e.opts.Sink
	if !res.Success {
		if res.Output != "" {
			sink.Present(res.Output, types.HintText)
		}
		sink.Present(res.Error, types.HintError)
		return
	}
	if res.Output == "" {
		return
	}
	hint := res.Hint
	if hint == types.HintNone {
		hint = types.HintText
	}
	sink.Present(res.Output, hint)
}

// yield releases the gate while fn blocks. The caller holds the gate.
func (e *Executor) yield(fn func()) {
	e.gate.Unlock()
	defer e.gate.Lock()
	fn()
}

func (e *Executor) startJob(ctx context.Context, p *syntax.Pipeline) types.Result {
	fg := *p
	fg.Background = false
	command := fg.String()

	id, err := e.jobs.Start(command)
	if err != nil {
		return types.Fail("%v", err)
	}
	e.opts.Metrics.JobStarted()
	e.log.Debug("background job started", zap.Int("job", id), zap.String("pipeline", command))

	go e.runJob(context.WithoutCancel(ctx), id, &fg, command)
	return types.OKWithHint(fmt.Sprintf("[%d] started", id), types.HintBackground)
}

func (e *Executor) runJob(ctx context.Context, id int, p *syntax.Pipeline, command string) {
	log := e.log.With(zap.Int("job", id))
	r := &run{exec: e, background: true, confirmer: declineConfirmer{}}

	res := r.pipeline(ctx, p, false)
	r.persist(ctx)

	sink := e.opts.Sink
	if res.Output != "" {
		sink.Present(fmt.Sprintf("[%d] output suppressed (%d bytes)", id, len(res.Output)), types.HintBackground)
	}
	if res.Success {
		log.Debug("background job finished")
		sink.Present(fmt.Sprintf("[%d] done: %s", id, command), types.HintBackground)
	} else {
		log.Warn("background job failed", zap.String("pipeline", command), zap.String("error", res.Error))
		sink.Present(fmt.Sprintf("[%d] failed: %s: %s", id, command, res.Error), types.HintBackground)
	}

	e.jobs.Finish(id, res.Success)
	e.opts.Metrics.JobFinished(res.Success)
}

// declineConfirmer answers every question with no. Background jobs
// cannot read input.
type declineConfirmer struct{}

func (declineConfirmer) Confirm(context.Context, []string) (bool, error) {
	return false, nil
}

// run is the state of one top-level pipeline, shared with every line it
// starts through RunLine.
type run struct {
	exec       *Executor
	background bool
	dirty      bool
	confirmer  commands.Confirmer
}

// RunLine implements commands.Runner. The line runs under the gate the
// calling command already holds.
func (r *run) RunLine(ctx context.Context, line string) types.Result {
	p, err := syntax.ParseLine(line)
	if err != nil {
		return types.Fail("%v", err)
	}
	if p.IsEmpty() {
		return types.OK("")
	}
	if p.Background {
		return r.exec.startJob(ctx, p)
	}
	return r.pipeline(ctx, p, true)
}

func (r *run) pipeline(ctx context.Context, p *syntax.Pipeline, held bool) (res types.Result) {
	start := time.Now()
	defer func() {
		r.exec.opts.Metrics.RecordPipeline(r.background, res.Success, time.Since(start))
	}()

	var (
		last     types.Result
		stdin    string
		hasStdin bool
	)
	for _, seg := range p.Segments {
		last = r.segment(ctx, seg, stdin, hasStdin, held)
		if !last.Success {
			detail := last.Error
			if detail == "" {
				detail = "command failed"
			}
			return types.FailWithOutput(last.Output,
				fmt.Sprintf("pipeline error in command '%s': %s", seg.Command, detail))
		}
		stdin, hasStdin = last.Output, true
	}

	if p.Redirect != nil {
		if err := r.redirect(p.Redirect, last.Output, held); err != nil {
			return types.Fail("%v", err)
		}
		return types.OK("")
	}
	return last
}

func (r *run) segment(ctx context.Context, seg syntax.Segment, stdin string, hasStdin, held bool) types.Result {
	e := r.exec
	if !held {
		e.gate.Lock()
		defer e.gate.Unlock()
	}

	env := &commands.Env{
		Tree:       e.opts.Tree,
		User:       e.opts.User,
		Stdin:      stdin,
		HasStdin:   hasStdin,
		Registry:   e.opts.Registry,
		Confirmer:  r.confirmer,
		Runner:     r,
		Jobs:       e.jobs,
		Logger:     e.log.With(zap.String("command", seg.Command)),
		Background: r.background,
		Clock:      e.opts.Clock,
		Yield:      e.yield,
		OnMutate:   r.markDirty,
	}
	if e.opts.Scripts != nil {
		env.Scripts = scriptBinding{host: e.opts.Scripts, run: r}
	}

	start := time.Now()
	res := e.opts.Registry.Execute(ctx, seg.Command, seg.Args, env)
	label := seg.Command
	if _, known := e.opts.Registry.Get(label); !known {
		label = "unknown"
	}
	e.opts.Metrics.RecordCommand(label, res.Success, time.Since(start))
	return res
}

func (r *run) redirect(rd *syntax.Redirect, output string, held bool) error {
	e := r.exec
	if !held {
		e.gate.Lock()
		defer e.gate.Unlock()
	}

	mode := vfs.Overwrite
	if rd.Mode == syntax.RedirectModeAppend {
		mode = vfs.Append
	}
	if err := e.opts.Tree.WriteFile(rd.Target, output, mode, e.opts.User, e.opts.Clock()); err != nil {
		return err
	}
	r.markDirty()
	return nil
}

func (r *run) markDirty() {
	r.dirty = true
}

// persist saves the tree when the run changed it. A failure is always
// shown to the user.
func (r *run) persist(ctx context.Context) {
	e := r.exec
	if !r.dirty || e.opts.OnDirty == nil {
		return
	}
	e.gate.Lock()
	err := e.opts.OnDirty(ctx)
	e.gate.Unlock()
	if err != nil {
		e.log.Warn("failed to persist tree", zap.Error(err))
		e.opts.Sink.Present("warning: changes were not saved: "+err.Error(), types.HintWarning)
	}
}

type scriptBinding struct {
	host ScriptHost
	run  commands.Runner
}

func (b scriptBinding) RunScript(ctx context.Context, path string, args []string) types.Result {
	return b.host.RunScript(ctx, path, args, b.run)
}
