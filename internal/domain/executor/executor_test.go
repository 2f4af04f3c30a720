package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/commands/builtin"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type countingMetrics struct {
	mu        sync.Mutex
	commands  map[string]int
	pipelines int
	started   int
	finished  int
}

func (m *countingMetrics) RecordCommand(name string, _ bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commands == nil {
		m.commands = make(map[string]int)
	}
	m.commands[name]++
}

func (m *countingMetrics) RecordPipeline(bool, bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelines++
}

func (m *countingMetrics) JobStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *countingMetrics) JobFinished(bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished++
}

func (m *countingMetrics) jobs() (started, finished int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started, m.finished
}

type harness struct {
	t       *testing.T
	tree    *vfs.Tree
	reg     *commands.Registry
	sink    *RecorderSink
	metrics *countingMetrics
	exec    *Executor

	mu       sync.Mutex
	saves    int
	saveErr  error
	released chan struct{}
}

func newHarness(t *testing.T, configure func(*Options)) *harness {
	t.Helper()
	reg := commands.NewRegistry(nil)
	require.NoError(t, builtin.Register(reg))

	h := &harness{
		t:        t,
		tree:     vfs.New("alice", epoch),
		reg:      reg,
		sink:     &RecorderSink{},
		metrics:  &countingMetrics{},
		released: make(chan struct{}),
	}
	// park blocks at a suspension point until the test releases it.
	reg.MustRegister(commands.Func{
		Def: commands.Definition{Name: "park"},
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			env.Suspend(func() { <-h.released })
			return types.OK(strings.Join(args, " "))
		},
	})

	opts := Options{
		Registry: reg,
		Tree:     h.tree,
		User:     "alice",
		Sink:     h.sink,
		Metrics:  h.metrics,
		Clock:    func() time.Time { return epoch },
		OnDirty: func(context.Context) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.saves++
			return h.saveErr
		},
	}
	if configure != nil {
		configure(&opts)
	}
	h.exec = New(opts)
	return h
}

func (h *harness) line(line string) types.Result {
	h.t.Helper()
	return h.exec.ExecuteLine(context.Background(), line)
}

func (h *harness) content(path string) string {
	h.t.Helper()
	n, ok := h.tree.Resolve(path)
	require.True(h.t, ok, "missing %s", path)
	return n.Content
}

func (h *harness) saveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saves
}

func TestPipelineThreadsOutput(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.tree.WriteFile("/notes", "alpha\nbeta\ngamma", vfs.Overwrite, "alice", epoch))

	res := h.line("cat /notes | grep a | wc -l")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "3", strings.TrimSpace(res.Output))
	assert.Equal(t, []string{res.Output}, h.sink.Texts())
	assert.Equal(t, 3, len(h.metrics.commands))
	assert.Equal(t, 1, h.metrics.pipelines)
}

func TestRedirectOverwriteThenAppend(t *testing.T) {
	h := newHarness(t, nil)

	res := h.line("echo hello | cat > /out/file.txt")
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Output)
	assert.Empty(t, h.sink.Entries(), "redirected output is not shown")
	assert.Equal(t, "hello", h.content("/out/file.txt"))

	res = h.line("echo world | cat >> /out/file.txt")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "hello\nworld", h.content("/out/file.txt"))

	res = h.line("echo replaced > /out/file.txt")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "replaced", h.content("/out/file.txt"))
	assert.Equal(t, 3, h.saveCount())
}

func TestRedirectKeepsOwnerAndMode(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.tree.WriteFile("/shared", "old", vfs.Overwrite, "alice", epoch))
	n, _ := h.tree.Resolve("/shared")
	n.Mode = 0o66
	n.Owner = "bob"

	require.True(t, h.line("echo new > /shared").Success)
	n, _ = h.tree.Resolve("/shared")
	assert.Equal(t, "bob", n.Owner)
	assert.Equal(t, vfs.Mode(0o66), n.Mode)
	assert.Equal(t, "new", n.Content)
}

func TestRedirectErrors(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.tree.CreateParents("/dir/x", "alice", epoch)
	require.NoError(t, err)

	res := h.line("echo x > /dir")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "is a directory")

	n, _ := h.tree.Resolve("/dir")
	n.Mode = 0o55
	res = h.line("echo x > /dir/file")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "permission denied")
	_, exists := h.tree.Resolve("/dir/file")
	assert.False(t, exists)
}

func TestDeniedRedirectLeavesTree(t *testing.T) {
	later := epoch.Add(time.Hour)
	h := newHarness(t, func(o *Options) {
		o.Clock = func() time.Time { return later }
	})
	_, err := h.tree.CreateParents("/ro/x", "alice", epoch)
	require.NoError(t, err)
	n, _ := h.tree.Resolve("/ro")
	n.Owner = "bob"
	before := h.tree.Snapshot()

	for _, line := range []string{"echo x > /ro/f", "echo x >> /ro/a/b/f"} {
		res := h.line(line)
		assert.False(t, res.Success, line)
		assert.Contains(t, res.Error, "permission denied", line)
		assert.Equal(t, before, h.tree.Snapshot(), line)
	}
	assert.Zero(t, h.saveCount())
}

func TestFailingSegmentStopsPipeline(t *testing.T) {
	h := newHarness(t, nil)

	res := h.line("echo x | nosuch | cat > /never")
	assert.False(t, res.Success)
	assert.Equal(t, "pipeline error in command 'nosuch': nosuch: command not found", res.Error)
	_, exists := h.tree.Resolve("/never")
	assert.False(t, exists)
	assert.Zero(t, h.metrics.commands["cat"])
	assert.Equal(t, 1, h.metrics.commands["unknown"], "unregistered names share one label")

	entries := h.sink.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, types.HintError, entries[len(entries)-1].Hint)
	assert.Zero(t, h.saveCount())
}

func TestParseErrorRunsNothing(t *testing.T) {
	h := newHarness(t, nil)

	res := h.line(`touch "/unterminated`)
	assert.False(t, res.Success)
	assert.Len(t, h.tree.Root().Children, 0)
	assert.Empty(t, h.metrics.commands)
}

func TestPersistFailureIsWarned(t *testing.T) {
	h := newHarness(t, nil)
	h.saveErr = errors.New("disk full")

	res := h.line("touch /f")
	assert.True(t, res.Success, "the command itself succeeded")

	entries := h.sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "warning: changes were not saved: disk full", entries[0].Text)
	assert.Equal(t, types.HintWarning, entries[0].Hint)

	h.sink.Drain()
	require.True(t, h.line("pwd").Success)
	assert.Equal(t, 1, h.saveCount(), "read-only commands do not persist")
}

func TestNestedLinesShareTheRun(t *testing.T) {
	h := newHarness(t, nil)
	for _, p := range []string{"/a.txt", "/b.txt", "/keep.md"} {
		require.NoError(t, h.tree.WriteFile(p, strings.TrimPrefix(p, "/"), vfs.Overwrite, "alice", epoch))
	}

	res := h.line(`find / -name "*.txt" -exec cat {} ;`)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "a.txt\nb.txt", res.Output)
	assert.Zero(t, h.saveCount())

	res = h.line(`find / -name "*.txt" -exec rm -f {} ;`)
	require.True(t, res.Success, res.Error)
	_, exists := h.tree.Resolve("/a.txt")
	assert.False(t, exists)
	assert.Equal(t, 1, h.saveCount(), "one save for the whole top-level line")
}

func TestBackgroundSuppressesOutput(t *testing.T) {
	h := newHarness(t, nil)

	res := h.line("echo secret &")
	require.True(t, res.Success)
	assert.Equal(t, "[1] started", res.Output)
	assert.Equal(t, types.HintBackground, res.Hint)
	h.exec.Wait()

	texts := h.sink.Texts()
	assert.Contains(t, texts, "[1] started")
	assert.Contains(t, texts, "[1] output suppressed (6 bytes)")
	assert.Contains(t, texts, "[1] done: echo secret")
	assert.NotContains(t, texts, "secret")

	jobs := h.exec.Jobs().List()
	require.Len(t, jobs, 1)
	assert.Equal(t, JobDone, jobs[0].State)
	started, finished := h.metrics.jobs()
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, finished)
}

func TestBackgroundReturnsBeforeCompletion(t *testing.T) {
	h := newHarness(t, nil)

	res := h.line("park done > /marker &")
	require.True(t, res.Success)
	assert.Equal(t, 1, h.exec.Jobs().Running())

	// The job is parked at a suspension point, so the foreground runs.
	fg := h.line("echo foreground")
	require.True(t, fg.Success)
	_, exists := h.tree.Resolve("/marker")
	assert.False(t, exists)

	close(h.released)
	h.exec.Wait()
	assert.Equal(t, "done", h.content("/marker"))
	assert.Zero(t, h.exec.Jobs().Running())
	assert.NotContains(t, strings.Join(h.sink.Texts(), "\n"), "output suppressed")
}

func TestBackgroundFailureIsReported(t *testing.T) {
	h := newHarness(t, nil)

	require.True(t, h.line("cat /missing &").Success)
	h.exec.Wait()

	jobs := h.exec.Jobs().List()
	require.Len(t, jobs, 1)
	assert.Equal(t, JobFailed, jobs[0].State)

	var failed string
	for _, text := range h.sink.Texts() {
		if strings.HasPrefix(text, "[1] failed: cat /missing:") {
			failed = text
		}
	}
	assert.Contains(t, failed, "pipeline error in command 'cat'")
}

func TestBackgroundConfirmationDeclines(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.tree.WriteFile("/f", "x", vfs.Overwrite, "alice", epoch))

	require.True(t, h.line("rm /f &").Success)
	h.exec.Wait()

	_, exists := h.tree.Resolve("/f")
	assert.True(t, exists)
	assert.Equal(t, JobDone, h.exec.Jobs().List()[0].State)
}

func TestJobLimit(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MaxJobs = 1 })

	require.True(t, h.line("park &").Success)
	res := h.line("park &")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "too many background jobs (limit 1)")

	close(h.released)
	h.exec.Wait()
	assert.True(t, h.line("echo again &").Success)
	h.exec.Wait()
}

type recordingScripts struct {
	path string
	args []string
}

func (s *recordingScripts) RunScript(ctx context.Context, path string, args []string, run commands.Runner) types.Result {
	s.path, s.args = path, args
	return run.RunLine(ctx, "touch /from-script")
}

func TestScriptsRunThroughTheCurrentRun(t *testing.T) {
	scripts := &recordingScripts{}
	h := newHarness(t, func(o *Options) { o.Scripts = scripts })

	res := h.line("run /setup.sh one two")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "/setup.sh", scripts.path)
	assert.Equal(t, []string{"one", "two"}, scripts.args)
	_, exists := h.tree.Resolve("/from-script")
	assert.True(t, exists)
	assert.Equal(t, 1, h.saveCount())
}

func TestWithTreeWaitsForTheGate(t *testing.T) {
	h := newHarness(t, nil)

	var seen *vfs.Tree
	h.exec.WithTree(func(tree *vfs.Tree) { seen = tree })
	assert.Same(t, h.tree, seen)
}
