package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/syntax"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// scriptedConfirmer answers prompts from a queue and then with fallback.
type scriptedConfirmer struct {
	answers  []bool
	fallback bool
	prompts  [][]string
}

func (c *scriptedConfirmer) Confirm(_ context.Context, prompt []string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	if len(c.answers) == 0 {
		return c.fallback, nil
	}
	answer := c.answers[0]
	c.answers = c.answers[1:]
	return answer, nil
}

type fixture struct {
	t       *testing.T
	tree    *vfs.Tree
	reg     *commands.Registry
	env     *commands.Env
	confirm *scriptedConfirmer
	now     time.Time
	dirty   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := commands.NewRegistry(nil)
	require.NoError(t, Register(reg))

	f := &fixture{
		t:       t,
		tree:    vfs.New("alice", epoch),
		reg:     reg,
		confirm: &scriptedConfirmer{fallback: true},
		now:     epoch,
	}
	f.env = &commands.Env{
		Tree:      f.tree,
		User:      "alice",
		Registry:  reg,
		Confirmer: f.confirm,
		Runner:    f,
		Clock:     func() time.Time { return f.now },
		OnMutate:  func() { f.dirty++ },
	}
	return f
}

func (f *fixture) advance(d time.Duration) time.Time {
	f.now = f.now.Add(d)
	return f.now
}

// exec runs a single-segment command line.
func (f *fixture) exec(line string) types.Result {
	f.t.Helper()
	return f.RunLine(context.Background(), line)
}

// pipe runs a command line with stdin.
func (f *fixture) pipe(stdin, line string) types.Result {
	f.t.Helper()
	p, err := syntax.ParseLine(line)
	require.NoError(f.t, err)
	require.Len(f.t, p.Segments, 1)
	env := *f.env
	env.Stdin, env.HasStdin = stdin, true
	return f.reg.Execute(context.Background(), p.Segments[0].Command, p.Segments[0].Args, &env)
}

// RunLine implements commands.Runner for find -exec.
func (f *fixture) RunLine(ctx context.Context, line string) types.Result {
	p, err := syntax.ParseLine(line)
	require.NoError(f.t, err)
	require.Len(f.t, p.Segments, 1)
	env := *f.env
	return f.reg.Execute(ctx, p.Segments[0].Command, p.Segments[0].Args, &env)
}

func (f *fixture) write(path, content string) {
	f.t.Helper()
	require.NoError(f.t, f.tree.WriteFile(path, content, vfs.Overwrite, "alice", f.now))
}

func (f *fixture) mkdir(path string) {
	f.t.Helper()
	_, err := f.tree.CreateParents(vfs.Join(path, "x"), "alice", f.now)
	require.NoError(f.t, err)
}

func (f *fixture) node(path string) *vfs.Node {
	f.t.Helper()
	n, ok := f.tree.Resolve(path)
	require.True(f.t, ok, "missing %s", path)
	return n
}

func (f *fixture) exists(path string) bool {
	_, ok := f.tree.Resolve(path)
	return ok
}

// shape maps every path below root to its type and content.
func shape(tree *vfs.Tree, root string) map[string]string {
	out := make(map[string]string)
	tree.Walk(root, func(p string, n *vfs.Node) bool {
		rel := p[len(root):]
		if n.IsDir() {
			out[rel] = "dir"
		} else {
			out[rel] = "file:" + n.Content
		}
		return true
	})
	return out
}
