package vfs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCreateParentsBuildsChain(t *testing.T) {
	tree := New("alice", epoch)
	later := epoch.Add(time.Hour)

	parent, err := tree.CreateParents("/a/b/c/file", "alice", later)
	require.NoError(t, err)

	b, ok := tree.Resolve("/a/b")
	require.True(t, ok)
	c, ok := tree.Resolve("/a/b/c")
	require.True(t, ok)
	assert.Same(t, c, parent)

	for _, p := range []string{"/", "/a", "/a/b", "/a/b/c"} {
		node, ok := tree.Resolve(p)
		require.True(t, ok, p)
		assert.True(t, node.IsDir(), p)
		assert.Equal(t, later, node.Mtime, p)
		assert.Equal(t, "alice", node.Owner, p)
		assert.Equal(t, DefaultDirMode, node.Mode, p)
	}
	assert.Len(t, b.Children, 1)
}

func TestCreateParentsFailures(t *testing.T) {
	tree := New("alice", epoch)
	require.NoError(t, tree.WriteFile("/f", "x", Overwrite, "alice", epoch))

	_, err := tree.CreateParents("/f/sub/x", "alice", epoch)
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = tree.CreateParents("/dir/x", "bob", epoch)
	assert.ErrorIs(t, err, ErrPermission)
	_, ok := tree.Resolve("/dir")
	assert.False(t, ok)
}

func TestResolveStopsAtFile(t *testing.T) {
	tree := New("alice", epoch)
	require.NoError(t, tree.WriteFile("/a/f", "x", Overwrite, "alice", epoch))

	_, ok := tree.Resolve("/a/f/g")
	assert.False(t, ok)
	_, ok = tree.Resolve("/missing")
	assert.False(t, ok)
	node, ok := tree.Resolve("/a/../a/./f")
	require.True(t, ok)
	assert.Equal(t, "x", node.Content)
}

func TestValidate(t *testing.T) {
	tree := New("alice", epoch)
	require.NoError(t, tree.WriteFile("/a/f", "x", Overwrite, "alice", epoch))
	require.NoError(t, tree.SetCwd("/a"))

	info, err := tree.Validate("f", ValidateOptions{ExpectedType: TypeFile})
	require.NoError(t, err)
	assert.Equal(t, "/a/f", info.Path)
	assert.NotNil(t, info.Node)

	_, err = tree.Validate("f", ValidateOptions{ExpectedType: TypeDirectory})
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = tree.Validate("/a", ValidateOptions{ExpectedType: TypeFile})
	assert.ErrorIs(t, err, ErrIsDirectory)

	_, err = tree.Validate("..", ValidateOptions{DisallowRoot: true})
	assert.ErrorIs(t, err, ErrRootForbidden)

	info, err = tree.Validate("nope", ValidateOptions{AllowMissing: true})
	require.NoError(t, err)
	assert.Nil(t, info.Node)
	assert.Equal(t, "/a/nope", info.Path)

	_, err = tree.Validate("nope", ValidateOptions{})
	var pe *PathError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "nope", pe.Path)
	assert.Equal(t, "'nope': no such file or directory", err.Error())
}

func TestWriteFileOverwriteAndAppend(t *testing.T) {
	tree := New("alice", epoch)

	require.NoError(t, tree.WriteFile("/out.txt", "one", Overwrite, "alice", epoch))
	require.NoError(t, tree.WriteFile("/out.txt", "two", Append, "alice", epoch))
	node, _ := tree.Resolve("/out.txt")
	assert.Equal(t, "one\ntwo", node.Content)

	require.NoError(t, tree.WriteFile("/out.txt", "three\n", Overwrite, "alice", epoch))
	require.NoError(t, tree.WriteFile("/out.txt", "four", Append, "alice", epoch))
	node, _ = tree.Resolve("/out.txt")
	assert.Equal(t, "three\nfour", node.Content)

	require.NoError(t, tree.WriteFile("/empty", "", Overwrite, "alice", epoch))
	require.NoError(t, tree.WriteFile("/empty", "x", Append, "alice", epoch))
	node, _ = tree.Resolve("/empty")
	assert.Equal(t, "x", node.Content)
}

func TestWriteFileKeepsAttributes(t *testing.T) {
	tree := New("alice", epoch)
	tree.Root().Mode = 0o77
	require.NoError(t, tree.WriteFile("/shared", "a", Overwrite, "alice", epoch))
	node, _ := tree.Resolve("/shared")
	node.Mode = 0o66

	later := epoch.Add(time.Minute)
	require.NoError(t, tree.WriteFile("/shared", "b", Overwrite, "bob", later))
	node, _ = tree.Resolve("/shared")
	assert.Equal(t, "alice", node.Owner)
	assert.Equal(t, Mode(0o66), node.Mode)
	assert.Equal(t, later, tree.Root().Mtime)
}

func TestWriteFilePermissions(t *testing.T) {
	tree := New("alice", epoch)
	require.NoError(t, tree.WriteFile("/f", "a", Overwrite, "alice", epoch))

	err := tree.WriteFile("/f", "b", Overwrite, "bob", epoch)
	assert.ErrorIs(t, err, ErrPermission)

	err = tree.WriteFile("/new", "b", Overwrite, "bob", epoch)
	assert.ErrorIs(t, err, ErrPermission)

	require.NoError(t, tree.WriteFile("/d/x", "a", Overwrite, "alice", epoch))
	err = tree.WriteFile("/d", "b", Overwrite, "alice", epoch)
	assert.ErrorIs(t, err, ErrIsDirectory)
	err = tree.WriteFile("/", "b", Overwrite, "alice", epoch)
	assert.ErrorIs(t, err, ErrIsDirectory)
}

func TestUpdateMtime(t *testing.T) {
	tree := New("alice", epoch)
	require.NoError(t, tree.WriteFile("/a/b/f", "", Overwrite, "alice", epoch))

	later := epoch.Add(time.Hour)
	tree.UpdateMtime("/a/b/f", later)

	f, _ := tree.Resolve("/a/b/f")
	b, _ := tree.Resolve("/a/b")
	a, _ := tree.Resolve("/a")
	assert.Equal(t, later, f.Mtime)
	assert.Equal(t, later, b.Mtime)
	assert.Equal(t, epoch, a.Mtime)

	tree.UpdateMtime("/", later)
	assert.Equal(t, later, tree.Root().Mtime)
}

func TestLinkRefusesSharedNodes(t *testing.T) {
	tree := New("alice", epoch)
	require.NoError(t, tree.WriteFile("/a/f", "x", Overwrite, "alice", epoch))
	f, _ := tree.Resolve("/a/f")

	err := tree.Link("/", "g", f, epoch)
	assert.ErrorIs(t, err, ErrExists)

	err = tree.Link("/", "a", NewFile("", "alice", DefaultFileMode, epoch), epoch)
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, tree.Link("/", "g", f.Clone(), epoch))
	g, ok := tree.Resolve("/g")
	require.True(t, ok)
	assert.NotSame(t, f, g)
}

func TestUnlink(t *testing.T) {
	tree := New("alice", epoch)
	require.NoError(t, tree.WriteFile("/a/f", "x", Overwrite, "alice", epoch))

	later := epoch.Add(time.Hour)
	node, err := tree.Unlink("/a", "f", later)
	require.NoError(t, err)
	assert.Equal(t, "x", node.Content)

	a, _ := tree.Resolve("/a")
	assert.True(t, a.IsEmpty())
	assert.Equal(t, later, a.Mtime)

	_, err = tree.Unlink("/a", "f", later)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWalkIsDepthFirstLexical(t *testing.T) {
	tree := New("alice", epoch)
	for _, p := range []string{"/b/y", "/a/z", "/a/c/x", "/c"} {
		require.NoError(t, tree.WriteFile(p, "", Overwrite, "alice", epoch))
	}

	var visited []string
	tree.Walk("/", func(p string, _ *Node) bool {
		visited = append(visited, p)
		return true
	})
	assert.Equal(t, []string{"/", "/a", "/a/c", "/a/c/x", "/a/z", "/b", "/b/y", "/c"}, visited)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	tree := New("alice", epoch)
	require.NoError(t, tree.WriteFile("/a/f", "x", Overwrite, "alice", epoch))

	snap := tree.Snapshot()
	snap.Children["a"].Children["f"].Content = "changed"

	f, _ := tree.Resolve("/a/f")
	assert.Equal(t, "x", f.Content)
}

func TestSetCwd(t *testing.T) {
	tree := New("alice", epoch)
	require.NoError(t, tree.WriteFile("/a/f", "", Overwrite, "alice", epoch))

	require.NoError(t, tree.SetCwd("a"))
	assert.Equal(t, "/a", tree.Cwd())
	assert.ErrorIs(t, tree.SetCwd("f"), ErrNotDirectory)
	assert.ErrorIs(t, tree.SetCwd("/nope"), ErrNotFound)
	assert.Equal(t, "/a", tree.Cwd())
}

func TestCanAdminister(t *testing.T) {
	tree := New("alice", epoch)
	node := tree.Root()

	assert.True(t, tree.CanAdminister(node, "alice"))
	assert.False(t, tree.CanAdminister(node, "root"))

	tree.SetPolicy(AdminPolicy{Admin: "root"})
	assert.True(t, tree.CanAdminister(node, "root"))
	assert.False(t, tree.CanAdminister(node, "bob"))
	assert.False(t, tree.CanAdminister(nil, "root"))
}

func TestDeniedWritesLeaveTreeUntouched(t *testing.T) {
	later := epoch.Add(time.Hour)
	newTree := func(t *testing.T) *Tree {
		tree := New("alice", epoch)
		_, err := tree.CreateParents("/ro/x", "alice", epoch)
		require.NoError(t, err)
		ro, _ := tree.Resolve("/ro")
		ro.Owner = "bob"
		require.NoError(t, tree.WriteFile("/locked", "keep", Overwrite, "alice", epoch))
		locked, _ := tree.Resolve("/locked")
		locked.Mode = 0o44
		return tree
	}

	cases := map[string]func(*Tree) error{
		"new file in foreign directory": func(tree *Tree) error {
			return tree.WriteFile("/ro/f", "x", Overwrite, "alice", later)
		},
		"missing parents under foreign directory": func(tree *Tree) error {
			return tree.WriteFile("/ro/a/b/f", "x", Append, "alice", later)
		},
		"read-only file": func(tree *Tree) error {
			return tree.WriteFile("/locked", "x", Overwrite, "alice", later)
		},
		"parents under foreign directory": func(tree *Tree) error {
			_, err := tree.CreateParents("/ro/a/b", "alice", later)
			return err
		},
		"check only": func(tree *Tree) error {
			return tree.CheckCreate("/ro/a", "alice")
		},
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			tree := newTree(t)
			before := tree.Snapshot()

			assert.ErrorIs(t, op(tree), ErrPermission)
			assert.Equal(t, before, tree.Snapshot())
			assert.Equal(t, epoch, tree.Root().Mtime)
		})
	}
}

func TestCheckCreateAllowsOwnDirectories(t *testing.T) {
	tree := New("alice", epoch)
	assert.NoError(t, tree.CheckCreate("/a/b/c", "alice"))
	assert.ErrorIs(t, tree.CheckCreate("/a", "bob"), ErrPermission)
	_, ok := tree.Resolve("/a")
	assert.False(t, ok)
}
