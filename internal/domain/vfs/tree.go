package vfs

import (
	"strings"
	"time"
)

// WriteMode selects how WriteFile treats existing content.
type WriteMode int

const (
	Overwrite WriteMode = iota
	Append
)

// ValidateOptions controls Tree.Validate.
type ValidateOptions struct {
	AllowMissing bool
	ExpectedType NodeType
	DisallowRoot bool
}

// PathInfo is the outcome of a successful Validate. Node is nil when the
// path is missing and AllowMissing was set.
type PathInfo struct {
	Path string
	Node *Node
}

// Tree owns the whole file hierarchy and the current directory cursor.
type Tree struct {
	root   *Node
	cwd    string
	policy Policy
}

// New returns a tree initialized with a fresh root owned by owner.
func New(owner string, now time.Time) *Tree {
	t := &Tree{policy: OwnerPolicy{}}
	t.Initialize(owner, now)
	return t
}

// FromRoot wraps an existing root node. The caller hands over ownership.
func FromRoot(root *Node) *Tree {
	return &Tree{root: root, cwd: RootPath, policy: OwnerPolicy{}}
}

// Initialize replaces the whole tree with an empty root directory.
func (t *Tree) Initialize(owner string, now time.Time) {
	t.root = NewDirectory(owner, DefaultDirMode, now)
	t.cwd = RootPath
}

// Root returns the root directory.
func (t *Tree) Root() *Node { return t.root }

// SetPolicy replaces the permission policy. A nil policy restores the base
// owner/other model.
func (t *Tree) SetPolicy(p Policy) {
	if p == nil {
		p = OwnerPolicy{}
	}
	t.policy = p
}

// Can applies the tree's permission policy.
func (t *Tree) Can(node *Node, user string, perm Permission) bool {
	return t.policy.Allowed(node, user, perm)
}

// CanAdminister reports whether user may change the ownership or mode of
// node: its owner always can, and so can an administrator when the policy
// has one.
func (t *Tree) CanAdminister(node *Node, user string) bool {
	if node == nil {
		return false
	}
	if node.Owner == user {
		return true
	}
	admin, ok := t.policy.(interface{ IsAdmin(string) bool })
	return ok && admin.IsAdmin(user)
}

// Cwd returns the current directory.
func (t *Tree) Cwd() string { return t.cwd }

// SetCwd moves the current directory cursor. The target must be an
// existing directory.
func (t *Tree) SetCwd(p string) error {
	abs := t.Abs(p)
	node, ok := t.lookup(abs)
	if !ok {
		return pathErr("", p, ErrNotFound)
	}
	if !node.IsDir() {
		return pathErr("", p, ErrNotDirectory)
	}
	t.cwd = abs
	return nil
}

// Abs resolves p against the current directory.
func (t *Tree) Abs(p string) string {
	return ResolveAbsolute(p, t.cwd)
}

// Resolve returns the node at p, or false when any segment is missing or a
// non-terminal segment is a file.
func (t *Tree) Resolve(p string) (*Node, bool) {
	return t.lookup(t.Abs(p))
}

func (t *Tree) lookup(abs string) (*Node, bool) {
	node := t.root
	if node == nil {
		return nil, false
	}
	for _, seg := range strings.Split(abs, Separator) {
		if seg == "" {
			continue
		}
		if !node.IsDir() {
			return nil, false
		}
		child, ok := node.Children[seg]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// Validate is the shared entry point for command path arguments: it
// resolves, checks existence, and applies the optional type and root checks.
func (t *Tree) Validate(arg string, opts ValidateOptions) (PathInfo, error) {
	abs := t.Abs(arg)
	info := PathInfo{Path: abs}

	if opts.DisallowRoot && abs == RootPath {
		return info, pathErr("", arg, ErrRootForbidden)
	}

	node, ok := t.lookup(abs)
	if !ok {
		if opts.AllowMissing {
			return info, nil
		}
		return info, pathErr("", arg, ErrNotFound)
	}

	switch opts.ExpectedType {
	case TypeDirectory:
		if !node.IsDir() {
			return info, pathErr("", arg, ErrNotDirectory)
		}
	case TypeFile:
		if node.IsDir() {
			return info, pathErr("", arg, ErrIsDirectory)
		}
	}

	info.Node = node
	return info, nil
}

// missingParent walks the directories above abs and returns the deepest
// one that exists. next is the first directory that would have to be
// created, or empty when the whole chain is present.
func (t *Tree) missingParent(abs string) (dir *Node, next string, err error) {
	current := t.root
	currentPath := RootPath
	for _, seg := range splitSegments(Dir(abs)) {
		p := Join(currentPath, seg)
		child, ok := current.Children[seg]
		if !ok {
			return current, p, nil
		}
		if !child.IsDir() {
			return nil, "", pathErr("cannot create directory", p, ErrNotDirectory)
		}
		current, currentPath = child, p
	}
	return current, "", nil
}

// CheckCreate reports whether user may create an entry at fullPath along
// with any missing parent directories. The tree is not touched.
func (t *Tree) CheckCreate(fullPath, user string) error {
	abs := ResolveAbsolute(fullPath, RootPath)
	dir, next, err := t.missingParent(abs)
	if err != nil {
		return err
	}
	if !t.Can(dir, user, PermWrite) {
		if next == "" {
			next = abs
		}
		return pathErr("cannot create directory", next, ErrPermission)
	}
	return nil
}

// CreateParents makes sure every directory above fullPath exists, creating
// missing ones owned by user with the default directory mode. Each created
// or traversed directory gets its mtime refreshed. It returns the immediate
// parent of fullPath. Nothing changes when it fails.
func (t *Tree) CreateParents(fullPath, user string, now time.Time) (*Node, error) {
	abs := ResolveAbsolute(fullPath, RootPath)
	dir, next, err := t.missingParent(abs)
	if err != nil {
		return nil, err
	}
	if next != "" && !t.Can(dir, user, PermWrite) {
		return nil, pathErr("cannot create directory", next, ErrPermission)
	}

	current := t.root
	current.Mtime = now
	for _, seg := range splitSegments(Dir(abs)) {
		child, ok := current.Children[seg]
		if !ok {
			child = NewDirectory(user, DefaultDirMode, now)
			current.Children[seg] = child
		}
		child.Mtime = now
		current = child
	}
	return current, nil
}

// UpdateMtime sets the node's mtime and, unless it is the root, the mtime of
// its immediate parent.
func (t *Tree) UpdateMtime(p string, now time.Time) {
	abs := t.Abs(p)
	if node, ok := t.lookup(abs); ok {
		node.Mtime = now
	}
	if abs == RootPath {
		return
	}
	if parent, ok := t.lookup(Dir(abs)); ok {
		parent.Mtime = now
	}
}

// Link attaches node under the directory at dirPath. The name must be free.
// The node must be detached: it becomes exclusively owned by the directory.
func (t *Tree) Link(dirPath, name string, node *Node, now time.Time) error {
	abs := t.Abs(dirPath)
	dir, ok := t.lookup(abs)
	if !ok {
		return pathErr("", dirPath, ErrNotFound)
	}
	if !dir.IsDir() {
		return pathErr("", dirPath, ErrNotDirectory)
	}
	if _, exists := dir.Children[name]; exists {
		return pathErr("", Join(abs, name), ErrExists)
	}
	if t.reachable(node) {
		return pathErr("cannot link", Join(abs, name), ErrExists)
	}
	dir.Children[name] = node
	dir.Mtime = now
	return nil
}

// Replace swaps the entry name under dirPath for node, refreshing the
// directory mtime. Any previous entry is dropped.
func (t *Tree) Replace(dirPath, name string, node *Node, now time.Time) error {
	abs := t.Abs(dirPath)
	dir, ok := t.lookup(abs)
	if !ok {
		return pathErr("", dirPath, ErrNotFound)
	}
	if !dir.IsDir() {
		return pathErr("", dirPath, ErrNotDirectory)
	}
	dir.Children[name] = node
	dir.Mtime = now
	return nil
}

// Unlink detaches the entry name from the directory at dirPath and returns
// it. Permission checks are the caller's job.
func (t *Tree) Unlink(dirPath, name string, now time.Time) (*Node, error) {
	abs := t.Abs(dirPath)
	dir, ok := t.lookup(abs)
	if !ok {
		return nil, pathErr("", dirPath, ErrNotFound)
	}
	child, ok := dir.Children[name]
	if !ok {
		return nil, pathErr("", Join(abs, name), ErrNotFound)
	}
	delete(dir.Children, name)
	dir.Mtime = now
	return child, nil
}

// WriteFile writes content to the file at p, creating missing parents. An
// existing file needs write permission on itself; a new file needs write
// permission on its parent. Existing owner and mode are kept. Every check
// runs before the tree changes.
func (t *Tree) WriteFile(p, content string, mode WriteMode, user string, now time.Time) error {
	abs := t.Abs(p)
	if abs == RootPath {
		return pathErr("cannot write", p, ErrIsDirectory)
	}

	dir, missing, err := t.missingParent(abs)
	if err != nil {
		return err
	}
	name := Base(abs)
	existing := dir.Children[name]
	switch {
	case missing != "":
		existing = nil
		if !t.Can(dir, user, PermWrite) {
			return pathErr("cannot create directory", missing, ErrPermission)
		}
	case existing != nil && existing.IsDir():
		return pathErr("cannot write", p, ErrIsDirectory)
	case existing != nil && !t.Can(existing, user, PermWrite):
		return pathErr("cannot write", p, ErrPermission)
	case existing == nil && !t.Can(dir, user, PermWrite):
		return pathErr("cannot write", p, ErrPermission)
	}

	parent, err := t.CreateParents(abs, user, now)
	if err != nil {
		return err
	}

	file := NewFile(content, user, DefaultFileMode, now)
	if existing != nil {
		file.Owner = existing.Owner
		file.Mode = existing.Mode
		if mode == Append {
			prior := existing.Content
			if prior != "" && !strings.HasSuffix(prior, "\n") {
				prior += "\n"
			}
			file.Content = prior + content
		}
	}

	parent.Children[name] = file
	parent.Mtime = now
	return nil
}

// Walk visits the subtree rooted at p depth-first in lexical order. The
// callback returns false to skip a directory's children.
func (t *Tree) Walk(p string, fn func(path string, node *Node) bool) {
	abs := t.Abs(p)
	node, ok := t.lookup(abs)
	if !ok {
		return
	}
	walk(abs, node, fn)
}

func walk(p string, node *Node, fn func(string, *Node) bool) {
	if !fn(p, node) || !node.IsDir() {
		return
	}
	for _, name := range node.ChildNames() {
		walk(Join(p, name), node.Children[name], fn)
	}
}

// Snapshot returns a deep copy of the root.
func (t *Tree) Snapshot() *Node {
	return t.root.Clone()
}

func (t *Tree) reachable(target *Node) bool {
	found := false
	walk(RootPath, t.root, func(_ string, n *Node) bool {
		if n == target {
			found = true
		}
		return !found
	})
	return found
}
