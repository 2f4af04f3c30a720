package vfs

import (
	"sort"
	"time"
)

// NodeType distinguishes files from directories.
type NodeType string

const (
	TypeFile      NodeType = "file"
	TypeDirectory NodeType = "directory"
)

// Node is a file or a directory. Files carry Content and no Children;
// directories carry Children keyed by unique name.
type Node struct {
	Type     NodeType
	Content  string
	Children map[string]*Node
	Owner    string
	Mode     Mode
	Mtime    time.Time
}

// NewFile creates a detached file node.
func NewFile(content, owner string, mode Mode, now time.Time) *Node {
	return &Node{
		Type:    TypeFile,
		Content: content,
		Owner:   owner,
		Mode:    mode,
		Mtime:   now,
	}
}

// NewDirectory creates a detached, empty directory node.
func NewDirectory(owner string, mode Mode, now time.Time) *Node {
	return &Node{
		Type:     TypeDirectory,
		Children: make(map[string]*Node),
		Owner:    owner,
		Mode:     mode,
		Mtime:    now,
	}
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n != nil && n.Type == TypeDirectory
}

// Child returns a direct child by name.
func (n *Node) Child(name string) (*Node, bool) {
	if !n.IsDir() {
		return nil, false
	}
	child, ok := n.Children[name]
	return child, ok
}

// ChildNames returns the child names in lexical order.
func (n *Node) ChildNames() []string {
	if !n.IsDir() {
		return nil
	}
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsEmpty reports whether a directory has no children.
func (n *Node) IsEmpty() bool {
	return len(n.Children) == 0
}

// Size returns the content length of a file and the entry count of a
// directory.
func (n *Node) Size() int {
	if n.IsDir() {
		return len(n.Children)
	}
	return len(n.Content)
}

// Clone returns a deep copy of the node and its subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := &Node{
		Type:    n.Type,
		Content: n.Content,
		Owner:   n.Owner,
		Mode:    n.Mode,
		Mtime:   n.Mtime,
	}
	if n.Type == TypeDirectory {
		cp.Children = make(map[string]*Node, len(n.Children))
		for name, child := range n.Children {
			cp.Children[name] = child.Clone()
		}
	}
	return cp
}
