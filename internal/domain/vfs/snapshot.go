package vfs

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// snapshotVersion is bumped whenever the encoded layout changes.
const snapshotVersion = 1

type snapshotEnvelope struct {
	Version int           `json:"version"`
	Owner   string        `json:"owner"`
	SavedAt time.Time     `json:"saved_at"`
	Root    *snapshotNode `json:"root"`
}

// snapshotNode uses pointers so that fields absent from older snapshots can
// be told apart from zero values and back-filled.
type snapshotNode struct {
	Type     NodeType                 `json:"type"`
	Content  *string                  `json:"content,omitempty"`
	Children map[string]*snapshotNode `json:"children,omitempty"`
	Owner    *string                  `json:"owner,omitempty"`
	Mode     *Mode                    `json:"mode,omitempty"`
	Mtime    *time.Time               `json:"mtime,omitempty"`
}

// EncodeSnapshot serializes a root directory. It refuses anything that is
// not a directory.
func EncodeSnapshot(root *Node, owner string, now time.Time) ([]byte, error) {
	if !root.IsDir() {
		return nil, ErrCorruptSnapshot
	}
	env := snapshotEnvelope{
		Version: snapshotVersion,
		Owner:   owner,
		SavedAt: now,
		Root:    toSnapshot(root),
	}
	data, err := sonic.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot and back-fills missing owner, mode and
// mtime fields. Structural problems yield ErrCorruptSnapshot.
func DecodeSnapshot(data []byte, owner string, now time.Time) (*Node, int, error) {
	var env snapshotEnvelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if env.Root == nil || env.Root.Type != TypeDirectory {
		return nil, 0, ErrCorruptSnapshot
	}
	if env.Owner != "" {
		owner = env.Owner
	}

	filled := 0
	root, err := fromSnapshot(env.Root, owner, now, &filled)
	if err != nil {
		return nil, 0, err
	}
	return root, filled, nil
}

func toSnapshot(n *Node) *snapshotNode {
	owner := n.Owner
	mode := n.Mode
	mtime := n.Mtime
	out := &snapshotNode{
		Type:  n.Type,
		Owner: &owner,
		Mode:  &mode,
		Mtime: &mtime,
	}
	if n.IsDir() {
		out.Children = make(map[string]*snapshotNode, len(n.Children))
		for name, child := range n.Children {
			out.Children[name] = toSnapshot(child)
		}
		return out
	}
	content := n.Content
	out.Content = &content
	return out
}

func fromSnapshot(s *snapshotNode, owner string, now time.Time, filled *int) (*Node, error) {
	n := &Node{Type: s.Type}
	switch s.Type {
	case TypeDirectory:
		n.Children = make(map[string]*Node, len(s.Children))
		for name, child := range s.Children {
			if !validName(name) || child == nil {
				return nil, fmt.Errorf("%w: invalid entry name %q", ErrCorruptSnapshot, name)
			}
			c, err := fromSnapshot(child, owner, now, filled)
			if err != nil {
				return nil, err
			}
			n.Children[name] = c
		}
	case TypeFile:
		if len(s.Children) > 0 {
			return nil, ErrCorruptSnapshot
		}
		if s.Content != nil {
			n.Content = *s.Content
		}
	default:
		return nil, ErrCorruptSnapshot
	}

	if s.Owner != nil && *s.Owner != "" {
		n.Owner = *s.Owner
	} else {
		n.Owner = owner
		*filled++
	}
	if s.Mode != nil {
		n.Mode = *s.Mode
	} else if n.IsDir() {
		n.Mode = DefaultDirMode
		*filled++
	} else {
		n.Mode = DefaultFileMode
		*filled++
	}
	if s.Mtime != nil && !s.Mtime.IsZero() {
		n.Mtime = *s.Mtime
	} else {
		n.Mtime = now
		*filled++
	}
	return n, nil
}

// validName reports whether name can be reached by a path walk.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, Separator)
}
