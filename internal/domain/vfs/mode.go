package vfs

import (
	"fmt"
	"strings"
)

// Mode is a 6-bit permission field written as two octal digits: the high
// digit applies to the owner and the low digit to everyone else.
type Mode uint8

// Permission is a single rwx bit within a triplet.
type Permission uint8

const (
	PermRead    Permission = 4
	PermWrite   Permission = 2
	PermExecute Permission = 1
)

const (
	// DefaultFileMode is rw- for the owner and r-- for others.
	DefaultFileMode Mode = 0o64
	// DefaultDirMode is rwx for the owner and r-x for others.
	DefaultDirMode Mode = 0o75
)

// String returns the permission name used in error messages.
func (p Permission) String() string {
	switch p {
	case PermRead:
		return "read"
	case PermWrite:
		return "write"
	case PermExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Owner returns the owner triplet.
func (m Mode) Owner() uint8 { return uint8(m>>3) & 7 }

// Other returns the everyone-else triplet.
func (m Mode) Other() uint8 { return uint8(m) & 7 }

// String renders the two octal digits, e.g. "64".
func (m Mode) String() string {
	return fmt.Sprintf("%d%d", m.Owner(), m.Other())
}

// ParseMode parses exactly two octal digits.
func ParseMode(s string) (Mode, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid mode '%s': expected two octal digits", s)
	}
	var m Mode
	for _, c := range s {
		if c < '0' || c > '7' {
			return 0, fmt.Errorf("invalid mode '%s': expected two octal digits", s)
		}
		m = m<<3 | Mode(c-'0')
	}
	return m, nil
}

// HasPermission checks the owner triplet when user owns the node and the
// other triplet otherwise. There is no group and no superuser bypass.
func HasPermission(node *Node, user string, perm Permission) bool {
	if node == nil {
		return false
	}
	triplet := node.Mode.Other()
	if node.Owner == user {
		triplet = node.Mode.Owner()
	}
	return triplet&uint8(perm) != 0
}

// FormatMode renders an ls -l style string: the type character, the owner
// triplet, then the other triplet repeated to fill the nine-character field.
func FormatMode(node *Node) string {
	var b strings.Builder
	b.Grow(10)
	if node.IsDir() {
		b.WriteByte('d')
	} else {
		b.WriteByte('-')
	}
	other := triplet(node.Mode.Other())
	b.WriteString(triplet(node.Mode.Owner()))
	b.WriteString(other)
	b.WriteString(other)
	return b.String()
}

func triplet(bits uint8) string {
	out := []byte("---")
	if bits&uint8(PermRead) != 0 {
		out[0] = 'r'
	}
	if bits&uint8(PermWrite) != 0 {
		out[1] = 'w'
	}
	if bits&uint8(PermExecute) != 0 {
		out[2] = 'x'
	}
	return string(out)
}

// Policy decides whether a user may act on a node. It is the layer where an
// administrative override can be added on top of HasPermission.
type Policy interface {
	Allowed(node *Node, user string, perm Permission) bool
}

// OwnerPolicy is the base model: HasPermission with no exceptions.
type OwnerPolicy struct{}

// Allowed implements Policy.
func (OwnerPolicy) Allowed(node *Node, user string, perm Permission) bool {
	return HasPermission(node, user, perm)
}

// AdminPolicy grants every permission to a single administrative user and
// falls back to HasPermission for everyone else.
type AdminPolicy struct {
	Admin string
}

// Allowed implements Policy.
func (p AdminPolicy) Allowed(node *Node, user string, perm Permission) bool {
	if p.Admin != "" && user == p.Admin && node != nil {
		return true
	}
	return HasPermission(node, user, perm)
}

// IsAdmin reports whether user is the administrative user.
func (p AdminPolicy) IsAdmin(user string) bool {
	return p.Admin != "" && user == p.Admin
}
