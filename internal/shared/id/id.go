// Package id mints the identifiers that show up in logs and API payloads.
//
// Sessions and streaming connections get prefixed ULIDs (sess_*, conn_*)
// so they sort by creation time. Background job numbers are not ULIDs:
// each session's job table hands out small sequential integers.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies a shell session.
type SessionID string

// ConnID identifies a streaming connection.
type ConnID string

func (id SessionID) String() string { return string(id) }
func (id ConnID) String() string    { return string(id) }

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// next is safe for concurrent use; ulid's monotonic reader is not.
func next(prefix string, now time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return prefix + "_" + ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// NewSessionID returns a fresh session ID.
func NewSessionID() SessionID {
	return SessionID(next("sess", time.Now()))
}

// NewConnID returns a fresh connection ID.
func NewConnID() ConnID {
	return ConnID(next("conn", time.Now()))
}
