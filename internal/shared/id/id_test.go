package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixes(t *testing.T) {
	sess := NewSessionID().String()
	conn := NewConnID().String()

	require.True(t, strings.HasPrefix(sess, "sess_"), sess)
	require.True(t, strings.HasPrefix(conn, "conn_"), conn)

	_, err := ulid.ParseStrict(strings.TrimPrefix(sess, "sess_"))
	assert.NoError(t, err)
}

func TestIDsSortByCreation(t *testing.T) {
	first := NewSessionID()
	second := NewSessionID()
	assert.Less(t, first.String(), second.String())
}

func TestConcurrentGeneration(t *testing.T) {
	const n = 200

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[SessionID]bool, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewSessionID()
			mu.Lock()
			seen[s] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}
