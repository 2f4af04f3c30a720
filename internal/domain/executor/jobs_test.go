package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobManagerSequentialIDs(t *testing.T) {
	now := epoch
	m := NewJobManager(0, func() time.Time { return now })

	a, err := m.Start("echo a")
	require.NoError(t, err)
	b, err := m.Start("echo b")
	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 2, m.Running())

	now = epoch.Add(time.Second)
	m.Finish(a, true)
	m.Finish(b, false)
	m.Finish(b, true)
	m.Wait()

	jobs := m.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobDone, jobs[0].State)
	assert.Equal(t, JobFailed, jobs[1].State)
	assert.Equal(t, epoch, jobs[0].Started)
	assert.Equal(t, now, jobs[0].Finished)
	assert.Zero(t, m.Running())
}

func TestJobManagerLimitAndTrim(t *testing.T) {
	m := NewJobManager(1, nil)

	id, err := m.Start("first")
	require.NoError(t, err)
	_, err = m.Start("second")
	assert.EqualError(t, err, "too many background jobs (limit 1)")

	m.Finish(id, true)
	for i := 0; i < maxFinishedJobs+5; i++ {
		id, err := m.Start("loop")
		require.NoError(t, err)
		m.Finish(id, true)
	}
	jobs := m.List()
	assert.Len(t, jobs, maxFinishedJobs)
	assert.Equal(t, maxFinishedJobs+6, jobs[len(jobs)-1].ID)
}
