package executor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
)

// Job states.
const (
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// maxFinishedJobs bounds how many finished jobs stay listed.
const maxFinishedJobs = 100

// JobManager numbers background jobs and tracks their state.
type JobManager struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	nextID   int
	limit    int
	jobs     map[int]*commands.JobInfo
	finished []int
	now      func() time.Time
}

// NewJobManager creates a job table. limit caps concurrently running
// jobs; zero means unlimited.
func NewJobManager(limit int, now func() time.Time) *JobManager {
	if now == nil {
		now = time.Now
	}
	return &JobManager{
		nextID: 1,
		limit:  limit,
		jobs:   make(map[int]*commands.JobInfo),
		now:    now,
	}
}

// Start registers a running job and returns its id.
func (m *JobManager) Start(command string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limit > 0 && m.running() >= m.limit {
		return 0, fmt.Errorf("too many background jobs (limit %d)", m.limit)
	}
	id := m.nextID
	m.nextID++
	m.jobs[id] = &commands.JobInfo{
		ID:      id,
		Command: command,
		State:   JobRunning,
		Started: m.now(),
	}
	m.wg.Add(1)
	return id, nil
}

// Finish marks a job done or failed.
func (m *JobManager) Finish(id int, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok || j.State != JobRunning {
		return
	}
	j.State = JobDone
	if !success {
		j.State = JobFailed
	}
	j.Finished = m.now()

	m.finished = append(m.finished, id)
	if len(m.finished) > maxFinishedJobs {
		delete(m.jobs, m.finished[0])
		m.finished = m.finished[1:]
	}
	m.wg.Done()
}

// List implements commands.JobLister, ordered by id.
func (m *JobManager) List() []commands.JobInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]commands.JobInfo, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Running returns the number of jobs still running.
func (m *JobManager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running()
}

func (m *JobManager) running() int {
	n := 0
	for _, j := range m.jobs {
		if j.State == JobRunning {
			n++
		}
	}
	return n
}

// Wait blocks until every started job has finished.
func (m *JobManager) Wait() {
	m.wg.Wait()
}
