package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aedmark/OopisOS-sub001/internal/domain/session"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/monitoring"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/resilience"
)

// BreakerReporter is implemented by stores guarded by a circuit breaker.
type BreakerReporter interface {
	State() resilience.State
}

// MetricsAggregator combines process metrics, session statistics and the
// storage breaker state into one JSON document.
type MetricsAggregator struct {
	metrics  *monitoring.Metrics
	sessions *session.Manager
	backend  string
	breaker  BreakerReporter
}

// NewMetricsAggregator creates an aggregator. breaker may be nil when the
// store is not guarded.
func NewMetricsAggregator(metrics *monitoring.Metrics, sessions *session.Manager, backend string, breaker BreakerReporter) *MetricsAggregator {
	return &MetricsAggregator{
		metrics:  metrics,
		sessions: sessions,
		backend:  backend,
		breaker:  breaker,
	}
}

// MetricsSnapshot is the aggregated view.
type MetricsSnapshot struct {
	Timestamp time.Time           `json:"timestamp"`
	Process   monitoring.Snapshot `json:"process"`
	Sessions  session.Stats       `json:"sessions"`
	Storage   StorageStatus       `json:"storage"`
	Summary   MetricsSummary      `json:"summary"`
}

// StorageStatus describes the snapshot store.
type StorageStatus struct {
	Backend string `json:"backend"`
	Breaker string `json:"breaker,omitempty"`
}

// MetricsSummary provides high-level ratios.
type MetricsSummary struct {
	ErrorRate          float64 `json:"error_rate"`
	CommandFailureRate float64 `json:"command_failure_rate"`
	ActiveSessions     int     `json:"active_sessions"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
}

// GetAggregatedMetrics serves GET /metrics/json.
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, ma.Collect())
}

// Collect builds the current snapshot.
func (ma *MetricsAggregator) Collect() MetricsSnapshot {
	proc := ma.metrics.Snapshot()
	stats := ma.sessions.Stats()

	storage := StorageStatus{Backend: ma.backend}
	if ma.breaker != nil {
		storage.Breaker = ma.breaker.State().String()
	}

	return MetricsSnapshot{
		Timestamp: time.Now(),
		Process:   proc,
		Sessions:  stats,
		Storage:   storage,
		Summary: MetricsSummary{
			ErrorRate:          ratio(proc.TotalErrors, proc.TotalRequests),
			CommandFailureRate: ratio(proc.FailedCommands, proc.TotalCommands),
			ActiveSessions:     stats.ActiveSessions,
			UptimeSeconds:      proc.UptimeSeconds,
		},
	}
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
