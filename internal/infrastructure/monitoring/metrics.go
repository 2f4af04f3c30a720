package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Command metrics
	CommandsTotal    *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	PipelineDuration *prometheus.HistogramVec

	// Background job metrics
	JobsActive prometheus.Gauge
	JobsTotal  *prometheus.CounterVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	SnapshotsSaved   prometheus.Counter
	SnapshotFailures *prometheus.CounterVec
	SnapshotsLoaded  *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON stats endpoint
type Snapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	TotalCommands  int64   `json:"total_commands"`
	FailedCommands int64   `json:"failed_commands"`
	ActiveJobs     int64   `json:"active_jobs"`
	ActiveSessions int64   `json:"active_sessions"`
	TotalDuration  float64 `json:"total_duration_seconds"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// NewMetricsWith creates a metrics collector registered with reg. Tests pass
// a private prometheus.NewRegistry() so collectors never clash.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oopis_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oopis_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oopis_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oopis_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Command metrics
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oopis_commands_total",
				Help: "Total number of commands executed",
			},
			[]string{"command", "status"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oopis_command_duration_seconds",
				Help:    "Command duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"command"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oopis_pipeline_duration_seconds",
				Help:    "Pipeline duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
			},
			[]string{"mode", "status"},
		),

		// Background job metrics
		JobsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "oopis_jobs_active",
				Help: "Number of running background jobs",
			},
		),
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oopis_jobs_total",
				Help: "Total number of finished background jobs",
			},
			[]string{"status"},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "oopis_sessions_active",
				Help: "Number of open shell sessions",
			},
		),
		SnapshotsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "oopis_snapshots_saved_total",
				Help: "Total number of tree snapshots persisted",
			},
		),
		SnapshotFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oopis_snapshot_failures_total",
				Help: "Total number of failed snapshot operations",
			},
			[]string{"operation"},
		),
		SnapshotsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oopis_snapshots_loaded_total",
				Help: "Total number of tree loads by outcome",
			},
			[]string{"status"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "oopis_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oopis_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "oopis_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}

	return m
}

// RunUptime updates the uptime gauge every second until stop is closed.
func (m *Metrics) RunUptime(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordCommand records one command handler invocation
func (m *Metrics) RecordCommand(name string, success bool, duration time.Duration) {
	status := statusLabel(success)
	m.CommandsTotal.WithLabelValues(name, status).Inc()
	m.CommandDuration.WithLabelValues(name).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalCommands++
	if !success {
		m.snapshot.FailedCommands++
	}
	m.mu.Unlock()
}

// RecordPipeline records a whole pipeline run
func (m *Metrics) RecordPipeline(background, success bool, duration time.Duration) {
	mode := "foreground"
	if background {
		mode = "background"
	}
	m.PipelineDuration.WithLabelValues(mode, statusLabel(success)).Observe(duration.Seconds())
}

// JobStarted marks a background job as running
func (m *Metrics) JobStarted() {
	m.JobsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveJobs++
	m.mu.Unlock()
}

// JobFinished marks a background job as done
func (m *Metrics) JobFinished(success bool) {
	m.JobsActive.Dec()
	m.JobsTotal.WithLabelValues(statusLabel(success)).Inc()
	m.mu.Lock()
	m.snapshot.ActiveJobs--
	m.mu.Unlock()
}

// RecordSnapshotSave records a persistence attempt
func (m *Metrics) RecordSnapshotSave(err error) {
	if err != nil {
		m.SnapshotFailures.WithLabelValues("save").Inc()
		return
	}
	m.SnapshotsSaved.Inc()
}

// RecordSnapshotLoad records how a tree was obtained at session start
func (m *Metrics) RecordSnapshotLoad(status string, err error) {
	if err != nil {
		m.SnapshotFailures.WithLabelValues("load").Inc()
	}
	m.SnapshotsLoaded.WithLabelValues(status).Inc()
}

// SetSessionsActive sets the number of open sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns the current values for the JSON stats endpoint
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
