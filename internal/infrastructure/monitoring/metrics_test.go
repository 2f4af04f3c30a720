package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCommand(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.RecordCommand("ls", true, time.Millisecond)
	m.RecordCommand("ls", false, time.Millisecond)
	m.RecordCommand("cp", true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("ls", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("ls", "error")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalCommands)
	assert.Equal(t, int64(1), snap.FailedCommands)
}

func TestJobsGauge(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.JobStarted()
	m.JobStarted()
	m.JobFinished(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues("success")))
	assert.Equal(t, int64(1), m.Snapshot().ActiveJobs)
}

func TestSnapshotCounters(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.RecordSnapshotSave(nil)
	m.RecordSnapshotSave(errors.New("boom"))
	m.RecordSnapshotLoad("restored", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotFailures.WithLabelValues("save")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsLoaded.WithLabelValues("restored")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetricsWith(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/sessions/:user/jobs", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/alice/jobs", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/sessions/:user/jobs", "204")))
	assert.Equal(t, int64(1), m.Snapshot().TotalRequests)
}

func TestMiddlewareSkipsScrapeEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetricsWith(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m, "/metrics"))
	router.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, int64(1), m.Snapshot().TotalRequests)
}
