package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.RecordEvent("VIEW", "recorded")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.EventsTotal.WithLabelValues("VIEW", "recorded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EventsTotal.WithLabelValues("VIEW", "recorded")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordEvent("VIEW", "recorded")
		m.RecordJob("prune", nil, time.Second)
		m.RecordWebhook("checkout.session.completed", "processed")
		m.RecordCache("programs", true)
	})
}

func TestRecordJob(t *testing.T) {
	m := New()
	m.RecordJob("recompute", nil, 10*time.Millisecond)
	m.RecordJob("recompute", errors.New("boom"), time.Millisecond)
	m.RecordPruned("traffic_logs", 3)
	m.RecordPruned("traffic_logs", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("recompute", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("recompute", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.JobRowsTotal.WithLabelValues("traffic_logs")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordSearch()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "searches_total 1"))
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
