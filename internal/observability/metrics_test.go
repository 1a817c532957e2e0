package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := NewMetrics()

	m.ObserveRequest(http.MethodGet, "GET /health", http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "GET /health", http.StatusOK, 7*time.Millisecond)

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "GET /health", "200"))
	assert.Equal(t, 2.0, got)
}

func TestMetrics_ObserveReport(t *testing.T) {
	m := NewMetrics()

	m.ObserveReport("csv", nil, 10, 2, time.Second)
	m.ObserveReport("xlsx", errors.New("boom"), 0, 0, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reportsBuilt.WithLabelValues("csv", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reportsBuilt.WithLabelValues("xlsx", "error")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.rowsIngested))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsSkipped))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.SetStoredReports(3)
	m.AddEvicted(1)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "retail_insights_stored_reports 3")
	assert.Contains(t, body, "retail_insights_reports_evicted_total 1")
}

func TestNewMetrics_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}
