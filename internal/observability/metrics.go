package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "retail_insights"

// Metrics holds the collectors for one process. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	reportsBuilt   *prometheus.CounterVec
	rowsIngested   prometheus.Counter
	rowsSkipped    prometheus.Counter
	buildDuration  prometheus.Histogram
	storedReports  prometheus.Gauge
	reportsEvicted prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reportsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reports_built_total",
			Help:      "Reports built from uploads, by file format and outcome.",
		}, []string{"format", "outcome"}),
		rowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_ingested_total",
			Help:      "Spreadsheet rows accepted into reports.",
		}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_skipped_total",
			Help:      "Spreadsheet rows dropped for an unparseable date or amount.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "report_build_duration_seconds",
			Help:      "Time from upload to finished report.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		storedReports: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "stored_reports",
			Help:      "Reports currently held in the store.",
		}),
		reportsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reports_evicted_total",
			Help:      "Reports removed by capacity or TTL.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.reportsBuilt,
		m.rowsIngested,
		m.rowsSkipped,
		m.buildDuration,
		m.storedReports,
		m.reportsEvicted,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveReport(format string, err error, rowsRead, rowsSkipped int, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.reportsBuilt.WithLabelValues(format, outcome).Inc()
	m.rowsIngested.Add(float64(rowsRead - rowsSkipped))
	m.rowsSkipped.Add(float64(rowsSkipped))
	if err == nil {
		m.buildDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetStoredReports(n int) {
	m.storedReports.Set(float64(n))
}

func (m *Metrics) AddEvicted(n int) {
	m.reportsEvicted.Add(float64(n))
}
