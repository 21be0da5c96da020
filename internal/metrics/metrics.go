package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service. It is built once in main
// and handed to the components that record into it. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Cache and rate limiting
	CacheHitsTotal         *prometheus.CounterVec
	CacheMissesTotal       *prometheus.CounterVec
	RateLimitExceededTotal *prometheus.CounterVec

	// Tracking
	EventsTotal      *prometheus.CounterVec
	TrafficLogErrors prometheus.Counter
	SearchesTotal    prometheus.Counter

	// Jobs
	JobRunsTotal        *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	JobRowsTotal        *prometheus.CounterVec
	ProgramsScoredTotal *prometheus.CounterVec

	// Integrations
	WebhooksTotal    *prometheus.CounterVec
	LogoUploadsTotal *prometheus.CounterVec
	URLChecksTotal   *prometheus.CounterVec
	AdminLoginsTotal *prometheus.CounterVec
}

// New creates the metrics on a fresh registry that also carries the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path", "status"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "path"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of response cache hits",
			},
			[]string{"cache_name"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of response cache misses",
			},
			[]string{"cache_name"},
		),
		RateLimitExceededTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_exceeded_total",
				Help: "Total number of requests rejected by a rate limit",
			},
			[]string{"limiter"},
		),

		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "program_events_total",
				Help: "Program view/click events by outcome (recorded, duplicate, failed)",
			},
			[]string{"type", "outcome"},
		),
		TrafficLogErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "traffic_log_errors_total",
				Help: "Traffic log writes that failed and were dropped",
			},
		),
		SearchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "searches_total",
				Help: "Total number of program searches",
			},
		),

		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "job_runs_total",
				Help: "Scheduled job runs by job and status",
			},
			[]string{"job", "status"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "job_duration_seconds",
				Help:    "Scheduled job duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
			},
			[]string{"job"},
		),
		JobRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "job_rows_deleted_total",
				Help: "Rows removed by the prune job per table",
			},
			[]string{"table"},
		),
		ProgramsScoredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "programs_scored_total",
				Help: "Per-program score updates by status",
			},
			[]string{"status"},
		),

		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhooks_total",
				Help: "Payment webhooks by event type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		LogoUploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logo_uploads_total",
				Help: "Logo uploads by status",
			},
			[]string{"status"},
		),
		URLChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "url_checks_total",
				Help: "Submitted URL checks by result",
			},
			[]string{"result"},
		),
		AdminLoginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_logins_total",
				Help: "Admin login attempts by result",
			},
			[]string{"result"},
		),
	}
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordEvent counts a tracking write
func (m *Metrics) RecordEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// RecordTrafficLogError counts a dropped traffic log write
func (m *Metrics) RecordTrafficLogError() {
	if m == nil {
		return
	}
	m.TrafficLogErrors.Inc()
}

// RecordSearch counts a search
func (m *Metrics) RecordSearch() {
	if m == nil {
		return
	}
	m.SearchesTotal.Inc()
}

// RecordJob counts a job run and its duration
func (m *Metrics) RecordJob(job string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// RecordPruned counts rows removed from table
func (m *Metrics) RecordPruned(table string, rows int64) {
	if m == nil || rows <= 0 {
		return
	}
	m.JobRowsTotal.WithLabelValues(table).Add(float64(rows))
}

// RecordScored counts per-program score writes
func (m *Metrics) RecordScored(updated, failed int) {
	if m == nil {
		return
	}
	m.ProgramsScoredTotal.WithLabelValues("updated").Add(float64(updated))
	m.ProgramsScoredTotal.WithLabelValues("failed").Add(float64(failed))
}

// RecordWebhook counts a webhook delivery
func (m *Metrics) RecordWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.WebhooksTotal.WithLabelValues(eventType, outcome).Inc()
}

// RecordUpload counts a logo upload
func (m *Metrics) RecordUpload(status string) {
	if m == nil {
		return
	}
	m.LogoUploadsTotal.WithLabelValues(status).Inc()
}

// RecordURLCheck counts a URL validation result
func (m *Metrics) RecordURLCheck(result string) {
	if m == nil {
		return
	}
	m.URLChecksTotal.WithLabelValues(result).Inc()
}

// RecordAdminLogin counts an admin login attempt
func (m *Metrics) RecordAdminLogin(result string) {
	if m == nil {
		return
	}
	m.AdminLoginsTotal.WithLabelValues(result).Inc()
}

// RecordCache counts a response cache lookup
func (m *Metrics) RecordCache(name string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(name).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(name).Inc()
}

// RecordRateLimited counts a rejected request
func (m *Metrics) RecordRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.RateLimitExceededTotal.WithLabelValues(limiter).Inc()
}
