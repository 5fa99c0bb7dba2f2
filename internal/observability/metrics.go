// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reelforge/internal/entity"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Job metrics
	JobsCreated    prometheus.Counter
	JobsByStatus   *prometheus.CounterVec
	JobsInProgress prometheus.Gauge
	JobBytesTotal  prometheus.Counter
	JobDuration    prometheus.Histogram
	ActiveJobs     prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Proxy metrics
	ProxyRequestsTotal *prometheus.CounterVec
	ProxyFailures      *prometheus.CounterVec
	ProxiesAvailable   prometheus.Gauge

	// Extractor metrics
	ExtractorRequestsTotal *prometheus.CounterVec
	ExtractorErrors        *prometheus.CounterVec

	// System metrics
	GoRoutines prometheus.Gauge
}

// New creates and registers all application metrics.
func New() *Metrics {
	metrics := &Metrics{
		// Job metrics
		JobsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "reelforge",
			Subsystem: "jobs",
			Name:      "created_total",
			Help:      "Total number of jobs created",
		}),
		JobsByStatus: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reelforge",
			Subsystem: "jobs",
			Name:      "status_transitions_total",
			Help:      "Total number of job status transitions",
		}, []string{"status"}),
		JobsInProgress: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "reelforge",
			Subsystem: "jobs",
			Name:      "in_progress",
			Help:      "Number of jobs currently in progress",
		}),
		JobBytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "reelforge",
			Subsystem: "jobs",
			Name:      "download_bytes_total",
			Help:      "Total bytes downloaded across all jobs",
		}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reelforge",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Histogram of job run duration in seconds, one sample per download run (ending on completion, failure, pause or cancel)",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ActiveJobs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "reelforge",
			Subsystem: "jobs",
			Name:      "active",
			Help:      "Current number of jobs tracked by the progress registry",
		}),

		// HTTP metrics
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reelforge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reelforge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPResponseSize: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reelforge",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Histogram of HTTP response sizes in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		}, []string{"method", "path"}),

		// Proxy metrics
		ProxyRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reelforge",
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Total number of requests made through proxies",
		}, []string{"proxy"}),
		ProxyFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reelforge",
			Subsystem: "proxy",
			Name:      "failures_total",
			Help:      "Total number of proxy failures",
		}, []string{"proxy"}),
		ProxiesAvailable: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "reelforge",
			Subsystem: "proxy",
			Name:      "available",
			Help:      "Number of currently available proxies",
		}),

		// Extractor metrics
		ExtractorRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reelforge",
			Subsystem: "extractor",
			Name:      "requests_total",
			Help:      "Total number of extractor subprocess runs",
		}, []string{"stage", "status"}),
		ExtractorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reelforge",
			Subsystem: "extractor",
			Name:      "errors_total",
			Help:      "Total number of extractor subprocess errors",
		}, []string{"error_type"}),

		// System metrics
		GoRoutines: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "reelforge",
			Subsystem: "system",
			Name:      "goroutines",
			Help:      "Number of goroutines",
		}),
	}

	return metrics
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// JobTimer returns a function to record job duration.
func (m *Metrics) JobTimer() func() {
	start := time.Now()

	return func() {
		m.JobDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration, size int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
}

// RecordJobCreated increments the jobs created counter.
func (m *Metrics) RecordJobCreated() {
	m.JobsCreated.Inc()
	m.JobsInProgress.Inc()
}

// RecordJobStatus records a job's arrival at status. Callers should call
// this once per transition; terminal statuses also decrement
// JobsInProgress.
func (m *Metrics) RecordJobStatus(status entity.Status) {
	m.JobsByStatus.WithLabelValues(string(status)).Inc()

	switch status {
	case entity.StatusCompleted, entity.StatusFailed, entity.StatusCanceled:
		m.JobsInProgress.Dec()
	}
}

// RecordJobBytes adds n freshly-downloaded bytes to the running total.
func (m *Metrics) RecordJobBytes(n int64) {
	m.JobBytesTotal.Add(float64(n))
}

// SetActiveJobs sets the number of jobs currently tracked by the
// progress registry.
func (m *Metrics) SetActiveJobs(count int) {
	m.ActiveJobs.Set(float64(count))
}

// RecordExtractorRun records the outcome of one extractor subprocess run.
func (m *Metrics) RecordExtractorRun(stage entity.Stage, status string) {
	m.ExtractorRequestsTotal.WithLabelValues(string(stage), status).Inc()
}

// RecordExtractorError records an extractor subprocess error.
func (m *Metrics) RecordExtractorError(errorType string) {
	m.ExtractorErrors.WithLabelValues(errorType).Inc()
}

// RecordProxyRequest records a proxy request.
func (m *Metrics) RecordProxyRequest(proxy string) {
	m.ProxyRequestsTotal.WithLabelValues(proxy).Inc()
}

// RecordProxyFailure records a proxy failure.
func (m *Metrics) RecordProxyFailure(proxy string) {
	m.ProxyFailures.WithLabelValues(proxy).Inc()
}

// SetProxiesAvailable sets the number of available proxies.
func (m *Metrics) SetProxiesAvailable(count int) {
	m.ProxiesAvailable.Set(float64(count))
}

// SetGoroutines sets the current goroutine count.
func (m *Metrics) SetGoroutines(count int) {
	m.GoRoutines.Set(float64(count))
}
