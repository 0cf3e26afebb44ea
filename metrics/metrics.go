// Package metrics provides Prometheus metrics for searches and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepfind_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepfind_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Search metrics
	searchesStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepfind_searches_started_total",
			Help: "Total number of search sessions started",
		},
	)

	searchesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepfind_searches_rejected_total",
			Help: "Total number of search requests rejected before starting",
		},
		[]string{"reason"},
	)

	searchRunsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepfind_search_runs_finished_total",
			Help: "Total number of search runs by outcome",
		},
		[]string{"outcome"},
	)

	searchRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepfind_search_run_duration_seconds",
			Help:    "Duration of one search run (start or resume) in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 10),
		},
		[]string{"outcome"},
	)

	searchMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepfind_search_matches_total",
			Help: "Total number of matches emitted by searches",
		},
	)

	foldersChecked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepfind_folders_checked_total",
			Help: "Total number of directories enumerated by searches",
		},
	)

	filesChecked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepfind_files_checked_total",
			Help: "Total number of files examined by searches",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deepfind_search_sessions_running",
			Help: "Number of search sessions currently running",
		},
	)

	sseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deepfind_sse_connections_active",
			Help: "Number of active SSE event streams",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordSearchStarted() {
	searchesStarted.Inc()
}

func RecordSearchRejected(reason string) {
	searchesRejected.WithLabelValues(reason).Inc()
}

func RecordRunStarted() {
	activeSessions.Inc()
}

// RecordRunFinished records the end of one run along with the folders and
// files it examined since it started.
func RecordRunFinished(outcome string, duration time.Duration, folders, files int) {
	activeSessions.Dec()
	searchRunsFinished.WithLabelValues(outcome).Inc()
	searchRunDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	foldersChecked.Add(float64(folders))
	filesChecked.Add(float64(files))
}

func RecordMatch() {
	searchMatches.Inc()
}

func IncSSEConnections() {
	sseConnectionsActive.Inc()
}

func DecSSEConnections() {
	sseConnectionsActive.Dec()
}
