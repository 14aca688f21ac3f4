// Package metrics provides Prometheus metrics for the pea server.
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
			Name: "pea_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pea_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Index actor metrics
	indexOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pea_index_operation_duration_seconds",
			Help:    "Time the index actor spent on one request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	indexOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pea_index_operations_total",
			Help: "Total index actor requests",
		},
		[]string{"operation", "status"},
	)

	indexFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pea_index_files",
			Help: "Number of files in the index",
		},
	)

	// Content transfer metrics
	contentBytesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pea_content_bytes_served_total",
			Help: "Total bytes of file content opened for serving",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pea_uploads_total",
			Help: "Total uploaded files",
		},
		[]string{"status"},
	)

	// Watcher metrics
	watchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pea_watch_events_total",
			Help: "File system events applied to the index",
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordIndexOperation records one processed actor request.
func RecordIndexOperation(operation string, duration time.Duration, err error) {
	indexOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	indexOperationsTotal.WithLabelValues(operation, outcome(err == nil)).Inc()
}

// SetIndexFiles sets the current number of indexed files.
func SetIndexFiles(n int) {
	indexFiles.Set(float64(n))
}

// RecordContentServed records the size of a served file.
func RecordContentServed(bytes int64) {
	contentBytesServed.Add(float64(bytes))
}

// RecordUpload records one uploaded file.
func RecordUpload(success bool) {
	uploadsTotal.WithLabelValues(outcome(success)).Inc()
}

// RecordWatchEvent records a watcher-driven index change.
func RecordWatchEvent(operation string) {
	watchEventsTotal.WithLabelValues(operation).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics. Requests
// are labeled by their ServeMux pattern so ids in paths do not create series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
	})
}
