// Package obs holds the Prometheus metrics exported on /metrics.
package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry collects every cautela metric plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	// SyncRuns counts remote operations by unit, operation and result.
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cautela_sync_runs_total",
			Help: "Remote fetch and push attempts.",
		},
		[]string{"unit", "op", "result"},
	)

	// Transitions counts movements created and returned.
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cautela_movement_transitions_total",
			Help: "Movements checked out and returned.",
		},
		[]string{"unit", "transition"},
	)

	// Notifications counts notification deliveries by result.
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cautela_notifications_total",
			Help: "Notification deliveries.",
		},
		[]string{"result"},
	)

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		SyncRuns, Transitions, Notifications,
		httpInFlight, httpRequestsTotal, httpRequestDuration,
	)
}

// Result maps an error to a "ok" or "error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Instrument records request counts, latencies and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := CanonicalPath(r.URL.Path)
		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// movementViews are the fixed children of /api/movements/.
var movementViews = map[string]bool{"pending": true, "overdue": true}

// CanonicalPath folds paths outside the API into one label value and
// movement ids into a placeholder, so that the label set stays bounded.
func CanonicalPath(path string) string {
	if path == "/metrics" {
		return path
	}
	if !strings.HasPrefix(path, "/api/") {
		return "other"
	}
	if rest, ok := strings.CutPrefix(path, "/api/movements/"); ok && !movementViews[rest] {
		return "/api/movements/{id}"
	}
	return path
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
