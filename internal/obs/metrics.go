package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
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

// Authorization lifecycle metrics.
var (
	documentsConfirmedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authorization_documents_confirmed_total",
		Help: "Documents that reached the Signed state.",
	})

	grantsIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_grants_issued_total",
			Help: "Grants issued, by source entity type.",
		},
		[]string{"source_type"},
	)

	validationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_validation_failures_total",
			Help: "Business process validation failures, by error code.",
		},
		[]string{"code"},
	)
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		documentsConfirmedTotal, grantsIssuedTotal, validationFailuresTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DocumentConfirmed increments the confirmed-documents counter.
func DocumentConfirmed() { documentsConfirmedTotal.Inc() }

// GrantIssued increments the issued-grants counter for the given source type.
func GrantIssued(sourceType string) { grantsIssuedTotal.WithLabelValues(sourceType).Inc() }

// ValidationFailed increments the validation-failure counter for the given code.
func ValidationFailed(code string) { validationFailuresTotal.WithLabelValues(code).Inc() }

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses resource identifiers so metric labels stay low-cardinality.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	for _, prefix := range []string{
		"/v1/authorization-requests/",
		"/v1/authorization-documents/",
		"/v1/authorization-grants/",
	} {
		if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" {
			if action, found := strings.CutPrefix(rest, firstSegment(rest)); found && action != "" {
				return prefix + ":id" + action
			}
			return prefix + ":id"
		}
	}
	return path
}

func firstSegment(rest string) string {
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// statusWriter records the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
