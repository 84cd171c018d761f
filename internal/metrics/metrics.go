package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics represents the collection of all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Standard metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session metrics
	CommandsTotal *prometheus.CounterVec
	EventsTotal   *prometheus.CounterVec
	WatchRestarts prometheus.Counter
	Observers     prometheus.Gauge
}

// NewMetrics creates all metrics on a private registry together with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeclaw_commands_total",
			Help: "Lifecycle commands issued against the runtime",
		},
		[]string{"op", "outcome"},
	)

	m.EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safeclaw_events_total",
			Help: "Runtime lifecycle events observed by the watcher",
		},
		[]string{"action"},
	)

	m.WatchRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "safeclaw_watch_restarts_total",
			Help: "Times the runtime event subscription was re-established",
		},
	)

	m.Observers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "safeclaw_observers",
			Help: "Connected dashboard observers",
		},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CommandsTotal,
		m.EventsTotal,
		m.WatchRestarts,
		m.Observers,
	)

	return m
}

// Middleware for tracking HTTP requests
func (m *Metrics) RequestTrackingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, http.StatusText(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter is a wrapper to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the wrapped writer so websocket upgrades work
// behind the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// ObserveCommand counts a lifecycle command outcome.
func (m *Metrics) ObserveCommand(op string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.CommandsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveEvent counts a watched runtime event.
func (m *Metrics) ObserveEvent(action string) {
	m.EventsTotal.WithLabelValues(action).Inc()
}

// ObserveWatchRestart counts a resubscription of the event feed.
func (m *Metrics) ObserveWatchRestart() {
	m.WatchRestarts.Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
