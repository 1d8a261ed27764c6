package api

import (
	"net/http"
	"strconv"
	"time"

	faucetErrors "github.com/faucet-intake/internal/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const outcomeAccepted = "accepted"

// Metrics holds the Prometheus collectors of one server.
// Each server gets its own registry so tests can build many servers.
type Metrics struct {
	registry        *prometheus.Registry
	claimsTotal     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	throttledTotal  prometheus.Counter
}

// NewMetrics creates and registers the server collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		claimsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faucet_claims_total",
				Help: "Claims processed, by intake path and outcome",
			},
			[]string{"path", "outcome"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		throttledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "faucet_throttled_requests_total", Help: "Requests rejected by the per-client throttle"},
		),
	}

	m.registry.MustRegister(
		m.claimsTotal,
		m.requestsTotal,
		m.requestDuration,
		m.throttledTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
// Compression is left to CompressionMiddleware.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{DisableCompression: true})
}

// ObserveClaim counts a claim by path and outcome. The outcome is the
// error kind for rejected claims.
func (m *Metrics) ObserveClaim(path string, err error) {
	outcome := outcomeAccepted
	if err != nil {
		outcome = string(faucetErrors.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	m.claimsTotal.WithLabelValues(path, outcome).Inc()
}

// ObserveThrottled counts a throttled request
func (m *Metrics) ObserveThrottled() {
	m.throttledTotal.Inc()
}

// Middleware records request count and latency per route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
