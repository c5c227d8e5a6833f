package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	upstreamRequestsTotal *prometheus.CounterVec
	upstreamDuration      *prometheus.HistogramVec
	credentialFetches     *prometheus.CounterVec
	credentialDuration    *prometheus.HistogramVec
	callableResults       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenserelay_http_requests_total",
				Help: "Total number of HTTP requests handled.",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expenserelay_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		upstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenserelay_upstream_requests_total",
				Help: "Total Vertex AI requests.",
			},
			[]string{"endpoint", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expenserelay_upstream_request_duration_seconds",
				Help:    "Vertex AI request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "status"},
		),
		credentialFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenserelay_credential_fetches_total",
				Help: "Access token fetches by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		credentialDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expenserelay_credential_fetch_duration_seconds",
				Help:    "Access token fetch duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		callableResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenserelay_callable_results_total",
				Help: "Callable invocations by function and result status.",
			},
			[]string{"function", "status"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.upstreamRequestsTotal,
		m.upstreamDuration,
		m.credentialFetches,
		m.credentialDuration,
		m.callableResults,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "UNKNOWN"
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(route, method, statusLabel).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) ObserveUpstream(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	statusLabel := strconv.Itoa(status)
	m.upstreamRequestsTotal.WithLabelValues(endpoint, statusLabel).Inc()
	m.upstreamDuration.WithLabelValues(endpoint, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) ObserveCredential(provider string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	m.credentialFetches.WithLabelValues(provider, outcome).Inc()
	m.credentialDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveCallable counts a finished invocation. status is "OK" or a callable
// error code.
func (m *Metrics) ObserveCallable(function, status string) {
	if m == nil {
		return
	}
	m.callableResults.WithLabelValues(function, status).Inc()
}
