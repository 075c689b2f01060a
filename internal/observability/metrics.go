package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	resolutions     *prometheus.CounterVec
	tenantMismatch  prometheus.Counter
	transitions     *prometheus.CounterVec
	overrideWrites  *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "comanda_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_authz_resolutions_total",
		Help: "Role resolutions by winning strategy.",
	}, []string{"strategy"})
	tenantMismatch := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "comanda_authz_tenant_mismatch_total",
		Help: "Refused cross-tenant override accesses.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_staff_transitions_total",
		Help: "Employee access lifecycle transitions.",
	}, []string{"transition"})
	overrideWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_authz_override_writes_total",
		Help: "Permission override mutations by operation.",
	}, []string{"op"})
	registry.MustRegister(requests, duration, resolutions, tenantMismatch, transitions, overrideWrites)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		resolutions:     resolutions,
		tenantMismatch:  tenantMismatch,
		transitions:     transitions,
		overrideWrites:  overrideWrites,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveResolution counts a role resolution per winning strategy.
func (m *Metrics) ObserveResolution(strategy string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(strategy).Inc()
}

// ObserveTenantMismatch counts a refused cross-tenant access.
func (m *Metrics) ObserveTenantMismatch() {
	if m == nil {
		return
	}
	m.tenantMismatch.Inc()
}

// ObserveTransition counts a lifecycle transition.
func (m *Metrics) ObserveTransition(transition string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition).Inc()
}

// ObserveOverrideWrite counts a permission override mutation.
func (m *Metrics) ObserveOverrideWrite(op string) {
	if m == nil {
		return
	}
	m.overrideWrites.WithLabelValues(op).Inc()
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)

		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
