// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth decision outcomes recorded by the authorization middleware.
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeForbidden     = "forbidden"
	OutcomeLoginSuccess  = "login_success"
	OutcomeLoginFailure  = "login_failure"
	OutcomeLoginInactive = "login_inactive"
)

// Metrics bundles the collectors and the registry they live in. A private
// registry keeps tests independent of the process-wide default.
type Metrics struct {
	Registry *prometheus.Registry

	inFlight      prometheus.Gauge
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	authDecisions *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	auditEvents   *prometheus.CounterVec
}

// New registers every collector plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ngo_http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ngo_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ngo_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		authDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ngo_auth_decisions_total",
			Help: "Authentication and authorization decisions by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ngo_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by backend.",
		}, []string{"backend"}),
		auditEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ngo_audit_events_total",
			Help: "Audit events by delivery result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inFlight, m.requests, m.duration, m.authDecisions, m.rateLimited, m.auditEvents,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware measures every request. The route label is echo's route
// template, so ids in paths do not explode cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.inFlight.Inc()
			defer m.inFlight.Dec()
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if sc, ok := err.(interface{ Status() int }); ok {
					status = sc.Status()
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			code := strconv.Itoa(status)
			m.requests.WithLabelValues(c.Request().Method, route, code).Inc()
			m.duration.WithLabelValues(c.Request().Method, route, code).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// AuthDecision counts one decision. Safe on a nil receiver so callers can
// run without metrics.
func (m *Metrics) AuthDecision(outcome string) {
	if m == nil {
		return
	}
	m.authDecisions.WithLabelValues(outcome).Inc()
}

// RateLimited counts one rejected request.
func (m *Metrics) RateLimited(backend string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(backend).Inc()
}

// AuditEvent counts one audit delivery result (published, written, failed).
func (m *Metrics) AuditEvent(result string) {
	if m == nil {
		return
	}
	m.auditEvents.WithLabelValues(result).Inc()
}
