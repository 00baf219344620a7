package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	consumes    *prometheus.CounterVec
	events      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "collab",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route pattern, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "collab",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route pattern",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "collab",
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Account status transitions by target status and outcome",
			},
			[]string{"to", "outcome"},
		),
		consumes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "collab",
				Subsystem: "quota",
				Name:      "consume_total",
				Help:      "Quota consumption attempts by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "collab",
				Subsystem: "events",
				Name:      "publish_total",
				Help:      "Lifecycle event publishes by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(m.requests, m.latency, m.transitions, m.consumes, m.events)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records request counts and latency by chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) transition(to string, err error) {
	m.transitions.WithLabelValues(to, outcome(err)).Inc()
}

func (m *Metrics) consume(action string, err error) {
	m.consumes.WithLabelValues(action, outcome(err)).Inc()
}

func (m *Metrics) published(err error) {
	m.events.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	_, code := classify(err)
	return code
}
