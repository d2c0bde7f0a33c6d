package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/server/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	issued   *prometheus.CounterVec
	verified *prometheus.CounterVec
	limited  prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiringhub_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hiringhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiringhub_otp_issued_total",
			Help: "One-time codes sent, by action.",
		}, []string{"kind"}),
		verified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiringhub_otp_verifications_total",
			Help: "One-time code checks, by action and outcome.",
		}, []string{"kind", "outcome"}),
		limited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiringhub_otp_rate_limited_total",
			Help: "Code requests refused by the rate limiter.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.issued, m.verified, m.limited,
	)
	return m
}

func (m *Metrics) CodeIssued(kind session.Kind) {
	m.issued.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) CodeVerified(kind session.Kind, outcome string) {
	m.verified.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records count and latency per matched route.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
