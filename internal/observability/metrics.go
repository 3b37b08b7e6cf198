package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the prometheus collectors for the service.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	errors        *prometheus.CounterVec
	sweepActions  *prometheus.CounterVec
	sweepDuration prometheus.Histogram
}

// NewMetrics builds and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "http_errors_total",
			Help:      "Request errors by route, method and domain error code.",
		}, []string{"route", "method", "code"}),
		sweepActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "automation_actions_total",
			Help:      "Automation sweep outcomes by action.",
		}, []string{"action"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "helpdesk",
			Name:      "automation_sweep_duration_seconds",
			Help:      "Duration of automation sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	registry.MustRegister(
		m.requests,
		m.errors,
		m.sweepActions,
		m.sweepDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(route, method string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordSweep records the outcome counts and duration of one sweep.
func (m *Metrics) RecordSweep(reminded, autoSolved, autoClosed, attachmentsDeleted, failures int, seconds float64) {
	if m == nil {
		return
	}
	m.sweepActions.WithLabelValues("reminded").Add(float64(reminded))
	m.sweepActions.WithLabelValues("auto_solved").Add(float64(autoSolved))
	m.sweepActions.WithLabelValues("auto_closed").Add(float64(autoClosed))
	m.sweepActions.WithLabelValues("attachments_deleted").Add(float64(attachmentsDeleted))
	m.sweepActions.WithLabelValues("failed").Add(float64(failures))
	m.sweepDuration.Observe(seconds)
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
