// Package metrics owns the prometheus collectors of the service. Each
// Metrics value has its own registry so tests can build as many as needed.
package metrics

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

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	invoiceOps      *prometheus.CounterVec
	summaryFailures *prometheus.CounterVec
	divergences     *prometheus.GaugeVec
	auditRuns       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sales",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sales",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		invoiceOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sales",
			Name:      "invoice_operations_total",
			Help:      "Invoice mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		summaryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sales",
			Name:      "summary_write_failures_total",
			Help:      "Summary table writes that failed after the order lines were written.",
		}, []string{"op"}),
		divergences: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sales",
			Name:      "reconciliation_divergences",
			Help:      "Divergences found by the last reconciliation audit, by kind.",
		}, []string{"kind"}),
		auditRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sales",
			Name:      "reconciliation_audit_runs_total",
			Help:      "Reconciliation audit runs by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.invoiceOps,
		m.summaryFailures,
		m.divergences,
		m.auditRuns,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(route string, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) InvoiceOp(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.invoiceOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) SummaryWriteFailed(op string) {
	if m == nil {
		return
	}
	m.summaryFailures.WithLabelValues(op).Inc()
}

// SetDivergences replaces the gauge with counts per kind; kinds absent
// from counts are reset to zero.
func (m *Metrics) SetDivergences(kinds []string, counts map[string]int) {
	if m == nil {
		return
	}
	for _, kind := range kinds {
		m.divergences.WithLabelValues(kind).Set(float64(counts[kind]))
	}
}

func (m *Metrics) AuditRun(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.auditRuns.WithLabelValues(outcome).Inc()
}
