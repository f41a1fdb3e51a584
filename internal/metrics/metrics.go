package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

const namespace = "netbill"

// Metrics holds the billing counters exported on /metrics
type Metrics struct {
	registry *prometheus.Registry

	InvoicesGenerated   prometheus.Counter
	InvoicesSkipped     prometheus.Counter
	LateFeesApplied     prometheus.Counter
	Suspensions         prometheus.Counter
	Reconciliations     *prometheus.CounterVec
	ReceiptsIssued      *prometheus.CounterVec
	EntityFailures      *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewRegistry, NewMetrics),
	)
}

func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return registry
}

// NewMetrics creates and registers all billing metrics on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		InvoicesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_generated_total",
			Help:      "Total number of invoices created by the generator",
		}),
		InvoicesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_skipped_total",
			Help:      "Total number of subscriptions skipped because the period was already invoiced",
		}),
		LateFeesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_fees_applied_total",
			Help:      "Total number of late fees charged",
		}),
		Suspensions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_suspended_total",
			Help:      "Total number of subscriptions suspended for non payment",
		}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Total number of payment reconciliation attempts by outcome",
		}, []string{"outcome"}),
		ReceiptsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_issued_total",
			Help:      "Total number of receipt documents issued by status",
		}, []string{"status"}),
		EntityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_entity_failures_total",
			Help:      "Total number of batch entities that failed and were rolled back",
		}, []string{"job"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Billing job duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	registry.MustRegister(
		m.InvoicesGenerated,
		m.InvoicesSkipped,
		m.LateFeesApplied,
		m.Suspensions,
		m.Reconciliations,
		m.ReceiptsIssued,
		m.EntityFailures,
		m.JobDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// NewNoopMetrics returns metrics registered on a private registry, for tests and scripts
func NewNoopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveJob(job string, start time.Time) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordGeneration(generated, skipped int) {
	if m == nil {
		return
	}
	m.InvoicesGenerated.Add(float64(generated))
	m.InvoicesSkipped.Add(float64(skipped))
}

func (m *Metrics) RecordOverdue(feesApplied, suspended int) {
	if m == nil {
		return
	}
	m.LateFeesApplied.Add(float64(feesApplied))
	m.Suspensions.Add(float64(suspended))
}

func (m *Metrics) RecordReconciliation(outcome string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordReceipt(status string) {
	if m == nil {
		return
	}
	m.ReceiptsIssued.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordEntityFailure(job string) {
	if m == nil {
		return
	}
	m.EntityFailures.WithLabelValues(job).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
