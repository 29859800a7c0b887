package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the alerting service.
type Metrics struct {
	MeasurementsIngested *prometheus.CounterVec   // labels: result={accepted,rejected,duplicate}
	DispatchFailures     *prometheus.CounterVec   // labels: handler
	HandlerDuration      *prometheus.HistogramVec // labels: handler
	AlertsPublished      *prometheus.CounterVec   // labels: alert_type, transport
	AlertsSuppressed     *prometheus.CounterVec   // labels: alert_type, reason={below_gate,no_recipient}
	JournalWrites        *prometheus.CounterVec   // labels: result={ok,error}
	StoreQueries         *prometheus.CounterVec   // labels: result={ok,error}
}

// NewMetrics creates all service metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.MeasurementsIngested,
		m.DispatchFailures,
		m.HandlerDuration,
		m.AlertsPublished,
		m.AlertsSuppressed,
		m.JournalWrites,
		m.StoreQueries,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so parallel
// tests never hit "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MeasurementsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldalert",
			Name:      "measurements_ingested_total",
			Help:      "Measurements received on the intake topic, by outcome.",
		}, []string{"result"}),
		DispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldalert",
			Name:      "dispatch_failures_total",
			Help:      "Handler failures during event dispatch.",
		}, []string{"handler"}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fieldalert",
			Name:      "handler_duration_seconds",
			Help:      "Per-handler processing time for one event.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"handler"}),
		AlertsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldalert",
			Name:      "alerts_published_total",
			Help:      "Alerts and notification requests published, by type and transport.",
		}, []string{"alert_type", "transport"}),
		AlertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldalert",
			Name:      "alerts_suppressed_total",
			Help:      "Detections that did not produce a publish, by reason.",
		}, []string{"alert_type", "reason"}),
		JournalWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldalert",
			Name:      "journal_writes_total",
			Help:      "Best-effort journal mirror writes, by result.",
		}, []string{"result"}),
		StoreQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldalert",
			Name:      "store_queries_total",
			Help:      "Measurement store range queries, by result.",
		}, []string{"result"}),
	}
}
