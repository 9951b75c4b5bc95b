// Package metrics exposes Prometheus instrumentation for the sync engine
// and report builder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
)

const namespace = "ioss"

// Recorder owns the Prometheus registry and every metric the service
// publishes. It is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	syncRuns      *prometheus.CounterVec
	syncOrders    *prometheus.CounterVec
	syncDuration  prometheus.Histogram
	reportsBuilt  *prometheus.CounterVec
	rateFallbacks prometheus.Counter
}

// NewRecorder creates a recorder with its own registry so the exposition
// endpoint carries only this service's metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
	}

	r.syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Sync attempts by mode and result.",
		},
		[]string{"mode", "result"},
	)

	r.syncOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_orders_total",
			Help:      "Orders written by the sync engine, by outcome.",
		},
		[]string{"outcome"},
	)

	r.syncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall-clock duration of sync attempts in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	r.reportsBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Regulator reports rendered, by kind.",
		},
		[]string{"kind"},
	)

	r.rateFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vat_rate_fallbacks_total",
			Help:      "Aggregation rows that used the configured default VAT rate.",
		},
	)

	r.registry.MustRegister(
		r.syncRuns,
		r.syncOrders,
		r.syncDuration,
		r.reportsBuilt,
		r.rateFallbacks,
	)

	return r
}

// Registry returns the Prometheus registry for the exposition handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSync records one completed sync attempt.
func (r *Recorder) ObserveSync(event *domain.SyncEvent) {
	mode := "incremental"
	if event.Full {
		mode = "full"
	}
	result := "success"
	if event.Failed() {
		result = "failure"
	}

	r.syncRuns.WithLabelValues(mode, result).Inc()
	r.syncDuration.Observe(event.Duration.Seconds())

	if event.Result != nil {
		r.syncOrders.WithLabelValues("created").Add(float64(event.Result.Created))
		r.syncOrders.WithLabelValues("updated").Add(float64(event.Result.Updated))
		r.syncOrders.WithLabelValues("duty_review").Add(float64(event.Result.DutyReview))
	}
}

// ObserveReport records one rendered report and how many of its rows fell
// back to the default VAT rate.
func (r *Recorder) ObserveReport(kind string, rateFallbacks int) {
	r.reportsBuilt.WithLabelValues(kind).Inc()
	r.rateFallbacks.Add(float64(rateFallbacks))
}
