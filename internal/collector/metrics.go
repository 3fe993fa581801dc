// Package collector drives periodic collection cycles over the monitored
// location list.
package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricCyclesTotal           = "collection_cycles_total"
	MetricCycleDuration         = "collection_cycle_duration_seconds"
	MetricSourceFailuresTotal   = "collection_source_failures_total"
	MetricRecordsPersistedTotal = "collection_records_persisted_total"
	MetricWritesSuppressedTotal = "collection_activity_writes_suppressed_total"
	MetricDedupErrorsTotal      = "collection_dedup_errors_total"
)

// Source label values.
const (
	SourceSocial  = "social"
	SourceNetwork = "network"
	SourceNews    = "news"
)

// Status constants for cycle completion.
const (
	StatusSuccess   = "success"
	StatusFailure   = "failure"
	StatusAbandoned = "abandoned"
)

// Persist outcome label values.
const (
	PersistOK      = "ok"
	PersistSkipped = "skipped"
	PersistError   = "error"
)

// Metrics contains Prometheus metrics for collection cycle operations.
// All operations are thread-safe.
type Metrics struct {
	cyclesTotal      *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	sourceFailures   *prometheus.CounterVec
	recordsPersisted *prometheus.CounterVec
	writesSuppressed prometheus.Counter
	dedupErrors      prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCyclesTotal,
				Help: "Total number of collection cycle attempts by final status",
			},
			[]string{"status"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricCycleDuration,
				Help:    "Histogram of collection cycle duration in seconds",
				Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0},
			},
		),
		sourceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSourceFailuresTotal,
				Help: "Total number of per-location source fetch failures by source",
			},
			[]string{"source"},
		),
		recordsPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRecordsPersistedTotal,
				Help: "Total number of record persistence attempts by table and outcome",
			},
			[]string{"table", "status"},
		),
		writesSuppressed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricWritesSuppressedTotal,
				Help: "Total number of activity writes coalesced by the dedup cooldown",
			},
		),
		dedupErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricDedupErrorsTotal,
				Help: "Total number of dedup gate errors (gate failed open)",
			},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncCyclesTotal increments the cycle counter for the given status.
func (m *Metrics) IncCyclesTotal(status string) {
	m.cyclesTotal.WithLabelValues(status).Inc()
}

// ObserveCycleDuration records a cycle duration sample in seconds.
func (m *Metrics) ObserveCycleDuration(seconds float64) {
	m.cycleDuration.Observe(seconds)
}

// IncSourceFailures increments the fetch failure counter for a source.
func (m *Metrics) IncSourceFailures(source string) {
	m.sourceFailures.WithLabelValues(source).Inc()
}

// IncRecordsPersisted increments the persistence counter for a table and
// outcome.
func (m *Metrics) IncRecordsPersisted(table, status string) {
	m.recordsPersisted.WithLabelValues(table, status).Inc()
}

// IncWritesSuppressed increments the coalesced-write counter.
func (m *Metrics) IncWritesSuppressed() {
	m.writesSuppressed.Inc()
}

// IncDedupErrors increments the dedup gate error counter.
func (m *Metrics) IncDedupErrors() {
	m.dedupErrors.Inc()
}

// Collectors returns all Prometheus collectors for registration and tests.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.cyclesTotal,
		m.cycleDuration,
		m.sourceFailures,
		m.recordsPersisted,
		m.writesSuppressed,
		m.dedupErrors,
	}
}
