package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Exponential buckets from 1ms doubling ten times, up to ~0.5s.
const (
	bucketStart1ms = 0.001
	bucketFactor2  = 2
	bucketCount10  = 10
)

// SyncMetrics contains Prometheus metrics for synchronization.
type SyncMetrics struct {
	operationsTotal   *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
	resolutionsTotal  *prometheus.CounterVec
	sourceErrorsTotal *prometheus.CounterVec
	sourceDuration    *prometheus.HistogramVec
	queueDepth        prometheus.Gauge
	checksTotal       *prometheus.CounterVec
	violations        *prometheus.GaugeVec
}

// NewSyncMetrics creates the collectors and registers them with registry.
func NewSyncMetrics(registry prometheus.Registerer) (*SyncMetrics, error) {
	m := &SyncMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SyncMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_sync_operations_total",
			Help: "Total number of sync operations",
		},
		[]string{"operation", "entity_type", "status"}, // status: success, error, conflict, queued, superseded
	)

	m.conflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_sync_conflicts_total",
			Help: "Total number of detected conflicts",
		},
		[]string{"entity_type"},
	)

	m.resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_sync_resolutions_total",
			Help: "Total number of resolved conflicts",
		},
		[]string{"entity_type", "strategy"},
	)

	m.sourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_sync_source_errors_total",
			Help: "Total number of failed source calls",
		},
		[]string{"source", "operation"},
	)

	m.sourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "entity_sync_source_duration_seconds",
			Help:    "Time taken by source calls",
			Buckets: prometheus.ExponentialBuckets(bucketStart1ms, bucketFactor2, bucketCount10),
		},
		[]string{"source", "operation"},
	)

	m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "entity_sync_queue_depth",
		Help: "Number of operations waiting in the offline queue",
	})

	m.checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_integrity_checks_total",
			Help: "Total number of integrity checks",
		},
		[]string{"result"}, // result: valid, invalid
	)

	m.violations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "entity_integrity_violations",
			Help: "Violations found by the latest integrity check",
		},
		[]string{"severity"},
	)
}

// Describe implements the Collector interface
func (m *SyncMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.conflictsTotal.Describe(ch)
	m.resolutionsTotal.Describe(ch)
	m.sourceErrorsTotal.Describe(ch)
	m.sourceDuration.Describe(ch)
	m.queueDepth.Describe(ch)
	m.checksTotal.Describe(ch)
	m.violations.Describe(ch)
}

// Collect implements the Collector interface
func (m *SyncMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.conflictsTotal.Collect(ch)
	m.resolutionsTotal.Collect(ch)
	m.sourceErrorsTotal.Collect(ch)
	m.sourceDuration.Collect(ch)
	m.queueDepth.Collect(ch)
	m.checksTotal.Collect(ch)
	m.violations.Collect(ch)
}

// RecordOperation counts a sync, create, update, delete or replay outcome.
func (m *SyncMetrics) RecordOperation(operation, entityType, status string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, entityType, status).Inc()
}

// RecordConflict counts a detected conflict.
func (m *SyncMetrics) RecordConflict(entityType string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(entityType).Inc()
}

// RecordResolution counts a resolved conflict.
func (m *SyncMetrics) RecordResolution(entityType, strategy string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(entityType, strategy).Inc()
}

// ObserveSourceCall records the latency and outcome of one source call.
func (m *SyncMetrics) ObserveSourceCall(sourceName, operation string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.sourceDuration.WithLabelValues(sourceName, operation).Observe(took.Seconds())
	if err != nil {
		m.sourceErrorsTotal.WithLabelValues(sourceName, operation).Inc()
	}
}

// SetQueueDepth reports the offline queue length.
func (m *SyncMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// RecordCheck records the outcome of an integrity check.
func (m *SyncMetrics) RecordCheck(valid bool, bySeverity map[string]int) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.checksTotal.WithLabelValues(result).Inc()
	m.violations.Reset()
	for severity, n := range bySeverity {
		m.violations.WithLabelValues(severity).Set(float64(n))
	}
}
