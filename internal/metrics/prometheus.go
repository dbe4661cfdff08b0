package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics on a private registry.
type PrometheusMetrics struct {
	resolutionsTotal    *prometheus.CounterVec
	resolutionDuration  prometheus.Histogram
	aggregationsTotal   *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
	exportsTotal        *prometheus.CounterVec
	exportRows          *prometheus.CounterVec
	snapshotReloads     *prometheus.CounterVec
	snapshotRoles       prometheus.Gauge
	snapshotGroups      prometheus.Gauge

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a Prometheus metrics instance.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	resolutionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of policy resolutions by resource kind",
		},
		[]string{"kind"},
	)

	// Resolution is in-memory rule matching; sub-millisecond expected
	resolutionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_microseconds",
			Help:      "Policy resolution latency in microseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	aggregationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregations_total",
			Help:      "Total number of aggregation passes by operation",
		},
		[]string{"operation"},
	)

	aggregationDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_microseconds",
			Help:      "Aggregation pass latency in microseconds",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
	)

	exportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "exports_total",
			Help:      "Total number of exports by format",
		},
		[]string{"format"},
	)

	exportRows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "rows_total",
			Help:      "Total number of exported rows by format",
		},
		[]string{"format"},
	)

	snapshotReloads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "reloads_total",
			Help:      "Total number of snapshot reloads by status",
		},
		[]string{"status"},
	)

	snapshotRoles := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "roles",
			Help:      "Number of roles in the current snapshot",
		},
	)

	snapshotGroups := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "groups",
			Help:      "Number of groups in the current snapshot",
		},
	)

	registry.MustRegister(
		resolutionsTotal,
		resolutionDuration,
		aggregationsTotal,
		aggregationDuration,
		exportsTotal,
		exportRows,
		snapshotReloads,
		snapshotRoles,
		snapshotGroups,
	)

	return &PrometheusMetrics{
		resolutionsTotal:    resolutionsTotal,
		resolutionDuration:  resolutionDuration,
		aggregationsTotal:   aggregationsTotal,
		aggregationDuration: aggregationDuration,
		exportsTotal:        exportsTotal,
		exportRows:          exportRows,
		snapshotReloads:     snapshotReloads,
		snapshotRoles:       snapshotRoles,
		snapshotGroups:      snapshotGroups,
		registry:            registry,
	}
}

func (m *PrometheusMetrics) RecordResolution(kind string, duration time.Duration) {
	m.resolutionsTotal.WithLabelValues(kind).Inc()
	m.resolutionDuration.Observe(float64(duration.Microseconds()))
}

func (m *PrometheusMetrics) RecordAggregation(operation string, duration time.Duration) {
	m.aggregationsTotal.WithLabelValues(operation).Inc()
	m.aggregationDuration.Observe(float64(duration.Microseconds()))
}

func (m *PrometheusMetrics) RecordExport(format string, rows int) {
	m.exportsTotal.WithLabelValues(format).Inc()
	m.exportRows.WithLabelValues(format).Add(float64(rows))
}

func (m *PrometheusMetrics) RecordSnapshotReload(status string) {
	m.snapshotReloads.WithLabelValues(status).Inc()
}

func (m *PrometheusMetrics) UpdateSnapshotSize(roles, groups int) {
	m.snapshotRoles.Set(float64(roles))
	m.snapshotGroups.Set(float64(groups))
}

// HTTPHandler returns the scrape handler for this instance's registry.
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
