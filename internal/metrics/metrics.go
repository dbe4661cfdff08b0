// Package metrics provides observability for the governance reporting core
package metrics

import (
	"net/http"
	"time"
)

// Metrics records what the core computes. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// Policy resolution
	RecordResolution(kind string, duration time.Duration)

	// Aggregation passes
	RecordAggregation(operation string, duration time.Duration)

	// Exports
	RecordExport(format string, rows int)

	// Snapshot lifecycle
	RecordSnapshotReload(status string)
	UpdateSnapshotSize(roles, groups int)

	// HTTPHandler is the scrape endpoint, mounted by the host application.
	// The core opens no ports of its own.
	HTTPHandler() http.Handler
}

// NoOpMetrics is the disabled implementation.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new no-op metrics instance.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

func (n *NoOpMetrics) RecordResolution(kind string, duration time.Duration)       {}
func (n *NoOpMetrics) RecordAggregation(operation string, duration time.Duration) {}
func (n *NoOpMetrics) RecordExport(format string, rows int)                       {}
func (n *NoOpMetrics) RecordSnapshotReload(status string)                         {}
func (n *NoOpMetrics) UpdateSnapshotSize(roles, groups int)                       {}

// HTTPHandler returns a placeholder handler.
func (n *NoOpMetrics) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("# NoOp metrics - monitoring disabled\n"))
	})
}
