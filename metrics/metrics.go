// Package metrics defines a generic interface for collecting cache and HTTP
// metrics. Implementations can back Prometheus, OpenTelemetry, Datadog, etc.
// without adding a dependency to the core transport.
package metrics

import (
	"time"
)

// Collector defines the interface for metrics collection.
type Collector interface {
	// RecordCacheOperation records a backing-store operation.
	// operation: "get", "set", or "remove". result: "hit", "miss", "success", "error".
	RecordCacheOperation(operation, backend, result string, duration time.Duration)

	// RecordCacheSize records the current size of a backend in bytes.
	RecordCacheSize(backend string, sizeBytes int64)

	// RecordCacheEntries records the current entry count of a backend.
	RecordCacheEntries(backend string, count int64)

	// RecordHTTPRequest records a request passing through the Transport.
	// cacheStatus mirrors the decision's diagnostic token family: "hit",
	// "miss", "revalidated", or "bypass".
	RecordHTTPRequest(method, cacheStatus string, statusCode int, duration time.Duration)

	// RecordHTTPResponseSize records a response body size.
	RecordHTTPResponseSize(cacheStatus string, sizeBytes int64)

	// RecordStaleResponse records a stale-while-revalidate or
	// stale-if-error response served to the caller.
	RecordStaleResponse(errorType string)

	// RecordDecision increments cache.hits or cache.misses keyed by the
	// stable diagnostic token (spec.md §6.6).
	RecordDecision(decision string, isHit, isMiss bool)
}

// NoOpCollector implements Collector with no-op operations. It is the
// default collector when metrics are not configured, at zero overhead.
type NoOpCollector struct{}

// RecordCacheOperation does nothing (no-op implementation)
func (n *NoOpCollector) RecordCacheOperation(operation, backend, result string, duration time.Duration) {
}

// RecordCacheSize does nothing (no-op implementation)
func (n *NoOpCollector) RecordCacheSize(backend string, sizeBytes int64) {}

// RecordCacheEntries does nothing (no-op implementation)
func (n *NoOpCollector) RecordCacheEntries(backend string, count int64) {}

// RecordHTTPRequest does nothing (no-op implementation)
func (n *NoOpCollector) RecordHTTPRequest(method, cacheStatus string, statusCode int, duration time.Duration) {
}

// RecordHTTPResponseSize does nothing (no-op implementation)
func (n *NoOpCollector) RecordHTTPResponseSize(cacheStatus string, sizeBytes int64) {}

// RecordStaleResponse does nothing (no-op implementation)
func (n *NoOpCollector) RecordStaleResponse(errorType string) {}

// RecordDecision does nothing (no-op implementation)
func (n *NoOpCollector) RecordDecision(decision string, isHit, isMiss bool) {}

// DefaultCollector is the default no-op collector used when metrics are not enabled
var DefaultCollector Collector = &NoOpCollector{}

// Verify that NoOpCollector implements Collector interface
var _ Collector = (*NoOpCollector)(nil)
