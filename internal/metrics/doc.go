// Package metrics defines the Prometheus collectors exported by the
// photo discovery service.
//
// All metrics share the photo_discovery_ prefix. Collectors are
// registered at package load via promauto and exposed through the
// introspection server's /metrics endpoint.
//
// Metric families:
//   - discovery: scan counters, durations, files found/validated
//   - cache: per-tier hit/miss/eviction counters, entry and memory gauges
//   - memory: usage ratio, cleanup counters, GC pauses
//   - pagination: batches served, batch sizes
//   - watcher: filesystem events, invalidations, errors
//   - store: persistence operations
package metrics
