package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Discovery metrics
var (
	DiscoveryScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_scans_total",
			Help: "Total number of folder discovery scans",
		},
		[]string{"mode", "status"},
	)

	DiscoveryScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_discovery_scan_duration_seconds",
			Help:    "Folder discovery scan duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	DiscoveryFilesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_discovery_files_scanned_total",
			Help: "Total number of directory entries examined",
		},
	)

	DiscoveryFilesFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_discovery_files_found_total",
			Help: "Total number of valid image files discovered",
		},
	)

	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_validations_total",
			Help: "Total number of file validations by outcome",
		},
		[]string{"outcome"},
	)

	ValidationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_discovery_validation_duration_seconds",
			Help:    "Per-file validation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)
)

// Cache metrics
var (
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_cache_hits_total",
			Help: "Total number of cache hits by tier",
		},
		[]string{"tier"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_cache_misses_total",
			Help: "Total number of cache misses by tier",
		},
		[]string{"tier"},
	)

	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_cache_evictions_total",
			Help: "Total number of cache evictions by tier and reason",
		},
		[]string{"tier", "reason"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_discovery_cache_entries",
			Help: "Current number of cache entries by tier",
		},
		[]string{"tier"},
	)

	CacheMemoryBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_discovery_cache_memory_bytes",
			Help: "Estimated aggregate memory held by the multi-tier cache",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_discovery_memory_usage_ratio",
			Help: "Current heap usage as a fraction of the configured limit",
		},
	)

	MemoryCleanupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_discovery_memory_cleanups_total",
			Help: "Total number of memory-pressure cache cleanups",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_discovery_memory_gc_forced_total",
			Help: "Total number of forced garbage collections",
		},
	)
)

// Pagination metrics
var (
	PaginationBatchesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_discovery_pagination_batches_total",
			Help: "Total number of file batches served",
		},
	)

	PaginationBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_discovery_pagination_batch_size",
			Help:    "Observed batch sizes",
			Buckets: []float64{1, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_watcher_events_total",
			Help: "Total number of filesystem events observed by type",
		},
		[]string{"type"},
	)

	WatcherInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_discovery_watcher_invalidations_total",
			Help: "Total number of cache invalidations triggered by watcher events",
		},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_discovery_watcher_errors_total",
			Help: "Total number of watcher errors",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_discovery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_discovery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_fs_stale_errors_total",
			Help: "Total number of NFS stale file handle errors observed",
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_fs_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_fs_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_fs_retry_failures_total",
			Help: "Total number of filesystem operations that exhausted their retries",
		},
		[]string{"operation"},
	)
)

// Store metrics
var (
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_discovery_store_operations_total",
			Help: "Total number of persistence operations",
		},
		[]string{"operation", "status"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_discovery_store_operation_duration_seconds",
			Help:    "Persistence operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// InitializeMetrics pre-populates expected label combinations so every
// metric is exported from the first Prometheus scrape.
// Call this once at startup.
func InitializeMetrics() {
	for _, mode := range []string{"sync", "async", "paginated", "memory_aware"} {
		DiscoveryScansTotal.WithLabelValues(mode, "success")
		DiscoveryScansTotal.WithLabelValues(mode, "error")
		DiscoveryScanDuration.WithLabelValues(mode)
	}

	for _, outcome := range []string{"valid", "invalid", "corrupt", "error"} {
		ValidationsTotal.WithLabelValues(outcome)
	}

	for _, tier := range []string{"validation", "file", "folder"} {
		CacheHitsTotal.WithLabelValues(tier)
		CacheMissesTotal.WithLabelValues(tier)
		CacheEntries.WithLabelValues(tier)
		for _, reason := range []string{"capacity", "memory", "ttl", "stale", "clear"} {
			CacheEvictionsTotal.WithLabelValues(tier, reason)
		}
	}

	for _, evt := range []string{"create", "write", "remove", "rename", "chmod", "unknown"} {
		WatcherEventsTotal.WithLabelValues(evt)
	}

	for _, op := range []string{"open", "save_validation", "load_validations", "prune", "flush"} {
		StoreOperationsTotal.WithLabelValues(op, "success")
		StoreOperationsTotal.WithLabelValues(op, "error")
		StoreOperationDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}
}
