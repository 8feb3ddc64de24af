package discovery

import (
	"sync"
	"time"

	"photo-discovery/internal/logging"
	"photo-discovery/internal/memory"
	"photo-discovery/internal/metrics"
)

// Default pressure thresholds as fractions of the memory limit.
const (
	DefaultWarningThreshold  = 0.75
	DefaultCriticalThreshold = 0.90
)

// The wrapper's private result cache holds at most this many folders,
// evicted in insertion order.
const memoryAwareCacheSize = 50

// MemoryAwareConfig tunes the wrapper. Zero fields take defaults; a
// zero MemoryLimitBytes falls back to GOMEMLIMIT.
type MemoryAwareConfig struct {
	MemoryLimitBytes  int64
	WarningThreshold  float64
	CriticalThreshold float64
}

// MemoryAwareStats is a running tally across wrapper calls.
type MemoryAwareStats struct {
	TotalCalls       int64
	CacheHits        int64
	Cleanups         int64
	PeakUsagePercent float64
}

// CleanupResult reports what a forced cleanup achieved.
type CleanupResult struct {
	EntriesCleared int
	FreedEstimate  uint64
	Duration       time.Duration
}

// MemoryStatus is a point-in-time view for introspection endpoints.
type MemoryStatus struct {
	Snapshot          memory.Snapshot
	WarningThreshold  float64
	CriticalThreshold float64
	Stats             MemoryAwareStats
	CachedFolders     int
}

type memKey struct {
	folder string
	mtime  int64
}

// MemoryAwareService wraps a Service with memory sampling around each
// scan and a small private result cache that is the first thing
// dropped under pressure.
type MemoryAwareService struct {
	svc *Service
	cfg MemoryAwareConfig

	mu      sync.Mutex
	results map[memKey][]string
	order   []memKey
	stats   MemoryAwareStats
}

// NewMemoryAware wraps svc. Thresholds default to 0.75 warning and
// 0.90 critical.
func NewMemoryAware(svc *Service, cfg MemoryAwareConfig) *MemoryAwareService {
	if cfg.WarningThreshold <= 0 {
		cfg.WarningThreshold = DefaultWarningThreshold
	}
	if cfg.CriticalThreshold <= 0 {
		cfg.CriticalThreshold = DefaultCriticalThreshold
	}
	return &MemoryAwareService{
		svc:     svc,
		cfg:     cfg,
		results: make(map[memKey][]string),
	}
}

// DiscoverWithMemoryManagement runs one scan bracketed by memory
// samples. Critical pressure before the scan triggers a cleanup
// first; pressure after the scan is logged and, when critical,
// cleaned up as well. Sampling never fails, so memory handling can
// only add work, never errors.
func (m *MemoryAwareService) DiscoverWithMemoryManagement(folder string) ([]string, error) {
	start := time.Now()

	before := memory.Sample(m.cfg.MemoryLimitBytes)
	if before.IsHighUsage(m.cfg.CriticalThreshold) {
		logging.Warn("Memory critical before scan of %s (%.1f%%), cleaning up", folder, before.UsagePercent)
		m.cleanup()
	}

	paths, hit, err := m.delegate(folder)

	after := memory.Sample(m.cfg.MemoryLimitBytes)
	switch {
	case after.IsHighUsage(m.cfg.CriticalThreshold):
		logging.Warn("Memory critical after scan of %s (%.1f%%), cleaning up", folder, after.UsagePercent)
		m.cleanup()
	case after.IsHighUsage(m.cfg.WarningThreshold):
		logging.Warn("Memory elevated after scan of %s (%.1f%%)", folder, after.UsagePercent)
	}

	m.mu.Lock()
	m.stats.TotalCalls++
	if hit {
		m.stats.CacheHits++
	}
	if after.UsagePercent > m.stats.PeakUsagePercent {
		m.stats.PeakUsagePercent = after.UsagePercent
	}
	m.mu.Unlock()

	duration := time.Since(start)
	metrics.DiscoveryScanDuration.WithLabelValues("memory_aware").Observe(duration.Seconds())
	if err != nil {
		metrics.DiscoveryScansTotal.WithLabelValues("memory_aware", "error").Inc()
		return nil, err
	}
	metrics.DiscoveryScansTotal.WithLabelValues("memory_aware", "success").Inc()
	return paths, nil
}

// delegate serves from the private cache when the folder's mtime
// still matches, otherwise runs a real scan and remembers the result.
func (m *MemoryAwareService) delegate(folder string) ([]string, bool, error) {
	info, err := m.svc.fs.Stat(folder)
	if err != nil {
		// Let the service classify the failure.
		paths, err := m.svc.Discover(folder)
		return paths, false, err
	}
	key := memKey{folder: folder, mtime: info.ModTime().UnixNano()}

	m.mu.Lock()
	if cached, ok := m.results[key]; ok {
		paths := append([]string(nil), cached...)
		m.mu.Unlock()
		logging.Debug("Memory-aware cache hit for %s", folder)
		return paths, true, nil
	}
	m.mu.Unlock()

	paths, err := m.svc.Discover(folder)
	if err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	if _, ok := m.results[key]; !ok {
		for len(m.order) >= memoryAwareCacheSize {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.results, oldest)
		}
		m.results[key] = append([]string(nil), paths...)
		m.order = append(m.order, key)
	}
	m.mu.Unlock()

	return paths, false, nil
}

// ForceCleanup drops the private cache and forces a garbage
// collection, reporting the estimated bytes returned.
func (m *MemoryAwareService) ForceCleanup() CleanupResult {
	start := time.Now()
	before := memory.Sample(m.cfg.MemoryLimitBytes)

	cleared := m.cleanup()

	after := memory.Sample(m.cfg.MemoryLimitBytes)
	var freed uint64
	if before.Resident > after.Resident {
		freed = before.Resident - after.Resident
	}

	return CleanupResult{
		EntriesCleared: cleared,
		FreedEstimate:  freed,
		Duration:       time.Since(start),
	}
}

func (m *MemoryAwareService) cleanup() int {
	m.mu.Lock()
	cleared := len(m.results)
	m.results = make(map[memKey][]string)
	m.order = nil
	m.stats.Cleanups++
	m.mu.Unlock()

	metrics.MemoryCleanupsTotal.Inc()
	memory.ForceGC()
	logging.Debug("Memory-aware cleanup dropped %d cached folder results", cleared)
	return cleared
}

// Status samples current memory and snapshots the wrapper's state.
func (m *MemoryAwareService) Status() MemoryStatus {
	snap := memory.Sample(m.cfg.MemoryLimitBytes)
	snap.CacheEstimate = uint64(m.svc.Cache().MemoryUsage())

	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoryStatus{
		Snapshot:          snap,
		WarningThreshold:  m.cfg.WarningThreshold,
		CriticalThreshold: m.cfg.CriticalThreshold,
		Stats:             m.stats,
		CachedFolders:     len(m.results),
	}
}
