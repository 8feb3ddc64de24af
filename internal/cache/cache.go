package cache

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"photo-discovery/internal/logging"
	"photo-discovery/internal/media"
	"photo-discovery/internal/metrics"
)

// Tier identifies one of the three cache tiers.
type Tier string

const (
	TierValidation Tier = "validation"
	TierFile       Tier = "file"
	TierFolder     Tier = "folder"
)

// Fixed per-entry size estimates, used when nothing better is known
// about an entry's real footprint.
const (
	validationEntrySize = 100
	fileEntrySize       = 1024
	folderEntrySize     = 10240
)

// Entry is one cached value with its bookkeeping. Access bumps
// LastAccessed and AccessCount; the cache owns all mutation.
type Entry[V any] struct {
	Key          string
	Value        V
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int64
	SizeEstimate int64
	TTL          time.Duration
}

// Expired reports whether the entry's TTL has elapsed. A zero TTL
// never expires.
func (e *Entry[V]) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) > e.TTL
}

// Config bounds the cache. Zero fields take defaults.
type Config struct {
	MaxFileEntries int
	// MaxFolderEntries bounds the folder tier. Folder entries are an
	// order of magnitude heavier than file entries, so the default is
	// much smaller.
	MaxFolderEntries int
	// MaxValidationEntries defaults to twice MaxFileEntries; verdicts
	// are cheap so the tier can run deeper.
	MaxValidationEntries int
	MaxMemoryBytes       int64
	DefaultTTL           time.Duration
}

// DefaultConfig returns the standard bounds: 2000 file entries, 100
// folder entries, 4000 validation entries, 50MB aggregate memory,
// one hour TTL.
func DefaultConfig() Config {
	return Config{
		MaxFileEntries:   2000,
		MaxFolderEntries: 100,
		MaxMemoryBytes:   50 * 1024 * 1024,
		DefaultTTL:       time.Hour,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxFileEntries <= 0 {
		c.MaxFileEntries = def.MaxFileEntries
	}
	if c.MaxFolderEntries <= 0 {
		c.MaxFolderEntries = def.MaxFolderEntries
	}
	if c.MaxValidationEntries <= 0 {
		c.MaxValidationEntries = c.MaxFileEntries * 2
	}
	if c.MaxMemoryBytes <= 0 {
		c.MaxMemoryBytes = def.MaxMemoryBytes
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = def.DefaultTTL
	}
	return c
}

// shard is one tier's storage. All access happens under the owning
// cache's mutex.
type shard[V any] struct {
	name       Tier
	entries    map[string]*Entry[V]
	maxEntries int
	entrySize  int64

	hits      uint64
	misses    uint64
	evictions uint64
}

func newShard[V any](name Tier, maxEntries int, entrySize int64) *shard[V] {
	return &shard[V]{
		name:       name,
		entries:    make(map[string]*Entry[V]),
		maxEntries: maxEntries,
		entrySize:  entrySize,
	}
}

func (s *shard[V]) get(key string, now time.Time) (V, bool) {
	var zero V
	e, ok := s.entries[key]
	if !ok {
		s.misses++
		metrics.CacheMissesTotal.WithLabelValues(string(s.name)).Inc()
		return zero, false
	}
	if e.Expired(now) {
		delete(s.entries, key)
		s.misses++
		metrics.CacheMissesTotal.WithLabelValues(string(s.name)).Inc()
		metrics.CacheEvictionsTotal.WithLabelValues(string(s.name), "ttl").Inc()
		return zero, false
	}
	e.LastAccessed = now
	e.AccessCount++
	s.hits++
	metrics.CacheHitsTotal.WithLabelValues(string(s.name)).Inc()
	return e.Value, true
}

func (s *shard[V]) set(key string, value V, ttl time.Duration, now time.Time) {
	if e, ok := s.entries[key]; ok {
		e.Value = value
		e.CreatedAt = now
		e.LastAccessed = now
		e.TTL = ttl
		return
	}
	for len(s.entries) >= s.maxEntries {
		if !s.evictOldest("capacity") {
			break
		}
	}
	s.entries[key] = &Entry[V]{
		Key:          key,
		Value:        value,
		CreatedAt:    now,
		LastAccessed: now,
		SizeEstimate: s.entrySize,
		TTL:          ttl,
	}
}

// oldest returns the key of the least-recently-used entry, breaking
// ties by insertion time.
func (s *shard[V]) oldest() (string, time.Time, bool) {
	var (
		oldestKey  string
		oldestTime time.Time
		found      bool
	)
	for key, e := range s.entries {
		if !found || e.LastAccessed.Before(oldestTime) ||
			(e.LastAccessed.Equal(oldestTime) && e.CreatedAt.Before(s.entries[oldestKey].CreatedAt)) {
			oldestKey = key
			oldestTime = e.LastAccessed
			found = true
		}
	}
	return oldestKey, oldestTime, found
}

func (s *shard[V]) evictOldest(reason string) bool {
	key, _, ok := s.oldest()
	if !ok {
		return false
	}
	delete(s.entries, key)
	s.evictions++
	metrics.CacheEvictionsTotal.WithLabelValues(string(s.name), reason).Inc()
	return true
}

func (s *shard[V]) sweep(now time.Time) int {
	removed := 0
	for key, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, key)
			removed++
			metrics.CacheEvictionsTotal.WithLabelValues(string(s.name), "ttl").Inc()
		}
	}
	return removed
}

func (s *shard[V]) removeWhere(match func(key string) bool) int {
	removed := 0
	for key := range s.entries {
		if match(key) {
			delete(s.entries, key)
			removed++
			metrics.CacheEvictionsTotal.WithLabelValues(string(s.name), "stale").Inc()
		}
	}
	return removed
}

func (s *shard[V]) clear() int {
	n := len(s.entries)
	s.entries = make(map[string]*Entry[V])
	if n > 0 {
		metrics.CacheEvictionsTotal.WithLabelValues(string(s.name), "clear").Add(float64(n))
	}
	return n
}

func (s *shard[V]) memoryBytes() int64 {
	return int64(len(s.entries)) * s.entrySize
}

// tierView is the type-erased surface each shard offers for
// cross-tier operations.
type tierView interface {
	tierName() Tier
	count() int
	memory() int64
	oldestEntry() (time.Time, bool)
	evict(reason string) bool
	sweepExpired(now time.Time) int
	clearEntries() int
	counters() (hits, misses, evictions uint64)
}

func (s *shard[V]) tierName() Tier { return s.name }
func (s *shard[V]) count() int     { return len(s.entries) }
func (s *shard[V]) memory() int64  { return s.memoryBytes() }
func (s *shard[V]) oldestEntry() (time.Time, bool) {
	_, t, ok := s.oldest()
	return t, ok
}
func (s *shard[V]) evict(reason string) bool      { return s.evictOldest(reason) }
func (s *shard[V]) sweepExpired(now time.Time) int { return s.sweep(now) }
func (s *shard[V]) clearEntries() int             { return s.clear() }
func (s *shard[V]) counters() (uint64, uint64, uint64) {
	return s.hits, s.misses, s.evictions
}

// MultiTierCache holds validation verdicts, file results, and folder
// scans under one aggregate memory ceiling. Safe for concurrent use.
type MultiTierCache struct {
	mu sync.Mutex

	cfg        Config
	validation *shard[bool]
	files      *shard[media.FileResult]
	folders    *shard[media.FolderScanResult]
	tiers      []tierView
}

// New builds a cache with the given bounds. Zero-valued Config fields
// take the defaults from DefaultConfig.
func New(cfg Config) *MultiTierCache {
	cfg = cfg.withDefaults()
	c := &MultiTierCache{
		cfg:        cfg,
		validation: newShard[bool](TierValidation, cfg.MaxValidationEntries, validationEntrySize),
		files:      newShard[media.FileResult](TierFile, cfg.MaxFileEntries, fileEntrySize),
		folders:    newShard[media.FolderScanResult](TierFolder, cfg.MaxFolderEntries, folderEntrySize),
	}
	c.tiers = []tierView{c.validation, c.files, c.folders}
	logging.Op(logging.LevelDebug, "cache", "init", "%d file / %d folder / %d validation entries, %dMB memory ceiling",
		cfg.MaxFileEntries, cfg.MaxFolderEntries, cfg.MaxValidationEntries, cfg.MaxMemoryBytes/1024/1024)
	return c
}

// fileKey binds a path to its mtime so a modified file misses
// naturally.
func fileKey(path string, mtime time.Time) string {
	return path + "|" + strconv.FormatInt(mtime.UnixNano(), 10)
}

func folderKey(folder string, mtime time.Time) string {
	return strconv.FormatUint(xxhash.Sum64String(folder), 16) + "|" + strconv.FormatInt(mtime.UnixNano(), 10)
}

// GetValidation looks up a cached validation verdict.
func (c *MultiTierCache) GetValidation(path string, mtime time.Time) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validation.get(fileKey(path, mtime), time.Now())
}

// SetValidation records a validation verdict.
func (c *MultiTierCache) SetValidation(path string, mtime time.Time, valid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validation.set(fileKey(path, mtime), valid, c.cfg.DefaultTTL, time.Now())
	c.enforceMemoryLocked()
	c.publishGaugesLocked()
}

// GetFileResult looks up a cached per-file result.
func (c *MultiTierCache) GetFileResult(path string, mtime time.Time) (media.FileResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files.get(fileKey(path, mtime), time.Now())
}

// SetFileResult caches a per-file result, keyed by the result's own
// path and mtime.
func (c *MultiTierCache) SetFileResult(result media.FileResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files.set(fileKey(result.Path, result.ModTime), result, c.cfg.DefaultTTL, time.Now())
	c.enforceMemoryLocked()
	c.publishGaugesLocked()
}

// GetFolderScan looks up a cached folder scan for the folder at the
// given mtime.
func (c *MultiTierCache) GetFolderScan(folder string, mtime time.Time) (media.FolderScanResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.folders.get(folderKey(folder, mtime), time.Now())
}

// SetFolderScan caches a whole folder scan.
func (c *MultiTierCache) SetFolderScan(folder string, mtime time.Time, result media.FolderScanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.folders.set(folderKey(folder, mtime), result, c.cfg.DefaultTTL, time.Now())
	c.enforceMemoryLocked()
	c.publishGaugesLocked()
}

// InvalidatePath drops every file-level entry for the path, across
// all mtimes. Returns the number of entries removed.
func (c *MultiTierCache) InvalidatePath(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := path + "|"
	match := func(key string) bool { return strings.HasPrefix(key, prefix) }

	removed := c.validation.removeWhere(match)
	removed += c.files.removeWhere(match)
	c.publishGaugesLocked()
	return removed
}

// InvalidateFolder drops the folder's scan entries and every
// file-level entry directly under it. Returns the number of entries
// removed.
func (c *MultiTierCache) InvalidateFolder(folder string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	folderPrefix := strconv.FormatUint(xxhash.Sum64String(folder), 16) + "|"
	pathPrefix := strings.TrimRight(folder, string(os.PathSeparator)) + string(os.PathSeparator)

	underFolder := func(key string) bool {
		if !strings.HasPrefix(key, pathPrefix) {
			return false
		}
		// Direct children only; the scan itself is single-level.
		rest := key[len(pathPrefix):]
		sep := strings.IndexByte(rest, os.PathSeparator)
		bar := strings.IndexByte(rest, '|')
		return sep == -1 || (bar != -1 && sep > bar)
	}

	removed := c.folders.removeWhere(func(key string) bool {
		return strings.HasPrefix(key, folderPrefix)
	})
	removed += c.validation.removeWhere(underFolder)
	removed += c.files.removeWhere(underFolder)

	if removed > 0 {
		logging.Op(logging.LevelDebug, "cache", "invalidate", "%d entries dropped for folder %s", removed, folder)
	}
	c.publishGaugesLocked()
	return removed
}

// CleanupExpired removes every entry whose TTL has elapsed and
// returns the count removed.
func (c *MultiTierCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for _, t := range c.tiers {
		removed += t.sweepExpired(now)
	}
	if removed > 0 {
		logging.Op(logging.LevelDebug, "cache", "ttl_sweep", "removed %d expired entries", removed)
	}
	c.publishGaugesLocked()
	return removed
}

// Clear empties a single tier and returns the number of entries
// dropped.
func (c *MultiTierCache) Clear(tier Tier) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.tiers {
		if t.tierName() == tier {
			n := t.clearEntries()
			c.publishGaugesLocked()
			return n
		}
	}
	return 0
}

// ClearAll empties every tier.
func (c *MultiTierCache) ClearAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.tiers {
		n += t.clearEntries()
	}
	c.publishGaugesLocked()
	return n
}

// EvictLRU removes up to n least-recently-used entries across all
// tiers and returns the count actually evicted.
func (c *MultiTierCache) EvictLRU(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for evicted < n {
		if !c.evictGlobalOldestLocked("memory") {
			break
		}
		evicted++
	}
	c.publishGaugesLocked()
	return evicted
}

// EvictFraction removes roughly the given fraction (0..1) of all
// entries, least-recently-used first.
func (c *MultiTierCache) EvictFraction(f float64) int {
	if f <= 0 {
		return 0
	}
	if f > 1 {
		f = 1
	}
	c.mu.Lock()
	total := 0
	for _, t := range c.tiers {
		total += t.count()
	}
	c.mu.Unlock()

	return c.EvictLRU(int(float64(total) * f))
}

// MemoryUsage returns the estimated aggregate footprint in bytes.
func (c *MultiTierCache) MemoryUsage() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memoryLocked()
}

func (c *MultiTierCache) memoryLocked() int64 {
	var total int64
	for _, t := range c.tiers {
		total += t.memory()
	}
	return total
}

// evictGlobalOldestLocked evicts the single least-recently-used entry
// across all tiers.
func (c *MultiTierCache) evictGlobalOldestLocked(reason string) bool {
	var (
		target tierView
		oldest time.Time
	)
	for _, t := range c.tiers {
		when, ok := t.oldestEntry()
		if !ok {
			continue
		}
		if target == nil || when.Before(oldest) {
			target = t
			oldest = when
		}
	}
	if target == nil {
		return false
	}
	return target.evict(reason)
}

// enforceMemoryLocked evicts until the aggregate estimate fits the
// ceiling, re-estimating after each removal.
func (c *MultiTierCache) enforceMemoryLocked() {
	for c.memoryLocked() > c.cfg.MaxMemoryBytes {
		if !c.evictGlobalOldestLocked("memory") {
			return
		}
	}
}

func (c *MultiTierCache) publishGaugesLocked() {
	for _, t := range c.tiers {
		metrics.CacheEntries.WithLabelValues(string(t.tierName())).Set(float64(t.count()))
	}
	metrics.CacheMemoryBytes.Set(float64(c.memoryLocked()))
}

// TierStats describes one tier's counters at a point in time.
type TierStats struct {
	Entries     int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	HitRate     float64
	MemoryBytes int64
}

// Stats is a point-in-time snapshot of the whole cache.
type Stats struct {
	Validation     TierStats
	File           TierStats
	Folder         TierStats
	TotalEntries   int
	MemoryBytes    int64
	MemoryLimit    int64
	OverallHitRate float64
}

// Stats snapshots all tiers.
func (c *MultiTierCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Stats
	var totalHits, totalLookups uint64
	for _, t := range c.tiers {
		hits, misses, evictions := t.counters()
		ts := TierStats{
			Entries:     t.count(),
			Hits:        hits,
			Misses:      misses,
			Evictions:   evictions,
			MemoryBytes: t.memory(),
		}
		if hits+misses > 0 {
			ts.HitRate = float64(hits) / float64(hits+misses)
		}
		switch t.tierName() {
		case TierValidation:
			s.Validation = ts
		case TierFile:
			s.File = ts
		case TierFolder:
			s.Folder = ts
		}
		s.TotalEntries += ts.Entries
		totalHits += hits
		totalLookups += hits + misses
	}
	s.MemoryBytes = c.memoryLocked()
	s.MemoryLimit = c.cfg.MaxMemoryBytes
	if totalLookups > 0 {
		s.OverallHitRate = float64(totalHits) / float64(totalLookups)
	}
	return s
}
