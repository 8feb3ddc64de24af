package discovery

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	"photo-discovery/internal/cache"
	"photo-discovery/internal/logging"
	"photo-discovery/internal/media"
	"photo-discovery/internal/memory"
	"photo-discovery/internal/metrics"
)

// Result types re-exported for callers that only import this package.
type (
	FileResult       = media.FileResult
	FolderScanResult = media.FolderScanResult
)

// Files smaller than this cannot be a complete image of any supported
// format; they are rejected without invoking the validator.
const minImageFileSize = 100

// Performance warning thresholds for a whole folder scan.
const (
	slowScanThreshold     = 1 * time.Second
	verySlowScanThreshold = 3 * time.Second
)

// Option configures a Service.
type Option func(*Service)

// WithFs overrides the filesystem the service enumerates. Defaults to
// the host OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Service) { s.fs = fs }
}

// WithValidator overrides the image validator.
func WithValidator(v media.Validator) Option {
	return func(s *Service) { s.validator = v }
}

// WithCache supplies a shared cache. Defaults to a private cache with
// standard bounds.
func WithCache(c *cache.MultiTierCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithFolderCache enables serving whole repeated scans from the
// folder tier. Off by default: folder-level results are only correct
// when the folder's mtime reliably tracks content changes.
func WithFolderCache(enabled bool) Option {
	return func(s *Service) { s.useFolderCache = enabled }
}

// WithMonitor attaches a memory monitor. Streaming scans pause
// between batches while the monitor reports critical pressure.
func WithMonitor(m *memory.Monitor) Option {
	return func(s *Service) { s.monitor = m }
}

// Stats is a running tally across all scans performed by one Service.
type Stats struct {
	TotalScans         int64
	TotalFilesScanned  int64
	TotalFilesFound    int64
	ValidationFailures int64
	CacheHits          int64
	CacheMisses        int64
	TotalScanTime      time.Duration
}

// Service discovers valid image files one folder level at a time.
// Safe for concurrent use.
type Service struct {
	fs             afero.Fs
	validator      media.Validator
	cache          *cache.MultiTierCache
	monitor        *memory.Monitor
	useFolderCache bool

	mu    sync.Mutex
	stats Stats
}

// NewService builds a discovery service. With no options it scans the
// OS filesystem with the pure-Go validator and a private cache.
func NewService(opts ...Option) *Service {
	s := &Service{
		fs:        afero.NewOsFs(),
		validator: media.ImagingValidator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.New(cache.Config{})
	}
	return s
}

// Cache exposes the service's cache for wrappers and introspection.
func (s *Service) Cache() *cache.MultiTierCache { return s.cache }

// SupportedExtensions returns the extension allow-list, sorted, as a
// fresh slice.
func (s *Service) SupportedExtensions() []string {
	exts := media.SupportedExtensions()
	sort.Strings(exts)
	return exts
}

// Discover scans a single folder level and returns the paths of the
// valid images in enumeration order. Failures to read individual
// files mark those files invalid and do not abort the scan; a failure
// to read the folder itself returns an empty result and a classified
// error.
func (s *Service) Discover(folder string) ([]string, error) {
	start := time.Now()

	scan, err := s.scanFolder(folder)
	duration := time.Since(start)

	s.mu.Lock()
	s.stats.TotalScans++
	s.stats.TotalScanTime += duration
	if err == nil {
		s.stats.TotalFilesScanned += int64(scan.TotalFilesScanned)
		s.stats.TotalFilesFound += int64(len(scan.ValidPaths()))
	}
	s.mu.Unlock()

	metrics.DiscoveryScanDuration.WithLabelValues("sync").Observe(duration.Seconds())
	if err != nil {
		metrics.DiscoveryScansTotal.WithLabelValues("sync", "error").Inc()
		logging.Error("Scan failed for %s: %v", folder, err)
		return nil, err
	}
	metrics.DiscoveryScansTotal.WithLabelValues("sync", "success").Inc()

	s.warnIfSlow(folder, duration)

	valid := scan.ValidPaths()
	logging.Debug("Scan of %s: %d entries examined, %d valid images in %v",
		folder, scan.TotalFilesScanned, len(valid), duration)
	return valid, nil
}

// DiscoverScan is Discover with the full per-file results.
func (s *Service) DiscoverScan(folder string) (FolderScanResult, error) {
	return s.scanFolder(folder)
}

func (s *Service) scanFolder(folder string) (FolderScanResult, error) {
	info, err := s.fs.Stat(folder)
	if err != nil {
		return FolderScanResult{}, classifyStatError(folder, err)
	}
	if !info.IsDir() {
		return FolderScanResult{}, newError(KindFile, folder, ErrNotADirectory)
	}

	if s.useFolderCache {
		if hit, ok := s.cache.GetFolderScan(folder, info.ModTime()); ok {
			s.mu.Lock()
			s.stats.CacheHits++
			s.mu.Unlock()
			logging.Debug("Folder cache hit for %s", folder)
			return hit, nil
		}
	}

	entries, err := afero.ReadDir(s.fs, folder)
	if err != nil {
		return FolderScanResult{}, classifyStatError(folder, err)
	}

	start := time.Now()
	scan := FolderScanResult{
		FolderPath:        folder,
		TotalFilesScanned: len(entries),
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !media.IsImagePath(entry.Name()) {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		scan.FileResults = append(scan.FileResults, s.checkFile(path, entry.Size(), entry.ModTime()))
	}
	scan.ScanDuration = time.Since(start)

	metrics.DiscoveryFilesScanned.Add(float64(scan.TotalFilesScanned))
	for _, fr := range scan.FileResults {
		if fr.IsValid {
			metrics.DiscoveryFilesFound.Inc()
		}
	}

	s.cache.SetFolderScan(folder, info.ModTime(), scan)
	return scan, nil
}

// checkFile resolves one candidate: cached result, sanity checks,
// then the validator. Both file-level tiers are written whether the
// file passes or fails.
func (s *Service) checkFile(path string, size int64, mtime time.Time) FileResult {
	if cached, ok := s.cache.GetFileResult(path, mtime); ok {
		s.mu.Lock()
		s.stats.CacheHits++
		s.mu.Unlock()
		return cached
	}
	if valid, ok := s.cache.GetValidation(path, mtime); ok {
		s.mu.Lock()
		s.stats.CacheHits++
		s.mu.Unlock()
		result := FileResult{
			Path:         path,
			IsValid:      valid,
			Size:         size,
			ModTime:      mtime,
			DiscoveredAt: time.Now(),
		}
		s.cache.SetFileResult(result)
		return result
	}

	s.mu.Lock()
	s.stats.CacheMisses++
	s.mu.Unlock()

	result := FileResult{
		Path:         path,
		Size:         size,
		ModTime:      mtime,
		DiscoveredAt: time.Now(),
	}

	switch {
	case size == 0:
		metrics.ValidationsTotal.WithLabelValues("invalid").Inc()
		logging.Debug("Rejecting empty file %s", path)
	case size < minImageFileSize:
		metrics.ValidationsTotal.WithLabelValues("corrupt").Inc()
		logging.Debug("Rejecting truncated file %s (%d bytes)", path, size)
	default:
		validateStart := time.Now()
		result.IsValid = s.validator.Validate(path)
		result.ValidationDuration = time.Since(validateStart)
		metrics.ValidationDuration.Observe(result.ValidationDuration.Seconds())
		if result.IsValid {
			metrics.ValidationsTotal.WithLabelValues("valid").Inc()
		} else {
			metrics.ValidationsTotal.WithLabelValues("invalid").Inc()
		}
	}

	if !result.IsValid {
		s.mu.Lock()
		s.stats.ValidationFailures++
		s.mu.Unlock()
	}

	s.cache.SetValidation(path, mtime, result.IsValid)
	s.cache.SetFileResult(result)
	return result
}

func (s *Service) warnIfSlow(folder string, duration time.Duration) {
	switch {
	case duration > verySlowScanThreshold:
		logging.Op(logging.LevelWarn, "discovery", "folder_scan", "very slow scan of %s: %v", folder, duration)
	case duration > slowScanThreshold:
		logging.Op(logging.LevelWarn, "discovery", "folder_scan", "slow scan of %s: %v", folder, duration)
	}
}

// Stats returns a copy of the running counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
