package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"photo-discovery/internal/logging"
	"photo-discovery/internal/media"
	"photo-discovery/internal/metrics"
	"photo-discovery/internal/workers"
)

// DefaultBatchSize is how many candidates each async batch validates.
const DefaultBatchSize = 50

// Progress reports stream advancement: entries processed so far, the
// total candidate count, and a human-readable message. Called once
// per batch, never per file.
type Progress func(processed, total int, message string)

type candidate struct {
	path  string
	size  int64
	mtime time.Time
}

// DiscoverAsync streams valid image paths across the returned
// channel. Enumeration happens up front; validation is lazy, one
// batch at a time, with the validator fanned out to a worker pool.
// The channel closes when the scan completes or ctx is cancelled; the
// stream is finite and not restartable. Callers that stop receiving
// must cancel ctx or the producing goroutine stays blocked.
func (s *Service) DiscoverAsync(ctx context.Context, folder string, batchSize int, onProgress Progress) (<-chan string, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	info, err := s.fs.Stat(folder)
	if err != nil {
		metrics.DiscoveryScansTotal.WithLabelValues("async", "error").Inc()
		return nil, classifyStatError(folder, err)
	}
	if !info.IsDir() {
		metrics.DiscoveryScansTotal.WithLabelValues("async", "error").Inc()
		return nil, newError(KindFile, folder, ErrNotADirectory)
	}

	entries, err := afero.ReadDir(s.fs, folder)
	if err != nil {
		metrics.DiscoveryScansTotal.WithLabelValues("async", "error").Inc()
		return nil, classifyStatError(folder, err)
	}

	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !media.IsImagePath(entry.Name()) {
			continue
		}
		candidates = append(candidates, candidate{
			path:  filepath.Join(folder, entry.Name()),
			size:  entry.Size(),
			mtime: entry.ModTime(),
		})
	}
	metrics.DiscoveryFilesScanned.Add(float64(len(entries)))

	out := make(chan string)
	go s.streamBatches(ctx, folder, candidates, batchSize, onProgress, out)
	return out, nil
}

func (s *Service) streamBatches(ctx context.Context, folder string, candidates []candidate, batchSize int, onProgress Progress, out chan<- string) {
	defer close(out)

	start := time.Now()
	total := len(candidates)
	processed := 0
	found := 0

	if onProgress != nil {
		onProgress(0, total, "starting scan")
	}

	for i := 0; i < total; i += batchSize {
		if ctx.Err() != nil {
			logging.Debug("Async scan of %s cancelled after %d/%d entries", folder, processed, total)
			metrics.DiscoveryScansTotal.WithLabelValues("async", "error").Inc()
			return
		}
		if s.monitor != nil && !s.monitor.WaitIfPaused() {
			logging.Debug("Async scan of %s stopped by memory monitor after %d/%d entries", folder, processed, total)
			metrics.DiscoveryScansTotal.WithLabelValues("async", "error").Inc()
			return
		}

		end := i + batchSize
		if end > total {
			end = total
		}
		batch := candidates[i:end]

		for _, result := range s.validateBatch(batch) {
			processed++
			if !result.IsValid {
				continue
			}
			found++
			metrics.DiscoveryFilesFound.Inc()
			select {
			case out <- result.Path:
			case <-ctx.Done():
				metrics.DiscoveryScansTotal.WithLabelValues("async", "error").Inc()
				return
			}
		}

		if onProgress != nil {
			onProgress(processed, total, fmt.Sprintf("found %d images", found))
		}
	}

	duration := time.Since(start)

	s.mu.Lock()
	s.stats.TotalScans++
	s.stats.TotalFilesScanned += int64(total)
	s.stats.TotalFilesFound += int64(found)
	s.stats.TotalScanTime += duration
	s.mu.Unlock()

	metrics.DiscoveryScansTotal.WithLabelValues("async", "success").Inc()
	metrics.DiscoveryScanDuration.WithLabelValues("async").Observe(duration.Seconds())
	s.warnIfSlow(folder, duration)

	if onProgress != nil {
		onProgress(total, total, fmt.Sprintf("complete: %d images", found))
	}
	logging.Debug("Async scan of %s complete: %d valid of %d candidates in %v", folder, found, total, duration)
}

// validateBatch resolves one batch with the validator fanned out to
// an IO-sized worker pool. Results come back in batch order.
func (s *Service) validateBatch(batch []candidate) []FileResult {
	n := workers.ForIO(0)
	if n > len(batch) {
		n = len(batch)
	}

	results := make([]FileResult, len(batch))
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = s.checkFile(batch[i].path, batch[i].size, batch[i].mtime)
			}
		}()
	}
	for i := range batch {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return results
}
