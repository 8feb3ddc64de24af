package discovery

import (
	"iter"
	"sync"
	"time"

	"photo-discovery/internal/logging"
	"photo-discovery/internal/metrics"
)

// FileBatch is one page of discovered paths. StartIndex is inclusive,
// EndIndex exclusive, both into the full result list. BatchNumber is
// 1-based.
type FileBatch struct {
	Files        []string
	BatchNumber  int
	TotalBatches int
	StartIndex   int
	EndIndex     int
	BatchSize    int
}

// IsLastBatch reports whether this is the final page.
func (b FileBatch) IsLastBatch() bool {
	return b.TotalBatches > 0 && b.BatchNumber == b.TotalBatches
}

// InitResult summarizes the scan behind a pagination session.
type InitResult struct {
	Folder       string
	TotalFiles   int
	TotalBatches int
	BatchSize    int
	ScanDuration time.Duration
}

// PaginationStats is a running tally for one paginated service.
type PaginationStats struct {
	BatchesServed  int64
	ProcessingTime time.Duration
}

// PaginatedService serves a completed discovery result in fixed-size
// batches. Initialize runs the scan; NextBatch walks it; Reset
// rewinds without rescanning.
type PaginatedService struct {
	svc       *Service
	batchSize int

	mu           sync.Mutex
	folder       string
	files        []string
	next         int
	totalBatches int
	initialized  bool
	stats        PaginationStats
}

// NewPaginated wraps svc with the given page size. Non-positive sizes
// take DefaultBatchSize.
func NewPaginated(svc *Service, batchSize int) *PaginatedService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PaginatedService{svc: svc, batchSize: batchSize}
}

// Initialize runs one synchronous discovery and prepares pagination
// over its result. Calling it again discards any prior session. An
// empty folder initializes to zero batches.
func (p *PaginatedService) Initialize(folder string) (InitResult, error) {
	start := time.Now()
	paths, err := p.svc.Discover(folder)
	if err != nil {
		metrics.DiscoveryScansTotal.WithLabelValues("paginated", "error").Inc()
		return InitResult{}, err
	}
	duration := time.Since(start)
	metrics.DiscoveryScansTotal.WithLabelValues("paginated", "success").Inc()
	metrics.DiscoveryScanDuration.WithLabelValues("paginated").Observe(duration.Seconds())

	total := (len(paths) + p.batchSize - 1) / p.batchSize

	p.mu.Lock()
	p.folder = folder
	p.files = paths
	p.next = 0
	p.totalBatches = total
	p.initialized = true
	p.mu.Unlock()

	logging.Debug("Pagination initialized for %s: %d files in %d batches of %d",
		folder, len(paths), total, p.batchSize)

	return InitResult{
		Folder:       folder,
		TotalFiles:   len(paths),
		TotalBatches: total,
		BatchSize:    p.batchSize,
		ScanDuration: duration,
	}, nil
}

// NextBatch returns the next page. The second return is false when
// the session is uninitialized or exhausted.
func (p *PaginatedService) NextBatch() (FileBatch, bool) {
	start := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || p.next >= len(p.files) {
		return FileBatch{}, false
	}

	end := p.next + p.batchSize
	if end > len(p.files) {
		end = len(p.files)
	}

	batch := FileBatch{
		Files:        append([]string(nil), p.files[p.next:end]...),
		BatchNumber:  p.next/p.batchSize + 1,
		TotalBatches: p.totalBatches,
		StartIndex:   p.next,
		EndIndex:     end,
		BatchSize:    p.batchSize,
	}
	p.next = end

	p.stats.BatchesServed++
	p.stats.ProcessingTime += time.Since(start)
	metrics.PaginationBatchesServed.Inc()
	metrics.PaginationBatchSize.Observe(float64(len(batch.Files)))
	return batch, true
}

// HasMore reports whether NextBatch would return another page.
func (p *PaginatedService) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized && p.next < len(p.files)
}

// Reset rewinds to the first batch without rescanning.
func (p *PaginatedService) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = 0
}

// TotalBatches returns the page count of the current session.
func (p *PaginatedService) TotalBatches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalBatches
}

// Batches returns a restartable iterator over all pages. Each
// ranging resets the session to the first batch, so the same
// PaginatedService can be ranged repeatedly.
func (p *PaginatedService) Batches() iter.Seq[FileBatch] {
	return func(yield func(FileBatch) bool) {
		p.Reset()
		for {
			batch, ok := p.NextBatch()
			if !ok {
				return
			}
			if !yield(batch) {
				return
			}
		}
	}
}

// Stats returns a copy of the running counters.
func (p *PaginatedService) Stats() PaginationStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
