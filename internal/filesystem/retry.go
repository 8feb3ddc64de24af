package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"photo-discovery/internal/logging"
	"photo-discovery/internal/metrics"
)

// RetryConfig configures retry behavior for filesystem operations.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isNFSStaleError checks if an error is an NFS stale file handle
// error (ESTALE, errno 116 on Linux).
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// RetryFs decorates an afero filesystem with ESTALE retries on Stat
// and Open. Photo libraries often live on NFS or SMB mounts where a
// re-exported directory invalidates open handles mid-scan; retrying
// after a short backoff rides out the window.
type RetryFs struct {
	afero.Fs
	config RetryConfig
}

// NewRetryFs wraps base with retry behavior.
func NewRetryFs(base afero.Fs, config RetryConfig) *RetryFs {
	if config.MaxRetries <= 0 {
		config = DefaultRetryConfig()
	}
	return &RetryFs{Fs: base, config: config}
}

func (f *RetryFs) Name() string { return "RetryFs(" + f.Fs.Name() + ")" }

// Stat retries os.Stat-level ESTALE failures with exponential
// backoff.
func (f *RetryFs) Stat(name string) (os.FileInfo, error) {
	var info os.FileInfo
	err := f.withRetry("stat", name, func() error {
		var statErr error
		info, statErr = f.Fs.Stat(name)
		return statErr
	})
	return info, err
}

// Open retries ESTALE failures with exponential backoff.
func (f *RetryFs) Open(name string) (afero.File, error) {
	var file afero.File
	err := f.withRetry("open", name, func() error {
		var openErr error
		file, openErr = f.Fs.Open(name)
		return openErr
	})
	return file, err
}

func (f *RetryFs) withRetry(op, path string, fn func() error) error {
	var lastErr error
	backoff := f.config.InitialBackoff

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, path)
				metrics.FilesystemRetrySuccess.WithLabelValues(op).Inc()
			}
			return nil
		}

		lastErr = err

		// Only ESTALE is worth retrying
		if !isNFSStaleError(err) {
			return err
		}
		metrics.FilesystemStaleErrors.WithLabelValues(op).Inc()

		if attempt < f.config.MaxRetries {
			metrics.FilesystemRetryAttempts.WithLabelValues(op).Inc()
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, f.config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > f.config.MaxBackoff {
				backoff = f.config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, f.config.MaxRetries, path, lastErr)
	metrics.FilesystemRetryFailures.WithLabelValues(op).Inc()
	return lastErr
}
