/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

# Purpose

RetryFs wraps an afero.Fs and retries Stat and Open calls that fail with ESTALE (stale
file handle), which NFS mounts produce during network issues or server-side changes.
All other errors fail immediately without retry attempts.

# Usage

Basic usage with default retry configuration:

	fs := filesystem.NewRetryFs(afero.NewOsFs(), filesystem.DefaultRetryConfig())
	svc := discovery.NewService(discovery.WithFs(fs))

Custom retry configuration:

	config := filesystem.RetryConfig{
	    MaxRetries:     5,
	    InitialBackoff: 100 * time.Millisecond,
	    MaxBackoff:     1 * time.Second,
	}
	fs := filesystem.NewRetryFs(afero.NewOsFs(), config)

# Retry Behavior

The retry logic implements exponential backoff with the following defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Failed operations with retries add backoff delay (50ms → 100ms → 200ms by default).
*/
package filesystem
