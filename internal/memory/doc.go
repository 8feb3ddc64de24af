// Package memory provides process-memory sampling and pressure signals
// for the discovery caches.
//
// # Overview
//
// Unlike GOMAXPROCS, which Go detects from cgroup CPU limits, GOMEMLIMIT
// must be configured explicitly. This package provides utilities to:
//   - Configure GOMEMLIMIT from Kubernetes Downward API environment variables
//   - Take point-in-time memory snapshots for the memory-aware discovery wrapper
//   - Monitor memory usage and provide backpressure signals
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main, before significant allocations:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ... rest of application
//	}
//
// Environment variables:
//
//   - GOMEMLIMIT: Standard Go variable. If set, takes precedence.
//   - MEMORY_LIMIT: Container memory limit in bytes (Downward API).
//   - MEMORY_RATIO: Fraction of MEMORY_LIMIT for the Go heap (default 0.85).
//
// # Sampling
//
// [Sample] returns a Snapshot of current heap usage relative to the
// configured limit. Sampling never fails; when no limit is known the
// snapshot reports a zero usage percentage so callers degrade to
// uninstrumented behavior rather than erroring.
//
// # Monitoring
//
// [Monitor] runs a periodic check with high/critical watermarks and
// pause/resume signaling for long-running scans:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
package memory
