/*
Package workers provides utilities for determining validation worker
pool sizes in containerized environments.

Go 1.19+ sets GOMAXPROCS from container CPU limits, while
runtime.NumCPU() still reports the host machine's CPU count. The helpers
here size pools from GOMAXPROCS so discovery respects cgroup limits:

	// I/O-bound validation (file reads, decode probes)
	n := workers.ForIO(16)

	// CPU-bound work
	n := workers.ForCPU(8)

All functions respect the DISCOVERY_WORKERS environment variable,
allowing operators to override the automatic calculation.
*/
package workers
