// Package cache implements the bounded multi-tier cache behind the
// discovery service.
//
// Three tiers hold validation verdicts, per-file results, and whole
// folder scans. Each tier has its own entry ceiling and the cache as a
// whole has an aggregate memory ceiling; both bounds evict
// least-recently-used entries independently. File-level keys
// incorporate the file's mtime, so a modified file misses naturally
// instead of serving a stale verdict.
//
// A miss is an absent value, never an error.
package cache
