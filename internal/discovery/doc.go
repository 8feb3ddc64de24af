// Package discovery finds valid image files in folders.
//
// Service is the core: single-level enumeration against a
// fixed extension allow-list, per-file validation through an injected
// media.Validator, and a bounded multi-tier cache so repeated scans of
// an unchanged folder cost no validator calls. Three wrappers layer on
// top of it: an async variant that streams results across a channel, a
// memory-aware wrapper that samples process memory around each scan,
// and a paginated wrapper that serves a completed scan in fixed-size
// batches.
package discovery
