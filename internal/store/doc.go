// Package store persists validation verdicts across restarts.
//
// The discovery cache lives in memory; a process restart loses every
// verdict and the next scan re-validates everything. The store keeps
// the validation tier in SQLite so a warm start can preload verdicts
// for files whose mtime has not changed. Persistence is optional and
// purely additive: the discovery service works identically without it.
package store
