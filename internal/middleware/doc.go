// Package middleware provides HTTP middleware for the introspection
// server: request logging with log-injection sanitization, and
// Prometheus request metrics.
package middleware
