// Package logging provides a simple leveled logging interface for the
// photo discovery service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable.
// Component-scoped messages use Op, which prefixes the component and
// operation so cache, discovery, and watcher logs can be filtered.
package logging
