package discovery

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorKind classifies a discovery failure for callers that need to
// branch on the broad category rather than the concrete error.
type ErrorKind int

const (
	// KindFile covers filesystem-level failures: missing folders,
	// non-directories, permission problems.
	KindFile ErrorKind = iota
	// KindValidation covers files that exist but cannot be accepted
	// as images.
	KindValidation
	// KindSystem covers resource-level failures outside the
	// filesystem, such as memory pressure.
	KindSystem
	// KindPerformance marks operations that completed but breached a
	// latency expectation.
	KindPerformance
)

func (k ErrorKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindValidation:
		return "validation"
	case KindSystem:
		return "system"
	case KindPerformance:
		return "performance"
	default:
		return "unknown"
	}
}

var (
	ErrFolderNotFound   = errors.New("folder does not exist")
	ErrNotADirectory    = errors.New("path is not a directory")
	ErrPermissionDenied = errors.New("permission denied")
)

// Error wraps an underlying failure with its classification and the
// path it concerns.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("discovery: %s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// classifyStatError maps a stat failure on the scan root to the
// matching sentinel.
func classifyStatError(path string, err error) *Error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return newError(KindFile, path, ErrFolderNotFound)
	case errors.Is(err, fs.ErrPermission):
		return newError(KindFile, path, ErrPermissionDenied)
	default:
		return newError(KindFile, path, err)
	}
}
