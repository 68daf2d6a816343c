package storage

import "errors"

var (
	// ErrWorkspaceUnavailable means no usable storage backend is reachable.
	ErrWorkspaceUnavailable = errors.New("storage: workspace unavailable")
	// ErrNotFound means the referenced project, file or document is absent.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidPath means a project-relative path failed sanitization.
	ErrInvalidPath = errors.New("storage: invalid path")
	// ErrCorrupt means per-project metadata could not be parsed. During
	// listing it is isolated to the offending entry and never aborts the
	// whole listing.
	ErrCorrupt = errors.New("storage: corrupt project metadata")
	// ErrWriteFailure means the underlying device rejected a write.
	ErrWriteFailure = errors.New("storage: write failure")
)

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsInvalidPath(err error) bool { return errors.Is(err, ErrInvalidPath) }
func IsCorrupt(err error) bool     { return errors.Is(err, ErrCorrupt) }
