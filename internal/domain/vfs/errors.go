package vfs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("no such file or directory")
	ErrNotDirectory    = errors.New("not a directory")
	ErrIsDirectory     = errors.New("is a directory")
	ErrPermission      = errors.New("permission denied")
	ErrRootForbidden   = errors.New("operation not permitted on root")
	ErrExists          = errors.New("file exists")
	ErrNotEmpty        = errors.New("directory not empty")
	ErrCorruptSnapshot = errors.New("snapshot is corrupt")
	// ErrStoreUnavailable means the store could not say whether a snapshot
	// exists. No tree is produced, so nothing can overwrite the stored one.
	ErrStoreUnavailable = errors.New("snapshot store unavailable")
)

// PathError records the path an operation failed on.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("'%s': %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s '%s': %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

func pathErr(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}
