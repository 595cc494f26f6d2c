// Package errs defines the error kinds shared by the editor packages.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means an unknown snapshot, group or marker id.
	ErrNotFound = errors.New("not found")
	// ErrReadOnly rejects edits while a snapshot is being browsed.
	ErrReadOnly = errors.New("read-only while browsing snapshots")
)

// StorageError reports a failed persistence call. In-memory state built
// before the call is left as is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorage reports whether err came from the persistence layer.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
