package gateway

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("object not found")

// DeletePendingError reports a copy-then-delete move whose copy succeeded
// but whose delete failed. Both objects exist afterwards; the caller must
// surface the inconsistency rather than mask it as an opaque failure.
type DeletePendingError struct {
	Copied  string
	Pending string
	Err     error
}

func (e *DeletePendingError) Error() string {
	return fmt.Sprintf("copied to %q but delete of %q is pending: %v", e.Copied, e.Pending, e.Err)
}

func (e *DeletePendingError) Unwrap() error {
	return e.Err
}
