package models

import (
	"errors"
	"fmt"
)

// Taxonomy of client-visible failures. Packages wrap these with
// fmt.Errorf("...: %w", ErrX) and adapters branch with errors.Is.
var (
	// ErrBadRequest is returned for malformed or missing parameters and
	// when no storage node is reachable.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound is returned when a file or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned on authorization or token failures.
	ErrForbidden = errors.New("forbidden")

	// ErrTimeout is returned when a quorum or version wait deadline is
	// exceeded, or a remote peer is unreachable. It is retryable.
	ErrTimeout = errors.New("timeout")

	// ErrInternal is returned for unexpected local faults.
	ErrInternal = errors.New("internal error")
)

// RedirectError carries the address of the current leader. It is not a
// failure: adapters answer it with a redirect response.
type RedirectError struct {
	Location string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s", e.Location)
}

// IsRetryable reports whether the caller may retry the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}
