package core

import "errors"

var (
	// ErrValidation marks caller mistakes: blank session, missing required
	// field, out-of-range score. Surfaced synchronously, never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks reads or deletes of node ids the session does not
	// contain.
	ErrNotFound = errors.New("not found")
)
