package repositories

import "errors"

// Sentinel errors shared by every repository backend. Services translate them
// into client-facing apperr values.
var (
	// ErrNotFound reports a missing row, including a write that references a
	// row which does not exist (foreign key violation).
	ErrNotFound = errors.New("repositories: record not found")
	// ErrConflict reports a write that would violate a uniqueness constraint.
	ErrConflict = errors.New("repositories: record conflict")
)
