package storage

import "errors"

// Sentinel errors shared by every store implementation, so callers can
// branch with errors.Is regardless of the backing database.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means an insert collided with an existing key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput means the arguments failed validation before any
	// database round trip.
	ErrInvalidInput = errors.New("invalid input")
)
