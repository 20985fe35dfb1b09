package domain

import "errors"

// Sentinel errors shared by the engine, the storage layer and the API.
// Check them with errors.Is.
var (
	// ErrNotFound is returned when a question or account does not exist or
	// is not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRating is returned for a rating outside forgot/almost/knew.
	ErrInvalidRating = errors.New("invalid rating")
	// ErrConflict is returned when a concurrent write changed the row between
	// read and write. The caller may retry with a fresh read.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrStorageUnavailable wraps failures of the underlying database.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrInvalidInput    = errors.New("invalid input")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUnauthenticated = errors.New("not authenticated")
)
