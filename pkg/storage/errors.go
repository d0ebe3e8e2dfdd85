package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a document has never been saved.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidName is returned for document names that cannot be stored.
	ErrInvalidName = errors.New("invalid document name")
)
