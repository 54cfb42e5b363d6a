package store

import "errors"

// Sentinel errors for store operations, preferring explicit errors over
// nil, nil returns.
var (
	// ErrNotFound is returned when a content hash has no corresponding entry.
	ErrNotFound = errors.New("store: entity not found")

	// ErrIntegrity is returned when re-hashing a retrieved entity does not
	// match the key it was looked up by.
	ErrIntegrity = errors.New("store: content hash mismatch on retrieval")

	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("store: closed")
)
