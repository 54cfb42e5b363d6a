package resource

import "errors"

// Sentinel errors for resource lifecycle operations.
var (
	ErrNotFound          = errors.New("resource: not found")
	ErrInvalidTransition = errors.New("resource: invalid state transition")
	ErrContended         = errors.New("resource: already locked by another holder")
	ErrAlreadyConsumed   = errors.New("resource: already consumed")
	ErrCycleDetected     = errors.New("resource: relationship would introduce a cycle")
	ErrRelationshipConflict = errors.New("resource: relationship already exists")
)
