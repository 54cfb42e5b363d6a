package effect

import "errors"

// Sentinel errors for the effect runtime.
var (
	ErrNoHandler       = errors.New("effect: no handler registered for this effect name")
	ErrHandlerExists   = errors.New("effect: handler already registered for this effect name")
	ErrAborted         = errors.New("effect: aborted by middleware")
	ErrBoundaryRefused = errors.New("effect: target domain refused boundary crossing")
)
