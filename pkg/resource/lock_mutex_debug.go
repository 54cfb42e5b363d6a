//go:build deadlock

package resource

import "github.com/sasha-s/go-deadlock"

// resourceMutex under -tags deadlock is go-deadlock's Mutex, which
// detects lock-ordering cycles at runtime and panics with the offending
// stack traces instead of hanging. Useful when chasing a suspected
// violation of the hash-order locking discipline LockMany enforces.
type resourceMutex = deadlock.Mutex

func newResourceMutex() *resourceMutex { return &deadlock.Mutex{} }
