//go:build !deadlock

package resource

import "sync"

// resourceMutex is the production per-resource lock: a plain sync.Mutex.
// Build with -tags deadlock to swap in go-deadlock's cycle-detecting
// variant for debugging lock ordering issues.
type resourceMutex = sync.Mutex

func newResourceMutex() *resourceMutex { return &sync.Mutex{} }
