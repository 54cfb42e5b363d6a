package resource

import (
	"bytes"
	"sort"
	"sync"

	"github.com/causalityco/causality/pkg/operation"
)

// LockTable hands out per-resource mutexes and provides LockMany, which
// acquires several resources' locks in a fixed, content-hash-derived
// order: locking resources in canonical hash order prevents the classic
// multi-resource deadlock that locking in request order would risk.
type LockTable struct {
	mu    sync.Mutex
	byRes map[operation.ContentHash]*resourceMutex
}

// NewLockTable returns an empty LockTable.
func NewLockTable() *LockTable {
	return &LockTable{byRes: make(map[operation.ContentHash]*resourceMutex)}
}

func (t *LockTable) mutexFor(id operation.ContentHash) *resourceMutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.byRes[id]
	if !ok {
		m = newResourceMutex()
		t.byRes[id] = m
	}
	return m
}

// LockMany locks every lineage root in ids, sorted ascending by raw hash
// bytes, and returns a func that releases them all in reverse order.
// Locking in a fixed global order, regardless of the order callers
// happen to request resources in, is what makes concurrent overlapping
// transactions deadlock-free.
func (t *LockTable) LockMany(ids []operation.ContentHash) func() {
	ordered := append([]operation.ContentHash(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].Bytes(), ordered[j].Bytes()) < 0
	})

	mutexes := make([]*resourceMutex, len(ordered))
	for i, id := range ordered {
		mutexes[i] = t.mutexFor(id)
	}
	for _, m := range mutexes {
		m.Lock()
	}
	return func() {
		for i := len(mutexes) - 1; i >= 0; i-- {
			mutexes[i].Unlock()
		}
	}
}
