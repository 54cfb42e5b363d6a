// Package resource implements the resource registry: the linear
// lifecycle state machine over operation.ResourceRegister, lineage
// chaining, nullifier-based consumption, and resource-to-resource
// relationships.
package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/causalityco/causality/pkg/causalityhash"
	"github.com/causalityco/causality/pkg/operation"
	"github.com/causalityco/causality/pkg/store"
)

// Manager is the resource lifecycle authority: every mutation produces a
// new immutable version chained to its predecessor, never an in-place
// edit.
type Manager struct {
	mu sync.RWMutex

	store *store.Store

	// current[lineageRoot] is the id of the most recently written version
	// for that lineage. A resource's lineage root is the Id of its
	// Initializing-state creation version, and is the stable handle
	// callers use across the resource's lifetime.
	current map[operation.ContentHash]operation.ContentHash

	locks *LockTable
}

// New returns an empty Manager backed by s.
func New(s *store.Store) *Manager {
	return &Manager{
		store:   s,
		current: make(map[operation.ContentHash]operation.ContentHash),
		locks:   NewLockTable(),
	}
}

// Allocate creates a new resource lineage in StateInitializing, then
// immediately advances it to StateActive (a freshly allocated resource is
// usable right away; Initializing exists as a distinct state so that
// observers constructing a resource across multiple steps, e.g. a
// cross-domain mint, can see the in-progress marker).
func (m *Manager) Allocate(ctx context.Context, reg operation.ResourceRegister) (operation.ContentHash, error) {
	reg.State = operation.Initializing()
	reg.HistoryRef = causalityhash.Hash{}
	reg.Rehash()
	lineageRoot := reg.Id

	if _, err := m.store.Put(ctx, reg.CanonicalBytes()); err != nil {
		return operation.ContentHash{}, err
	}

	active := reg
	active.State = operation.Active()
	active.HistoryRef = lineageRoot
	active.Rehash()
	if _, err := m.store.Put(ctx, active.CanonicalBytes()); err != nil {
		return operation.ContentHash{}, err
	}

	m.mu.Lock()
	m.current[lineageRoot] = active.Id
	m.mu.Unlock()

	return lineageRoot, nil
}

// Latest returns the most recent version of the resource identified by
// lineageRoot.
func (m *Manager) Latest(ctx context.Context, lineageRoot operation.ContentHash) (*operation.ResourceRegister, error) {
	m.mu.RLock()
	id, ok := m.current[lineageRoot]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.get(ctx, id)
}

func (m *Manager) get(ctx context.Context, id operation.ContentHash) (*operation.ResourceRegister, error) {
	raw, err := m.store.Get(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return operation.DecodeResourceRegister(raw)
}

// transition writes a new version of the resource at lineageRoot with
// mutate applied, after checking the requested state change is valid and
// the current version is not in a terminal state. Callers must hold
// m.locks for lineageRoot (see LockTable) for the duration of a
// read-modify-write sequence spanning multiple calls; transition itself
// only guards its own index update.
func (m *Manager) transition(ctx context.Context, lineageRoot operation.ContentHash, newKind operation.ResourceStateKind, mutate func(*operation.ResourceRegister)) (operation.ContentHash, error) {
	cur, err := m.Latest(ctx, lineageRoot)
	if err != nil {
		return operation.ContentHash{}, err
	}
	if isTerminal(cur.State.Kind) {
		return operation.ContentHash{}, fmt.Errorf("%w: %s is terminal", ErrAlreadyConsumed, cur.State.Kind)
	}
	if !isValidTransition(cur.State.Kind, newKind) {
		return operation.ContentHash{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.State.Kind, newKind)
	}

	next := *cur
	next.HistoryRef = cur.Id
	mutate(&next)
	next.Rehash()

	if _, err := m.store.Put(ctx, next.CanonicalBytes()); err != nil {
		return operation.ContentHash{}, err
	}

	m.mu.Lock()
	m.current[lineageRoot] = next.Id
	m.mu.Unlock()
	return next.Id, nil
}

// Lock transitions the resource to StateLocked, recording the holder and
// an optional timeout (0 means no timeout). Returns ErrContended if
// already locked by a different holder.
func (m *Manager) Lock(ctx context.Context, lineageRoot operation.ContentHash, by operation.EntityId, until uint64) (operation.ContentHash, error) {
	cur, err := m.Latest(ctx, lineageRoot)
	if err != nil {
		return operation.ContentHash{}, err
	}
	if cur.State.Kind == operation.StateLocked && cur.State.LockedBy != by {
		return operation.ContentHash{}, ErrContended
	}
	return m.transition(ctx, lineageRoot, operation.StateLocked, func(r *operation.ResourceRegister) {
		r.State = operation.Locked(by, until)
	})
}

// Unlock transitions a locked resource back to StateActive.
func (m *Manager) Unlock(ctx context.Context, lineageRoot operation.ContentHash) (operation.ContentHash, error) {
	return m.transition(ctx, lineageRoot, operation.StateActive, func(r *operation.ResourceRegister) {
		r.State = operation.Active()
	})
}

// Freeze transitions the resource to StateFrozen with reason recorded.
func (m *Manager) Freeze(ctx context.Context, lineageRoot operation.ContentHash, reason string) (operation.ContentHash, error) {
	return m.transition(ctx, lineageRoot, operation.StateFrozen, func(r *operation.ResourceRegister) {
		r.State = operation.Frozen(reason)
	})
}

// Unfreeze transitions a frozen resource back to StateActive.
func (m *Manager) Unfreeze(ctx context.Context, lineageRoot operation.ContentHash) (operation.ContentHash, error) {
	return m.transition(ctx, lineageRoot, operation.StateActive, func(r *operation.ResourceRegister) {
		r.State = operation.Active()
	})
}

// Consume transitions the resource to its terminal StateConsumed,
// deriving the nullifier from the current version's Id and its
// NullifierKey and storing it in the Consumed state. A second Consume of
// the same lineage fails with ErrAlreadyConsumed because Consumed is
// terminal; nullifiers are not recorded in any table of their own.
func (m *Manager) Consume(ctx context.Context, lineageRoot operation.ContentHash) (operation.ContentHash, causalityhash.Hash, error) {
	cur, err := m.Latest(ctx, lineageRoot)
	if err != nil {
		return operation.ContentHash{}, causalityhash.Hash{}, err
	}
	nullifier := causalityhash.Nullifier(cur.Id, cur.NullifierKey)

	id, err := m.transition(ctx, lineageRoot, operation.StateConsumed, func(r *operation.ResourceRegister) {
		r.State = operation.Consumed(nullifier)
	})
	if err != nil {
		return operation.ContentHash{}, causalityhash.Hash{}, err
	}
	return id, nullifier, nil
}

// Archive transitions the resource to its terminal StateArchived.
func (m *Manager) Archive(ctx context.Context, lineageRoot operation.ContentHash) (operation.ContentHash, error) {
	return m.transition(ctx, lineageRoot, operation.StateArchived, func(r *operation.ResourceRegister) {
		r.State = operation.Archived()
	})
}

// Update rewrites the resource's Payload while remaining in StateActive,
// for state changes that are not lifecycle transitions.
func (m *Manager) Update(ctx context.Context, lineageRoot operation.ContentHash, payload []byte) (operation.ContentHash, error) {
	cur, err := m.Latest(ctx, lineageRoot)
	if err != nil {
		return operation.ContentHash{}, err
	}
	if isTerminal(cur.State.Kind) {
		return operation.ContentHash{}, fmt.Errorf("%w: %s is terminal", ErrAlreadyConsumed, cur.State.Kind)
	}
	if cur.State.Kind != operation.StateActive {
		return operation.ContentHash{}, fmt.Errorf("%w: update requires Active, got %s", ErrInvalidTransition, cur.State.Kind)
	}

	next := *cur
	next.HistoryRef = cur.Id
	next.Payload = payload
	next.Rehash()

	if _, err := m.store.Put(ctx, next.CanonicalBytes()); err != nil {
		return operation.ContentHash{}, err
	}
	m.mu.Lock()
	m.current[lineageRoot] = next.Id
	m.mu.Unlock()
	return next.Id, nil
}

// Lineage returns every version of a resource from its creation version
// to its current one, oldest first, by walking HistoryRef backward and
// reversing.
func (m *Manager) Lineage(ctx context.Context, lineageRoot operation.ContentHash) ([]*operation.ResourceRegister, error) {
	cur, err := m.Latest(ctx, lineageRoot)
	if err != nil {
		return nil, err
	}

	var chain []*operation.ResourceRegister
	for {
		chain = append(chain, cur)
		if cur.HistoryRef.Zero() {
			break
		}
		prev, err := m.get(ctx, cur.HistoryRef)
		if err != nil {
			return nil, err
		}
		cur = prev
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// LockTable exposes the manager's per-lineage lock coordination to
// callers (e.g. pkg/router) that need to hold multiple resources locked
// across a multi-step transaction.
func (m *Manager) LockTable() *LockTable { return m.locks }
