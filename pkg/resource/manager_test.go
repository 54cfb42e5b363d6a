package resource

import (
	"context"
	"testing"

	"github.com/causalityco/causality/pkg/operation"
	"github.com/causalityco/causality/pkg/store"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return New(store.New(store.NewMemoryBackend()))
}

func baseRegister() operation.ResourceRegister {
	return operation.ResourceRegister{
		ResourceType:      "token",
		FungibilityDomain: "usd",
		Quantity:          100,
		Controller:        "alice",
		NullifierKey:      []byte("nk-1"),
	}
}

func TestAllocateStartsActive(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	root, err := m.Allocate(ctx, baseRegister())
	require.NoError(t, err)

	cur, err := m.Latest(ctx, root)
	require.NoError(t, err)
	require.Equal(t, operation.StateActive, cur.State.Kind)
	require.False(t, cur.HistoryRef.Zero())
}

func TestLockUnlockRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	root, err := m.Allocate(ctx, baseRegister())
	require.NoError(t, err)

	_, err = m.Lock(ctx, root, "alice", 0)
	require.NoError(t, err)

	cur, err := m.Latest(ctx, root)
	require.NoError(t, err)
	require.Equal(t, operation.StateLocked, cur.State.Kind)

	_, err = m.Unlock(ctx, root)
	require.NoError(t, err)

	cur, err = m.Latest(ctx, root)
	require.NoError(t, err)
	require.Equal(t, operation.StateActive, cur.State.Kind)
}

func TestLockContention(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	root, err := m.Allocate(ctx, baseRegister())
	require.NoError(t, err)

	_, err = m.Lock(ctx, root, "alice", 0)
	require.NoError(t, err)

	_, err = m.Lock(ctx, root, "bob", 0)
	require.ErrorIs(t, err, ErrContended)
}

func TestConsumeIsTerminalAndDeterministicNullifier(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	root, err := m.Allocate(ctx, baseRegister())
	require.NoError(t, err)

	_, nullifier1, err := m.Consume(ctx, root)
	require.NoError(t, err)

	_, err = m.Unlock(ctx, root)
	require.ErrorIs(t, err, ErrAlreadyConsumed)

	cur, err := m.Latest(ctx, root)
	require.NoError(t, err)
	require.Equal(t, operation.StateConsumed, cur.State.Kind)
	require.True(t, cur.State.Nullifier.Equal(nullifier1))
}

func TestInvalidTransitionRejected(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	root, err := m.Allocate(ctx, baseRegister())
	require.NoError(t, err)

	_, err = m.Unfreeze(ctx, root) // not currently frozen
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLineageChain(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	root, err := m.Allocate(ctx, baseRegister())
	require.NoError(t, err)

	_, err = m.Update(ctx, root, []byte("v2"))
	require.NoError(t, err)
	_, err = m.Update(ctx, root, []byte("v3"))
	require.NoError(t, err)

	chain, err := m.Lineage(ctx, root)
	require.NoError(t, err)
	require.Len(t, chain, 4) // Initializing, Active (allocate), v2, v3
	require.Equal(t, []byte("v3"), chain[len(chain)-1].Payload)
}

func TestLockManyOrdersByHash(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	r1 := baseRegister()
	r1.NullifierKey = []byte("a")
	root1, err := m.Allocate(ctx, r1)
	require.NoError(t, err)

	r2 := baseRegister()
	r2.NullifierKey = []byte("b")
	root2, err := m.Allocate(ctx, r2)
	require.NoError(t, err)

	unlock := m.LockTable().LockMany([]operation.ContentHash{root2, root1})
	defer unlock()
	// If LockMany deadlocked or paniced the test itself would hang/fail;
	// reaching this point demonstrates both locks were acquired.
}

func TestRelationshipsCycleDetection(t *testing.T) {
	rel := NewRelationships()
	ctx := context.Background()
	m := newTestManager()

	ra := baseRegister()
	ra.NullifierKey = []byte("a")
	rb := baseRegister()
	rb.NullifierKey = []byte("b")
	a, _ := m.Allocate(ctx, ra)
	b, _ := m.Allocate(ctx, rb)

	require.NoError(t, rel.Relate(a, b, "wraps"))
	err := rel.Relate(b, a, "wraps")
	require.ErrorIs(t, err, ErrCycleDetected)
}

func TestRelationshipsDuplicateConflict(t *testing.T) {
	rel := NewRelationships()
	ctx := context.Background()
	m := newTestManager()

	ra := baseRegister()
	ra.NullifierKey = []byte("a")
	rb := baseRegister()
	rb.NullifierKey = []byte("b")
	a, _ := m.Allocate(ctx, ra)
	b, _ := m.Allocate(ctx, rb)

	require.NoError(t, rel.Relate(a, b, "wraps"))
	err := rel.Relate(a, b, "wraps")
	require.ErrorIs(t, err, ErrRelationshipConflict)
}
