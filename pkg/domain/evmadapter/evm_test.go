package evmadapter

import (
	"context"
	"testing"

	"github.com/causalityco/causality/pkg/domain/local"
	"github.com/causalityco/causality/pkg/factlog"
	"github.com/causalityco/causality/pkg/operation"
	"github.com/causalityco/causality/pkg/resource"
	"github.com/causalityco/causality/pkg/store"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) (*Adapter, *resource.Manager) {
	t.Helper()
	res := resource.New(store.New(store.NewMemoryBackend()))
	facts := factlog.New(store.New(store.NewMemoryBackend()))
	inner, err := local.New("domain-evm", res, facts, store.NewMemoryBackend())
	require.NoError(t, err)
	return New(inner, 8453, store.NewMemoryBackend()), res
}

func TestAccountIsDeterministic(t *testing.T) {
	a, _ := newTestAdapter(t)
	require.Equal(t, a.Account("alice"), a.Account("alice"))
	require.NotEqual(t, a.Account("alice"), a.Account("bob"))
}

func TestPrepareCommitRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, res := newTestAdapter(t)

	root, err := res.Allocate(ctx, operation.ResourceRegister{ResourceType: "token", Controller: "alice", NullifierKey: []byte("a")})
	require.NoError(t, err)

	op := &operation.Operation{
		OpType: operation.OpType{Kind: operation.OpConsume}, Inputs: []operation.ContentHash{root}, Initiator: "alice",
	}
	op.Rehash()
	txnId := (&operation.Transaction{Operations: []operation.Operation{*op}}).Id()

	require.NoError(t, a.Prepare(ctx, txnId, op))

	_, err = a.Commit(ctx, txnId)
	require.NoError(t, err)

	cur, err := res.Latest(ctx, root)
	require.NoError(t, err)
	require.Equal(t, operation.StateConsumed, cur.State.Kind)
}

// Commit without a matching Prepare has no recorded witness and must be
// refused rather than silently applying inner's state change.
func TestCommitWithoutWitnessFails(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t)

	txnId := (&operation.Transaction{Operations: []operation.Operation{{Initiator: "alice"}}}).Id()
	_, err := a.Commit(ctx, txnId)
	require.Error(t, err)
}

func TestAbortDiscardsWitness(t *testing.T) {
	ctx := context.Background()
	a, res := newTestAdapter(t)

	root, err := res.Allocate(ctx, operation.ResourceRegister{ResourceType: "token", Controller: "alice", NullifierKey: []byte("a")})
	require.NoError(t, err)

	op := &operation.Operation{
		OpType: operation.OpType{Kind: operation.OpConsume}, Inputs: []operation.ContentHash{root}, Initiator: "alice",
	}
	op.Rehash()
	txnId := (&operation.Transaction{Operations: []operation.Operation{*op}}).Id()

	require.NoError(t, a.Prepare(ctx, txnId, op))
	require.NoError(t, a.Abort(ctx, txnId))

	_, err = a.Commit(ctx, txnId)
	require.Error(t, err, "an aborted transaction's witness must be resolved, not left committable")
}
