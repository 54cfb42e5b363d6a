// Package evmadapter is an example domain.Adapter for an EVM-compatible
// chain: it delegates the actual causality state machine to a wrapped
// local.Adapter (the chain is just another domain clock and witness
// scheme from the core's point of view) while using go-ethereum's
// address and hashing primitives to map EntityId values onto EVM
// accounts and to produce and persist the prepare/commit witness a real
// chain integration would submit as calldata.
package evmadapter

import (
	"context"
	"fmt"

	"github.com/causalityco/causality/pkg/domain/local"
	"github.com/causalityco/causality/pkg/operation"
	"github.com/causalityco/causality/pkg/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var witnessPrefix = []byte("evm-witness/")

func witnessKey(txnId operation.ContentHash) []byte {
	return append(append([]byte(nil), witnessPrefix...), txnId.Bytes()...)
}

// Adapter wraps a local.Adapter and adds EVM-flavored account mapping
// and witness derivation.
type Adapter struct {
	inner   *local.Adapter
	chainID uint64

	// witnesses durably records the calldata-style commitment Prepare
	// derived for each in-flight transaction, so Commit can refuse to
	// apply a transaction this chain never actually prepared.
	witnesses store.Backend
}

// New constructs an Adapter for the given EVM chain id, backed by inner
// for the actual resource/fact bookkeeping and witnesses for the
// chain-side prepare/commit record.
func New(inner *local.Adapter, chainID uint64, witnesses store.Backend) *Adapter {
	return &Adapter{inner: inner, chainID: chainID, witnesses: witnesses}
}

// Account derives the EVM address an EntityId maps to: Keccak256(id)[12:],
// the same derivation scheme Ethereum uses for contract addresses, here
// repurposed as a deterministic account namespace per causality entity.
func (a *Adapter) Account(id operation.EntityId) common.Address {
	digest := crypto.Keccak256([]byte(id))
	return common.BytesToAddress(digest[12:])
}

// witness derives the calldata-style commitment a real chain submission
// would carry: Keccak256(txnId || opId || chainID-tagged).
func (a *Adapter) witness(txnId, opId operation.ContentHash) []byte {
	buf := make([]byte, 0, 2*(1+32)+8)
	buf = append(buf, txnId.Bytes()...)
	buf = append(buf, opId.Bytes()...)
	var chainTag [8]byte
	for i := 0; i < 8; i++ {
		chainTag[i] = byte(a.chainID >> (8 * i))
	}
	buf = append(buf, chainTag[:]...)
	return crypto.Keccak256(buf)
}

func (a *Adapter) DomainId() operation.DomainId { return a.inner.DomainId() }

func (a *Adapter) Clock(ctx context.Context) (uint64, error) { return a.inner.Clock(ctx) }

func (a *Adapter) Execute(ctx context.Context, op *operation.Operation) ([]*operation.Fact, error) {
	return a.inner.Execute(ctx, op)
}

// Prepare votes yes on inner and persists the chain-side witness a real
// integration would have just broadcast as calldata, so Commit can check
// for its presence before applying any state.
func (a *Adapter) Prepare(ctx context.Context, txnId operation.ContentHash, op *operation.Operation) error {
	if err := a.inner.Prepare(ctx, txnId, op); err != nil {
		return err
	}
	w := a.witness(txnId, op.Id)
	if err := a.witnesses.Set(ctx, witnessKey(txnId), w); err != nil {
		return fmt.Errorf("evmadapter: persist commit witness for %s: %w", txnId, err)
	}
	return nil
}

// Commit refuses to apply a transaction this chain has no recorded
// prepare witness for, then resolves the witness once inner has
// committed.
func (a *Adapter) Commit(ctx context.Context, txnId operation.ContentHash) ([]*operation.Fact, error) {
	w, err := a.witnesses.Get(ctx, witnessKey(txnId))
	if err != nil || len(w) == 0 {
		return nil, fmt.Errorf("evmadapter: no commit witness recorded for %s", txnId)
	}

	facts, err := a.inner.Commit(ctx, txnId)
	if err != nil {
		return nil, err
	}
	if err := a.witnesses.Set(ctx, witnessKey(txnId), nil); err != nil {
		return nil, fmt.Errorf("evmadapter: resolve commit witness for %s: %w", txnId, err)
	}
	return facts, nil
}

func (a *Adapter) Abort(ctx context.Context, txnId operation.ContentHash) error {
	if err := a.inner.Abort(ctx, txnId); err != nil {
		return err
	}
	return a.witnesses.Set(ctx, witnessKey(txnId), nil)
}

func (a *Adapter) QueryState(ctx context.Context, resource operation.ContentHash) (*operation.ResourceRegister, error) {
	return a.inner.QueryState(ctx, resource)
}

func (a *Adapter) PendingPrepares(ctx context.Context) ([]operation.ContentHash, error) {
	return a.inner.PendingPrepares(ctx)
}
