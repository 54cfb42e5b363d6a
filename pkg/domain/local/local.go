// Package local implements the default in-process domain.Adapter: a
// single causality core instance acting as its own domain, backed
// directly by pkg/resource and pkg/factlog rather than a remote chain.
package local

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/causalityco/causality/pkg/causalityhash"
	"github.com/causalityco/causality/pkg/factlog"
	"github.com/causalityco/causality/pkg/operation"
	"github.com/causalityco/causality/pkg/resource"
	"github.com/causalityco/causality/pkg/store"
)

// witnessPrefix namespaces the prepare-witness keys within the shared
// backend so Iterate(prefix) during recovery never has to distinguish
// them from anything else a caller stores on the same backend.
var witnessPrefix = []byte("prepare/")

func witnessKey(txnId operation.ContentHash) []byte {
	return append(append([]byte(nil), witnessPrefix...), txnId.Bytes()...)
}

// Adapter is the local, in-process domain.Adapter implementation.
type Adapter struct {
	id  operation.DomainId
	res *resource.Manager
	log *factlog.Log
	clk atomic.Uint64

	// witnesses durably records every Prepare'd-but-not-yet-Commit'd or
	// Abort'd operation, keyed by transaction id, so that Commit/Abort
	// decisions survive a process restart: a freshly constructed Adapter
	// backed by the same store rebuilds prepared from this, rather than
	// starting with an empty in-process map. An empty value is a
	// tombstone for a resolved (committed or aborted) transaction.
	witnesses store.Backend

	mu       sync.Mutex
	prepared map[operation.ContentHash]*operation.Operation
}

// New constructs an Adapter for domain id, backed by res and log for
// state, and witnesses for durable 2PC prepare records. It replays any
// witnesses left behind by a previous process so PendingPrepares reflects
// reality immediately after a restart.
func New(id operation.DomainId, res *resource.Manager, log *factlog.Log, witnesses store.Backend) (*Adapter, error) {
	a := &Adapter{
		id:        id,
		res:       res,
		log:       log,
		witnesses: witnesses,
		prepared:  make(map[operation.ContentHash]*operation.Operation),
	}
	if err := a.loadWitnesses(context.Background()); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Adapter) loadWitnesses(ctx context.Context) error {
	return a.witnesses.Iterate(ctx, witnessPrefix, func(key, value []byte) error {
		if len(value) == 0 {
			return nil // tombstone: already resolved
		}
		txnId, err := causalityhash.FromBytes(key[len(witnessPrefix):])
		if err != nil {
			return fmt.Errorf("local: malformed witness key: %w", err)
		}
		op, err := operation.DecodeOperation(value)
		if err != nil {
			return fmt.Errorf("local: corrupt prepare witness for %s: %w", txnId, err)
		}
		a.prepared[txnId] = op
		return nil
	})
}

// DomainId implements domain.Adapter.
func (a *Adapter) DomainId() operation.DomainId { return a.id }

// Clock implements domain.Adapter with a simple monotone counter.
func (a *Adapter) Clock(ctx context.Context) (uint64, error) {
	return a.clk.Load(), nil
}

func (a *Adapter) tick() uint64 {
	return a.clk.Add(1)
}

// apply performs op's resource-level effect and returns the facts it
// produced. It is shared by Execute (direct) and Commit (after a
// successful Prepare).
func (a *Adapter) apply(ctx context.Context, op *operation.Operation) ([]*operation.Fact, error) {
	pos := a.tick()
	snapshot := operation.TemporalSnapshot{
		Positions: map[operation.DomainId]uint64{a.id: pos},
		WallClock: pos,
	}

	var subject operation.ContentHash
	var payload []byte

	switch op.OpType.Kind {
	case operation.OpCreate:
		if len(op.Outputs) == 0 {
			return nil, fmt.Errorf("local: Create requires at least one output")
		}
		root, err := a.res.Allocate(ctx, op.Outputs[0])
		if err != nil {
			return nil, err
		}
		subject = root

	case operation.OpUpdate:
		if len(op.Inputs) != 1 {
			return nil, fmt.Errorf("local: Update requires exactly one input")
		}
		if _, err := a.res.Update(ctx, op.Inputs[0], payload); err != nil {
			return nil, err
		}
		subject = op.Inputs[0]

	case operation.OpFreeze:
		if _, err := a.res.Freeze(ctx, op.Inputs[0], "router-requested"); err != nil {
			return nil, err
		}
		subject = op.Inputs[0]

	case operation.OpUnfreeze:
		if _, err := a.res.Unfreeze(ctx, op.Inputs[0]); err != nil {
			return nil, err
		}
		subject = op.Inputs[0]

	case operation.OpTransfer, operation.OpCrossDomainTransfer, operation.OpConsume:
		for _, in := range op.Inputs {
			if _, _, err := a.res.Consume(ctx, in); err != nil {
				return nil, err
			}
		}
		for _, out := range op.Outputs {
			if _, err := a.res.Allocate(ctx, out); err != nil {
				return nil, err
			}
		}
		if len(op.Inputs) > 0 {
			subject = op.Inputs[0]
		}

	default:
		return nil, fmt.Errorf("local: unsupported op type %s", op.OpType)
	}

	opFact := &operation.Fact{
		Kind:         operation.FactOperation,
		Subject:      subject,
		Timestamp:    snapshot,
		OriginDomain: a.id,
		Payload:      payload,
	}
	id, err := a.log.Append(ctx, opFact)
	if err != nil {
		return nil, err
	}
	opFact.Id = id
	return []*operation.Fact{opFact}, nil
}

// Execute implements domain.Adapter for the single-domain path.
func (a *Adapter) Execute(ctx context.Context, op *operation.Operation) ([]*operation.Fact, error) {
	return a.apply(ctx, op)
}

// Prepare implements domain.Adapter: it persists the witness before
// voting yes, so mutation happens only on Commit. A real prepare in a
// domain backed by external state would take a provisional lock here;
// the local adapter uses resource.Manager's own lock table for that via
// the caller (pkg/router) locking inputs before calling Prepare.
func (a *Adapter) Prepare(ctx context.Context, txnId operation.ContentHash, op *operation.Operation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.prepared[txnId]; exists {
		return fmt.Errorf("local: transaction %s already prepared", txnId)
	}
	if err := a.witnesses.Set(ctx, witnessKey(txnId), op.CanonicalBytes()); err != nil {
		return fmt.Errorf("local: persist prepare witness for %s: %w", txnId, err)
	}
	a.prepared[txnId] = op
	return nil
}

// Commit implements domain.Adapter: applies the previously prepared
// operation and resolves its witness.
func (a *Adapter) Commit(ctx context.Context, txnId operation.ContentHash) ([]*operation.Fact, error) {
	a.mu.Lock()
	op, ok := a.prepared[txnId]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("local: no prepared transaction %s", txnId)
	}

	facts, err := a.apply(ctx, op)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	delete(a.prepared, txnId)
	a.mu.Unlock()
	if err := a.witnesses.Set(ctx, witnessKey(txnId), nil); err != nil {
		return nil, fmt.Errorf("local: resolve prepare witness for %s: %w", txnId, err)
	}
	return facts, nil
}

// Abort implements domain.Adapter: discards the prepared record without
// applying any state change.
func (a *Adapter) Abort(ctx context.Context, txnId operation.ContentHash) error {
	a.mu.Lock()
	delete(a.prepared, txnId)
	a.mu.Unlock()
	if err := a.witnesses.Set(ctx, witnessKey(txnId), nil); err != nil {
		return fmt.Errorf("local: resolve prepare witness for %s: %w", txnId, err)
	}
	return nil
}

// QueryState implements domain.Adapter.
func (a *Adapter) QueryState(ctx context.Context, res operation.ContentHash) (*operation.ResourceRegister, error) {
	return a.res.Latest(ctx, res)
}

// PendingPrepares implements domain.Adapter, for startup recovery.
func (a *Adapter) PendingPrepares(ctx context.Context) ([]operation.ContentHash, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]operation.ContentHash, 0, len(a.prepared))
	for id := range a.prepared {
		out = append(out, id)
	}
	return out, nil
}
