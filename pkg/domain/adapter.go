// Package domain defines the adapter boundary between the causality core
// and an execution domain: a chain, a local sandbox, or any other system
// capable of executing operations and participating in two-phase commit.
package domain

import (
	"context"

	"github.com/causalityco/causality/pkg/operation"
)

// Adapter is the contract every domain must satisfy to participate in
// routing. Single-domain operations use Execute directly; cross-domain
// transactions use the Prepare/Commit/Abort two-phase sequence instead.
type Adapter interface {
	// DomainId returns the stable identifier routing uses to address this
	// domain.
	DomainId() operation.DomainId

	// Clock returns the domain's current logical position, for building a
	// TemporalSnapshot.
	Clock(ctx context.Context) (uint64, error)

	// Execute runs op against this domain's state directly and returns the
	// resulting facts. Used for the single-domain happy path.
	Execute(ctx context.Context, op *operation.Operation) ([]*operation.Fact, error)

	// Prepare votes on whether op can be committed, without making the
	// change visible yet, and durably records the vote so Commit/Abort can
	// be replayed after a crash.
	Prepare(ctx context.Context, txnId operation.ContentHash, op *operation.Operation) error

	// Commit makes a previously prepared transaction's effects visible.
	Commit(ctx context.Context, txnId operation.ContentHash) ([]*operation.Fact, error)

	// Abort discards a previously prepared transaction's effects.
	Abort(ctx context.Context, txnId operation.ContentHash) error

	// QueryState returns the domain's view of a resource, for
	// cross-domain validation that doesn't want to go through Execute.
	QueryState(ctx context.Context, resource operation.ContentHash) (*operation.ResourceRegister, error)

	// PendingPrepares lists transactions this domain has prepared but not
	// yet committed or aborted, for startup recovery scans.
	PendingPrepares(ctx context.Context) ([]operation.ContentHash, error)
}
