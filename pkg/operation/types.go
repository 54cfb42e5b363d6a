// Package operation defines the shared, content-addressed data model used
// by every core component: resources, capabilities, facts, operations,
// transactions, and the temporal snapshot that threads through them all.
// Keeping these types in one leaf package lets pkg/store, pkg/capability,
// pkg/factlog, pkg/resource, pkg/effect, pkg/validator, and pkg/router
// share a vocabulary without import cycles — the same role pkg/ledger's
// shared types play for the query handlers.
package operation

import (
	"github.com/causalityco/causality/pkg/causalityhash"
)

// ContentHash is the identity of every stored entity: H(canonical_bytes(e)).
type ContentHash = causalityhash.Hash

// EntityId labels an owner/controller/issuer/holder/initiator. It is an
// opaque string in the core; domain adapters map it to chain-specific
// account representations.
type EntityId string

// DomainId names an execution context with its own logical clock: a
// chain, a local zone, a sandbox.
type DomainId string

// ResourceType is an opaque type tag grouping resources by shape
// (e.g. "token", "nft", "capability-wrapper").
type ResourceType string

// FungibilityDomain groups interchangeable resources for conservation
// checks.
type FungibilityDomain string

// TemporalSnapshot is the logical time observed at some point: a
// per-domain monotone position vector plus an advisory wall clock.
type TemporalSnapshot struct {
	Positions map[DomainId]uint64
	WallClock uint64
}

// Clone returns a deep copy so callers can mutate the result without
// aliasing the snapshot's position map.
func (s TemporalSnapshot) Clone() TemporalSnapshot {
	out := TemporalSnapshot{
		Positions: make(map[DomainId]uint64, len(s.Positions)),
		WallClock: s.WallClock,
	}
	for k, v := range s.Positions {
		out.Positions[k] = v
	}
	return out
}

// LE reports whether every domain position in s is ≤ the corresponding
// position in other, which is the per-domain half of temporal
// monotonicity. Domains absent from s are vacuously satisfied.
func (s TemporalSnapshot) LE(other TemporalSnapshot) bool {
	for domain, pos := range s.Positions {
		if otherPos, ok := other.Positions[domain]; !ok || pos > otherPos {
			return false
		}
	}
	return true
}
