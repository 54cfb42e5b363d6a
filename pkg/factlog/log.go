// Package factlog implements the temporal fact log: an append-only,
// content-addressed record of everything
// that has happened, indexed for lookup by subject, by domain position,
// and by kind, with a causal precedes() relation derived from declared
// dependencies.
package factlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/causalityco/causality/pkg/operation"
	"github.com/causalityco/causality/pkg/store"
)

// Log is the append-only fact store. The zero value is not usable;
// construct with New.
type Log struct {
	mu sync.RWMutex

	store *store.Store

	order []operation.ContentHash // append order, oldest first

	bySubject map[operation.ContentHash][]operation.ContentHash
	byKind    map[operation.FactKind][]operation.ContentHash

	// byDomainPosition[domain][position] = fact id, for the monotone
	// per-domain index.
	byDomainPosition map[operation.DomainId]map[uint64]operation.ContentHash
	lastPosition     map[operation.DomainId]uint64

	deps map[operation.ContentHash][]operation.ContentHash // direct dependency edges
}

// New returns an empty Log backed by s for durable fact bytes.
func New(s *store.Store) *Log {
	return &Log{
		store:            s,
		bySubject:        make(map[operation.ContentHash][]operation.ContentHash),
		byKind:           make(map[operation.FactKind][]operation.ContentHash),
		byDomainPosition: make(map[operation.DomainId]map[uint64]operation.ContentHash),
		lastPosition:     make(map[operation.DomainId]uint64),
		deps:             make(map[operation.ContentHash][]operation.ContentHash),
	}
}

// Append writes fact to the log after validating that every declared
// dependency is already present and that, if fact.OriginDomain is set,
// its domain position is strictly ahead of the last fact appended for
// that domain (temporal monotonicity).
func (l *Log) Append(ctx context.Context, fact *operation.Fact) (operation.ContentHash, error) {
	fact.Rehash()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.bySubject[fact.Id]; exists {
		return operation.ContentHash{}, ErrDuplicateFact
	}
	if exists, err := l.store.Exists(ctx, fact.Id); err != nil {
		return operation.ContentHash{}, err
	} else if exists {
		return operation.ContentHash{}, ErrDuplicateFact
	}

	for _, dep := range fact.Dependencies {
		raw, err := l.store.Get(ctx, dep)
		if err != nil {
			return operation.ContentHash{}, fmt.Errorf("%w: %s", ErrDependencyMissing, dep)
		}
		depFact, err := operation.DecodeFact(raw)
		if err != nil {
			return operation.ContentHash{}, err
		}
		if !depFact.Timestamp.LE(fact.Timestamp) {
			return operation.ContentHash{}, fmt.Errorf("%w: dependency %s snapshot is not dominated by fact %s",
				ErrTemporalRegression, dep, fact.Id)
		}
	}

	if fact.OriginDomain != "" {
		pos, ok := fact.Timestamp.Positions[fact.OriginDomain]
		if ok {
			if last, seen := l.lastPosition[fact.OriginDomain]; seen && pos <= last {
				return operation.ContentHash{}, fmt.Errorf("%w: domain %s position %d <= last %d",
					ErrTemporalRegression, fact.OriginDomain, pos, last)
			}
			l.lastPosition[fact.OriginDomain] = pos
			if l.byDomainPosition[fact.OriginDomain] == nil {
				l.byDomainPosition[fact.OriginDomain] = make(map[uint64]operation.ContentHash)
			}
			l.byDomainPosition[fact.OriginDomain][pos] = fact.Id
		}
	}

	if _, err := l.store.Put(ctx, fact.CanonicalBytes()); err != nil {
		return operation.ContentHash{}, err
	}

	l.order = append(l.order, fact.Id)
	l.bySubject[fact.Subject] = append(l.bySubject[fact.Subject], fact.Id)
	l.byKind[fact.Kind] = append(l.byKind[fact.Kind], fact.Id)
	l.deps[fact.Id] = append([]operation.ContentHash(nil), fact.Dependencies...)

	return fact.Id, nil
}

// Get retrieves a fact by id.
func (l *Log) Get(ctx context.Context, id operation.ContentHash) (*operation.Fact, error) {
	raw, err := l.store.Get(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return operation.DecodeFact(raw)
}

// FactsFor returns, oldest first, every fact whose Subject is subject.
func (l *Log) FactsFor(ctx context.Context, subject operation.ContentHash) ([]*operation.Fact, error) {
	l.mu.RLock()
	ids := append([]operation.ContentHash(nil), l.bySubject[subject]...)
	l.mu.RUnlock()

	out := make([]*operation.Fact, 0, len(ids))
	for _, id := range ids {
		f, err := l.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Latest returns the most recently appended fact for subject, if any.
func (l *Log) Latest(ctx context.Context, subject operation.ContentHash) (*operation.Fact, bool, error) {
	l.mu.RLock()
	ids := l.bySubject[subject]
	if len(ids) == 0 {
		l.mu.RUnlock()
		return nil, false, nil
	}
	last := ids[len(ids)-1]
	l.mu.RUnlock()

	f, err := l.Get(ctx, last)
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

// Query returns, oldest first, every fact of the given kind.
func (l *Log) Query(ctx context.Context, kind operation.FactKind) ([]*operation.Fact, error) {
	l.mu.RLock()
	ids := append([]operation.ContentHash(nil), l.byKind[kind]...)
	l.mu.RUnlock()

	out := make([]*operation.Fact, 0, len(ids))
	for _, id := range ids {
		f, err := l.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Precedes reports whether a causally precedes b: either by transitive
// dependency closure (a is in b's dependency graph) or, when both facts
// share an origin domain, by domain position ordering.
func (l *Log) Precedes(ctx context.Context, a, b operation.ContentHash) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.dependsOnLocked(b, a, make(map[operation.ContentHash]bool)) {
		return true, nil
	}

	factA, err := l.getLocked(ctx, a)
	if err != nil {
		return false, err
	}
	factB, err := l.getLocked(ctx, b)
	if err != nil {
		return false, err
	}
	if factA.OriginDomain != "" && factA.OriginDomain == factB.OriginDomain {
		posA, okA := factA.Timestamp.Positions[factA.OriginDomain]
		posB, okB := factB.Timestamp.Positions[factB.OriginDomain]
		if okA && okB {
			return posA < posB, nil
		}
	}
	return false, nil
}

func (l *Log) getLocked(ctx context.Context, id operation.ContentHash) (*operation.Fact, error) {
	raw, err := l.store.Get(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return operation.DecodeFact(raw)
}

// dependsOnLocked reports whether target is reachable from start by
// walking declared dependency edges (start depends on target, directly
// or transitively). Caller must hold l.mu.
func (l *Log) dependsOnLocked(start, target operation.ContentHash, seen map[operation.ContentHash]bool) bool {
	if seen[start] {
		return false
	}
	seen[start] = true
	for _, dep := range l.deps[start] {
		if dep.Equal(target) {
			return true
		}
		if l.dependsOnLocked(dep, target, seen) {
			return true
		}
	}
	return false
}

// BatchRoot computes the Merkle root over every fact appended so far, in
// append order, for external anchoring with Merkle inclusion proofs over
// fact batches.
func (l *Log) BatchRoot() (*BatchTree, error) {
	l.mu.RLock()
	ids := append([]operation.ContentHash(nil), l.order...)
	l.mu.RUnlock()
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}
	return BuildBatchTree(ids)
}
