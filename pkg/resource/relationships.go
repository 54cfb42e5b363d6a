package resource

import (
	"sync"

	"github.com/causalityco/causality/pkg/operation"
)

// Relationships tracks directed, acyclic links between resource lineages
// (e.g. "wraps", "derived_from") outside the lifecycle state machine
// itself. Kept separate from Manager so that relationship bookkeeping
// doesn't need a content-addressed version of its own.
type Relationships struct {
	mu    sync.RWMutex
	edges map[operation.ContentHash]map[operation.ContentHash]string // from -> to -> kind
}

// NewRelationships returns an empty Relationships index.
func NewRelationships() *Relationships {
	return &Relationships{edges: make(map[operation.ContentHash]map[operation.ContentHash]string)}
}

// Relate adds a directed edge from -> to labeled kind, rejecting it if an
// identical edge already exists or if adding it would create a cycle.
func (r *Relationships) Relate(from, to operation.ContentHash, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.edges[from]; ok {
		if _, ok := existing[to]; ok {
			return ErrRelationshipConflict
		}
	}
	if r.reachableLocked(to, from) {
		return ErrCycleDetected
	}

	if r.edges[from] == nil {
		r.edges[from] = make(map[operation.ContentHash]string)
	}
	r.edges[from][to] = kind
	return nil
}

// Unrelate removes the edge from -> to, if present.
func (r *Relationships) Unrelate(from, to operation.ContentHash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.edges[from]; ok {
		delete(m, to)
	}
}

// RelationsOf returns every (target, kind) pair for edges starting at id.
func (r *Relationships) RelationsOf(id operation.ContentHash) map[operation.ContentHash]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[operation.ContentHash]string, len(r.edges[id]))
	for to, kind := range r.edges[id] {
		out[to] = kind
	}
	return out
}

// reachableLocked reports whether target is reachable from start by
// following edges forward. Caller must hold r.mu.
func (r *Relationships) reachableLocked(start, target operation.ContentHash) bool {
	if start.Equal(target) {
		return true
	}
	seen := map[operation.ContentHash]bool{start: true}
	queue := []operation.ContentHash{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range r.edges[cur] {
			if next.Equal(target) {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
