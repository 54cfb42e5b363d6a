package resource

import "github.com/causalityco/causality/pkg/operation"

// stateTransition names one edge of the resource lifecycle's state
// machine: Initializing → Active ↔ Locked/Frozen → Consumed(terminal) |
// Archived(terminal).
type stateTransition struct {
	From operation.ResourceStateKind
	To   operation.ResourceStateKind
}

// validTransitions enumerates every edge the lifecycle permits as an
// explicit table, the same shape as pkg/proof's ValidTransitions.
var validTransitions = []stateTransition{
	{operation.StateInitializing, operation.StateActive},
	{operation.StateActive, operation.StateLocked},
	{operation.StateLocked, operation.StateActive},
	{operation.StateActive, operation.StateFrozen},
	{operation.StateFrozen, operation.StateActive},
	{operation.StateActive, operation.StateConsumed},
	{operation.StateLocked, operation.StateConsumed},
	{operation.StateActive, operation.StateArchived},
	{operation.StateFrozen, operation.StateArchived},
}

func isValidTransition(from, to operation.ResourceStateKind) bool {
	for _, t := range validTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// isTerminal reports whether kind is a terminal lifecycle state: once
// reached, no further transition is valid.
func isTerminal(kind operation.ResourceStateKind) bool {
	return kind == operation.StateConsumed || kind == operation.StateArchived
}
