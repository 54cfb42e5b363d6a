package effect

import "github.com/causalityco/causality/pkg/operation"

// BoundaryCrossing envelopes an effect that must cross from one domain
// into another. It is passed to a BoundaryHandler for the destination
// domain rather than to a handler directly, so that the destination can
// apply its own authorization and middleware before executing anything.
type BoundaryCrossing struct {
	Origin      operation.DomainId
	Destination operation.DomainId
	Effect      Effect
	Witness     []byte // destination-specific proof the crossing is authorized
}

// BoundaryHandler executes a BoundaryCrossing on behalf of the
// destination domain and returns its output or a reason it was refused.
type BoundaryHandler func(ec ExecutionContext, bc BoundaryCrossing) (Output, error)

// CrossBoundary is the default BoundaryHandler: it simply performs the
// wrapped effect against dest's runtime. Domain adapters with additional
// requirements (a signature over Witness, a quota check) wrap this with
// their own BoundaryHandler instead of replacing it outright.
func CrossBoundary(dest *Runtime) BoundaryHandler {
	return func(ec ExecutionContext, bc BoundaryCrossing) (Output, error) {
		ec.Domain = bc.Destination
		return dest.Perform(ec, bc.Effect)
	}
}
