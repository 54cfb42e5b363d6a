package router

import "github.com/causalityco/causality/pkg/operation"

// RoutingPolicy decides which domain an operation executes against when
// op.Context.Domain doesn't already pin one. The default FixedPolicy just honors whatever the caller set; a multi-domain deployment
// can supply its own (sharding by resource type, load, locality).
type RoutingPolicy interface {
	Route(op *operation.Operation) (operation.DomainId, error)
}

// FixedPolicy routes every operation to whatever domain its Context
// already names.
type FixedPolicy struct{}

// Route implements RoutingPolicy.
func (FixedPolicy) Route(op *operation.Operation) (operation.DomainId, error) {
	return op.Context.Domain, nil
}
