// Package effect implements the algebraic effect runtime: effects are
// inert descriptions of an intended action, dispatched by name to a
// registered handler, composed through continuations, and threaded
// through a middleware chain before and after execution.
package effect

import (
	"context"

	"github.com/causalityco/causality/pkg/operation"
)

// Effect is an inert description of an intended side-effecting action.
// Handlers are looked up by Name; Payload carries the handler's
// arguments using the same tagged-value vocabulary as
// operation.Operation's parameters.
type Effect struct {
	Name    string
	Payload map[string]operation.Value
}

// New constructs an Effect.
func New(name string, payload map[string]operation.Value) Effect {
	return Effect{Name: name, Payload: payload}
}

// Output is a handler's successful result: opaque bytes the caller
// interprets according to the effect's name.
type Output struct {
	Data []byte
}

// ExecutionContext carries the ambient information a handler or
// middleware needs beyond the effect's own payload.
type ExecutionContext struct {
	Context   context.Context
	Domain    operation.DomainId
	Initiator operation.EntityId
	Snapshot  operation.TemporalSnapshot
}

// Handler performs one named effect and returns its output.
type Handler func(ec ExecutionContext, e Effect) (Output, error)

// Middleware wraps a Handler invocation. Middlewares run in registration
// order on the way in and reverse order on the way out, the standard net/http
// middleware-chain discipline applied to effect dispatch instead of HTTP
// requests.
type Middleware func(next Handler) Handler

// Chain composes middlewares around base, in registration order.
func Chain(base Handler, middlewares ...Middleware) Handler {
	h := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
