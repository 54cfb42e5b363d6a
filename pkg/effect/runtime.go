package effect

import (
	"fmt"
	"sync"
)

// Runtime dispatches effects to registered handlers through a shared
// middleware chain: register a Handler by name, then Run a Continuation
// that performs effects by that name.
type Runtime struct {
	mu          sync.RWMutex
	handlers    map[string]Handler
	middlewares []Middleware
}

// NewRuntime returns an empty Runtime.
func NewRuntime() *Runtime {
	return &Runtime{handlers: make(map[string]Handler)}
}

// Register installs handler for effect name. Re-registering the same
// name is an error; callers that want to replace a handler must build a
// new Runtime.
func (rt *Runtime) Register(name string, handler Handler) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, exists := rt.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrHandlerExists, name)
	}
	rt.handlers[name] = handler
	return nil
}

// Use appends middleware to the chain every Perform call passes through.
// Order matters: the first middleware registered is outermost.
func (rt *Runtime) Use(mw Middleware) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.middlewares = append(rt.middlewares, mw)
}

// Perform dispatches e to its registered handler, wrapped by the
// runtime's middleware chain.
func (rt *Runtime) Perform(ec ExecutionContext, e Effect) (Output, error) {
	rt.mu.RLock()
	handler, ok := rt.handlers[e.Name]
	middlewares := append([]Middleware(nil), rt.middlewares...)
	rt.mu.RUnlock()

	if !ok {
		return Output{}, fmt.Errorf("%w: %s", ErrNoHandler, e.Name)
	}

	return Chain(handler, middlewares...)(ec, e)
}
