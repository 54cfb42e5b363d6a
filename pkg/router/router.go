// Package router implements the router/executor: the single-domain
// submission path (validate, lock, execute, append facts, unlock) and the
// cross-domain two-phase commit path, plus startup recovery for
// transactions left prepared-but-unresolved by a crash.
package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/causalityco/causality/pkg/capability"
	"github.com/causalityco/causality/pkg/domain"
	"github.com/causalityco/causality/pkg/factlog"
	"github.com/causalityco/causality/pkg/operation"
	"github.com/causalityco/causality/pkg/resource"
	"github.com/causalityco/causality/pkg/validator"
)

// Router wires the core components into a single submission surface.
type Router struct {
	mu      sync.RWMutex
	domains map[operation.DomainId]domain.Adapter

	resources *resource.Manager
	facts     *factlog.Log
	pipeline  *validator.Pipeline
	policy    RoutingPolicy
}

// New constructs a Router against the given resource/fact/validation
// components, using FixedPolicy unless overridden with SetPolicy.
func New(resources *resource.Manager, facts *factlog.Log, pipeline *validator.Pipeline) *Router {
	return &Router{
		domains:   make(map[operation.DomainId]domain.Adapter),
		resources: resources,
		facts:     facts,
		pipeline:  pipeline,
		policy:    FixedPolicy{},
	}
}

// SetPolicy overrides the router's RoutingPolicy.
func (r *Router) SetPolicy(p RoutingPolicy) { r.policy = p }

// RegisterDomain makes adapter reachable for routing under its own
// DomainId.
func (r *Router) RegisterDomain(adapter domain.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.domains[adapter.DomainId()] = adapter
}

func (r *Router) domainFor(id operation.DomainId) (domain.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.domains[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDomainUnavailable, id)
	}
	return d, nil
}

// Submit runs the single-domain path for one operation: validate, lock
// its inputs in canonical hash order, execute against the owning
// domain, append the resulting facts, then release the locks.
func (r *Router) Submit(ctx context.Context, op *operation.Operation) ([]*operation.Fact, error) {
	report := r.pipeline.Validate(ctx, op)
	if !report.Valid {
		return nil, fmt.Errorf("%w: %+v", ErrValidationFailed, report.Issues)
	}

	domId, err := r.policy.Route(op)
	if err != nil {
		return nil, err
	}
	d, err := r.domainFor(domId)
	if err != nil {
		return nil, err
	}

	unlock := r.resources.LockTable().LockMany(op.Inputs)
	defer unlock()

	// A capability can be revoked in the window between the validation
	// above and the lock being held; re-check right before execution so a
	// revoke-after-validate never reaches the domain adapter.
	if err := r.reverifyCapabilities(op); err != nil {
		return nil, err
	}

	facts, err := d.Execute(ctx, op)
	if err != nil {
		return nil, err
	}

	txnFact := &operation.Fact{
		Kind:         operation.FactOperation,
		Subject:      op.Id,
		Timestamp:    op.Context.ObservedTemporalSnapshot,
		OriginDomain: op.Context.Domain,
	}
	if _, err := r.facts.Append(ctx, txnFact); err != nil {
		return nil, err
	}
	return append(facts, txnFact), nil
}

// reverifyCapabilities redoes the authorization stage's check against the
// live capability registry, so a capability revoked after Validate but
// before the operation actually commits is caught instead of silently
// honored.
func (r *Router) reverifyCapabilities(op *operation.Operation) error {
	right, needed := validator.RequiredRight(op.OpType.Kind)
	if !needed {
		return nil
	}
	for _, in := range op.Inputs {
		authorized := false
		for _, c := range op.Capabilities {
			if r.pipeline.Capabilities.Verify(c.Id, capability.VerifyRequest{
				Rights:    []operation.Right{right},
				Resource:  in,
				Domain:    op.Context.Domain,
				WallClock: op.Context.ObservedTemporalSnapshot.WallClock,
			}) == nil {
				authorized = true
				break
			}
		}
		if !authorized {
			return fmt.Errorf("%w: capability no longer authorizes %s over %s at commit time", ErrValidationFailed, right, in)
		}
	}
	return nil
}

// allInputs collects every input content hash across a transaction's
// operations, for locking them all up front in one hash-ordered pass.
func allInputs(txn *operation.Transaction) []operation.ContentHash {
	var out []operation.ContentHash
	for _, op := range txn.Operations {
		out = append(out, op.Inputs...)
	}
	return out
}

// SubmitTransaction runs the cross-domain two-phase commit path:
// partition operations by domain, lock every touched resource in
// canonical hash order, prepare every domain, and only if every prepare
// voted yes commit them all; otherwise abort every domain that had
// prepared.
func (r *Router) SubmitTransaction(ctx context.Context, txn *operation.Transaction) ([]*operation.Fact, error) {
	report := r.pipeline.ValidateTransaction(ctx, txn)
	if !report.Valid {
		return nil, fmt.Errorf("%w: %+v", ErrValidationFailed, report.Issues)
	}

	txnId := txn.Id()

	unlock := r.resources.LockTable().LockMany(allInputs(txn))
	defer unlock()

	byDomain := make(map[operation.DomainId][]*operation.Operation)
	for i := range txn.Operations {
		op := &txn.Operations[i]
		byDomain[op.Context.Domain] = append(byDomain[op.Context.Domain], op)
	}

	prepared := make([]operation.DomainId, 0, len(byDomain))
	for domId, ops := range byDomain {
		d, err := r.domainFor(domId)
		if err != nil {
			r.abortAll(ctx, txnId, prepared)
			return nil, err
		}
		for _, op := range ops {
			if err := r.reverifyCapabilities(op); err != nil {
				r.abortAll(ctx, txnId, append(prepared, domId))
				return nil, err
			}
			if err := d.Prepare(ctx, txnId, op); err != nil {
				r.abortAll(ctx, txnId, append(prepared, domId))
				return nil, fmt.Errorf("%w: domain %s: %v", ErrPrepareFailed, domId, err)
			}
		}
		prepared = append(prepared, domId)
	}

	var allFacts []*operation.Fact
	for _, domId := range prepared {
		d, _ := r.domainFor(domId)
		facts, err := d.Commit(ctx, txnId)
		if err != nil {
			return nil, fmt.Errorf("%w: domain %s: %v", ErrCommitFailed, domId, err)
		}
		allFacts = append(allFacts, facts...)
	}

	txnFact := &operation.Fact{
		Kind:    operation.FactTransaction,
		Subject: txnId,
	}
	if _, err := r.facts.Append(ctx, txnFact); err != nil {
		return nil, err
	}
	return append(allFacts, txnFact), nil
}

func (r *Router) abortAll(ctx context.Context, txnId operation.ContentHash, domainIds []operation.DomainId) {
	for _, id := range domainIds {
		if d, err := r.domainFor(id); err == nil {
			_ = d.Abort(ctx, txnId)
		}
	}
}
