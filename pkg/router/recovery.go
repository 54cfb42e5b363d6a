package router

import (
	"context"

	"github.com/causalityco/causality/pkg/operation"
)

// Recover scans every registered domain for transactions left prepared
// but neither committed nor aborted, as could happen if the process
// crashed between Prepare and Commit. A prepared transaction whose
// commit fact is already in the log was
// committed everywhere that matters and just needs its remaining
// domains nudged to commit; one with no such fact is rolled back.
func (r *Router) Recover(ctx context.Context) error {
	r.mu.RLock()
	domains := make([]operation.DomainId, 0, len(r.domains))
	for id := range r.domains {
		domains = append(domains, id)
	}
	r.mu.RUnlock()

	for _, domId := range domains {
		d, err := r.domainFor(domId)
		if err != nil {
			continue
		}
		pending, err := d.PendingPrepares(ctx)
		if err != nil {
			return err
		}
		for _, txnId := range pending {
			committed, err := r.wasCommitted(ctx, txnId)
			if err != nil {
				return err
			}
			if committed {
				if _, err := d.Commit(ctx, txnId); err != nil {
					return err
				}
			} else {
				if err := d.Abort(ctx, txnId); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// wasCommitted reports whether a FactTransaction fact was already
// appended for txnId, meaning the transaction's commit decision had
// already been made durable before the crash.
func (r *Router) wasCommitted(ctx context.Context, txnId operation.ContentHash) (bool, error) {
	facts, err := r.facts.FactsFor(ctx, txnId)
	if err != nil {
		return false, err
	}
	for _, f := range facts {
		if f.Kind == operation.FactTransaction {
			return true, nil
		}
	}
	return false, nil
}
