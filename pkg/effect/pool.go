package effect

import "golang.org/x/sync/errgroup"

// Pool runs many independent effects against a shared Runtime with bounded
// concurrency, for callers that need to fan a slice of effects out without
// running more than a fixed number of them at once.
type Pool struct {
	rt    *Runtime
	limit int
}

// NewPool returns a Pool bounded to at most limit concurrent Perform
// calls. limit <= 0 means unbounded.
func NewPool(rt *Runtime, limit int) *Pool {
	return &Pool{rt: rt, limit: limit}
}

// Job pairs an effect with the execution context it should run under.
type Job struct {
	EC     ExecutionContext
	Effect Effect
}

// RunAll performs every job and returns outputs in the same order as
// jobs, or the first error encountered (errgroup fail-fast semantics).
func (p *Pool) RunAll(jobs []Job) ([]Output, error) {
	outs := make([]Output, len(jobs))
	g := new(errgroup.Group)
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			out, err := p.rt.Perform(job.EC, job.Effect)
			if err != nil {
				return err
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}
