package effect

import "golang.org/x/sync/errgroup"

// continuationKind discriminates Continuation's sum type.
type continuationKind uint8

const (
	contPure continuationKind = iota
	contPerform
	contAndThen
	contPar
)

// Continuation is a composable description of a sequence of effects:
// pure | perform | and_then | par. Build one with Pure, Perform, AndThen,
// or Par, then evaluate it against a Runtime with Run.
type Continuation struct {
	kind continuationKind

	pureValue Output

	effect Effect

	first Func
	bind  func(Output) Continuation

	branches []Continuation
}

// Func is a thunk producing a Continuation; AndThen's left side is a
// Func so that chains can be built lazily without evaluating earlier
// steps before the whole chain is constructed.
type Func func() Continuation

// Pure lifts a value into a Continuation that performs no effect.
func Pure(v Output) Continuation {
	return Continuation{kind: contPure, pureValue: v}
}

// Perform builds a Continuation that dispatches a single effect.
func Perform(e Effect) Continuation {
	return Continuation{kind: contPerform, effect: e}
}

// AndThen sequences first, then passes its Output to bind to produce the
// next Continuation to run.
func AndThen(first Continuation, bind func(Output) Continuation) Continuation {
	return Continuation{kind: contAndThen, first: func() Continuation { return first }, bind: bind}
}

// Par runs every branch concurrently and succeeds only if all do,
// mirroring errgroup's fail-fast-on-first-error semantics.
func Par(branches ...Continuation) Continuation {
	return Continuation{kind: contPar, branches: branches}
}

// Run evaluates c against rt, performing every effect it describes.
func Run(ec ExecutionContext, rt *Runtime, c Continuation) (Output, error) {
	switch c.kind {
	case contPure:
		return c.pureValue, nil

	case contPerform:
		return rt.Perform(ec, c.effect)

	case contAndThen:
		out, err := Run(ec, rt, c.first())
		if err != nil {
			return Output{}, err
		}
		return Run(ec, rt, c.bind(out))

	case contPar:
		outs := make([]Output, len(c.branches))
		g, gctx := errgroup.WithContext(ec.Context)
		for i, branch := range c.branches {
			i, branch := i, branch
			g.Go(func() error {
				branchEC := ec
				branchEC.Context = gctx
				out, err := Run(branchEC, rt, branch)
				if err != nil {
					return err
				}
				outs[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Output{}, err
		}
		return mergeOutputs(outs), nil

	default:
		return Output{}, ErrAborted
	}
}

// mergeOutputs concatenates parallel branch outputs in branch order, so
// that a Par continuation's result is deterministic regardless of which
// goroutine happened to finish first.
func mergeOutputs(outs []Output) Output {
	var total int
	for _, o := range outs {
		total += len(o.Data)
	}
	merged := make([]byte, 0, total)
	for _, o := range outs {
		merged = append(merged, o.Data...)
	}
	return Output{Data: merged}
}
