package effect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func echoHandler(ec ExecutionContext, e Effect) (Output, error) {
	return Output{Data: []byte(e.Name)}, nil
}

func TestPerformDispatchesToHandler(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Register("echo", echoHandler))

	out, err := rt.Perform(ExecutionContext{Context: context.Background()}, New("echo", nil))
	require.NoError(t, err)
	require.Equal(t, []byte("echo"), out.Data)
}

func TestPerformNoHandler(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Perform(ExecutionContext{Context: context.Background()}, New("missing", nil))
	require.ErrorIs(t, err, ErrNoHandler)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Register("echo", echoHandler))
	err := rt.Register("echo", echoHandler)
	require.ErrorIs(t, err, ErrHandlerExists)
}

func TestMiddlewareRunsInOrder(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Register("noop", func(ec ExecutionContext, e Effect) (Output, error) {
		return Output{}, nil
	}))

	var trace []string
	mark := func(tag string) Middleware {
		return func(next Handler) Handler {
			return func(ec ExecutionContext, e Effect) (Output, error) {
				trace = append(trace, "in:"+tag)
				out, err := next(ec, e)
				trace = append(trace, "out:"+tag)
				return out, err
			}
		}
	}
	rt.Use(mark("a"))
	rt.Use(mark("b"))

	_, err := rt.Perform(ExecutionContext{Context: context.Background()}, New("noop", nil))
	require.NoError(t, err)
	require.Equal(t, []string{"in:a", "in:b", "out:b", "out:a"}, trace)
}

func TestContinuationAndThen(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Register("echo", echoHandler))

	c := AndThen(Perform(New("echo", nil)), func(o Output) Continuation {
		return Pure(Output{Data: append(o.Data, []byte("-more")...)})
	})

	out, err := Run(ExecutionContext{Context: context.Background()}, rt, c)
	require.NoError(t, err)
	require.Equal(t, []byte("echo-more"), out.Data)
}

func TestContinuationPar(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Register("a", func(ec ExecutionContext, e Effect) (Output, error) {
		return Output{Data: []byte("A")}, nil
	}))
	require.NoError(t, rt.Register("b", func(ec ExecutionContext, e Effect) (Output, error) {
		return Output{Data: []byte("B")}, nil
	}))

	c := Par(Perform(New("a", nil)), Perform(New("b", nil)))
	out, err := Run(ExecutionContext{Context: context.Background()}, rt, c)
	require.NoError(t, err)
	require.Equal(t, []byte("AB"), out.Data)
}

func TestPoolRunAll(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Register("echo", echoHandler))
	pool := NewPool(rt, 2)

	jobs := []Job{
		{EC: ExecutionContext{Context: context.Background()}, Effect: New("echo", nil)},
		{EC: ExecutionContext{Context: context.Background()}, Effect: New("echo", nil)},
	}
	outs, err := pool.RunAll(jobs)
	require.NoError(t, err)
	require.Len(t, outs, 2)
}

func TestCrossBoundary(t *testing.T) {
	dest := NewRuntime()
	require.NoError(t, dest.Register("echo", echoHandler))

	bh := CrossBoundary(dest)
	out, err := bh(ExecutionContext{Context: context.Background()}, BoundaryCrossing{
		Origin:      "domain-a",
		Destination: "domain-b",
		Effect:      New("echo", nil),
	})
	require.NoError(t, err)
	require.Equal(t, []byte("echo"), out.Data)
}
