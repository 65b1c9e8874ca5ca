package gonewton_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gonewton"
)

func solve(t *testing.T, f1, f2 string, guess gonewton.Point, opts gonewton.Options) gonewton.Outcome {
	t.Helper()
	out, err := gonewton.Solve(mustPair(t, f1, f2), guess, opts)
	require.NoError(t, err)
	return out
}

func TestIterate_Identity(t *testing.T) {
	out := solve(t, "x", "y", gonewton.Point{X: 1, Y: 2}, gonewton.Options{})
	require.Equal(t, gonewton.Converged, out.Reason)
	require.True(t, out.Found())
	require.Equal(t, gonewton.Point{X: 0, Y: 0}, out.Solution)

	// The first pass steps straight to the root; the second takes a zero
	// step and confirms it.
	require.Len(t, out.Trace, 2)
	require.Equal(t, gonewton.Record{Iteration: 1, X: 1, Y: 2, F1: 1, F2: 2}, out.Trace[0])
	require.Equal(t, gonewton.Record{Iteration: 2}, out.Trace[1])
}

func TestIterate_StartingAtRoot(t *testing.T) {
	out := solve(t, "x", "y", gonewton.Point{}, gonewton.Options{})
	require.True(t, out.Found())
	require.Len(t, out.Trace, 1)
}

func TestIterate_LinearSystem(t *testing.T) {
	// Convergence is judged on the step, so the exact jump to the root in
	// pass 1 is only accepted after the zero step of pass 2.
	out := solve(t, "x + y - 3", "x - y - 1", gonewton.Point{}, gonewton.Options{})
	require.True(t, out.Found())
	require.InDelta(t, 2, out.Solution.X, 1e-12)
	require.InDelta(t, 1, out.Solution.Y, 1e-12)
	require.Len(t, out.Trace, 2)
	require.Equal(t, gonewton.Record{Iteration: 1, X: 0, Y: 0, F1: -3, F2: -1}, out.Trace[0])
}

func TestIterate_CircleAndLine(t *testing.T) {
	out := solve(t, "x^2 + y^2 - 4", "x - y", gonewton.Point{X: 1, Y: 0.5}, gonewton.Options{})
	require.True(t, out.Found())
	require.InDelta(t, math.Sqrt2, out.Solution.X, 1e-9)
	require.InDelta(t, math.Sqrt2, out.Solution.Y, 1e-9)

	require.NotEmpty(t, out.Trace)
	require.Equal(t, gonewton.Record{Iteration: 1, X: 1, Y: 0.5, F1: -2.75, F2: 0.5}, out.Trace[0])
	for i, r := range out.Trace {
		require.Equal(t, i+1, r.Iteration)
	}
	last := out.Trace[len(out.Trace)-1]
	require.InDelta(t, out.Solution.X, last.X, gonewton.DefaultTolerance)
	require.InDelta(t, out.Solution.Y, last.Y, gonewton.DefaultTolerance)
	require.Less(t, last.Residual(), 1e-6)
}

func TestIterate_RecordsPreUpdateGuess(t *testing.T) {
	ev := gonewton.Evaluators{
		F1: func(x, y float64) (float64, error) { return x - 1, nil },
		F2: func(x, y float64) (float64, error) { return y - 1, nil },
		J: func(x, y float64) ([2][2]float64, error) {
			return [2][2]float64{{1, 0}, {0, 1}}, nil
		},
	}
	// A step of 1 is below this tolerance, so the first pass converges.
	out := gonewton.Iterate(ev, gonewton.Point{}, gonewton.Options{Tolerance: 10})
	require.True(t, out.Found())
	require.Equal(t, gonewton.Point{X: 1, Y: 1}, out.Solution)
	require.Equal(t, []gonewton.Record{{Iteration: 1, X: 0, Y: 0, F1: -1, F2: -1}}, out.Trace)
}

func TestIterate_SingularJacobian(t *testing.T) {
	out := solve(t, "x", "x", gonewton.Point{X: 1, Y: 1}, gonewton.Options{})
	require.Equal(t, gonewton.SingularJacobian, out.Reason)
	require.False(t, out.Found())
	require.Empty(t, out.Trace)
	require.Error(t, out.Err)
	require.True(t, gonewton.IsSingular(out.Err))
}

func TestIterate_TinyJacobianIsNotSingular(t *testing.T) {
	// det J = 1e-400 underflows to zero, but both pivots are non-zero.
	const s = 1e-200
	ev := gonewton.Evaluators{
		F1: func(x, y float64) (float64, error) { return s * (x - 1), nil },
		F2: func(x, y float64) (float64, error) { return s * (y - 1), nil },
		J: func(x, y float64) ([2][2]float64, error) {
			return [2][2]float64{{s, 0}, {0, s}}, nil
		},
	}
	out := gonewton.Iterate(ev, gonewton.Point{}, gonewton.Options{})
	require.Equal(t, gonewton.Converged, out.Reason, "err: %v", out.Err)
	require.Equal(t, gonewton.Point{X: 1, Y: 1}, out.Solution)
	require.Len(t, out.Trace, 2)
}

func TestIterate_SingularAfterProgress(t *testing.T) {
	// J = [[2x, 0], [0, 1]] is singular once x reaches 0.
	calls := 0
	ev := gonewton.Evaluators{
		F1: func(x, y float64) (float64, error) { return x*x + 1, nil },
		F2: func(x, y float64) (float64, error) { return y, nil },
		J: func(x, y float64) ([2][2]float64, error) {
			calls++
			if calls == 3 {
				return [2][2]float64{{0, 0}, {0, 1}}, nil
			}
			return [2][2]float64{{2 * x, 0}, {0, 1}}, nil
		},
	}
	out := gonewton.Iterate(ev, gonewton.Point{X: 3, Y: 1}, gonewton.Options{})
	require.Equal(t, gonewton.SingularJacobian, out.Reason)
	require.Len(t, out.Trace, 2)
	require.Contains(t, out.Err.Error(), "iteration 3")
}

func TestIterate_MaxIterationsExceeded(t *testing.T) {
	out := solve(t, "x^2 - 2", "y^2 - 3", gonewton.Point{X: 10, Y: 10}, gonewton.Options{MaxIterations: 1})
	require.Equal(t, gonewton.MaxIterationsExceeded, out.Reason)
	require.NoError(t, out.Err)
	require.Equal(t, []gonewton.Record{{Iteration: 1, X: 10, Y: 10, F1: 98, F2: 97}}, out.Trace)
}

func TestIterate_DefaultOptions(t *testing.T) {
	// Newton on exp(x) steps by exactly -1 forever.
	out := solve(t, "exp(x)", "y", gonewton.Point{X: 0.5, Y: 0}, gonewton.Options{})
	require.Equal(t, gonewton.MaxIterationsExceeded, out.Reason)
	require.Len(t, out.Trace, gonewton.DefaultMaxIterations)
	require.InDelta(t, 0.5-float64(gonewton.DefaultMaxIterations-1), out.Trace[len(out.Trace)-1].X, 1e-9)

	negative := solve(t, "exp(x)", "y", gonewton.Point{X: 0.5, Y: 0}, gonewton.Options{Tolerance: -1, MaxIterations: -5})
	require.Equal(t, out.Trace, negative.Trace)
}

func TestIterate_EvaluationError(t *testing.T) {
	out := solve(t, "1/x + y", "y - 2", gonewton.Point{X: 0, Y: 1}, gonewton.Options{})
	require.Equal(t, gonewton.EvaluationError, out.Reason)
	require.Empty(t, out.Trace)

	var evalErr *gonewton.EvalError
	require.True(t, errors.As(out.Err, &evalErr), "want EvalError, got %v", out.Err)
	require.Equal(t, "pow", evalErr.Op)
	require.True(t, strings.HasPrefix(out.Err.Error(), "iteration 1: f1:"), out.Err.Error())
}

func TestIterate_EvaluationErrorKeepsPartialTrace(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	ev := gonewton.Evaluators{
		F1: func(x, y float64) (float64, error) {
			calls++
			if calls == 3 {
				return 0, boom
			}
			return x*x - 2, nil
		},
		F2: func(x, y float64) (float64, error) { return y, nil },
		J: func(x, y float64) ([2][2]float64, error) {
			return [2][2]float64{{2 * x, 0}, {0, 1}}, nil
		},
	}
	out := gonewton.Iterate(ev, gonewton.Point{X: 4, Y: 1}, gonewton.Options{})
	require.Equal(t, gonewton.EvaluationError, out.Reason)
	require.Len(t, out.Trace, 2)
	require.ErrorIs(t, out.Err, boom)
}

func TestIterate_TighterToleranceNeverStopsEarlier(t *testing.T) {
	pair := mustPair(t, "x^2 + y^2 - 4", "x - y")
	sys, err := gonewton.Build(pair)
	require.NoError(t, err)

	prev := 0
	for _, tol := range []float64{1e-2, 1e-4, 1e-7, 1e-10, 1e-12} {
		out := sys.Iterate(gonewton.Point{X: 1, Y: 0.5}, gonewton.Options{Tolerance: tol})
		require.True(t, out.Found(), "tolerance %g", tol)
		require.GreaterOrEqual(t, len(out.Trace), prev, "tolerance %g", tol)
		prev = len(out.Trace)
	}
}

func TestIterate_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	out := solve(t, "x + y - 3", "x - y - 1", gonewton.Point{}, gonewton.Options{Logger: logger})
	require.True(t, out.Found())

	logs := buf.String()
	require.Equal(t, len(out.Trace), strings.Count(logs, "msg=\"newton step\""))
	require.Contains(t, logs, "msg=converged")
}

func TestReason_String(t *testing.T) {
	require.Equal(t, "converged", gonewton.Converged.String())
	require.Equal(t, "evaluation_error", gonewton.EvaluationError.String())
	require.Equal(t, "singular_jacobian", gonewton.SingularJacobian.String())
	require.Equal(t, "max_iterations_exceeded", gonewton.MaxIterationsExceeded.String())
}
