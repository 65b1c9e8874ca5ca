// Package gonewton solves systems of two nonlinear equations in two unknowns
// with the multivariate Newton-Raphson method.
//
// Equations are symbolic expressions (Expr). Build differentiates them into a
// 2x2 Jacobian and compiles f1, f2 and J into closures; Iterate runs the
// Newton-Raphson update over those closures and reports an Outcome carrying
// the per-iteration trace.
//
// Convergence is judged on the step size alone: a pass converges when every
// component of the update is below the tolerance. With an ill-conditioned
// Jacobian this can accept a point whose residual is still large; inspect
// Record.Residual when that matters.
package gonewton

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultTolerance     = 1e-7
	DefaultMaxIterations = 100
)

// Options configure one solve. Non-positive values select the defaults.
type Options struct {
	Tolerance     float64
	MaxIterations int
	// Logger receives one debug record per pass and one record on
	// termination. Nil disables logging.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 || math.IsNaN(o.Tolerance) {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Point is a guess (x, y).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// Record is the state of one completed pass, taken before the update.
type Record struct {
	Iteration int     `json:"iteration"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	F1        float64 `json:"f1"`
	F2        float64 `json:"f2"`
}

// Residual is the Euclidean norm of (F1, F2).
func (r Record) Residual() float64 { return floats.Norm([]float64{r.F1, r.F2}, 2) }

// Reason says how a solve ended.
type Reason int

const (
	Converged Reason = iota
	EvaluationError
	SingularJacobian
	MaxIterationsExceeded
)

var reasonNames = [...]string{
	Converged:             "converged",
	EvaluationError:       "evaluation_error",
	SingularJacobian:      "singular_jacobian",
	MaxIterationsExceeded: "max_iterations_exceeded",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("Reason(%d)", int(r))
	}
	return reasonNames[r]
}

func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Outcome is the result of a solve. Solution is meaningful only when Reason
// is Converged. Trace holds one record per completed pass; a pass that fails
// during evaluation or the linear solve contributes none. Err carries the
// underlying failure for EvaluationError and SingularJacobian.
type Outcome struct {
	Reason   Reason
	Solution Point
	Trace    []Record
	Err      error
}

// Found reports whether the solve converged.
func (o Outcome) Found() bool { return o.Reason == Converged }

// Iterate runs Newton-Raphson from guess. Each pass evaluates F and J at the
// current guess, solves J·delta = -F and moves to guess+delta; it stops when
// |delta_x| and |delta_y| are both below the tolerance.
func Iterate(ev Evaluators, guess Point, opts Options) Outcome {
	opts = opts.withDefaults()
	log := opts.Logger
	trace := make([]Record, 0, min(opts.MaxIterations, 16))

	for i := 1; i <= opts.MaxIterations; i++ {
		f1, f2, jv, err := evaluate(ev, guess)
		if err != nil {
			log.Warn("evaluation failed", slog.Int("iteration", i), slog.String("error", err.Error()))
			return Outcome{Reason: EvaluationError, Trace: trace, Err: fmt.Errorf("iteration %d: %w", i, err)}
		}
		delta, cond, err := newtonStep(jv, f1, f2)
		if err != nil {
			log.Warn("jacobian is singular", slog.Int("iteration", i), slog.String("error", err.Error()))
			return Outcome{Reason: SingularJacobian, Trace: trace, Err: fmt.Errorf("iteration %d: %w", i, err)}
		}
		next := Point{X: guess.X + delta.X, Y: guess.Y + delta.Y}
		trace = append(trace, Record{Iteration: i, X: guess.X, Y: guess.Y, F1: f1, F2: f2})
		log.Debug("newton step",
			slog.Int("iteration", i),
			slog.Float64("x", guess.X),
			slog.Float64("y", guess.Y),
			slog.Float64("residual", trace[len(trace)-1].Residual()),
			slog.Float64("step", floats.Norm([]float64{delta.X, delta.Y}, math.Inf(1))),
			slog.Float64("cond", cond),
		)
		if math.Abs(delta.X) < opts.Tolerance && math.Abs(delta.Y) < opts.Tolerance {
			log.Info("converged", slog.Int("iterations", i), slog.String("solution", next.String()))
			return Outcome{Reason: Converged, Solution: next, Trace: trace}
		}
		guess = next
	}
	log.Info("no convergence", slog.Int("max_iterations", opts.MaxIterations))
	return Outcome{Reason: MaxIterationsExceeded, Trace: trace}
}

func evaluate(ev Evaluators, p Point) (f1, f2 float64, j [2][2]float64, err error) {
	if f1, err = ev.F1(p.X, p.Y); err != nil {
		return 0, 0, j, fmt.Errorf("f1: %w", err)
	}
	if f2, err = ev.F2(p.X, p.Y); err != nil {
		return 0, 0, j, fmt.Errorf("f2: %w", err)
	}
	if j, err = ev.J(p.X, p.Y); err != nil {
		return 0, 0, j, fmt.Errorf("jacobian: %w", err)
	}
	return f1, f2, j, nil
}

// newtonStep solves J·delta = -F with LAPACK's gesv and returns delta with
// the 1-norm condition number of J. An exactly zero pivot or a non-finite step
// is reported as mat.ErrSingular. A tiny determinant or a large condition
// number alone is not an error.
func newtonStep(j [2][2]float64, f1, f2 float64) (Point, float64, error) {
	entries := []float64{j[0][0], j[0][1], j[1][0], j[1][1]}
	cond := mat.Cond(mat.NewDense(2, 2, append([]float64(nil), entries...)), 1)

	a := blas64.General{Rows: 2, Cols: 2, Stride: 2, Data: entries}
	b := blas64.General{Rows: 2, Cols: 1, Stride: 1, Data: []float64{-f1, -f2}}
	if !lapack64.Gesv(a, make([]int, 2), b) {
		return Point{}, cond, mat.ErrSingular
	}
	d := Point{X: b.Data[0], Y: b.Data[1]}
	if !isFinite(d.X) || !isFinite(d.Y) {
		return Point{}, cond, fmt.Errorf("%w: step %v is not finite", mat.ErrSingular, d)
	}
	return d, cond, nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Iterate runs Newton-Raphson on the built system.
func (s *System) Iterate(guess Point, opts Options) Outcome {
	return Iterate(s.Eval, guess, opts)
}

// Solve builds pair and iterates from guess. Only a *ConstructionError is
// returned as an error; every failure during iteration is reported through
// the Outcome.
func Solve(pair EquationPair, guess Point, opts Options) (Outcome, error) {
	sys, err := Build(pair)
	if err != nil {
		return Outcome{}, err
	}
	return sys.Iterate(guess, opts), nil
}

// IsSingular reports whether err comes from a singular Jacobian.
func IsSingular(err error) bool { return errors.Is(err, mat.ErrSingular) }
