package gonewton

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ScalarFunc is a compiled scalar function of the two system variables.
type ScalarFunc func(x, y float64) (float64, error)

// scalarFn is the closure form every node compiles to.
type scalarFn func(x, y float64) (float64, error)

// binding fixes which symbol names map to the first and second argument.
type binding struct{ x, y string }

// EvalError reports an operation that produced NaN or an infinity from finite
// inputs: division by zero, ln of a non-positive number, overflow and the like.
type EvalError struct {
	Op   string
	Args []float64
}

func (e *EvalError) Error() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = strconv.FormatFloat(a, 'g', -1, 64)
	}
	return fmt.Sprintf("gonewton: %s(%s) is not finite", e.Op, strings.Join(args, ", "))
}

func finite(op string, v float64, args ...float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &EvalError{Op: op, Args: args}
	}
	return v, nil
}

// Compile turns e into a numeric function of (x, y) where x and y name the
// symbols bound to the first and second argument. Every other free symbol is
// an error.
func Compile(e Expr, x, y string) (ScalarFunc, error) {
	fn, err := e.compile(binding{x: x, y: y})
	if err != nil {
		return nil, err
	}
	return func(xv, yv float64) (float64, error) {
		v, err := fn(xv, yv)
		if err != nil {
			return 0, err
		}
		return finite("eval", v, xv, yv)
	}, nil
}

func (n *Num) compile(binding) (scalarFn, error) {
	v := n.Float64()
	return func(float64, float64) (float64, error) { return v, nil }, nil
}

func (c *Const) compile(binding) (scalarFn, error) {
	v := c.val
	return func(float64, float64) (float64, error) { return v, nil }, nil
}

func (s *Sym) compile(b binding) (scalarFn, error) {
	switch s.name {
	case b.x:
		return func(x, _ float64) (float64, error) { return x, nil }, nil
	case b.y:
		return func(_, y float64) (float64, error) { return y, nil }, nil
	}
	return nil, fmt.Errorf("unbound symbol %q (variables are %q and %q)", s.name, b.x, b.y)
}

func compileAll(es []Expr, b binding) ([]scalarFn, error) {
	fns := make([]scalarFn, len(es))
	for i, e := range es {
		fn, err := e.compile(b)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	return fns, nil
}

func (a *Add) compile(b binding) (scalarFn, error) {
	fns, err := compileAll(a.terms, b)
	if err != nil {
		return nil, err
	}
	return func(x, y float64) (float64, error) {
		sum := 0.0
		for _, fn := range fns {
			v, err := fn(x, y)
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum, nil
	}, nil
}

func (m *Mul) compile(b binding) (scalarFn, error) {
	fns, err := compileAll(m.factors, b)
	if err != nil {
		return nil, err
	}
	return func(x, y float64) (float64, error) {
		prod := 1.0
		for _, fn := range fns {
			v, err := fn(x, y)
			if err != nil {
				return 0, err
			}
			prod *= v
		}
		return prod, nil
	}, nil
}

func (p *Pow) compile(b binding) (scalarFn, error) {
	base, err := p.base.compile(b)
	if err != nil {
		return nil, err
	}
	if n, ok := p.exp.(*Num); ok && n.val.Cmp(big.NewRat(1, 2)) == 0 {
		return func(x, y float64) (float64, error) {
			v, err := base(x, y)
			if err != nil {
				return 0, err
			}
			if v < 0 {
				return 0, &EvalError{Op: "sqrt", Args: []float64{v}}
			}
			return math.Sqrt(v), nil
		}, nil
	}
	exp, err := p.exp.compile(b)
	if err != nil {
		return nil, err
	}
	return func(x, y float64) (float64, error) {
		bv, err := base(x, y)
		if err != nil {
			return 0, err
		}
		ev, err := exp(x, y)
		if err != nil {
			return 0, err
		}
		return finite("pow", math.Pow(bv, ev), bv, ev)
	}, nil
}

var funcTable = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"asin": math.Asin,
	"acos": math.Acos,
	"atan": math.Atan,
	"sinh": math.Sinh,
	"cosh": math.Cosh,
	"tanh": math.Tanh,
	"exp":  math.Exp,
	"ln":   math.Log,
	"abs":  math.Abs,
	"sign": func(v float64) float64 {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		}
		return 0
	},
}

func (f *Func) compile(b binding) (scalarFn, error) {
	op, ok := funcTable[f.name]
	if !ok {
		return nil, fmt.Errorf("unsupported function %q", f.name)
	}
	arg, err := f.arg.compile(b)
	if err != nil {
		return nil, err
	}
	name := f.name
	return func(x, y float64) (float64, error) {
		v, err := arg(x, y)
		if err != nil {
			return 0, err
		}
		return finite(name, op(v), v)
	}, nil
}
