package gonewton_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/dual"

	"github.com/njchilds90/gonewton"
)

func mustPair(t *testing.T, f1, f2 string) gonewton.EquationPair {
	t.Helper()
	pair, err := gonewton.ParsePair(f1, f2)
	require.NoError(t, err)
	return pair
}

func TestJacobian_Entries(t *testing.T) {
	sys, err := gonewton.Build(mustPair(t, "x^2 + y^2 - 4", "x*y - 1"))
	require.NoError(t, err)

	want := [2][2]string{{"2*x", "2*y"}, {"y", "x"}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			require.Equal(t, want[i][j], sys.Jacobian.Get(i, j).String(), "J[%d][%d]", i, j)
		}
	}
	require.Equal(t, "[[2*x, 2*y], [y, x]]", sys.Jacobian.String())
}

func TestJacobian_Det(t *testing.T) {
	sys, err := gonewton.Build(mustPair(t, "x^2 + y^2 - 4", "x - y"))
	require.NoError(t, err)
	require.Equal(t, "-2*x - 2*y", sys.Jacobian.Det().String())
}

func TestJacobian_ConstantForLinearSystem(t *testing.T) {
	sys, err := gonewton.Build(mustPair(t, "x + y - 3", "x - y - 1"))
	require.NoError(t, err)
	for _, p := range [][2]float64{{0, 0}, {5, -7}, {1e6, 3}} {
		j, err := sys.Eval.J(p[0], p[1])
		require.NoError(t, err)
		require.Equal(t, [2][2]float64{{1, 1}, {1, -1}}, j)
	}
}

// The compiled Jacobian must agree with forward-mode automatic
// differentiation of the same functions.
func TestJacobian_MatchesDualNumbers(t *testing.T) {
	sys, err := gonewton.Build(mustPair(t,
		"x^2*sin(y) + exp(x*y) - 3",
		"sqrt(x^2 + y^2) + cos(x)*y^3 - x/y",
	))
	require.NoError(t, err)

	f1 := func(x, y dual.Number) dual.Number {
		return dual.Add(dual.Add(dual.Mul(dual.PowReal(x, 2), dual.Sin(y)), dual.Exp(dual.Mul(x, y))), dual.Number{Real: -3})
	}
	f2 := func(x, y dual.Number) dual.Number {
		r := dual.Sqrt(dual.Add(dual.PowReal(x, 2), dual.PowReal(y, 2)))
		c := dual.Mul(dual.Cos(x), dual.PowReal(y, 3))
		q := dual.Mul(dual.Number{Real: -1}, dual.Mul(x, dual.Inv(y)))
		return dual.Add(dual.Add(r, c), q)
	}

	for _, p := range [][2]float64{{1.2, 0.7}, {-0.5, 2.0}, {2.0, -1.3}} {
		x, y := p[0], p[1]
		got, err := sys.Eval.J(x, y)
		require.NoError(t, err)

		dx := [2]dual.Number{{Real: x, Emag: 1}, {Real: y}}
		dy := [2]dual.Number{{Real: x}, {Real: y, Emag: 1}}
		want := [2][2]float64{
			{f1(dx[0], dx[1]).Emag, f1(dy[0], dy[1]).Emag},
			{f2(dx[0], dx[1]).Emag, f2(dy[0], dy[1]).Emag},
		}
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				require.InDelta(t, want[i][j], got[i][j], 1e-9*math.Max(1, math.Abs(want[i][j])), "J[%d][%d] at (%g, %g)", i, j, x, y)
			}
		}

		v1, err := sys.Eval.F1(x, y)
		require.NoError(t, err)
		require.InDelta(t, f1(dx[0], dx[1]).Real, v1, 1e-12)
		v2, err := sys.Eval.F2(x, y)
		require.NoError(t, err)
		require.InDelta(t, f2(dx[0], dx[1]).Real, v2, 1e-12)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	pair := mustPair(t, "x^3 - 3*x*y^2 - 1", "3*x^2*y - y^3")
	a, err := gonewton.Build(pair)
	require.NoError(t, err)
	b, err := gonewton.Build(pair)
	require.NoError(t, err)

	require.Equal(t, a.Jacobian.String(), b.Jacobian.String())
	for _, p := range [][2]float64{{0.3, 0.4}, {-2, 1.5}} {
		ja, err := a.Eval.J(p[0], p[1])
		require.NoError(t, err)
		jb, err := b.Eval.J(p[0], p[1])
		require.NoError(t, err)
		require.Equal(t, ja, jb)
	}
}

func TestBuild_ConstructionErrors(t *testing.T) {
	x, y, z := gonewton.S("x"), gonewton.S("y"), gonewton.S("z")
	cases := []struct {
		name string
		pair gonewton.EquationPair
		msg  string
	}{
		{"free symbol", gonewton.Pair(gonewton.AddOf(x, z), y), `"z"`},
		{"missing equation", gonewton.Pair(x, nil), "both equations"},
		{"same variable", gonewton.EquationPair{F1: x, F2: y, X: "x", Y: "x"}, "distinct"},
		{"empty variable", gonewton.EquationPair{F1: x, F2: y, X: "x"}, "non-empty"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sys, err := gonewton.Build(c.pair)
			require.Nil(t, sys)
			var ce *gonewton.ConstructionError
			require.True(t, errors.As(err, &ce), "want ConstructionError, got %v", err)
			require.True(t, strings.Contains(ce.Error(), c.msg), "%q does not mention %q", ce.Error(), c.msg)
		})
	}
}

func TestBuild_CustomVariableNames(t *testing.T) {
	u, v := gonewton.S("u"), gonewton.S("v")
	pair := gonewton.EquationPair{
		F1: gonewton.Minus(gonewton.MulOf(u, v), gonewton.N(6)),
		F2: gonewton.Minus(u, gonewton.N(2)),
		X:  "u",
		Y:  "v",
	}
	sys, err := gonewton.Build(pair)
	require.NoError(t, err)
	j, err := sys.Eval.J(2, 3)
	require.NoError(t, err)
	require.Equal(t, [2][2]float64{{3, 2}, {1, 0}}, j)
}
