package gonewton

import (
	"fmt"
	"strings"
)

// ============================================================
// Matrix: symbolic matrix
// ============================================================

type Matrix struct {
	rows, cols int
	data       [][]Expr
}

func NewMatrix(rows, cols int) *Matrix {
	data := make([][]Expr, rows)
	for i := range data {
		data[i] = make([]Expr, cols)
		for j := range data[i] {
			data[i][j] = N(0)
		}
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

func (m *Matrix) checkBounds(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("gonewton: matrix index out of range [%d,%d] for %dx%d", row, col, m.rows, m.cols))
	}
}

func (m *Matrix) Get(row, col int) Expr {
	m.checkBounds(row, col)
	return m.data[row][col]
}

func (m *Matrix) Set(row, col int, val Expr) {
	m.checkBounds(row, col)
	m.data[row][col] = val
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) String() string {
	rows := make([]string, m.rows)
	for i, row := range m.data {
		cells := make([]string, len(row))
		for j, e := range row {
			cells[j] = e.String()
		}
		rows[i] = "[" + strings.Join(cells, ", ") + "]"
	}
	return "[" + strings.Join(rows, ", ") + "]"
}

func (m *Matrix) LaTeX() string {
	rows := make([]string, m.rows)
	for i, row := range m.data {
		cells := make([]string, len(row))
		for j, e := range row {
			cells[j] = e.LaTeX()
		}
		rows[i] = strings.Join(cells, " & ")
	}
	return "\\begin{pmatrix}" + strings.Join(rows, " \\\\ ") + "\\end{pmatrix}"
}

// Det is defined for 2x2 matrices only, the one shape this package builds.
func (m *Matrix) Det() Expr {
	if m.rows != 2 || m.cols != 2 {
		panic("gonewton: Det requires a 2x2 matrix")
	}
	return Minus(MulOf(m.data[0][0], m.data[1][1]), MulOf(m.data[0][1], m.data[1][0]))
}

// Jacobian returns the len(exprs)×len(varNames) matrix of partial derivatives,
// row i holding the gradient of exprs[i].
func Jacobian(exprs []Expr, varNames []string) *Matrix {
	mat := NewMatrix(len(exprs), len(varNames))
	for i, e := range exprs {
		for j, v := range varNames {
			mat.Set(i, j, PDiff(e, v))
		}
	}
	return mat
}

// ============================================================
// Equation pairs and the Jacobian builder
// ============================================================

// EquationPair is a system f1 = 0, f2 = 0 in the variables X and Y.
type EquationPair struct {
	F1, F2 Expr
	X, Y   string
}

// Pair returns the system f1 = 0, f2 = 0 in the variables x and y.
func Pair(f1, f2 Expr) EquationPair {
	return EquationPair{F1: f1, F2: f2, X: "x", Y: "y"}
}

func (p EquationPair) String() string {
	return fmt.Sprintf("{%s = 0, %s = 0}", p.F1, p.F2)
}

// ConstructionError reports a system that cannot be turned into evaluators.
// No iteration is attempted.
type ConstructionError struct {
	Reason string
	Err    error
}

func (e *ConstructionError) Error() string {
	if e.Err == nil {
		return "gonewton: cannot build system: " + e.Reason
	}
	return "gonewton: cannot build system: " + e.Reason + ": " + e.Err.Error()
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// MatrixFunc is a compiled 2x2 matrix function of the two system variables.
type MatrixFunc func(x, y float64) ([2][2]float64, error)

// Evaluators are the compiled forms of f1, f2 and their Jacobian. All three
// take their arguments in the same (x, y) order.
type Evaluators struct {
	F1, F2 ScalarFunc
	J      MatrixFunc
}

// System is a built equation pair: the symbolic Jacobian and its evaluators.
// A System is immutable and may be iterated concurrently.
type System struct {
	Pair     EquationPair
	Jacobian *Matrix
	Eval     Evaluators
}

// Build differentiates both equations with respect to X and Y and compiles
// f1, f2 and the Jacobian [[∂f1/∂x, ∂f1/∂y], [∂f2/∂x, ∂f2/∂y]].
func Build(pair EquationPair) (*System, error) {
	if err := pair.validate(); err != nil {
		return nil, err
	}
	jac := Jacobian([]Expr{pair.F1, pair.F2}, []string{pair.X, pair.Y})

	f1, err := Compile(pair.F1, pair.X, pair.Y)
	if err != nil {
		return nil, &ConstructionError{Reason: "compile f1", Err: err}
	}
	f2, err := Compile(pair.F2, pair.X, pair.Y)
	if err != nil {
		return nil, &ConstructionError{Reason: "compile f2", Err: err}
	}
	var cells [2][2]ScalarFunc
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			fn, err := Compile(jac.Get(i, j), pair.X, pair.Y)
			if err != nil {
				return nil, &ConstructionError{Reason: fmt.Sprintf("compile J[%d][%d]", i, j), Err: err}
			}
			cells[i][j] = fn
		}
	}
	jfn := func(x, y float64) ([2][2]float64, error) {
		var out [2][2]float64
		for i := range cells {
			for j := range cells[i] {
				v, err := cells[i][j](x, y)
				if err != nil {
					return out, err
				}
				out[i][j] = v
			}
		}
		return out, nil
	}
	return &System{
		Pair:     pair,
		Jacobian: jac,
		Eval:     Evaluators{F1: f1, F2: f2, J: jfn},
	}, nil
}

func (p EquationPair) validate() error {
	if p.F1 == nil || p.F2 == nil {
		return &ConstructionError{Reason: "both equations are required"}
	}
	if p.X == "" || p.Y == "" {
		return &ConstructionError{Reason: "variable names must be non-empty"}
	}
	if p.X == p.Y {
		return &ConstructionError{Reason: fmt.Sprintf("variables must be distinct, got %q twice", p.X)}
	}
	for i, e := range []Expr{p.F1, p.F2} {
		for _, name := range SortedSymbols(e) {
			if name != p.X && name != p.Y {
				return &ConstructionError{
					Reason: fmt.Sprintf("f%d has free symbol %q outside {%s, %s}", i+1, name, p.X, p.Y),
				}
			}
		}
	}
	return nil
}
