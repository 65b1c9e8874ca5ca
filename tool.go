package gonewton

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ============================================================
// MCP Tool Interface
// ============================================================

// MaxToolIterations bounds max_iterations in a newton_solve call.
const MaxToolIterations = 10000

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// SolveResult is the JSON shape of an Outcome.
type SolveResult struct {
	Found      bool     `json:"found"`
	Reason     Reason   `json:"reason"`
	Solution   *Point   `json:"solution,omitempty"`
	Trace      []Record `json:"trace"`
	Iterations int      `json:"iterations"`
	Residual   *float64 `json:"last_residual,omitempty"`
	Jacobian   string   `json:"jacobian,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// NewSolveResult flattens o for encoding. jac may be nil.
func NewSolveResult(o Outcome, jac *Matrix) SolveResult {
	res := SolveResult{
		Found:      o.Found(),
		Reason:     o.Reason,
		Trace:      o.Trace,
		Iterations: len(o.Trace),
	}
	if res.Trace == nil {
		res.Trace = []Record{}
	}
	if o.Found() {
		sol := o.Solution
		res.Solution = &sol
	}
	if o.Err != nil {
		res.Error = o.Err.Error()
	}
	if jac != nil {
		res.Jacobian = jac.String()
	}
	if n := len(o.Trace); n > 0 {
		r := o.Trace[n-1].Residual()
		res.Residual = &r
	}
	return res
}

// HandleToolCall dispatches one tool request. Expression parameters may be
// JSON expression objects or strings in the syntax accepted by Parse.
func HandleToolCall(req ToolRequest) ToolResponse {
	getExpr := func(key string) (Expr, error) {
		v, ok := req.Params[key]
		if !ok {
			return nil, fmt.Errorf("missing param: %s", key)
		}
		switch val := v.(type) {
		case string:
			return Parse(val)
		case map[string]interface{}:
			return FromJSON(val)
		}
		return nil, fmt.Errorf("param %s must be a string or expression object", key)
	}
	getString := func(key string) (string, error) {
		s, ok := req.Params[key].(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	getNumber := func(key string) (float64, error) {
		v, ok := req.Params[key]
		if !ok {
			return 0, fmt.Errorf("missing param: %s", key)
		}
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("param %s must be a finite number", key)
		}
		return f, nil
	}
	getIterations := func(key string) (int, error) {
		v, ok := req.Params[key]
		if !ok {
			return DefaultMaxIterations, nil
		}
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) || f < 1 || f > MaxToolIterations {
			return 0, fmt.Errorf("param %s must be an integer in [1, %d]", key, MaxToolIterations)
		}
		return int(f), nil
	}
	exprResponse := func(e Expr) ToolResponse {
		j, _ := ToJSON(e)
		var obj interface{}
		_ = json.Unmarshal([]byte(j), &obj)
		return ToolResponse{Result: obj, String: e.String(), LaTeX: e.LaTeX()}
	}
	fail := func(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

	switch req.Tool {
	case "parse", "simplify":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return exprResponse(e.Simplify())

	case "to_latex":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return ToolResponse{LaTeX: e.LaTeX(), String: e.String()}

	case "free_symbols":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: SortedSymbols(e)}

	case "diff":
		e, err := getExpr("expr")
		if err != nil {
			return fail(err)
		}
		v, err := getString("var")
		if err != nil {
			return fail(err)
		}
		return exprResponse(Diff(e, v))

	case "jacobian":
		pair, err := toolPair(getExpr)
		if err != nil {
			return fail(err)
		}
		jac := Jacobian([]Expr{pair.F1, pair.F2}, []string{pair.X, pair.Y})
		cells := make([][]string, jac.Rows())
		for i := range cells {
			cells[i] = make([]string, jac.Cols())
			for j := range cells[i] {
				cells[i][j] = jac.Get(i, j).String()
			}
		}
		return ToolResponse{
			Result: map[string]interface{}{"entries": cells, "det": jac.Det().String()},
			String: jac.String(),
			LaTeX:  jac.LaTeX(),
		}

	case "newton_solve":
		pair, err := toolPair(getExpr)
		if err != nil {
			return fail(err)
		}
		x0, err := getNumber("x0")
		if err != nil {
			return fail(err)
		}
		y0, err := getNumber("y0")
		if err != nil {
			return fail(err)
		}
		tol := float64(DefaultTolerance)
		if _, ok := req.Params["tolerance"]; ok {
			if tol, err = getNumber("tolerance"); err != nil {
				return fail(err)
			}
		}
		maxIter, err := getIterations("max_iterations")
		if err != nil {
			return fail(err)
		}
		sys, err := Build(pair)
		if err != nil {
			return fail(err)
		}
		out := sys.Iterate(Point{X: x0, Y: y0}, Options{Tolerance: tol, MaxIterations: maxIter})
		return ToolResponse{Result: NewSolveResult(out, sys.Jacobian), String: out.Reason.String()}

	case "mcp_spec":
		return ToolResponse{Result: MCPToolSpec()}
	}
	return ToolResponse{Error: "unknown tool: " + req.Tool}
}

// toFloat accepts the number types a decoded or hand-built request carries.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// toolPair reads the system f1 = 0, f2 = 0 in x and y.
func toolPair(getExpr func(string) (Expr, error)) (EquationPair, error) {
	f1, err := getExpr("f1")
	if err != nil {
		return EquationPair{}, err
	}
	f2, err := getExpr("f2")
	if err != nil {
		return EquationPair{}, err
	}
	return Pair(f1, f2), nil
}

// ============================================================
// MCP spec
// ============================================================

func MCPToolSpec() string {
	exprArg := map[string]string{"expr": "string|object"}
	pairArgs := map[string]string{"f1": "string|object", "f2": "string|object"}
	tools := []map[string]interface{}{
		ts("parse", "Parse an expression string (^ or ** for powers) into its JSON form", []string{"expr"}, exprArg),
		ts("simplify", "Simplify a symbolic expression", []string{"expr"}, exprArg),
		ts("to_latex", "Convert to LaTeX", []string{"expr"}, exprArg),
		ts("free_symbols", "Return free symbol names", []string{"expr"}, exprArg),
		ts("diff", "Partial derivative ∂/∂var", []string{"expr", "var"}, map[string]string{"expr": "string|object", "var": "string"}),
		ts("jacobian", "2×2 Jacobian of f1, f2 in x, y", []string{"f1", "f2"}, pairArgs),
		ts("newton_solve", "Solve f1=0, f2=0 by Newton-Raphson from (x0, y0). Optional: tolerance, max_iterations (1 to 10000)",
			[]string{"f1", "f2", "x0", "y0"},
			map[string]string{"f1": "string|object", "f2": "string|object", "x0": "number", "y0": "number", "tolerance": "number", "max_iterations": "integer"}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	b, _ := json.MarshalIndent(map[string]interface{}{"tools": tools}, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		if strings.Contains(typ, "|") {
			properties[k] = map[string]interface{}{"type": strings.Split(typ, "|")}
			continue
		}
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
