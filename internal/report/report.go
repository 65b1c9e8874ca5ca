// Package report renders solver outcomes for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/njchilds90/gonewton"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

var reasonText = map[gonewton.Reason]string{
	gonewton.EvaluationError:       "the equations could not be evaluated at the current guess",
	gonewton.SingularJacobian:      "the Jacobian is singular, the step cannot be computed",
	gonewton.MaxIterationsExceeded: "no solution within the maximum number of iterations",
}

// Render writes the solution and iteration table for a converged outcome, or
// the failure reason followed by the partial trace.
func Render(w io.Writer, out gonewton.Outcome, decimals int) error {
	if out.Found() {
		if _, err := fmt.Fprintln(w, titleStyle.Render(Solution(out.Solution, decimals))); err != nil {
			return err
		}
	} else {
		msg := "No solution found for the system: " + reasonText[out.Reason]
		if out.Err != nil {
			msg += " (" + out.Err.Error() + ")"
		}
		if _, err := fmt.Fprintln(w, failStyle.Render(msg)); err != nil {
			return err
		}
	}
	if len(out.Trace) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Iterations:"); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, Table(out.Trace, decimals))
	return err
}

// Solution formats p with the given number of decimals.
func Solution(p gonewton.Point, decimals int) string {
	return fmt.Sprintf("Solution found: x = %s, y = %s", fixed(p.X, decimals), fixed(p.Y, decimals))
}

// Table lays the trace out one pass per row.
func Table(trace []gonewton.Record, decimals int) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Iteration", "x", "y", "f1(x, y)", "f2(x, y)").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range trace {
		t.Row(
			strconv.Itoa(r.Iteration),
			fixed(r.X, decimals),
			fixed(r.Y, decimals),
			fixed(r.F1, decimals),
			fixed(r.F2, decimals),
		)
	}
	return t.String()
}

func fixed(v float64, decimals int) string { return strconv.FormatFloat(v, 'f', decimals, 64) }
