// cmd/newton-raphson/main.go: interactive Newton-Raphson solver
//
// Prompts for two equations in x and y, an initial guess and the number of
// decimals to print, then shows the solution and the iteration table.
//
// Usage:
//
//	go run ./cmd/newton-raphson
//	go run ./cmd/newton-raphson -json < answers.txt
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/njchilds90/gonewton"
	"github.com/njchilds90/gonewton/internal/config"
	"github.com/njchilds90/gonewton/internal/report"
)

func main() {
	asJSON := flag.Bool("json", false, "print the outcome as JSON instead of a table")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With(slog.String("run", uuid.NewString()))

	if err := run(os.Stdin, os.Stdout, cfg, logger, *asJSON); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (p *prompter) askFloat(question string) (float64, error) {
	s, err := p.ask(question)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("initial guesses must be numbers: %w", err)
	}
	return v, nil
}

func run(in io.Reader, out io.Writer, cfg config.Config, logger *slog.Logger, asJSON bool) error {
	p := &prompter{in: bufio.NewScanner(in), out: out}

	eq1, err := p.ask("Enter the first equation (in terms of x and y): ")
	if err != nil {
		return err
	}
	eq2, err := p.ask("Enter the second equation (in terms of x and y): ")
	if err != nil {
		return err
	}
	pair, err := gonewton.ParsePair(eq1, eq2)
	if err != nil {
		return fmt.Errorf("cannot interpret the equations: %w", err)
	}
	x0, err := p.askFloat("Enter the initial guess for x: ")
	if err != nil {
		return err
	}
	y0, err := p.askFloat("Enter the initial guess for y: ")
	if err != nil {
		return err
	}
	decimals := cfg.Output.Decimals
	s, err := p.ask(fmt.Sprintf("Enter the number of decimals for the results [%d]: ", decimals))
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	if s != "" {
		if decimals, err = strconv.Atoi(s); err != nil || decimals < 0 {
			return fmt.Errorf("decimals must be a non-negative integer, got %q", s)
		}
	}
	fmt.Fprintln(out)

	logger.Info("solving", slog.String("system", pair.String()), slog.Float64("x0", x0), slog.Float64("y0", y0))
	sys, err := gonewton.Build(pair)
	if err != nil {
		return err
	}
	outcome := sys.Iterate(gonewton.Point{X: x0, Y: y0}, gonewton.Options{
		Tolerance:     cfg.Solver.Tolerance,
		MaxIterations: cfg.Solver.MaxIterations,
		Logger:        logger,
	})

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(gonewton.NewSolveResult(outcome, sys.Jacobian))
	}
	return report.Render(out, outcome, decimals)
}
