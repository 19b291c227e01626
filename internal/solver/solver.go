// Package solver invokes the external factorization solver and parses
// its per-dimension error output.
//
// The solver is a black box: it gets a training file, a test file, and
// hyperparameters, and reports a train and test error per dimension.
// Invocation is synchronous with no in-package retry or timeout - the
// caller owns cancellation through the context.
package solver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Params configures one solver sweep over a dimension range.
type Params struct {
	TrainPath  string
	TestPath   string
	Iterations int
	DimStart   int // first dimension, inclusive
	DimEnd     int // last dimension, inclusive
	InitStdev  float64
	UseBias    bool // global and per-feature bias terms
}

// Result is the solver's error report for one dimension.
type Result struct {
	Dim        int
	TrainError float64
	TestError  float64
}

// RunError reports a failed or unreadable solver invocation. It is
// fatal for the step; re-run policy belongs to whatever drives the
// pipeline.
type RunError struct {
	Cmd    string
	Stderr string
	Err    error
}

func (e *RunError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("solver failed: %s: %v: %s", e.Cmd, e.Err, e.Stderr)
	}
	return fmt.Sprintf("solver failed: %s: %v", e.Cmd, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Runner abstracts solver invocation so pipeline steps can be tested
// without the external binary.
type Runner interface {
	Sweep(ctx context.Context, p Params) ([]Result, error)
}

// Solver runs a libFM-compatible binary.
type Solver struct {
	Bin string // path to the solver binary
}

var _ Runner = Solver{}

// Sweep runs the solver once per dimension in [DimStart, DimEnd] and
// collects the final train and test errors, in dimension order.
func (s Solver) Sweep(ctx context.Context, p Params) ([]Result, error) {
	if p.DimEnd < p.DimStart {
		return nil, fmt.Errorf("dimension range %d-%d is empty", p.DimStart, p.DimEnd)
	}
	results := make([]Result, 0, p.DimEnd-p.DimStart+1)
	for dim := p.DimStart; dim <= p.DimEnd; dim++ {
		res, err := s.runDim(ctx, p, dim)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s Solver) runDim(ctx context.Context, p Params, dim int) (Result, error) {
	args := dimArgs(p, dim)
	cmd := exec.CommandContext(ctx, s.Bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("invoking solver", "bin", s.Bin, "dim", dim, "iterations", p.Iterations)
	if err := cmd.Run(); err != nil {
		return Result{}, &RunError{
			Cmd:    s.Bin + " " + strings.Join(args, " "),
			Stderr: lastLines(stderr.String(), 5),
			Err:    err,
		}
	}

	res, err := ParseOutput(stdout.String(), dim)
	if err != nil {
		return Result{}, &RunError{
			Cmd: s.Bin + " " + strings.Join(args, " "),
			Err: err,
		}
	}
	slog.Info("solver finished",
		"dim", dim, "train", res.TrainError, "test", res.TestError)
	return res, nil
}

// dimArgs builds the argument list for one dimension. The dim triple
// is (global bias, per-feature bias, factors); the bias flag toggles
// the first two.
func dimArgs(p Params, dim int) []string {
	bias := 0
	if p.UseBias {
		bias = 1
	}
	return []string{
		"-task", "r",
		"-train", p.TrainPath,
		"-test", p.TestPath,
		"-iter", strconv.Itoa(p.Iterations),
		"-dim", fmt.Sprintf("%d,%d,%d", bias, bias, dim),
		"-init_stdev", strconv.FormatFloat(p.InitStdev, 'f', -1, 64),
	}
}

// lastLines returns the last n non-empty lines of s, for error
// messages that carry the tail of solver stderr.
func lastLines(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// iterLine matches the solver's per-iteration progress lines, e.g.
// "#Iter= 99  Train=0.352  Test=0.410".
var iterLine = regexp.MustCompile(`#Iter=\s*\d+\s+Train=([0-9.eE+-]+)\s+Test=([0-9.eE+-]+)`)

// ParseOutput extracts the final iteration's errors from solver stdout.
func ParseOutput(out string, dim int) (Result, error) {
	var last []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		if m := iterLine.FindStringSubmatch(scanner.Text()); m != nil {
			last = m
		}
	}
	if last == nil {
		return Result{}, fmt.Errorf("no iteration lines in solver output")
	}
	train, err := strconv.ParseFloat(last[1], 64)
	if err != nil {
		return Result{}, fmt.Errorf("train error: %w", err)
	}
	test, err := strconv.ParseFloat(last[2], 64)
	if err != nil {
		return Result{}, fmt.Errorf("test error: %w", err)
	}
	return Result{Dim: dim, TrainError: train, TestError: test}, nil
}
