// Package testrun executes test binaries and aggregates their results.
package testrun

import (
	"context"
	"fmt"
	"io"
	"sort"

	iexec "github.com/ShayCichocki/kiln/internal/exec"
	"github.com/ShayCichocki/kiln/internal/report"
	"github.com/ShayCichocki/kiln/internal/toolchain"
)

// Result is the outcome of one test binary.
type Result struct {
	Binary   string
	ExitCode int
	Err      error
}

// Passed reports whether the binary exited zero.
func (r Result) Passed() bool { return r.Err == nil }

// Summary aggregates a test phase.
type Summary struct {
	Results []Result
	Passed  int
	Failed  int
}

// OK reports whether every test passed.
func (s Summary) OK() bool { return s.Failed == 0 }

// Verdict phrases the outcome: all passed, all failed, or a mix.
func (s Summary) Verdict() string {
	switch {
	case s.Failed == 0:
		return "All tests passed"
	case s.Passed == 0:
		return "All tests failed"
	default:
		return fmt.Sprintf("%d tests passed, %d tests failed", s.Passed, s.Failed)
	}
}

// Runner executes test binaries with their output attached.
type Runner struct {
	Exec     iexec.CommandRunner
	Stdout   io.Writer
	Stderr   io.Writer
	Reporter report.Reporter
}

// Run executes every Test target, ordered by binary name. A failing test
// does not stop the rest.
func (r *Runner) Run(ctx context.Context, targets []toolchain.Target) Summary {
	reporter := r.Reporter
	if reporter == nil {
		reporter = report.Discard
	}
	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	var binaries []string
	for _, t := range targets {
		if t.Kind == toolchain.Test {
			binaries = append(binaries, t.Binary)
		}
	}
	sort.Strings(binaries)

	var sum Summary
	for _, bin := range binaries {
		reporter.Info("Testing %s", bin)
		var err error
		if err = ctx.Err(); err == nil {
			err = r.Exec.RunAttached(ctx, "", stdout, stderr, bin)
		}
		res := Result{Binary: bin, ExitCode: iexec.ExitCode(err), Err: err}
		reporter.Step("Test", bin, err, nil)
		if res.Passed() {
			sum.Passed++
		} else {
			sum.Failed++
		}
		sum.Results = append(sum.Results, res)
	}
	reporter.Banner(sum.OK(), sum.Verdict())
	return sum
}
