package orchestrator

import (
	"github.com/ShayCichocki/kiln/internal/plan"
	"github.com/ShayCichocki/kiln/internal/state"
	"github.com/ShayCichocki/kiln/internal/testrun"
	"github.com/ShayCichocki/kiln/internal/toolchain"
)

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Request  Request
	Plan     *plan.Plan
	Compiles []toolchain.CompileResult
	// LinkAttempted is false when linking was skipped, either because
	// nothing was compiled or because a compile failed.
	LinkAttempted bool
	Links         []toolchain.LinkResult
	// Tests is nil when tests were not run.
	Tests *testrun.Summary
	// Snapshot is the state persisted for the next run.
	Snapshot state.Snapshot
	// SaveErr is set when the snapshot could not be written.
	SaveErr error
}

// CompileFailures returns the sources whose compile failed.
func (r *Result) CompileFailures() []string {
	var out []string
	for _, c := range r.Compiles {
		if c.Failed() {
			out = append(out, c.Source)
		}
	}
	return out
}

// LinkFailures returns the binaries whose link failed.
func (r *Result) LinkFailures() []string {
	var out []string
	for _, l := range r.Links {
		if l.Failed() {
			out = append(out, l.Target.Binary)
		}
	}
	return out
}

// BuildFailed reports a compile or link failure.
func (r *Result) BuildFailed() bool {
	return len(r.CompileFailures()) > 0 || len(r.LinkFailures()) > 0
}

// OK reports whether the run succeeded, tests included.
func (r *Result) OK() bool {
	if r.BuildFailed() {
		return false
	}
	return r.Tests == nil || r.Tests.OK()
}

// ExitCode maps the result to the process exit status.
func (r *Result) ExitCode() int {
	if r == nil || !r.OK() {
		return 1
	}
	return 0
}

// Status returns the history status of a finished run.
func (r *Result) Status() state.RunStatus {
	if r.OK() {
		return state.RunSucceeded
	}
	return state.RunFailed
}

func (r *Result) failures() []state.Failure {
	var out []state.Failure
	for _, s := range r.CompileFailures() {
		out = append(out, state.Failure{Kind: state.FailureCompile, Path: s})
	}
	for _, b := range r.LinkFailures() {
		out = append(out, state.Failure{Kind: state.FailureLink, Path: b})
	}
	if r.Tests != nil {
		for _, t := range r.Tests.Results {
			if !t.Passed() {
				out = append(out, state.Failure{Kind: state.FailureTest, Path: t.Binary})
			}
		}
	}
	return out
}
