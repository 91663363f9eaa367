package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ShayCichocki/kiln/internal/report"
	"github.com/ShayCichocki/kiln/internal/testrun"
	"github.com/ShayCichocki/kiln/internal/toolchain"
)

// Run executes one full pipeline pass.
//
// A scan error or a canceled context returns an error and leaves the
// stored snapshot untouched. Compile, link and test failures are not
// errors: they are reported in the Result and its ExitCode.
func (b *Builder) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{RunID: uuid.New().String(), Request: req}
	debugLog("run %s: mode=%s full=%v test=%v", res.RunID, req.Mode(), req.FullRebuild, req.Test)

	rec := b.startHistory(res)

	a, err := b.Analyze(ctx, req)
	if err != nil {
		b.abortHistory(ctx, rec, err)
		return nil, err
	}
	if a.StateErr != nil {
		b.opts.reporter.Info("Ignoring unreadable build state: %v", a.StateErr)
	}
	res.Plan = a.Plan
	rec.Planned = len(a.Plan.Sources)

	compiler := &toolchain.Compiler{
		Runner:       b.runner,
		Command:      b.opts.compiler,
		Flags:        b.opts.toolchain.CompileFlags(req.Release),
		IncludeRoots: a.Tree.IncludeRoots,
		Layout:       b.layout,
		Jobs:         b.opts.jobs,
		Reporter:     b.opts.reporter,
	}
	res.Compiles, err = compiler.CompileAll(ctx, a.Plan.Sources)
	if err != nil {
		b.abortHistory(ctx, rec, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		b.abortHistory(ctx, rec, err)
		return nil, err
	}

	compileFailed := len(res.CompileFailures()) > 0
	next := a.Previous.
		WithChecksums(a.HeaderSums, a.SourceSums, req.Release).
		WithUnresolved(res.CompileFailures())

	if !compileFailed && (len(res.Compiles) > 0 || a.Previous.LinkError) {
		linker := &toolchain.Linker{
			Runner:     b.runner,
			Command:    b.opts.compiler,
			Flags:      b.opts.toolchain.LinkerFlags(),
			Layout:     b.layout,
			Classifier: b.classifier,
			Reporter:   b.opts.reporter,
		}
		res.LinkAttempted = true
		res.Links = linker.LinkAll(ctx, a.Targets, a.Tree.Sources)
		if err := ctx.Err(); err != nil {
			b.abortHistory(ctx, rec, err)
			return nil, err
		}
		next = next.WithLinkError(len(res.LinkFailures()) > 0)
	}

	buildFailed := res.BuildFailed()
	next = next.WithOutcome(buildFailed)
	res.Snapshot = next

	if err := b.snapshots.Save(next); err != nil {
		res.SaveErr = fmt.Errorf("save build state: %w", err)
		debugLog("state: %v", res.SaveErr)
		b.opts.reporter.Info("Could not save build state: %v", err)
	}

	if buildFailed {
		b.opts.reporter.Banner(false, report.FailureStreak(next.Fails))
	} else {
		b.opts.reporter.Banner(true, "Build successful")
	}

	if !buildFailed && req.Test {
		tr := &testrun.Runner{
			Exec:     b.runner,
			Stdout:   b.opts.testStdout,
			Stderr:   b.opts.testStderr,
			Reporter: b.opts.reporter,
		}
		summary := tr.Run(ctx, a.Targets)
		res.Tests = &summary
	}

	b.finishHistory(rec, res)
	debugLog("run %s: finished, exit code %d", res.RunID, res.ExitCode())
	return res, nil
}
