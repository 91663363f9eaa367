package orchestrator

import (
	"context"
	"time"

	"github.com/ShayCichocki/kiln/internal/state"
)

// startHistory opens a run record. Runs left in the running state by a
// killed process are marked interrupted first. Returns a detached record
// when history is disabled or unavailable.
func (b *Builder) startHistory(res *Result) *state.Run {
	rec := &state.Run{
		ID:          res.RunID,
		Mode:        res.Request.Mode(),
		FullRebuild: res.Request.FullRebuild,
		Status:      state.RunRunning,
		StartedAt:   time.Now(),
	}
	h := b.opts.history
	if h == nil {
		return rec
	}
	if stale, err := h.MarkInterrupted(); err != nil {
		debugLog("history: mark interrupted: %v", err)
	} else if len(stale) > 0 {
		debugLog("history: marked %d stale runs interrupted", len(stale))
	}
	if err := h.StartRun(rec); err != nil {
		debugLog("history: %v", err)
	}
	return rec
}

func (b *Builder) finishHistory(rec *state.Run, res *Result) {
	rec.Compiled = len(res.Compiles)
	rec.CompileFailures = len(res.CompileFailures())
	rec.Linked = len(res.Links)
	rec.LinkFailures = len(res.LinkFailures())
	if res.Tests != nil {
		rec.TestsPassed = res.Tests.Passed
		rec.TestsFailed = res.Tests.Failed
	}
	rec.Status = res.Status()
	rec.Failures = res.failures()
	b.saveHistory(rec)
}

// abortHistory records a run that stopped before producing a result.
func (b *Builder) abortHistory(ctx context.Context, rec *state.Run, err error) {
	rec.Status = state.RunAborted
	if ctx.Err() != nil {
		rec.Status = state.RunInterrupted
	}
	debugLog("run %s: %s: %v", rec.ID, rec.Status, err)
	b.saveHistory(rec)
}

func (b *Builder) saveHistory(rec *state.Run) {
	if b.opts.history == nil {
		return
	}
	now := time.Now()
	rec.FinishedAt = &now
	if err := b.opts.history.FinishRun(rec); err != nil {
		debugLog("history: %v", err)
	}
}
