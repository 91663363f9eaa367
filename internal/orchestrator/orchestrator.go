package orchestrator

import (
	"context"
	"errors"
	"os"

	"github.com/ShayCichocki/kiln/internal/change"
	"github.com/ShayCichocki/kiln/internal/deps"
	iexec "github.com/ShayCichocki/kiln/internal/exec"
	"github.com/ShayCichocki/kiln/internal/graph"
	"github.com/ShayCichocki/kiln/internal/plan"
	"github.com/ShayCichocki/kiln/internal/scan"
	"github.com/ShayCichocki/kiln/internal/state"
	"github.com/ShayCichocki/kiln/internal/toolchain"
)

// Request selects what a single run does.
type Request struct {
	// FullRebuild recompiles every source regardless of checksums.
	FullRebuild bool
	// Release selects the release flag profile.
	Release bool
	// Test runs test binaries after a clean build.
	Test bool
}

// Mode names the flag profile of the request.
func (r Request) Mode() string {
	return plan.ModeName(r.Release)
}

// Builder runs the build pipeline for one source tree.
type Builder struct {
	sourceDir string
	layout    toolchain.Layout
	opts      *builderOptions

	classifier *toolchain.Classifier
	snapshots  state.SnapshotStore
	runner     iexec.CommandRunner
}

// New creates a Builder. The test pattern is compiled here so a bad
// pattern fails before any file is touched.
func New(req RequiredConfig, options ...Option) (*Builder, error) {
	if req.SourceDir == "" {
		return nil, errors.New("source directory is required")
	}
	if req.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}

	opts := defaultOptions()
	for _, opt := range options {
		opt(opts)
	}

	cls, err := toolchain.NewClassifier(opts.testPattern)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		sourceDir:  scan.Normalize(req.SourceDir),
		layout:     toolchain.Layout{OutputDir: scan.Normalize(req.OutputDir)},
		opts:       opts,
		classifier: cls,
		snapshots:  opts.snapshots,
		runner:     opts.execRunner,
	}
	if b.snapshots == nil {
		b.snapshots = state.NewStore(b.layout.OutputDir)
	}
	if b.runner == nil {
		b.runner = iexec.NewRunner()
	}
	if opts.logger != nil {
		setPackageLogger(opts.logger)
	}
	return b, nil
}

// Layout returns where the builder places its artifacts.
func (b *Builder) Layout() toolchain.Layout {
	return b.layout
}

// Analysis is everything known about the tree before compiling.
type Analysis struct {
	Tree       *scan.Tree
	Deps       *graph.Dependencies
	HeaderSums change.Sums
	SourceSums change.Sums
	// Previous is the loaded snapshot, or an empty one.
	Previous state.Snapshot
	// StateErr is set when a snapshot existed but could not be read.
	StateErr error
	Plan     *plan.Plan
	// Targets are the sources defining an entry point.
	Targets []toolchain.Target
}

// Analyze runs the phases up to and including planning. It touches
// nothing on disk.
func (b *Builder) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	tree, err := scan.Walk(b.sourceDir, b.opts.marker)
	if err != nil {
		return nil, &deps.ScanError{Path: b.sourceDir, Err: err}
	}
	debugLog("scan: %d headers, %d sources, include roots %v",
		len(tree.Headers), len(tree.Sources), tree.IncludeRoots)
	if err := b.layout.CheckObjects(tree.Sources); err != nil {
		return nil, err
	}

	cache, err := scan.NewCache(b.opts.cacheSize)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	direct, err := deps.NewResolver(tree.IncludeRoots, cache).ResolveAll(tree.Files())
	if err != nil {
		return nil, err
	}
	dependencies := graph.Build(direct)

	headerSums, err := change.Compute(cache, tree.Headers)
	if err != nil {
		return nil, err
	}
	sourceSums, err := change.Compute(cache, tree.Sources)
	if err != nil {
		return nil, err
	}

	targets, err := toolchain.FindTargets(tree.Sources, cache, b.classifier, b.layout)
	if err != nil {
		return nil, err
	}

	prev, stateErr := b.snapshots.Load()
	if stateErr != nil {
		debugLog("state: %v; starting from an empty snapshot", stateErr)
	}

	p := plan.Build(plan.Input{
		Sources:      tree.Sources,
		Headers:      tree.Headers,
		SourceSums:   sourceSums,
		HeaderSums:   headerSums,
		Previous:     prev,
		Deps:         dependencies,
		Release:      req.Release,
		FullRebuild:  req.FullRebuild,
		ObjectExists: b.objectExists,
	})
	debugLog("plan: %d of %d sources (full=%v)", len(p.Sources), len(tree.Sources), p.Full)

	return &Analysis{
		Tree:       tree,
		Deps:       dependencies,
		HeaderSums: headerSums,
		SourceSums: sourceSums,
		Previous:   prev,
		StateErr:   stateErr,
		Plan:       p,
		Targets:    targets,
	}, nil
}

func (b *Builder) objectExists(source string) bool {
	_, err := os.Stat(b.layout.ObjectPath(source))
	return err == nil
}
