package orchestrator

import (
	"io"

	"github.com/ShayCichocki/kiln/internal/config"
	iexec "github.com/ShayCichocki/kiln/internal/exec"
	"github.com/ShayCichocki/kiln/internal/report"
	"github.com/ShayCichocki/kiln/internal/scan"
	"github.com/ShayCichocki/kiln/internal/state"
)

// RequiredConfig contains the minimal required configuration for a Builder.
type RequiredConfig struct {
	// SourceDir is the root of the C/C++ tree.
	SourceDir string
	// OutputDir receives objects, binaries and the snapshot.
	OutputDir string
}

// Option configures a Builder. Use With* functions to create Options.
type Option func(*builderOptions)

// builderOptions holds all optional configuration.
type builderOptions struct {
	marker      string
	compiler    string
	toolchain   config.ToolchainConfig
	jobs        int
	testPattern string
	cacheSize   int

	reporter   report.Reporter
	logger     *DebugLogger
	execRunner iexec.CommandRunner
	history    state.HistoryStore
	snapshots  state.SnapshotStore
	testStdout io.Writer
	testStderr io.Writer
}

func defaultOptions() *builderOptions {
	d := config.Default()
	return &builderOptions{
		marker:      d.Paths.Marker,
		compiler:    d.Toolchain.Compiler,
		toolchain:   d.Toolchain,
		jobs:        d.Build.Jobs,
		testPattern: d.Build.TestPattern,
		cacheSize:   scan.DefaultCacheSize,
		reporter:    report.Discard,
	}
}

// WithMarker sets the file name that turns its directory into an include root.
func WithMarker(name string) Option {
	return func(o *builderOptions) { o.marker = name }
}

// WithCompiler sets the compiler command used for compiling and linking.
func WithCompiler(name string) Option {
	return func(o *builderOptions) { o.compiler = name }
}

// WithToolchain sets the language standard and flag profiles.
func WithToolchain(tc config.ToolchainConfig) Option {
	return func(o *builderOptions) { o.toolchain = tc }
}

// WithJobs bounds concurrent compiles. Zero means one per CPU.
func WithJobs(n int) Option {
	return func(o *builderOptions) { o.jobs = n }
}

// WithTestPattern sets the regular expression that marks test sources.
func WithTestPattern(pattern string) Option {
	return func(o *builderOptions) { o.testPattern = pattern }
}

// WithCacheSize bounds the number of file bodies kept in memory per run.
func WithCacheSize(n int) Option {
	return func(o *builderOptions) { o.cacheSize = n }
}

// WithReporter sets where progress lines go.
func WithReporter(r report.Reporter) Option {
	return func(o *builderOptions) { o.reporter = r }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *builderOptions) { o.logger = l }
}

// WithExecRunner sets the command execution runner.
func WithExecRunner(r iexec.CommandRunner) Option {
	return func(o *builderOptions) { o.execRunner = r }
}

// WithHistory records every run in the given store.
func WithHistory(h state.HistoryStore) Option {
	return func(o *builderOptions) { o.history = h }
}

// WithSnapshotStore replaces the default <output>/buildInfo.json store
// (mainly for testing).
func WithSnapshotStore(s state.SnapshotStore) Option {
	return func(o *builderOptions) { o.snapshots = s }
}

// WithTestOutput attaches test binaries to the given writers.
func WithTestOutput(stdout, stderr io.Writer) Option {
	return func(o *builderOptions) {
		o.testStdout = stdout
		o.testStderr = stderr
	}
}

// FromConfig translates loaded configuration into a RequiredConfig and
// the matching options. The compiler honours CXX.
func FromConfig(cfg *config.Config) (RequiredConfig, []Option) {
	compiler, _ := config.ResolveCompiler(cfg)
	req := RequiredConfig{
		SourceDir: cfg.Paths.Source,
		OutputDir: cfg.Paths.Output,
	}
	opts := []Option{
		WithMarker(cfg.Paths.Marker),
		WithCompiler(compiler),
		WithToolchain(cfg.Toolchain),
		WithJobs(cfg.Build.Jobs),
		WithTestPattern(cfg.Build.TestPattern),
	}
	return req, opts
}
