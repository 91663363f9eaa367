// Package orchestrator runs the incremental build pipeline.
//
// One run walks the source tree, resolves include dependencies, checksums
// every file and compares against the stored snapshot to plan the
// compile set. Planned sources are compiled, entry-point targets are
// relinked when anything changed or the previous link failed, the new
// snapshot is written once, and test binaries run on request.
//
// The previous snapshot is never modified: each phase derives a new value
// from it, and only a completed run replaces the file on disk. Scan
// errors abort the run before anything is compiled; compile, link and test
// failures are collected and reported together.
//
// Example usage:
//
//	b, err := orchestrator.New(orchestrator.RequiredConfig{
//		SourceDir: "src",
//		OutputDir: "bin",
//	}, orchestrator.WithExecRunner(exec.NewRunner()))
//	res, err := b.Run(ctx, orchestrator.Request{Test: true})
//	os.Exit(res.ExitCode())
package orchestrator
