package toolchain

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	iexec "github.com/ShayCichocki/kiln/internal/exec"
	"github.com/ShayCichocki/kiln/internal/report"
)

// CompileResult is the outcome of compiling one source.
type CompileResult struct {
	Source   string
	Object   string
	Output   []byte
	Err      error
	Duration time.Duration
}

// Failed reports whether the compile exited non-zero or could not start.
func (r CompileResult) Failed() bool { return r.Err != nil }

// Compiler invokes the external compiler once per source.
type Compiler struct {
	Runner       iexec.CommandRunner
	Command      string
	Flags        []string
	IncludeRoots []string
	Layout       Layout
	// Jobs bounds concurrent compiles; zero means one per CPU.
	Jobs     int
	Reporter report.Reporter
}

// Args returns the compiler arguments for source.
func (c *Compiler) Args(source string) []string {
	args := []string{"-c"}
	args = append(args, c.Flags...)
	for _, root := range c.IncludeRoots {
		args = append(args, "-I"+root)
	}
	return append(args, source, "-o", c.Layout.ObjectPath(source))
}

// CompileAll compiles every source. A failing compile never stops the
// others: all errors of a run surface together. Results are returned in
// the order of sources regardless of completion order.
func (c *Compiler) CompileAll(ctx context.Context, sources []string) ([]CompileResult, error) {
	if err := os.MkdirAll(c.Layout.ObjectDir(), 0755); err != nil {
		return nil, fmt.Errorf("create object directory: %w", err)
	}

	jobs := c.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	reporter := c.Reporter
	if reporter == nil {
		reporter = report.Discard
	}

	results := make([]CompileResult, len(sources))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = c.compile(ctx, src)
			reporter.Step("Compilation of", src, results[i].Err, results[i].Output)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (c *Compiler) compile(ctx context.Context, src string) CompileResult {
	res := CompileResult{Source: src, Object: c.Layout.ObjectPath(src)}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	start := time.Now()
	out, err := c.Runner.Run(ctx, "", c.Command, c.Args(src)...)
	res.Duration = time.Since(start)
	res.Output = out
	if err != nil {
		res.Err = fmt.Errorf("compile %s: %w", src, err)
	}
	return res
}
