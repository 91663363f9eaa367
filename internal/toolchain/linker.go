package toolchain

import (
	"context"
	"fmt"

	iexec "github.com/ShayCichocki/kiln/internal/exec"
	"github.com/ShayCichocki/kiln/internal/report"
)

// LinkResult is the outcome of linking one target.
type LinkResult struct {
	Target  Target
	Objects []string
	Output  []byte
	Err     error
}

// Failed reports whether the link exited non-zero or could not start.
func (r LinkResult) Failed() bool { return r.Err != nil }

// Linker invokes the external linker once per target.
type Linker struct {
	Runner     iexec.CommandRunner
	Command    string
	Flags      []string
	Layout     Layout
	Classifier *Classifier
	Reporter   report.Reporter
}

// Args returns the linker arguments for a target and its objects.
func (l *Linker) Args(t Target, objects []string) []string {
	args := append([]string(nil), objects...)
	args = append(args, "-o", t.Binary)
	return append(args, l.Flags...)
}

// LinkAll links targets one after another. A failed link does not stop
// the remaining targets.
func (l *Linker) LinkAll(ctx context.Context, targets []Target, sources []string) []LinkResult {
	reporter := l.Reporter
	if reporter == nil {
		reporter = report.Discard
	}

	results := make([]LinkResult, 0, len(targets))
	for _, t := range targets {
		res := LinkResult{
			Target:  t,
			Objects: LinkSet(t, sources, targets, l.Classifier, l.Layout),
		}
		if err := ctx.Err(); err != nil {
			res.Err = err
		} else {
			out, err := l.Runner.Run(ctx, "", l.Command, l.Args(t, res.Objects)...)
			res.Output = out
			if err != nil {
				res.Err = fmt.Errorf("link %s: %w", t.Binary, err)
			}
		}
		reporter.Step("Linking", t.Source, res.Err, res.Output)
		results = append(results, res)
	}
	return results
}
