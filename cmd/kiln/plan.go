package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kiln/internal/orchestrator"
	"github.com/ShayCichocki/kiln/internal/plan"
	"github.com/ShayCichocki/kiln/internal/report"
)

var planDiff bool

var planCmd = &cobra.Command{
	Use:   "plan [build] [release]",
	Short: "Show what the next build would compile",
	Long: `Run the scan, dependency and checksum phases without compiling, and
list every source the next build would compile together with the reason.

With --diff, also print a unified diff between the stored build state and
the checksums computed now.`,
	Args: cobra.ArbitraryArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planDiff, "diff", false, "Print a diff of stored and current checksums")
}

func runPlan(cmd *cobra.Command, args []string) error {
	req, err := parseRequest(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := openSession(cfg, report.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	a, err := s.builder.Analyze(ctx, req)
	if err != nil {
		return err
	}
	if a.StateErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", a.StateErr)
	}

	printPlan(a, req)

	if planDiff {
		diff, err := plan.SnapshotDiff(a.Previous, a.HeaderSums, a.SourceSums, req.Release)
		if err != nil {
			return err
		}
		fmt.Println()
		if diff == "" {
			fmt.Println("Build state is up to date.")
		} else {
			fmt.Print(diff)
		}
	}
	return nil
}

func printPlan(a *orchestrator.Analysis, req orchestrator.Request) {
	p := a.Plan
	fmt.Printf("Mode: %s\n", req.Mode())
	fmt.Printf("Sources: %d, headers: %d, targets: %d\n",
		len(a.Tree.Sources), len(a.Tree.Headers), len(a.Targets))

	if a.Previous.LinkError {
		fmt.Println("Previous link failed: targets will be relinked.")
	}
	if p.Empty() {
		fmt.Println("Nothing to compile.")
		return
	}

	if p.Full {
		fmt.Printf("Full rebuild (%s): %d sources\n", p.Reasons[p.Sources[0]][0].Kind, len(p.Sources))
	} else {
		fmt.Printf("%d of %d sources to compile:\n", len(p.Sources), len(a.Tree.Sources))
	}
	for _, src := range p.Sources {
		fmt.Printf("  %s\n", src)
		if p.Full {
			continue
		}
		for _, r := range p.Reasons[src] {
			fmt.Printf("      %s\n", describeReason(src, r))
		}
	}
}

func describeReason(src string, r plan.Reason) string {
	var b strings.Builder
	b.WriteString(string(r.Kind))
	if r.Cause != "" && r.Cause != src {
		fmt.Fprintf(&b, ": %s", r.Cause)
	}
	return b.String()
}
