package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kiln/internal/orchestrator"
	"github.com/ShayCichocki/kiln/internal/report"
	"github.com/ShayCichocki/kiln/internal/state"
)

var (
	cleanAll    bool
	cleanDryRun bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build artifacts",
	Long: `Remove object files, linked binaries and the stored build state, so the
next build starts from scratch.

With --all, the run history and debug logs are removed too.

Examples:
  kiln clean            # remove artifacts and build state
  kiln clean --dry-run  # show what would be removed
  kiln clean --all      # also remove history and logs`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "Also remove run history and logs")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Show what would be removed without removing")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Build.History = false

	s, err := openSession(cfg, report.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	layout := s.builder.Layout()
	targets := []string{
		layout.ObjectDir(),
		filepath.Join(cfg.Paths.Output, state.SnapshotFileName),
	}

	ctx, cancel := signalContext()
	defer cancel()
	if a, err := s.builder.Analyze(ctx, orchestrator.Request{}); err == nil {
		for _, t := range a.Targets {
			targets = append(targets, t.Binary)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Warning: cannot list binaries: %v\n", err)
	}

	if cleanAll {
		targets = append(targets,
			state.HistoryPath(cfg.Paths.Output),
			state.HistoryPath(cfg.Paths.Output)+"-wal",
			state.HistoryPath(cfg.Paths.Output)+"-shm",
			filepath.Join(cfg.Paths.Output, "logs"),
		)
	}

	removed := 0
	for _, p := range targets {
		if _, err := os.Lstat(p); os.IsNotExist(err) {
			continue
		}
		if cleanDryRun {
			fmt.Printf("Would remove %s\n", p)
			removed++
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
		fmt.Printf("Removed %s\n", p)
		removed++
	}
	if removed == 0 {
		fmt.Println("Nothing to clean.")
	}
	return nil
}
