package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kiln/internal/state"
)

var (
	historyLimit int
	historyPurge string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent build runs",
	Long: `List recorded build runs, newest first.

Examples:
  kiln history              # last 10 runs
  kiln history -n 50        # last 50 runs
  kiln history --purge 30d  # delete runs older than 30 days`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show (0 for all)")
	historyCmd.Flags().StringVar(&historyPurge, "purge", "", "Delete finished runs older than this duration")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(state.HistoryPath(cfg.Paths.Output)); os.IsNotExist(err) {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	db, err := state.OpenHistory(cfg.Paths.Output)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()

	if historyPurge != "" {
		age, err := parseAge(historyPurge)
		if err != nil {
			return err
		}
		n, err := db.PurgeOldRuns(age)
		if err != nil {
			return fmt.Errorf("purge runs: %w", err)
		}
		fmt.Printf("Purged %d runs.\n", n)
	}

	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	fmt.Println(renderRuns(runs))
	return nil
}

func renderRuns(runs []state.Run) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("RUN", "STARTED", "MODE", "STATUS", "COMPILED", "LINKED", "TESTS", "TOOK").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		mode := r.Mode
		if r.FullRebuild {
			mode += " (full)"
		}
		tests := "-"
		if r.TestsPassed+r.TestsFailed > 0 {
			tests = fmt.Sprintf("%d/%d", r.TestsPassed, r.TestsPassed+r.TestsFailed)
		}
		took := "-"
		if r.FinishedAt != nil {
			took = formatDuration(r.Duration())
		}
		t.Row(
			id,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			mode,
			styleStatus(r.Status),
			fmt.Sprintf("%d/%d", r.Compiled-r.CompileFailures, r.Compiled),
			fmt.Sprintf("%d/%d", r.Linked-r.LinkFailures, r.Linked),
			tests,
			took,
		)
	}
	return t.Render()
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// parseAge accepts Go durations plus a day suffix, e.g. "30d".
func parseAge(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	return d, nil
}
