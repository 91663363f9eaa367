package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kiln/internal/state"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(16)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored build state and the last run",
	Long: `Display the build state kept between runs and the most recent run.

Shows:
  - Recorded build mode and failure streak
  - Number of tracked headers and sources
  - Sources whose last compile failed
  - Whether the last link failed
  - The last recorded run, if run history is enabled, with how many runs
    in a row each of its failures has failed`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, loadErr := state.NewStore(cfg.Paths.Output).Load()
	if loadErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", loadErr)
	}
	fmt.Println(boxStyle.Render(renderSnapshot(snap)))

	dbPath := state.HistoryPath(cfg.Paths.Output)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil
	}
	db, err := state.OpenHistory(cfg.Paths.Output)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()

	last, err := db.LastRun()
	if err != nil {
		return fmt.Errorf("last run: %w", err)
	}
	if last != nil {
		streaks := make(map[state.Failure]int, len(last.Failures))
		for _, f := range last.Failures {
			n, err := db.FailureStreak(f.Kind, f.Path)
			if err != nil {
				return err
			}
			streaks[f] = n
		}
		fmt.Println(boxStyle.Render(renderRun(last, streaks)))
	}
	return nil
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func renderSnapshot(s state.Snapshot) string {
	if !s.HasMode() && len(s.Sources) == 0 {
		return "No build state. Run 'kiln' to build."
	}

	mode := dimStyle.Render("(none)")
	if s.HasMode() {
		mode = "debug"
		if s.IsRelease() {
			mode = "release"
		}
	}

	var unresolved []string
	for p, sum := range s.Sources {
		if !sum.Resolved() {
			unresolved = append(unresolved, p)
		}
	}

	streak := okStyle.Render("0")
	if s.Fails > 0 {
		streak = failStyle.Render(fmt.Sprintf("%d", s.Fails))
	}
	link := okStyle.Render("ok")
	if s.LinkError {
		link = failStyle.Render("failed")
	}

	rows := []string{
		row("Mode", mode),
		row("Headers", fmt.Sprintf("%d", len(s.Headers))),
		row("Sources", fmt.Sprintf("%d", len(s.Sources))),
		row("Last link", link),
		row("Failure streak", streak),
	}
	if len(unresolved) > 0 {
		rows = append(rows, row("Failed sources", failStyle.Render(fmt.Sprintf("%d", len(unresolved)))))
		for _, p := range sortedCopy(unresolved) {
			rows = append(rows, "  "+p)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderRun renders r. streaks maps each failure to the number of
// consecutive runs it has failed in; missing entries are left out.
func renderRun(r *state.Run, streaks map[state.Failure]int) string {
	rows := []string{
		row("Last run", r.ID),
		row("Status", styleStatus(r.Status)),
		row("Mode", r.Mode),
		row("Started", fmt.Sprintf("%s (%s ago)", r.StartedAt.Format("2006-01-02 15:04:05"), formatDuration(time.Since(r.StartedAt)))),
		row("Compiled", fmt.Sprintf("%d (%d failed)", r.Compiled, r.CompileFailures)),
		row("Linked", fmt.Sprintf("%d (%d failed)", r.Linked, r.LinkFailures)),
	}
	if r.TestsPassed+r.TestsFailed > 0 {
		rows = append(rows, row("Tests", fmt.Sprintf("%d passed, %d failed", r.TestsPassed, r.TestsFailed)))
	}
	for _, f := range r.Failures {
		line := "  " + failStyle.Render(string(f.Kind)) + " " + f.Path
		if n := streaks[f]; n > 1 {
			line += dimStyle.Render(fmt.Sprintf(" (failed %d runs in a row)", n))
		}
		rows = append(rows, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func styleStatus(s state.RunStatus) string {
	switch s {
	case state.RunSucceeded:
		return okStyle.Render(string(s))
	case state.RunFailed, state.RunAborted:
		return failStyle.Render(string(s))
	default:
		return dimStyle.Render(string(s))
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dd", int(d.Hours())/24)
}
