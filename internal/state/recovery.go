package state

import (
	"fmt"
	"os"
	"syscall"
)

// MarkInterrupted finds runs left in the running state by a process that
// died before finishing, marks them interrupted and returns them. Such a
// run never wrote its snapshot, so the next build re-detects the same
// staleness. Runs whose owning process is still alive, such as a
// concurrent kiln watch, are left alone.
func (db *DB) MarkInterrupted() ([]Run, error) {
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs WHERE status = ? ORDER BY started_at`, string(RunRunning))
	if err != nil {
		return nil, fmt.Errorf("find interrupted runs: %w", err)
	}
	var stale []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if isProcessAlive(r.PID) {
			continue
		}
		stale = append(stale, *r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range stale {
		if _, err := db.Exec(`UPDATE runs SET status = ? WHERE id = ?`, string(RunInterrupted), stale[i].ID); err != nil {
			return nil, fmt.Errorf("mark run %s interrupted: %w", stale[i].ID, err)
		}
		stale[i].Status = RunInterrupted
	}
	return stale, nil
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return process.Signal(syscall.Signal(0)) == nil
}
