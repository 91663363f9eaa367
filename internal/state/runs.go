package state

import (
	"database/sql"
	"fmt"
	"os"
	"time"
)

// RunStatus represents the outcome of a build run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunSucceeded   RunStatus = "succeeded"
	RunFailed      RunStatus = "failed"
	RunAborted     RunStatus = "aborted"
	RunInterrupted RunStatus = "interrupted"
)

// FailureKind names the phase a recorded failure came from.
type FailureKind string

const (
	FailureCompile FailureKind = "compile"
	FailureLink    FailureKind = "link"
	FailureTest    FailureKind = "test"
)

// Failure is one failed file or target within a run.
type Failure struct {
	Kind FailureKind `json:"kind"`
	Path string      `json:"path"`
}

// Run is one recorded invocation of the build pipeline.
type Run struct {
	ID              string     `json:"id"`
	Mode            string     `json:"mode"`
	FullRebuild     bool       `json:"full_rebuild"`
	Planned         int        `json:"planned"`
	Compiled        int        `json:"compiled"`
	CompileFailures int        `json:"compile_failures"`
	Linked          int        `json:"linked"`
	LinkFailures    int        `json:"link_failures"`
	TestsPassed     int        `json:"tests_passed"`
	TestsFailed     int        `json:"tests_failed"`
	Status          RunStatus  `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	// PID is the process that owns the run while it is running.
	PID      int       `json:"pid"`
	Failures []Failure `json:"failures,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StartRun inserts a run in the running state, owned by the current
// process unless r.PID says otherwise.
func (db *DB) StartRun(r *Run) error {
	if r.Status == "" {
		r.Status = RunRunning
	}
	if r.PID == 0 {
		r.PID = os.Getpid()
	}
	_, err := db.Exec(`
		INSERT INTO runs (id, mode, full_rebuild, status, started_at, pid)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Mode, r.FullRebuild, string(r.Status), formatTime(r.StartedAt), r.PID)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores a run's counters, status and failures.
func (db *DB) FinishRun(r *Run) error {
	finished := time.Now()
	if r.FinishedAt != nil {
		finished = *r.FinishedAt
	}
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			UPDATE runs SET planned = ?, compiled = ?, compile_failures = ?, linked = ?,
				link_failures = ?, tests_passed = ?, tests_failed = ?, status = ?, finished_at = ?
			WHERE id = ?
		`, r.Planned, r.Compiled, r.CompileFailures, r.Linked, r.LinkFailures,
			r.TestsPassed, r.TestsFailed, string(r.Status), formatTime(finished), r.ID)
		if err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		for _, f := range r.Failures {
			_, err := tx.Exec(`
				INSERT OR IGNORE INTO failures (run_id, kind, path) VALUES (?, ?, ?)
			`, r.ID, string(f.Kind), f.Path)
			if err != nil {
				return fmt.Errorf("record failure: %w", err)
			}
		}
		return nil
	})
}

const runColumns = `id, mode, full_rebuild, planned, compiled, compile_failures, linked,
	link_failures, tests_passed, tests_failed, status, started_at, finished_at, pid`

// GetRun retrieves a run and its failures by ID. Returns nil if absent.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if r.Failures, err = db.listFailures(r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// LastRun returns the most recently started run, or nil if none exist.
func (db *DB) LastRun() (*Run, error) {
	runs, err := db.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	r := runs[0]
	if r.Failures, err = db.listFailures(r.ID); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns all runs.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// FailureStreak returns how many times path failed in the most recent
// consecutive runs that attempted it.
func (db *DB) FailureStreak(kind FailureKind, path string) (int, error) {
	rows, err := db.Query(`
		SELECT r.id, f.path IS NOT NULL
		FROM runs r
		LEFT JOIN failures f ON f.run_id = r.id AND f.kind = ? AND f.path = ?
		WHERE r.status != ?
		ORDER BY r.started_at DESC
	`, string(kind), path, string(RunRunning))
	if err != nil {
		return 0, fmt.Errorf("failure streak: %w", err)
	}
	defer rows.Close()

	streak := 0
	for rows.Next() {
		var id string
		var failed bool
		if err := rows.Scan(&id, &failed); err != nil {
			return 0, fmt.Errorf("scan failure streak: %w", err)
		}
		if !failed {
			break
		}
		streak++
	}
	return streak, rows.Err()
}

func (db *DB) listFailures(runID string) ([]Failure, error) {
	rows, err := db.Query(`
		SELECT kind, path FROM failures WHERE run_id = ? ORDER BY kind, path
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var kind string
		if err := rows.Scan(&kind, &f.Path); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Kind = FailureKind(kind)
		out = append(out, f)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var status, startedAt string
	var finishedAt sql.NullString
	err := row.Scan(&r.ID, &r.Mode, &r.FullRebuild, &r.Planned, &r.Compiled, &r.CompileFailures,
		&r.Linked, &r.LinkFailures, &r.TestsPassed, &r.TestsFailed, &status, &startedAt, &finishedAt, &r.PID)
	if err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}
