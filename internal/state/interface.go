package state

import "io"

// SnapshotStore loads and persists the cross-run snapshot.
type SnapshotStore interface {
	Load() (Snapshot, error)
	Save(s Snapshot) error
}

// RunStore records build runs.
type RunStore interface {
	StartRun(r *Run) error
	FinishRun(r *Run) error
	MarkInterrupted() ([]Run, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// HistoryStore is the full run history backend.
type HistoryStore interface {
	io.Closer
	Migrator
	RunStore
	GetRun(id string) (*Run, error)
	LastRun() (*Run, error)
	ListRuns(limit int) ([]Run, error)
}

// Compile-time verification that the implementations satisfy the interfaces.
var (
	_ SnapshotStore = (*Store)(nil)
	_ HistoryStore  = (*DB)(nil)
)
