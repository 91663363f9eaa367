package state

import (
	"os"
	"os/exec"
	"testing"
	"time"
)

// exitedPID returns the PID of a process that has already finished.
func exitedPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run helper process: %v", err)
	}
	return cmd.ProcessState.Pid()
}

func TestMarkInterrupted(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	dead := &Run{ID: "dead", Mode: "debug", StartedAt: now.Add(-time.Minute), PID: exitedPID(t)}
	done := &Run{ID: "done", Mode: "debug", StartedAt: now}
	for _, r := range []*Run{dead, done} {
		if err := db.StartRun(r); err != nil {
			t.Fatal(err)
		}
	}
	done.Status = RunSucceeded
	if err := db.FinishRun(done); err != nil {
		t.Fatal(err)
	}

	stale, err := db.MarkInterrupted()
	if err != nil {
		t.Fatalf("MarkInterrupted failed: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "dead" || stale[0].Status != RunInterrupted {
		t.Fatalf("MarkInterrupted() = %+v", stale)
	}

	got, err := db.GetRun("dead")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != RunInterrupted {
		t.Errorf("stored status = %s, want interrupted", got.Status)
	}

	again, err := db.MarkInterrupted()
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("second MarkInterrupted() = %+v, want none", again)
	}
}

func TestMarkInterrupted_LeavesLiveOwnerAlone(t *testing.T) {
	db := setupTestDB(t)

	live := &Run{ID: "watching", Mode: "debug", StartedAt: time.Now()}
	if err := db.StartRun(live); err != nil {
		t.Fatal(err)
	}
	if live.PID != os.Getpid() {
		t.Fatalf("StartRun PID = %d, want %d", live.PID, os.Getpid())
	}

	stale, err := db.MarkInterrupted()
	if err != nil {
		t.Fatalf("MarkInterrupted failed: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("MarkInterrupted() = %+v, want none", stale)
	}

	got, err := db.GetRun("watching")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != RunRunning || got.PID != os.Getpid() {
		t.Errorf("stored run = %s pid %d, want running pid %d", got.Status, got.PID, os.Getpid())
	}
}

func TestIsProcessAlive(t *testing.T) {
	if isProcessAlive(0) || isProcessAlive(-1) {
		t.Error("non-positive PIDs should not be alive")
	}
	if !isProcessAlive(os.Getpid()) {
		t.Error("our own PID should be alive")
	}
	if isProcessAlive(exitedPID(t)) {
		t.Error("exited process should not be alive")
	}
}
