// Package exectest provides a scriptable CommandRunner for tests.
package exectest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	iexec "github.com/ShayCichocki/kiln/internal/exec"
)

// ErrExit is returned for invocations scripted to fail.
var ErrExit = errors.New("exit status 1")

// Call records one invocation.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner records every invocation and fails those matched by Fail.
// When an invocation carries "-o <path>" and succeeds, the output path is
// created so artifact-existence checks behave like a real toolchain.
type Runner struct {
	mu    sync.Mutex
	calls []Call

	// Fail reports whether an invocation should exit non-zero.
	Fail func(name string, args []string) bool
}

// Run records the call and returns its scripted result.
func (r *Runner) Run(ctx context.Context, workDir string, name string, args ...string) ([]byte, error) {
	if err := r.record(name, args); err != nil {
		return []byte(err.Error()), err
	}
	return nil, nil
}

// RunAttached records the call and returns its scripted result.
func (r *Runner) RunAttached(ctx context.Context, workDir string, stdout, stderr io.Writer, name string, args ...string) error {
	return r.record(name, args)
}

func (r *Runner) record(name string, args []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})
	fail := r.Fail
	r.mu.Unlock()

	if fail != nil && fail(name, args) {
		return ErrExit
	}
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			out := args[i+1]
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			if err := os.WriteFile(out, []byte(name), 0755); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
	}
	return nil
}

// Calls returns a copy of the recorded invocations.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Reset forgets recorded invocations.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// HasArg reports whether args contains an argument with the given suffix.
func HasArg(args []string, suffix string) bool {
	for _, a := range args {
		if strings.HasSuffix(a, suffix) {
			return true
		}
	}
	return false
}

var _ iexec.CommandRunner = (*Runner)(nil)
