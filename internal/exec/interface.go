// Package exec provides an interface for command execution.
package exec

import (
	"context"
	"io"
)

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking the compiler, linker and test binaries
// in tests.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	// The working directory is set to workDir if non-empty.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunAttached executes a command with its output streamed to stdout and
	// stderr instead of being captured.
	RunAttached(ctx context.Context, workDir string, stdout, stderr io.Writer, name string, args ...string) error
}
