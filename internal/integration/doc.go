// Package integration provides cross-package integration tests for kiln.
// They drive the whole pipeline against a real C++ compiler and are
// skipped when none is installed.
//
// Build tag: integration
// Run with: go test -tags integration ./internal/integration/...
package integration
