//go:build integration

package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ShayCichocki/kiln/internal/config"
	iexec "github.com/ShayCichocki/kiln/internal/exec"
	"github.com/ShayCichocki/kiln/internal/orchestrator"
	"github.com/ShayCichocki/kiln/internal/report"
	"github.com/ShayCichocki/kiln/internal/state"
)

var tree = map[string]string{
	"include/include_dir": "",
	"include/mathx.hpp":   "#pragma once\nint twice(int x);\n",
	"mathx.cpp":           "#include <mathx.hpp>\nint twice(int x) { return 2 * x; }\n",
	"app.cpp": `#include <mathx.hpp>
#include <cstdio>
int main(int argc, char** argv) { std::printf("%d\n", twice(21)); return 0; }
`,
	"app_test.cpp": `#include <mathx.hpp>
int main() { return twice(2) == 4 ? 0 : 1; }
`,
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func newBuilder(t *testing.T, src, out string, db *state.DB, output *bytes.Buffer) *orchestrator.Builder {
	t.Helper()
	compiler, err := config.LookupCompiler(config.Default())
	if err != nil {
		t.Skipf("no compiler: %v", err)
	}
	b, err := orchestrator.New(
		orchestrator.RequiredConfig{SourceDir: src, OutputDir: out},
		orchestrator.WithCompiler(compiler),
		orchestrator.WithExecRunner(iexec.NewRunner()),
		orchestrator.WithReporter(report.New(output, false)),
		orchestrator.WithTestOutput(output, output),
		orchestrator.WithHistory(db),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

// TestRealToolchainBuild compiles, links and tests a small tree, then
// checks that an unchanged tree is a no-op and a header edit rebuilds
// its dependents.
func TestRealToolchainBuild(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	out := filepath.Join(root, "bin")
	writeTree(t, src, tree)

	db, err := state.OpenHistory(out)
	if err != nil {
		t.Fatalf("OpenHistory() error = %v", err)
	}
	defer db.Close()

	var output bytes.Buffer
	b := newBuilder(t, src, out, db, &output)
	ctx := context.Background()

	res, err := b.Run(ctx, orchestrator.Request{Test: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode() != 0 {
		t.Fatalf("first build failed:\n%s", output.String())
	}
	if len(res.Compiles) != 3 {
		t.Errorf("expected 3 compiles, got %d", len(res.Compiles))
	}
	if res.Tests == nil || res.Tests.Passed != 1 {
		t.Errorf("expected one passing test, got %+v", res.Tests)
	}
	for _, bin := range []string{"app", "app_test"} {
		if _, err := os.Stat(filepath.Join(out, bin)); err != nil {
			t.Errorf("binary %s missing: %v", bin, err)
		}
	}

	res, err = b.Run(ctx, orchestrator.Request{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Compiles) != 0 || res.LinkAttempted {
		t.Errorf("steady-state run did work: %d compiles, link=%v", len(res.Compiles), res.LinkAttempted)
	}

	writeTree(t, src, map[string]string{"include/mathx.hpp": "#pragma once\n\nint twice(int x);\n"})
	res, err = b.Run(ctx, orchestrator.Request{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Compiles) != 3 {
		t.Errorf("header edit should rebuild all three sources, got %d", len(res.Compiles))
	}

	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 recorded runs, got %d", len(runs))
	}
}

// TestRealToolchainCompileError checks that a compiler diagnostic reaches
// the output and the failing source is retried.
func TestRealToolchainCompileError(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	out := filepath.Join(root, "bin")
	writeTree(t, src, map[string]string{
		"broken.cpp": "int main() { return undefined_symbol; }\n",
	})

	db, err := state.OpenHistory(out)
	if err != nil {
		t.Fatalf("OpenHistory() error = %v", err)
	}
	defer db.Close()

	var output bytes.Buffer
	b := newBuilder(t, src, out, db, &output)

	for i := 1; i <= 2; i++ {
		output.Reset()
		res, err := b.Run(context.Background(), orchestrator.Request{})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.ExitCode() != 1 || len(res.Compiles) != 1 {
			t.Fatalf("run %d: exit %d, %d compiles", i, res.ExitCode(), len(res.Compiles))
		}
		if !strings.Contains(output.String(), "undefined_symbol") {
			t.Errorf("run %d: compiler diagnostic missing:\n%s", i, output.String())
		}
	}
	if !strings.Contains(output.String(), "just like the previous one") {
		t.Errorf("missing failure streak:\n%s", output.String())
	}

	streak, err := db.FailureStreak(state.FailureCompile, filepath.ToSlash(filepath.Join(src, "broken.cpp")))
	if err != nil {
		t.Fatalf("FailureStreak() error = %v", err)
	}
	if streak != 2 {
		t.Errorf("expected streak 2, got %d", streak)
	}
}
