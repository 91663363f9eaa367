package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/kiln/internal/change"
	"github.com/ShayCichocki/kiln/internal/config"
	"github.com/ShayCichocki/kiln/internal/orchestrator"
	"github.com/ShayCichocki/kiln/internal/plan"
	"github.com/ShayCichocki/kiln/internal/state"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		flags   [3]bool
		want    orchestrator.Request
		wantErr bool
	}{
		{name: "no words", want: orchestrator.Request{}},
		{name: "build", args: []string{"build"}, want: orchestrator.Request{FullRebuild: true}},
		{name: "order independent", args: []string{"test", "release"}, want: orchestrator.Request{Release: true, Test: true}},
		{name: "case insensitive", args: []string{"RELEASE"}, want: orchestrator.Request{Release: true}},
		{name: "flags", flags: [3]bool{true, false, true}, want: orchestrator.Request{FullRebuild: true, Test: true}},
		{name: "flags and words", args: []string{"release"}, flags: [3]bool{false, false, true}, want: orchestrator.Request{Release: true, Test: true}},
		{name: "unknown word", args: []string{"deploy"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flagFull, flagRelease, flagTest = tt.flags[0], tt.flags[1], tt.flags[2]
			defer func() { flagFull, flagRelease, flagTest = false, false, false }()

			got, err := parseRequest(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseRequest(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestGetConfigValue(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		key  string
		want string
	}{
		{"paths.source", "src"},
		{"PATHS.OUTPUT", "bin"},
		{"toolchain.release_flags", "-O3 -Wall -Wextra -Ofast -DNDEBUG -fPIC"},
		{"toolchain.std", "11"},
		{"watch.debounce", "300ms"},
	}
	for _, tt := range tests {
		got, err := getConfigValue(cfg, tt.key)
		if err != nil {
			t.Errorf("getConfigValue(%q): %v", tt.key, err)
			continue
		}
		if got != tt.want {
			t.Errorf("getConfigValue(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}

	if _, err := getConfigValue(cfg, "nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30d", want: 30 * 24 * time.Hour},
		{in: "12h", want: 12 * time.Hour},
		{in: "xd", wantErr: true},
		{in: "-1h", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseAge(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAge(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAge(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDescribeReason(t *testing.T) {
	src := "src/a.cpp"
	if got := describeReason(src, plan.Reason{Kind: plan.ReasonSourceChanged, Cause: src}); got != "source changed" {
		t.Errorf("self-caused reason rendered as %q", got)
	}
	got := describeReason(src, plan.Reason{Kind: plan.ReasonHeaderChanged, Cause: "src/a.h"})
	if got != "header changed: src/a.h" {
		t.Errorf("header reason rendered as %q", got)
	}
}

func TestRenderSnapshot(t *testing.T) {
	if got := renderSnapshot(state.Empty()); !strings.Contains(got, "No build state") {
		t.Errorf("empty snapshot rendered as %q", got)
	}

	snap := state.Empty().
		WithChecksums(change.Sums{"src/a.h": change.Of(1)}, change.Sums{"src/a.cpp": change.Of(2), "src/b.cpp": change.Of(3)}, true).
		WithUnresolved([]string{"src/b.cpp"}).
		WithOutcome(true)
	got := renderSnapshot(snap)
	for _, want := range []string{"release", "src/b.cpp", "Failure streak"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered snapshot misses %q:\n%s", want, got)
		}
	}
}

func TestDescribeCompiler(t *testing.T) {
	t.Setenv("CXX", "kiln-no-such-compiler")
	got := describeCompiler(config.Default())
	want := "compiler: kiln-no-such-compiler (from environment), not found on PATH"
	if got != want {
		t.Errorf("describeCompiler() = %q, want %q", got, want)
	}
}

func TestRenderRun_FailureStreak(t *testing.T) {
	broken := state.Failure{Kind: state.FailureCompile, Path: "src/broken.cpp"}
	fresh := state.Failure{Kind: state.FailureLink, Path: "src/main.cpp"}
	run := &state.Run{
		ID:        "r1",
		Status:    state.RunFailed,
		StartedAt: time.Now(),
		Failures:  []state.Failure{broken, fresh},
	}

	got := renderRun(run, map[state.Failure]int{broken: 3, fresh: 1})
	if !strings.Contains(got, "src/broken.cpp (failed 3 runs in a row)") {
		t.Errorf("streak missing for repeated failure:\n%s", got)
	}
	if strings.Contains(got, "src/main.cpp (failed") {
		t.Errorf("first-time failure rendered with a streak:\n%s", got)
	}
}

func TestLoadConfig_PathsAnchoredToProjectConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, config.ProjectConfigName), []byte("paths:\n  source: code\n"), 0644); err != nil {
		t.Fatal(err)
	}

	oldProject, oldOutput := flagProject, flagOutput
	flagProject, flagOutput = sub, "out"
	defer func() { flagProject, flagOutput = oldProject, oldOutput }()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	gotSource, err := filepath.EvalSymlinks(filepath.Dir(cfg.Paths.Source))
	if err != nil {
		t.Fatal(err)
	}
	wantRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}
	if gotSource != wantRoot || filepath.Base(cfg.Paths.Source) != "code" {
		t.Errorf("paths.source = %q, want %q", cfg.Paths.Source, filepath.Join(root, "code"))
	}
	if cfg.Paths.Output != filepath.Join(sub, "out") {
		t.Errorf("--output = %q, want %q relative to -C", cfg.Paths.Output, filepath.Join(sub, "out"))
	}
}
