package testrun

import (
	"context"
	"reflect"
	"testing"

	"github.com/ShayCichocki/kiln/internal/exec/exectest"
	"github.com/ShayCichocki/kiln/internal/toolchain"
)

func targets() []toolchain.Target {
	return []toolchain.Target{
		{Source: "src/test_2.cpp", Kind: toolchain.Test, Binary: "bin/test_2"},
		{Source: "src/app.cpp", Kind: toolchain.Production, Binary: "bin/app"},
		{Source: "src/test_0.cpp", Kind: toolchain.Test, Binary: "bin/test_0"},
		{Source: "src/a_test.cpp", Kind: toolchain.Test, Binary: "bin/a_test"},
	}
}

func TestRun_LexicalOrderAndOnlyTests(t *testing.T) {
	ex := &exectest.Runner{}
	sum := (&Runner{Exec: ex}).Run(context.Background(), targets())

	var got []string
	for _, c := range ex.Calls() {
		got = append(got, c.Name)
	}
	want := []string{"bin/a_test", "bin/test_0", "bin/test_2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("executed %v, want %v", got, want)
	}
	if !sum.OK() || sum.Passed != 3 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Verdict() != "All tests passed" {
		t.Errorf("Verdict() = %q", sum.Verdict())
	}
}

func TestRun_Verdicts(t *testing.T) {
	tests := []struct {
		name    string
		fail    map[string]bool
		verdict string
	}{
		{"mixed", map[string]bool{"bin/test_0": true}, "2 tests passed, 1 tests failed"},
		{"all failed", map[string]bool{"bin/a_test": true, "bin/test_0": true, "bin/test_2": true}, "All tests failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &exectest.Runner{Fail: func(name string, _ []string) bool { return tt.fail[name] }}
			sum := (&Runner{Exec: ex}).Run(context.Background(), targets())
			if sum.OK() {
				t.Error("summary should report failure")
			}
			if len(ex.Calls()) != 3 {
				t.Errorf("ran %d tests, want all 3", len(ex.Calls()))
			}
			if sum.Verdict() != tt.verdict {
				t.Errorf("Verdict() = %q, want %q", sum.Verdict(), tt.verdict)
			}
		})
	}
}

func TestRun_NoTests(t *testing.T) {
	sum := (&Runner{Exec: &exectest.Runner{}}).Run(context.Background(), nil)
	if !sum.OK() || len(sum.Results) != 0 {
		t.Errorf("summary = %+v", sum)
	}
}
