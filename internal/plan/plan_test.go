package plan

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ShayCichocki/kiln/internal/change"
	"github.com/ShayCichocki/kiln/internal/graph"
	"github.com/ShayCichocki/kiln/internal/state"
)

// fixture is a small tree:
//
//	main.cpp  -> util.h -> types.h
//	other.cpp -> log.h
//	util.cpp  -> util.h
type fixture struct {
	sources    []string
	headers    []string
	sourceSums change.Sums
	headerSums change.Sums
	deps       *graph.Dependencies
}

func newFixture() *fixture {
	direct := graph.Graph{
		"main.cpp":  graph.NewSet("main.cpp", "util.h"),
		"other.cpp": graph.NewSet("other.cpp", "log.h"),
		"util.cpp":  graph.NewSet("util.cpp", "util.h"),
		"util.h":    graph.NewSet("util.h", "types.h"),
		"types.h":   graph.NewSet("types.h"),
		"log.h":     graph.NewSet("log.h"),
	}
	return &fixture{
		sources:    []string{"main.cpp", "other.cpp", "util.cpp"},
		headers:    []string{"log.h", "types.h", "util.h"},
		sourceSums: change.Sums{"main.cpp": change.Of(1), "other.cpp": change.Of(2), "util.cpp": change.Of(3)},
		headerSums: change.Sums{"log.h": change.Of(10), "types.h": change.Of(11), "util.h": change.Of(12)},
		deps:       graph.Build(direct),
	}
}

// settled returns a snapshot matching the fixture exactly.
func (f *fixture) settled(release bool) state.Snapshot {
	return state.Empty().WithChecksums(f.headerSums, f.sourceSums, release)
}

func (f *fixture) input(prev state.Snapshot) Input {
	return Input{
		Sources:      f.sources,
		Headers:      f.headers,
		SourceSums:   f.sourceSums.Clone(),
		HeaderSums:   f.headerSums.Clone(),
		Previous:     prev,
		Deps:         f.deps,
		ObjectExists: func(string) bool { return true },
	}
}

func TestBuild_SteadyState(t *testing.T) {
	f := newFixture()
	p := Build(f.input(f.settled(false)))
	if !p.Empty() {
		t.Errorf("Build() = %v, want nothing planned", p.Sources)
	}
}

func TestBuild_HeaderChangePropagates(t *testing.T) {
	f := newFixture()
	in := f.input(f.settled(false))
	in.HeaderSums["types.h"] = change.Of(99)

	p := Build(in)
	want := []string{"main.cpp", "util.cpp"}
	if !reflect.DeepEqual(p.Sources, want) {
		t.Errorf("Build() = %v, want %v", p.Sources, want)
	}
	if got := p.Reasons["main.cpp"]; len(got) != 1 || got[0].Kind != ReasonHeaderChanged || got[0].Cause != "types.h" {
		t.Errorf("reasons[main.cpp] = %+v", got)
	}
}

func TestBuild_SourceChangeOnlyItself(t *testing.T) {
	f := newFixture()
	in := f.input(f.settled(false))
	in.SourceSums["other.cpp"] = change.Of(42)

	p := Build(in)
	if !reflect.DeepEqual(p.Sources, []string{"other.cpp"}) {
		t.Errorf("Build() = %v, want [other.cpp]", p.Sources)
	}
}

func TestBuild_MissingObject(t *testing.T) {
	f := newFixture()
	in := f.input(f.settled(false))
	in.ObjectExists = func(s string) bool { return s != "util.cpp" }

	p := Build(in)
	if !reflect.DeepEqual(p.Sources, []string{"util.cpp"}) {
		t.Errorf("Build() = %v, want [util.cpp]", p.Sources)
	}
	if p.Reasons["util.cpp"][0].Kind != ReasonObjectMissing {
		t.Errorf("reason = %+v", p.Reasons["util.cpp"])
	}
}

func TestBuild_UnresolvedSourceRetried(t *testing.T) {
	f := newFixture()
	prev := f.settled(false).WithUnresolved([]string{"main.cpp"})

	p := Build(f.input(prev))
	if !reflect.DeepEqual(p.Sources, []string{"main.cpp"}) {
		t.Errorf("Build() = %v, want [main.cpp]", p.Sources)
	}
}

func TestBuild_FullRebuildTriggers(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name    string
		prev    state.Snapshot
		release bool
		full    bool
		kind    ReasonKind
	}{
		{"explicit request", f.settled(false), false, true, ReasonFullRebuild},
		{"debug to release", f.settled(false), true, false, ReasonModeChanged},
		{"release to debug", f.settled(true), false, false, ReasonModeChanged},
		{"no prior state", state.Empty(), false, false, ReasonModeChanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input(tt.prev)
			in.Release = tt.release
			in.FullRebuild = tt.full
			p := Build(in)
			if !p.Full {
				t.Error("expected full plan")
			}
			if !reflect.DeepEqual(p.Sources, f.sources) {
				t.Errorf("Build() = %v, want all sources", p.Sources)
			}
			if p.Reasons["other.cpp"][0].Kind != tt.kind {
				t.Errorf("reason = %+v, want %s", p.Reasons["other.cpp"], tt.kind)
			}
		})
	}
}

func TestBuild_NeverPlansHeaders(t *testing.T) {
	f := newFixture()
	in := f.input(state.Empty().WithChecksums(change.Sums{}, f.sourceSums, false))

	p := Build(in)
	for _, s := range p.Sources {
		if strings.HasSuffix(s, ".h") {
			t.Errorf("header %s planned", s)
		}
	}
	if len(p.Sources) != 3 {
		t.Errorf("Build() = %v, want every source (all headers new)", p.Sources)
	}
}

func TestSnapshotDiff(t *testing.T) {
	f := newFixture()
	prev := f.settled(false)
	headers := f.headerSums.Clone()
	headers["util.h"] = change.Of(0xFF)

	out, err := SnapshotDiff(prev, headers, f.sourceSums, false)
	if err != nil {
		t.Fatalf("SnapshotDiff failed: %v", err)
	}
	if !strings.Contains(out, "-header util.h 0000000C") || !strings.Contains(out, "+header util.h 000000FF") {
		t.Errorf("unexpected diff:\n%s", out)
	}

	same, err := SnapshotDiff(prev, f.headerSums, f.sourceSums, false)
	if err != nil {
		t.Fatal(err)
	}
	if same != "" {
		t.Errorf("expected empty diff, got:\n%s", same)
	}
}
