package plan

import (
	"fmt"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ShayCichocki/kiln/internal/change"
	"github.com/ShayCichocki/kiln/internal/state"
)

// SnapshotDiff renders a unified diff between the checksums recorded in
// prev and the current ones, one "path checksum" line per file. An empty
// string means nothing changed.
func SnapshotDiff(prev state.Snapshot, headers, sources change.Sums, release bool) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        snapshotLines(prev.Headers, prev.Sources, modeLine(prev)),
		B:        snapshotLines(headers, sources, fmt.Sprintf("mode %s\n", ModeName(release))),
		FromFile: "previous",
		ToFile:   "current",
		Context:  1,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// ModeName returns "release" or "debug".
func ModeName(release bool) string {
	if release {
		return "release"
	}
	return "debug"
}

func modeLine(s state.Snapshot) string {
	if !s.HasMode() {
		return "mode none\n"
	}
	return fmt.Sprintf("mode %s\n", ModeName(s.IsRelease()))
}

func snapshotLines(headers, sources change.Sums, mode string) []string {
	lines := []string{mode}
	lines = append(lines, sumLines("header", headers)...)
	lines = append(lines, sumLines("source", sources)...)
	return lines
}

func sumLines(kind string, sums change.Sums) []string {
	paths := make([]string, 0, len(sums))
	for p := range sums {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, fmt.Sprintf("%s %s %s\n", kind, p, sums[p]))
	}
	return out
}
