package change

import (
	"bytes"
	"sort"

	"github.com/ShayCichocki/kiln/internal/deps"
)

// Sums maps file paths to checksums.
type Sums map[string]Checksum

// Clone returns an independent copy of s.
func (s Sums) Clone() Sums {
	out := make(Sums, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Compute fingerprints every path using reader. An unreadable file is a
// deps.ScanError.
func Compute(reader deps.FileReader, paths []string) (Sums, error) {
	out := make(Sums, len(paths))
	for _, p := range paths {
		data, err := reader.ReadFile(p)
		if err != nil {
			return nil, &deps.ScanError{Path: p, Err: err}
		}
		sum, err := Sum(bytes.NewReader(data))
		if err != nil {
			return nil, &deps.ScanError{Path: p, Err: err}
		}
		out[p] = sum
	}
	return out, nil
}

// IsDirty reports whether a file's current checksum differs from what was
// stored, or nothing usable was stored.
func IsDirty(stored Sums, p string, current Checksum) bool {
	prev, ok := stored[p]
	return !ok || !prev.Equal(current)
}

// Dirty returns the sorted paths of current that are dirty against stored.
func Dirty(stored, current Sums) []string {
	var out []string
	for p, sum := range current {
		if IsDirty(stored, p, sum) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
