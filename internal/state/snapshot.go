package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ShayCichocki/kiln/internal/change"
)

// SnapshotFileName is the snapshot's name inside the output directory.
const SnapshotFileName = "buildInfo.json"

// ErrStateLoad marks an unreadable or corrupt snapshot. Callers recover by
// starting from an empty snapshot.
var ErrStateLoad = errors.New("load build state")

// Snapshot is the state carried between runs. It is treated as an
// immutable value: the With* methods return modified copies.
type Snapshot struct {
	Headers change.Sums `json:"headers"`
	Sources change.Sums `json:"sources"`
	// Release is nil when no run has recorded a mode yet.
	Release   *bool `json:"release,omitempty"`
	LinkError bool  `json:"linking_error"`
	Fails     int   `json:"fails"`
}

// Empty returns the snapshot used when no prior state exists.
func Empty() Snapshot {
	return Snapshot{Headers: change.Sums{}, Sources: change.Sums{}}
}

// HasMode reports whether a build mode was recorded.
func (s Snapshot) HasMode() bool { return s.Release != nil }

// IsRelease reports the recorded mode; false when none was recorded.
func (s Snapshot) IsRelease() bool { return s.Release != nil && *s.Release }

// ModeMatches reports whether release equals the recorded mode. A missing
// mode never matches.
func (s Snapshot) ModeMatches(release bool) bool {
	return s.Release != nil && *s.Release == release
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Headers = s.Headers.Clone()
	out.Sources = s.Sources.Clone()
	if s.Release != nil {
		r := *s.Release
		out.Release = &r
	}
	return out
}

// WithChecksums returns a copy carrying the given checksums and mode.
func (s Snapshot) WithChecksums(headers, sources change.Sums, release bool) Snapshot {
	out := s.Clone()
	out.Headers = headers.Clone()
	out.Sources = sources.Clone()
	out.Release = &release
	return out
}

// WithUnresolved returns a copy in which the given sources carry the
// unresolved sentinel.
func (s Snapshot) WithUnresolved(sources []string) Snapshot {
	out := s.Clone()
	for _, p := range sources {
		out.Sources[p] = change.Unresolved
	}
	return out
}

// WithLinkError returns a copy with the link-error flag set to v.
func (s Snapshot) WithLinkError(v bool) Snapshot {
	out := s.Clone()
	out.LinkError = v
	return out
}

// WithOutcome returns a copy whose failure streak reflects this run:
// incremented when failed, reset otherwise.
func (s Snapshot) WithOutcome(failed bool) Snapshot {
	out := s.Clone()
	if failed {
		out.Fails = s.Fails + 1
	} else {
		out.Fails = 0
	}
	return out
}

// Store loads and saves the snapshot file.
type Store struct {
	path string
}

// NewStore creates a store for the snapshot inside outputDir.
func NewStore(outputDir string) *Store {
	return &Store{path: filepath.Join(outputDir, SnapshotFileName)}
}

// Path returns the snapshot file path.
func (st *Store) Path() string { return st.path }

// Load reads the snapshot. A missing file yields Empty() and no error. A
// corrupt file yields Empty() and an error wrapping ErrStateLoad, which the
// caller is expected to log and otherwise ignore.
func (st *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Empty(), nil
		}
		return Empty(), fmt.Errorf("%w: %v", ErrStateLoad, err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Empty(), fmt.Errorf("%w: %s: %v", ErrStateLoad, st.path, err)
	}
	if s.Headers == nil {
		s.Headers = change.Sums{}
	}
	if s.Sources == nil {
		s.Sources = change.Sums{}
	}
	if s.Fails < 0 {
		s.Fails = 0
	}
	return s, nil
}

// Save writes the snapshot atomically: the data goes to a temporary file in
// the same directory, which is synced and then renamed over the old file.
func (st *Store) Save(s Snapshot) error {
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	f, err := os.CreateTemp(dir, ".tmp-"+SnapshotFileName+"-")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
