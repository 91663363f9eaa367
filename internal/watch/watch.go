// Package watch reruns a callback when files under a source tree change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/kiln/internal/scan"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 300 * time.Millisecond

// Watcher observes every directory under a root.
type Watcher struct {
	root     string
	marker   string
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// New creates a Watcher for root. Directories created later are picked up
// as they appear.
func New(root, marker string, debounce time.Duration) (*Watcher, error) {
	if marker == "" {
		marker = scan.DefaultMarker
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{root: root, marker: marker, debounce: debounce, fsw: fsw}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// Relevant reports whether a change to name can affect the build.
func (w *Watcher) Relevant(name string) bool {
	if filepath.Base(name) == w.marker {
		return true
	}
	return scan.Classify(name) != scan.RoleOther
}

// Run blocks until ctx is done, calling onChange with the sorted set of
// relevant paths once no further event arrived for the debounce period.
// onChange runs on the caller's goroutine; events arriving meanwhile are
// batched for the next call.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// A new directory may already hold files.
					if err := w.addTree(event.Name); err == nil {
						w.collect(event.Name, pending)
					}
				}
			}
			if event.Op == fsnotify.Chmod || !w.Relevant(event.Name) {
				continue
			}
			pending[scan.Normalize(event.Name)] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", w.root, err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})
			onChange(ctx, changed)
		}
	}
}

// collect queues the relevant files already present under dir.
func (w *Watcher) collect(dir string, pending map[string]struct{}) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && w.Relevant(p) {
			pending[scan.Normalize(p)] = struct{}{}
		}
		return nil
	})
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
