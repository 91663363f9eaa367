// Package deps extracts direct include dependencies from C/C++ files.
//
// Detection is a line-oriented pattern match, not a preprocessor. Only the
// literal forms
//
//	#include "path/name.h"
//	#include <path/name.h>
//
// are recognised, for names ending in .h, .hpp or .inl. Macros and
// conditional compilation are ignored, so an include inside a dead #if
// block still counts. Such false positives over-invalidate builds; they
// never cause a stale object to be kept.
package deps

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ShayCichocki/kiln/internal/graph"
)

var includePattern = regexp.MustCompile(`(?i)^\s*#include\s+[<"]([./a-zA-Z0-9_]+\.((h(pp)?)|(inl)))([">])`)

// ErrScan marks failures to read a file while resolving dependencies.
var ErrScan = errors.New("dependency scan failed")

// ScanError reports an unreadable header or source. It is fatal: without
// the file's includes there is no sound dependency data.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrScan) match any ScanError.
func (e *ScanError) Is(target error) bool { return target == ErrScan }

// FileReader reads file contents by slash path.
type FileReader interface {
	ReadFile(p string) ([]byte, error)
}

// Include is one parsed directive.
type Include struct {
	Name   string
	Angled bool
}

// ParseIncludes returns the include directives found in src, in order.
func ParseIncludes(src []byte) []Include {
	var out []Include
	for line := range bytes.Lines(src) {
		m := includePattern.FindSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Include{Name: string(m[1]), Angled: string(m[6]) == ">"})
	}
	return out
}

// Resolver turns include directives into file paths.
type Resolver struct {
	// Roots are searched for angle-bracket includes.
	Roots  []string
	Reader FileReader

	// exists is swapped in tests.
	exists func(p string) bool
}

// NewResolver creates a resolver over the given include roots.
func NewResolver(roots []string, reader FileReader) *Resolver {
	return &Resolver{Roots: roots, Reader: reader, exists: fileExists}
}

// Direct returns the direct dependency set of file, which always contains
// the file itself.
//
// A quoted include yields exactly one candidate relative to the includer,
// whether or not it exists. An angle include yields every include root
// under which the name exists; ambiguous matches all count.
func (r *Resolver) Direct(file string) (graph.Set, error) {
	src, err := r.Reader.ReadFile(file)
	if err != nil {
		return nil, &ScanError{Path: file, Err: err}
	}

	out := graph.NewSet(file)
	for _, inc := range ParseIncludes(src) {
		if !inc.Angled {
			out[ResolveQuoted(file, inc.Name)] = struct{}{}
			continue
		}
		for _, root := range r.Roots {
			candidate := path.Join(root, inc.Name)
			if r.exists(candidate) {
				out[candidate] = struct{}{}
			}
		}
	}
	return out, nil
}

// ResolveAll computes direct dependencies for every file. The first
// unreadable file aborts the scan.
func (r *Resolver) ResolveAll(files []string) (graph.Graph, error) {
	g := make(graph.Graph, len(files))
	for _, f := range files {
		d, err := r.Direct(f)
		if err != nil {
			return nil, err
		}
		g[f] = d
	}
	return g, nil
}

// ResolveQuoted resolves a quoted include name against the includer's
// directory. Leading "/" and "./" are dropped; each leading "../" moves one
// directory up from the includer.
func ResolveQuoted(includer, name string) string {
	dir := path.Dir(includer)
	for {
		switch {
		case strings.HasPrefix(name, "/"):
			name = name[1:]
		case strings.HasPrefix(name, "./"):
			name = name[2:]
		case strings.HasPrefix(name, "../"):
			name = name[3:]
			dir = path.Dir(dir)
		default:
			return path.Join(dir, name)
		}
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(filepath.FromSlash(p))
	return err == nil && info.Mode().IsRegular()
}
