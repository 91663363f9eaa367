// Package scan walks a source root and classifies what it finds into
// headers, sources and include-root markers.
package scan

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMarker is the file name that turns its directory into an
// angle-bracket include root.
const DefaultMarker = "include_dir"

// Role classifies a file within the source tree.
type Role int

const (
	RoleOther Role = iota
	RoleHeader
	RoleSource
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleHeader:
		return "header"
	case RoleSource:
		return "source"
	default:
		return "other"
	}
}

// Classify returns the role implied by a file name's extension.
func Classify(name string) Role {
	switch strings.ToLower(path.Ext(name)) {
	case ".h", ".hpp", ".inl":
		return RoleHeader
	case ".c", ".cpp":
		return RoleSource
	default:
		return RoleOther
	}
}

// Tree is the classified content of a source root. All paths are
// slash-separated and prefixed with the root exactly as it was given, so
// they compose directly with include directives.
type Tree struct {
	Root         string
	Headers      []string
	Sources      []string
	IncludeRoots []string
}

// Files returns headers and sources in one sorted slice.
func (t *Tree) Files() []string {
	out := make([]string, 0, len(t.Headers)+len(t.Sources))
	out = append(out, t.Headers...)
	out = append(out, t.Sources...)
	sort.Strings(out)
	return out
}

// IsSource reports whether p is one of the tree's sources.
func (t *Tree) IsSource(p string) bool {
	i := sort.SearchStrings(t.Sources, p)
	return i < len(t.Sources) && t.Sources[i] == p
}

// Walk classifies every regular file under root. Directories containing a
// file named marker become include roots, listed before the implicit root
// itself.
func Walk(root, marker string) (*Tree, error) {
	if marker == "" {
		marker = DefaultMarker
	}
	clean := Normalize(root)
	tree := &Tree{Root: clean}

	err := filepath.WalkDir(filepath.FromSlash(clean), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := Normalize(p)
		if d.Name() == marker {
			tree.IncludeRoots = append(tree.IncludeRoots, path.Dir(rel))
			return nil
		}
		switch Classify(rel) {
		case RoleHeader:
			tree.Headers = append(tree.Headers, rel)
		case RoleSource:
			tree.Sources = append(tree.Sources, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(tree.Headers)
	sort.Strings(tree.Sources)
	sort.Strings(tree.IncludeRoots)
	tree.IncludeRoots = append(tree.IncludeRoots, clean)
	return tree, nil
}

// Normalize converts p to a clean, slash-separated path.
func Normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
