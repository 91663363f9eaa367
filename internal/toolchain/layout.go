// Package toolchain drives the external compiler and linker.
package toolchain

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// ObjectDirName is the per-translation-unit object directory inside the
// output root.
const ObjectDirName = "lib"

var sourceExt = regexp.MustCompile(`(?i)\.(cpp|c)$`)

// ErrObjectCollision marks sources that would write the same object file.
var ErrObjectCollision = errors.New("object file collision")

// CollisionError names sources that map to one object file.
type CollisionError struct {
	Object  string
	Sources []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s would be written by %s; give these sources distinct base names",
		e.Object, strings.Join(e.Sources, " and "))
}

// Is lets errors.Is(err, ErrObjectCollision) match any CollisionError.
func (e *CollisionError) Is(target error) bool { return target == ErrObjectCollision }

// Layout names artifacts inside the output root. Names derive from the
// source's base name only, so two sources with the same base name in
// different directories share an object; CheckObjects rejects such trees.
type Layout struct {
	OutputDir string
}

// ObjectDir returns the directory holding object files.
func (l Layout) ObjectDir() string {
	return filepath.Join(l.OutputDir, ObjectDirName)
}

// ObjectPath returns the object file produced from source.
func (l Layout) ObjectPath(source string) string {
	return filepath.Join(l.ObjectDir(), sourceExt.ReplaceAllString(path.Base(source), ".o"))
}

// BinaryPath returns the executable produced from an entry-point source.
func (l Layout) BinaryPath(source string) string {
	return filepath.Join(l.OutputDir, sourceExt.ReplaceAllString(path.Base(source), ""))
}

// CheckObjects returns a CollisionError for every object path claimed by
// more than one source, in the order of sources.
func (l Layout) CheckObjects(sources []string) error {
	owners := make(map[string][]string, len(sources))
	var order []string
	for _, s := range sources {
		obj := l.ObjectPath(s)
		if _, seen := owners[obj]; !seen {
			order = append(order, obj)
		}
		owners[obj] = append(owners[obj], s)
	}
	var errs []error
	for _, obj := range order {
		if srcs := owners[obj]; len(srcs) > 1 {
			errs = append(errs, &CollisionError{Object: obj, Sources: srcs})
		}
	}
	return errors.Join(errs...)
}
