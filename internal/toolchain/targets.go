package toolchain

import (
	"bytes"
	"fmt"
	"path"
	"regexp"

	"github.com/ShayCichocki/kiln/internal/deps"
)

// DefaultTestPattern marks test targets by file name.
const DefaultTestPattern = `(?i)test`

// entryPattern is a signature heuristic, not a parser: any line with
// "int main(...)" or "void main(...)" counts, even inside a comment.
var entryPattern = regexp.MustCompile(`((int)|(void))\s+(main)\s*\((.*)\)`)

// Kind classifies a target.
type Kind int

const (
	Production Kind = iota
	Test
)

// String returns the kind name.
func (k Kind) String() string {
	if k == Test {
		return "test"
	}
	return "production"
}

// Target is an entry-point source and the binary it produces.
type Target struct {
	Source string
	Kind   Kind
	Object string
	Binary string
}

// HasEntryPoint reports whether src contains a main function signature.
func HasEntryPoint(src []byte) bool {
	for line := range bytes.Lines(src) {
		if entryPattern.Match(line) {
			return true
		}
	}
	return false
}

// Classifier tells test sources from production sources by file name.
type Classifier struct {
	pattern *regexp.Regexp
}

// NewClassifier compiles the test-name pattern. An empty pattern uses
// DefaultTestPattern.
func NewClassifier(pattern string) (*Classifier, error) {
	if pattern == "" {
		pattern = DefaultTestPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile test pattern %q: %w", pattern, err)
	}
	return &Classifier{pattern: re}, nil
}

// IsTest reports whether the source's file name matches the test pattern.
func (c *Classifier) IsTest(source string) bool {
	return c.pattern.MatchString(path.Base(source))
}

// Kind returns Test or Production for source.
func (c *Classifier) Kind(source string) Kind {
	if c.IsTest(source) {
		return Test
	}
	return Production
}

// FindTargets returns a Target for every source containing an entry point,
// in the order of sources. An unreadable source is a deps.ScanError.
func FindTargets(sources []string, reader deps.FileReader, cls *Classifier, layout Layout) ([]Target, error) {
	var out []Target
	for _, s := range sources {
		data, err := reader.ReadFile(s)
		if err != nil {
			return nil, &deps.ScanError{Path: s, Err: err}
		}
		if !HasEntryPoint(data) {
			continue
		}
		out = append(out, Target{
			Source: s,
			Kind:   cls.Kind(s),
			Object: layout.ObjectPath(s),
			Binary: layout.BinaryPath(s),
		})
	}
	return out, nil
}

// LinkSet returns the objects target t links against. Production targets
// draw from non-test sources, test targets from all sources. In both cases
// the entry objects of every other target are removed, so exactly one main
// reaches the linker.
func LinkSet(t Target, sources []string, targets []Target, cls *Classifier, layout Layout) []string {
	foreign := make(map[string]bool, len(targets))
	for _, other := range targets {
		if other.Source != t.Source {
			foreign[other.Object] = true
		}
	}

	var out []string
	for _, s := range sources {
		if t.Kind == Production && cls.IsTest(s) {
			continue
		}
		obj := layout.ObjectPath(s)
		if foreign[obj] {
			continue
		}
		out = append(out, obj)
	}
	return out
}
