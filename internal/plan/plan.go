// Package plan decides which sources must be recompiled.
package plan

import (
	"sort"

	"github.com/ShayCichocki/kiln/internal/change"
	"github.com/ShayCichocki/kiln/internal/graph"
	"github.com/ShayCichocki/kiln/internal/state"
)

// Reason explains why a source was planned.
type Reason struct {
	Kind  ReasonKind
	Cause string
}

// ReasonKind enumerates the triggers of a recompile.
type ReasonKind string

const (
	ReasonFullRebuild   ReasonKind = "full rebuild requested"
	ReasonModeChanged   ReasonKind = "build mode changed"
	ReasonSourceChanged ReasonKind = "source changed"
	ReasonObjectMissing ReasonKind = "object missing"
	ReasonHeaderChanged ReasonKind = "header changed"
)

// Input is everything the planner looks at.
type Input struct {
	Sources []string
	Headers []string

	// Current checksums for this run.
	SourceSums change.Sums
	HeaderSums change.Sums

	Previous    state.Snapshot
	Deps        *graph.Dependencies
	Release     bool
	FullRebuild bool

	// ObjectExists reports whether a source's object artifact is present.
	ObjectExists func(source string) bool
}

// Plan is the ordered set of sources to compile, with the reasons each
// was included.
type Plan struct {
	Sources []string
	Reasons map[string][]Reason
	// Full is true when every source was planned by rule, not by
	// propagation.
	Full bool
}

// Empty reports whether nothing needs compiling.
func (p *Plan) Empty() bool { return len(p.Sources) == 0 }

// Build applies the recompile policy:
//
//  1. A requested full rebuild, or a mode different from the recorded one,
//     plans every source.
//  2. A dirty source, or one whose object is missing, plans every source
//     whose closure contains it (itself included).
//  3. A dirty header plans every source whose closure contains it.
//
// Headers are never planned themselves.
func Build(in Input) *Plan {
	isSource := graph.NewSet(in.Sources...)
	reasons := make(map[string][]Reason)
	add := func(src string, r Reason) {
		reasons[src] = append(reasons[src], r)
	}

	full := in.FullRebuild || !in.Previous.ModeMatches(in.Release)
	if full {
		kind := ReasonModeChanged
		if in.FullRebuild {
			kind = ReasonFullRebuild
		}
		for _, s := range in.Sources {
			add(s, Reason{Kind: kind})
		}
		return finish(reasons, true)
	}

	propagate := func(changed string, kind ReasonKind) {
		for dep := range in.Deps.Dependents(changed) {
			if isSource.Has(dep) {
				add(dep, Reason{Kind: kind, Cause: changed})
			}
		}
		// A file absent from the graph still plans itself.
		if isSource.Has(changed) && in.Deps.Dependents(changed) == nil {
			add(changed, Reason{Kind: kind, Cause: changed})
		}
	}

	for _, s := range in.Sources {
		switch {
		case change.IsDirty(in.Previous.Sources, s, in.SourceSums[s]):
			propagate(s, ReasonSourceChanged)
		case in.ObjectExists != nil && !in.ObjectExists(s):
			propagate(s, ReasonObjectMissing)
		}
	}
	for _, h := range in.Headers {
		if change.IsDirty(in.Previous.Headers, h, in.HeaderSums[h]) {
			propagate(h, ReasonHeaderChanged)
		}
	}
	return finish(reasons, false)
}

func finish(reasons map[string][]Reason, full bool) *Plan {
	p := &Plan{Reasons: reasons, Full: full}
	for s, rs := range reasons {
		p.Sources = append(p.Sources, s)
		sort.Slice(rs, func(i, j int) bool {
			if rs[i].Kind != rs[j].Kind {
				return rs[i].Kind < rs[j].Kind
			}
			return rs[i].Cause < rs[j].Cause
		})
	}
	sort.Strings(p.Sources)
	return p
}
