// Package graph computes transitive include closures and their inverse.
//
// Include graphs are not guaranteed to be acyclic: headers may include each
// other or themselves. The closure is computed as a fixed point over
// immutable maps, so cycles converge to a shared closure instead of
// recursing forever.
package graph

import "sort"

// Set is a set of file paths.
type Set map[string]struct{}

// NewSet returns a set holding the given paths.
func NewSet(paths ...string) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is in the set.
func (s Set) Has(p string) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the set's members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Graph maps a file to a set of files. Depending on context it holds
// direct dependencies, transitive closures, or reverse closures.
type Graph map[string]Set

// Nodes returns every path that appears in g as a key or a member.
func (g Graph) Nodes() Set {
	nodes := make(Set, len(g))
	for k, deps := range g {
		nodes[k] = struct{}{}
		for d := range deps {
			nodes[d] = struct{}{}
		}
	}
	return nodes
}

// Closure computes the transitive closure of direct. Every node's closure
// contains the node itself. Nodes referenced only as dependencies (a quoted
// include naming a file that does not exist) become leaves.
//
// Each round builds a new map in which a node's closure is the union of the
// closures of everything already in it. Closures only grow and are bounded
// by the node count, so a fixed point is reached within len(nodes)+1
// rounds.
func Closure(direct Graph) Graph {
	nodes := direct.Nodes()
	cur := make(Graph, len(nodes))
	for n := range nodes {
		s := direct[n].clone()
		s[n] = struct{}{}
		cur[n] = s
	}

	for round := 0; round <= len(nodes); round++ {
		next, grew := step(cur)
		if !grew {
			break
		}
		cur = next
	}
	return cur
}

// step performs one propagation round and reports whether any closure grew.
func step(cur Graph) (Graph, bool) {
	next := make(Graph, len(cur))
	grew := false
	for n, reach := range cur {
		s := reach.clone()
		for m := range reach {
			for k := range cur[m] {
				s[k] = struct{}{}
			}
		}
		if len(s) != len(reach) {
			grew = true
		}
		next[n] = s
	}
	return next, grew
}

// Reverse inverts a closure: f is in Reverse(closure)[g] exactly when g is
// in closure[f]. Every node of closure has an entry, possibly empty.
func Reverse(closure Graph) Graph {
	rev := make(Graph, len(closure))
	for n := range closure.Nodes() {
		rev[n] = make(Set)
	}
	for f, reach := range closure {
		for g := range reach {
			rev[g][f] = struct{}{}
		}
	}
	return rev
}

// Dependencies bundles a closure with its reverse.
type Dependencies struct {
	Closure Graph
	Reverse Graph
}

// Build computes the closure of direct and its reverse.
func Build(direct Graph) *Dependencies {
	closure := Closure(direct)
	return &Dependencies{
		Closure: closure,
		Reverse: Reverse(closure),
	}
}

// Dependents returns every file whose closure contains p, including p when
// it is a known node.
func (d *Dependencies) Dependents(p string) Set {
	return d.Reverse[p]
}
