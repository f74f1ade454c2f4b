// Package graph holds the dependency graph of a definition store and the
// strongly connected component machinery the converter schedules with.
package graph

import (
	"slices"

	"capsule/internal/defs"
)

// Graph maps every node to the nodes it references directly. Every
// referenced node is also a key.
type Graph map[defs.ObjectID][]defs.ObjectID

// Nodes returns the graph's nodes in ascending order.
func (g Graph) Nodes() []defs.ObjectID {
	out := make([]defs.ObjectID, 0, len(g))
	for id := range g {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// HasEdge reports whether from references to.
func (g Graph) HasEdge(from, to defs.ObjectID) bool {
	return slices.Contains(g[from], to)
}

// SCC is one strongly connected component, members in ascending order.
type SCC []defs.ObjectID

// IsCyclic reports whether the component is a real cycle: more than one
// member, or a single member that references itself.
func IsCyclic(g Graph, c SCC) bool {
	if len(c) > 1 {
		return true
	}
	return len(c) == 1 && g.HasEdge(c[0], c[0])
}
