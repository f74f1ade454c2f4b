package graph

import (
	"slices"

	"capsule/internal/defs"
)

// Condensation is the DAG of components. Deps[i] lists the components that
// component i references.
type Condensation struct {
	Components []SCC
	Of         map[defs.ObjectID]int
	Deps       [][]int
}

// Condense collapses every component of g into a single node.
func Condense(g Graph) *Condensation {
	comps := Components(g)
	c := &Condensation{
		Components: comps,
		Of:         make(map[defs.ObjectID]int, len(g)),
		Deps:       make([][]int, len(comps)),
	}
	for i, comp := range comps {
		for _, id := range comp {
			c.Of[id] = i
		}
	}
	for i, comp := range comps {
		for _, id := range comp {
			for _, to := range g[id] {
				j := c.Of[to]
				if j != i && !slices.Contains(c.Deps[i], j) {
					c.Deps[i] = append(c.Deps[i], j)
				}
			}
		}
		slices.Sort(c.Deps[i])
	}
	return c
}

// Batches layers the condensation with Kahn's algorithm: batch 0 holds the
// components with no dependencies, and every later batch depends only on
// earlier ones. Components inside one batch are independent.
func (c *Condensation) Batches() [][]int {
	pending := make([]int, len(c.Components))
	users := make([][]int, len(c.Components))
	for i, deps := range c.Deps {
		pending[i] = len(deps)
		for _, d := range deps {
			users[d] = append(users[d], i)
		}
	}

	current := make([]int, 0, len(c.Components))
	for i := range pending {
		if pending[i] == 0 {
			current = append(current, i)
		}
	}

	var batches [][]int
	for len(current) > 0 {
		batch := make([]int, len(current))
		copy(batch, current)
		batches = append(batches, batch)

		next := make([]int, 0)
		for _, i := range batch {
			for _, u := range users[i] {
				pending[u]--
				if pending[u] == 0 {
					next = append(next, u)
				}
			}
		}
		slices.Sort(next)
		current = next
	}
	return batches
}
