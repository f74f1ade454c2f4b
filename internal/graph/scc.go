package graph

import (
	"slices"

	"capsule/internal/defs"
)

type tarjanFrame struct {
	node defs.ObjectID
	next int
}

// Components runs Tarjan's algorithm without recursion. Components come out
// in reverse topological order: every component appears after all the
// components it references, so a caller can build leaves first.
func Components(g Graph) []SCC {
	var (
		index   = make(map[defs.ObjectID]int, len(g))
		low     = make(map[defs.ObjectID]int, len(g))
		onStack = make(map[defs.ObjectID]bool, len(g))
		stack   []defs.ObjectID
		out     []SCC
		counter int
	)

	for _, root := range g.Nodes() {
		if _, seen := index[root]; seen {
			continue
		}
		work := []tarjanFrame{{node: root}}
		index[root], low[root] = counter, counter
		counter++
		stack = append(stack, root)
		onStack[root] = true

		for len(work) > 0 {
			top := &work[len(work)-1]
			succ := g[top.node]
			if top.next < len(succ) {
				w := succ[top.next]
				top.next++
				if _, seen := index[w]; !seen {
					index[w], low[w] = counter, counter
					counter++
					stack = append(stack, w)
					onStack[w] = true
					work = append(work, tarjanFrame{node: w})
				} else if onStack[w] {
					low[top.node] = min(low[top.node], index[w])
				}
				continue
			}

			v := top.node
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].node
				low[parent] = min(low[parent], low[v])
			}
			if low[v] != index[v] {
				continue
			}
			var comp SCC
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			slices.Sort(comp)
			out = append(out, comp)
		}
	}
	return out
}
