package callgraphutil

import (
	"sort"

	"github.com/yourbasic/graph"
)

// Cycles returns the recursive groups of the call graph: strongly
// connected components with more than one function, and functions that
// call themselves. Each group is sorted by node ID, and groups are ordered
// by their first node.
func Cycles(g *Graph) [][]*Node {
	m := graph.New(len(g.order))
	for _, n := range g.order {
		for _, e := range n.Out {
			m.Add(n.ID, e.Callee.ID)
		}
	}

	var cycles [][]*Node
	for _, component := range graph.StrongComponents(m) {
		if len(component) == 1 && !m.Edge(component[0], component[0]) {
			continue
		}
		sort.Ints(component)
		group := make([]*Node, len(component))
		for i, id := range component {
			group[i] = g.order[id]
		}
		cycles = append(cycles, group)
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0].ID < cycles[j][0].ID
	})
	return cycles
}
