package callgraphutil

import (
	"bytes"
	"slices"
)

// Path is a sequence of Edges, where each edge represents a call from a
// caller to a callee, making up a "chain" of calls, e.g.:
// main → foo → bar → strcpy.
type Path []*Edge

// Empty returns true if the path is empty, false otherwise.
func (p Path) Empty() bool {
	return len(p) == 0
}

// First returns the first edge in the path, or nil if the path is empty.
func (p Path) First() *Edge {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

// Last returns the last edge in the path, or nil if the path is empty.
func (p Path) Last() *Edge {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// String returns the function names of the path separated by " → ".
func (p Path) String() string {
	var buf bytes.Buffer
	for i, e := range p {
		if i == 0 {
			buf.WriteString(e.Caller.Func.Name)
		}
		buf.WriteString(" → ")
		buf.WriteString(e.Callee.Func.Name)
	}
	return buf.String()
}

// Paths is a collection of paths, e.g.: all paths from main to strcpy.
type Paths []Path

// Shortest returns the shortest path, or nil if there are none. Ties go
// to the first path found.
func (p Paths) Shortest() Path {
	if len(p) == 0 {
		return nil
	}

	shortest := p[0]
	for _, path := range p {
		if len(path) < len(shortest) {
			shortest = path
		}
	}

	return shortest
}

// Longest returns the longest path, or nil if there are none. Ties go
// to the first path found.
func (p Paths) Longest() Path {
	if len(p) == 0 {
		return nil
	}

	longest := p[0]
	for _, path := range p {
		if len(path) > len(longest) {
			longest = path
		}
	}

	return longest
}

// PathSearch returns the first path found, depth first, from start to a
// node matching isMatch. The path may not be the shortest one. A nil
// result means no path; an empty path means start itself matched.
func PathSearch(start *Node, isMatch func(*Node) bool) Path {
	var (
		stack = make(Path, 0, 32)
		seen  = make(map[*Node]bool)

		search func(n *Node) Path
	)

	search = func(n *Node) Path {
		if seen[n] {
			return nil
		}
		seen[n] = true
		if isMatch(n) {
			return slices.Clone(stack)
		}
		for _, e := range n.Out {
			stack = append(stack, e) // push
			if found := search(e.Callee); found != nil {
				return found
			}
			stack = stack[:len(stack)-1] // pop
		}
		return nil
	}
	if start == nil {
		return nil
	}
	return search(start)
}

// PathsSearch returns every acyclic path from start to a node matching
// isMatch. The search does not continue past a matching node.
func PathsSearch(start *Node, isMatch func(*Node) bool) Paths {
	var (
		paths  = Paths{}
		stack  = make(Path, 0, 32)
		onPath = make(map[*Node]bool)

		search func(n *Node)
	)

	search = func(n *Node) {
		if onPath[n] {
			return
		}
		if isMatch(n) {
			paths = append(paths, slices.Clone(stack))
			return
		}
		onPath[n] = true
		for _, e := range n.Out {
			stack = append(stack, e) // push
			search(e.Callee)
			stack = stack[:len(stack)-1] // pop
		}
		onPath[n] = false
	}
	if start != nil {
		search(start)
	}

	return paths
}

// PathSearchCallTo returns the first path found from start to the
// function with the exact given name.
func PathSearchCallTo(start *Node, fn string) Path {
	return PathSearch(start, func(n *Node) bool {
		return n.Func.Name == fn
	})
}

// PathsSearchCallTo returns the paths from start that call the function
// with the exact given name, e.g.: "(*database/sql.DB).Query".
func PathsSearchCallTo(start *Node, fn string) Paths {
	return PathsSearch(start, func(n *Node) bool {
		return n.Func.Name == fn
	})
}
