package callgraphutil

import (
	"bytes"
	"fmt"

	"github.com/picatz/taintpass/ir"
)

// Node is a function in the call graph.
type Node struct {
	ID   int
	Func *ir.Function
	In   []*Edge
	Out  []*Edge
}

// String returns "n<ID>:<function>".
func (n *Node) String() string {
	return fmt.Sprintf("n%d:%s", n.ID, n.Func)
}

// Edge is a static call from Caller to Callee. Site is the first call
// instruction found for the pair.
type Edge struct {
	Caller *Node
	Site   *ir.Instruction
	Callee *Node
}

// String returns "caller --> callee".
func (e *Edge) String() string {
	return fmt.Sprintf("%s --> %s", e.Caller, e.Callee)
}

// Graph is a static call graph over an ir.Program.
type Graph struct {
	Root  *Node
	Nodes map[*ir.Function]*Node

	// order holds the nodes in creation order so output is deterministic.
	order []*Node
}

// CreateNode returns the node for fn, creating it if needed.
func (g *Graph) CreateNode(fn *ir.Function) *Node {
	if n, ok := g.Nodes[fn]; ok {
		return n
	}
	n := &Node{ID: len(g.order), Func: fn}
	g.Nodes[fn] = n
	g.order = append(g.order, n)
	return n
}

// AddEdge adds the edge caller --site--> callee unless the pair is
// already connected.
func AddEdge(caller *Node, site *ir.Instruction, callee *Node) {
	for _, e := range caller.Out {
		if e.Callee == callee {
			return
		}
	}
	e := &Edge{Caller: caller, Site: site, Callee: callee}
	caller.Out = append(caller.Out, e)
	callee.In = append(callee.In, e)
}

// GraphString returns a string representation of the call graph,
// which is a sequence of nodes separated by newlines, with the
// callees of each node indented by a tab.
func GraphString(g *Graph) string {
	var buf bytes.Buffer

	for _, n := range g.order {
		fmt.Fprintf(&buf, "%s\n", n)
		for _, e := range n.Out {
			fmt.Fprintf(&buf, "\t→ %s\n", e.Callee)
		}
		fmt.Fprintf(&buf, "\n")
	}

	return buf.String()
}

// NewGraph returns the static call graph of the functions reachable from
// root.
//
// Only direct calls are followed: a call instruction contributes an edge
// when its callee name resolves to a function of the program. Declarations
// become leaf nodes. A nil root builds the graph of every function in the
// program, and the resulting graph has no Root.
func NewGraph(prog *ir.Program, root *ir.Function) (*Graph, error) {
	if prog == nil {
		return nil, fmt.Errorf("callgraphutil: nil program")
	}

	g := &Graph{
		Nodes: make(map[*ir.Function]*Node, len(prog.Functions)),
	}

	var walkFn func(fn *ir.Function)
	walkFn = func(fn *ir.Function) {
		if _, ok := g.Nodes[fn]; ok {
			return
		}
		caller := g.CreateNode(fn)

		for _, blk := range fn.Blocks {
			for _, instr := range blk.Instrs {
				if instr.Op != ir.OpCall || instr.Callee == "" {
					continue
				}
				callee := prog.Func(instr.Callee)
				if callee == nil {
					continue
				}
				walkFn(callee)
				AddEdge(caller, instr, g.Nodes[callee])
			}
		}
	}

	if root != nil {
		if prog.Func(root.Name) != root {
			return nil, fmt.Errorf("callgraphutil: root %q does not belong to the program", root.Name)
		}
		walkFn(root)
		g.Root = g.Nodes[root]
		return g, nil
	}

	for _, fn := range prog.Functions {
		walkFn(fn)
	}
	return g, nil
}
