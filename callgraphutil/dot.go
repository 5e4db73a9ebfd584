package callgraphutil

import (
	"bufio"
	"fmt"
	"io"
)

// WriteDOT writes the given Graph to the given io.Writer in the DOT
// format, which can be used to generate a visual representation of the
// call graph using Graphviz. Declarations are drawn as dashed boxes.
func WriteDOT(w io.Writer, g *Graph) error {
	b := bufio.NewWriter(w)

	b.WriteString("digraph callgraph {\n")
	b.WriteString("\tgraph [fontname=\"Helvetica\"];\n")
	b.WriteString("\tnode [fontname=\"Helvetica\"];\n")
	b.WriteString("\tedge [fontname=\"Helvetica\"];\n")

	var edges []*Edge

	for _, n := range g.order {
		attrs := ""
		if n.Func.IsDeclaration() {
			attrs = ", shape=box, style=dashed"
		}
		fmt.Fprintf(b, "\t%q [label=%q%s];\n", fmt.Sprintf("%d", n.ID), n.Func.Name, attrs)

		edges = append(edges, n.Out...)
	}

	for _, e := range edges {
		fmt.Fprintf(b, "\t%q -> %q [label=%q];\n", fmt.Sprintf("%d", e.Caller.ID), fmt.Sprintf("%d", e.Callee.ID), e.Site.String())
	}

	b.WriteString("}\n")

	return b.Flush()
}
