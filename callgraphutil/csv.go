package callgraphutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// WriteCSV writes one row per edge of the given Graph to w. This format
// can be used to generate a visual representation of the call graph using
// many different tools.
func WriteCSV(w io.Writer, g *Graph) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{
		"source_pkg",
		"source_pkg_origin",
		"source_func",
		"target_pkg",
		"target_pkg_origin",
		"target_func",
		"target_declaration",
		"site",
	}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, n := range g.order {
		sourcePkg, sourceOrigin := nodeCSVInfo(n)

		for _, e := range n.Out {
			targetPkg, targetOrigin := nodeCSVInfo(e.Callee)

			if err := cw.Write([]string{
				sourcePkg,
				sourceOrigin,
				n.Func.Name,
				targetPkg,
				targetOrigin,
				e.Callee.Func.Name,
				fmt.Sprintf("%t", e.Callee.Func.IsDeclaration()),
				e.Site.String(),
			}); err != nil {
				return fmt.Errorf("failed to write edge: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func nodeCSVInfo(n *Node) (pkgPath, pkgOrigin string) {
	pkgPath = n.Func.Package
	switch {
	case pkgPath == "":
		return "unknown", "unknown"
	case strings.Contains(strings.Split(pkgPath, "/")[0], "."):
		return pkgPath, strings.Split(pkgPath, "/")[0]
	default:
		// no dot in the first element, probably the standard library
		return pkgPath, "stdlib"
	}
}
