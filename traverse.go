package taintpass

import "github.com/picatz/taintpass/ir"

// traverse walks fn's control-flow graph breadth first from the entry
// block, evaluating every instruction against tainted.
//
// Each block is processed at most once, so taint that reaches a block
// through a back-edge after the block was visited is not propagated.
func (a *analysis) traverse(fn *ir.Function, tainted valueSet) {
	// external declaration
	if fn.IsDeclaration() {
		return
	}

	a.logger.Debug("traverse %s with %d tainted value(s)", fn.Name, len(tainted))

	queue := []*ir.Block{fn.Entry()}
	visited := make(map[*ir.Block]bool, len(fn.Blocks))

	for len(queue) > 0 {
		blk := queue[0]
		queue = queue[1:]

		if visited[blk] {
			continue
		}
		visited[blk] = true

		for _, instr := range blk.Instrs {
			a.evaluate(instr, tainted)
		}

		if a.afterBlock != nil {
			a.afterBlock(blk, tainted)
		}

		for _, succ := range blk.Succs {
			if !visited[succ] {
				queue = append(queue, succ)
			}
		}
	}
}
