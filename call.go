package taintpass

import (
	"strconv"
	"strings"

	"github.com/picatz/taintpass/ir"
)

// call handles a call instruction: it either checks a sink, or follows
// the call into a callee with a body, carrying taint across the boundary
// through the argument positions.
func (a *analysis) call(instr *ir.Instruction, tainted valueSet) {
	if instr.Callee == "" {
		a.logger.Trace("skip indirect call %s in %s", instr, instr.Func())
		return
	}

	slots := taintedSlots(instr, tainted)

	if spec, ok := a.sinks.Lookup(instr.Callee); ok {
		if spec.matches(slots) {
			a.violation(instr, spec)
		}
		return
	}

	callee := a.prog.Func(instr.Callee)
	if callee == nil || callee.IsDeclaration() {
		// Taint does not flow through unknown external code.
		return
	}

	a.descend(instr, callee, slots)
}

// descend traverses callee with the parameters at the tainted argument
// positions as its initial taint set. The call site stays on the
// backtrace for exactly the duration of the descent.
func (a *analysis) descend(site *ir.Instruction, callee *ir.Function, slots []int) {
	a.stack.push(site)
	defer a.stack.pop()

	seed := make(valueSet, len(slots))
	for _, slot := range slots {
		seed.add(callee.Param(slot))
	}
	if len(seed) == 0 {
		return
	}

	if a.opts.MaxDepth > 0 && a.stack.depth() > a.opts.MaxDepth {
		a.logger.Warning("max call depth %d reached at %s, not following %s", a.opts.MaxDepth, site.Func(), callee)
		return
	}

	if a.opts.Guard {
		sig := signature{fn: callee, slots: slotKey(slots)}
		if _, active := a.active[sig]; active {
			a.logger.Warning("recursive call to %s with tainted slots [%s] already on the call path, not following", callee, sig.slots)
			return
		}
		a.active[sig] = struct{}{}
		defer delete(a.active, sig)
	}

	a.traverse(callee, seed)
}

// taintedSlots returns, in ascending order, the argument positions of
// instr whose value is tainted.
func taintedSlots(instr *ir.Instruction, tainted valueSet) []int {
	var slots []int
	for i, arg := range instr.Operands {
		if tainted.includes(arg) {
			slots = append(slots, i)
		}
	}
	return slots
}

// signature identifies a descent by callee and tainted argument positions.
type signature struct {
	fn    *ir.Function
	slots string
}

func slotKey(slots []int) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}
