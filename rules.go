package taintpass

import "github.com/picatz/taintpass/ir"

// evaluate applies the transfer rule of instr to the tainted set. Rules
// only insert; an instruction missing the operands or result a rule needs
// has no effect.
func (a *analysis) evaluate(instr *ir.Instruction, tainted valueSet) {
	switch instr.Op {
	case ir.OpStore:
		// store value, pointer
		if tainted.includes(instr.Operand(0)) {
			tainted.add(instr.Operand(1))
		}
	case ir.OpLoad, ir.OpOffset, ir.OpCast:
		// The first operand is the pointer, base address or cast source.
		if tainted.includes(instr.Operand(0)) {
			tainted.add(instr.Result)
		}
	case ir.OpPhi:
		for _, incoming := range instr.Operands {
			if tainted.includes(incoming) {
				tainted.add(instr.Result)
				break
			}
		}
	case ir.OpCall:
		a.call(instr, tainted)
	default:
		// taint-transparent
	}
}
