// Package ir defines the read-only program graph consumed by the taint
// engine: functions made of basic blocks, blocks made of instructions, and
// an arena of values addressed by stable ValueID handles.
//
// Front-ends (see package ssair) lower a concrete representation into an
// ir.Program using a Builder. Nothing in this package performs analysis.
package ir

import (
	"fmt"
	"go/token"
)

// ValueID is a stable handle for a Value owned by a Program. Two values are
// the same value iff their IDs are equal.
type ValueID int

// NoValue is the zero ValueID, used for instructions that produce no result.
const NoValue ValueID = 0

// ValueKind classifies where a Value comes from.
type ValueKind uint8

const (
	KindInstr ValueKind = iota + 1
	KindParam
	KindConst
	KindGlobal
	KindFunc
)

// String returns a short, lower-case name for the kind.
func (k ValueKind) String() string {
	switch k {
	case KindInstr:
		return "instr"
	case KindParam:
		return "param"
	case KindConst:
		return "const"
	case KindGlobal:
		return "global"
	case KindFunc:
		return "func"
	default:
		return "unknown"
	}
}

// Value is a program datum: an instruction result, a formal parameter,
// a constant, a global, or a function reference.
type Value struct {
	ID   ValueID
	Kind ValueKind
	Name string

	// Func is the function owning a parameter or instruction result.
	Func *Function
	// Instr is the defining instruction of an instruction result.
	Instr *Instruction
}

// String returns the value's name.
func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	return v.Name
}

// Op is the opcode class of an instruction. The set is closed: a front-end
// maps every concrete opcode onto exactly one of these.
type Op uint8

const (
	// OpOther is any taint-transparent instruction.
	OpOther Op = iota
	// OpStore writes Operands[0] through the pointer Operands[1].
	OpStore
	// OpLoad reads through the pointer Operands[0].
	OpLoad
	// OpOffset computes an address or element from the base Operands[0].
	OpOffset
	// OpCast reinterprets Operands[0] without changing its bits.
	OpCast
	// OpPhi merges one incoming value per predecessor edge.
	OpPhi
	// OpCall calls Callee with Operands as the actual arguments.
	OpCall
)

// String returns the opcode class name.
func (o Op) String() string {
	switch o {
	case OpStore:
		return "store"
	case OpLoad:
		return "load"
	case OpOffset:
		return "offset"
	case OpCast:
		return "cast"
	case OpPhi:
		return "phi"
	case OpCall:
		return "call"
	default:
		return "other"
	}
}

// Instruction is a single IR instruction. It belongs to exactly one Block.
type Instruction struct {
	Op Op

	// Mnemonic is the front-end's own opcode name (e.g. "getelementptr",
	// "*ssa.FieldAddr"), kept for printing only.
	Mnemonic string

	Operands []ValueID

	// Result is the value defined by this instruction, or NoValue.
	Result ValueID

	// Callee is the statically resolved callee name of an OpCall, or ""
	// when the call is indirect.
	Callee string

	// Text overrides the default rendering of the instruction.
	Text string

	// Pos is the source position, if the front-end knows it.
	Pos token.Pos

	Block *Block
	Index int
}

// Func returns the function containing the instruction.
func (i *Instruction) Func() *Function {
	if i == nil || i.Block == nil {
		return nil
	}
	return i.Block.Func
}

// Operand returns the n-th operand, or NoValue if there is none.
func (i *Instruction) Operand(n int) ValueID {
	if n < 0 || n >= len(i.Operands) {
		return NoValue
	}
	return i.Operands[n]
}

// Block is a straight-line sequence of instructions with CFG edges to its
// successors.
type Block struct {
	Index   int
	Comment string
	Instrs  []*Instruction
	Succs   []*Block
	Preds   []*Block
	Func    *Function
}

// String returns a short block label such as "b2".
func (b *Block) String() string {
	if b.Comment != "" {
		return fmt.Sprintf("b%d (%s)", b.Index, b.Comment)
	}
	return fmt.Sprintf("b%d", b.Index)
}

// Function is a named function. A function without blocks is an external
// declaration.
type Function struct {
	Name string

	// Package is the import path of the defining package, if the
	// front-end has one.
	Package string

	Params []ValueID
	Blocks []*Block
	Prog   *Program
}

// String returns the function name.
func (f *Function) String() string {
	return f.Name
}

// Entry returns the entry block, or nil for a declaration.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// IsDeclaration reports whether the function has no body.
func (f *Function) IsDeclaration() bool {
	return len(f.Blocks) == 0
}

// Param returns the n-th formal parameter, or NoValue.
func (f *Function) Param(n int) ValueID {
	if n < 0 || n >= len(f.Params) {
		return NoValue
	}
	return f.Params[n]
}

// Program owns every function and value of one analyzed module.
type Program struct {
	Functions []*Function

	byName map[string]*Function

	// values[0] is a placeholder so that NoValue never resolves.
	values []*Value
}

// Func returns the first registered function with the exact given name,
// or nil.
func (p *Program) Func(name string) *Function {
	if p == nil {
		return nil
	}
	return p.byName[name]
}

// Value resolves a handle. It returns nil for NoValue and for IDs that
// do not belong to this program.
func (p *Program) Value(id ValueID) *Value {
	if p == nil || id <= NoValue || int(id) >= len(p.values) {
		return nil
	}
	return p.values[id]
}

// NumValues returns the number of values in the arena.
func (p *Program) NumValues() int {
	return len(p.values) - 1
}
