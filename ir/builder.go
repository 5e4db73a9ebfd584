package ir

import "fmt"

// Builder constructs a Program. It is not safe for concurrent use.
type Builder struct {
	prog *Program

	// temps numbers anonymous instruction results per function.
	temps map[*Function]int
}

// NewBuilder returns a Builder for an empty program.
func NewBuilder() *Builder {
	return &Builder{
		prog: &Program{
			byName: make(map[string]*Function),
			values: []*Value{nil},
		},
		temps: make(map[*Function]int),
	}
}

// Program returns the program built so far.
func (b *Builder) Program() *Program {
	return b.prog
}

// NewValue allocates a value in the arena. Front-ends use it to create
// forward references (e.g. phi operands defined in a later block) before
// the defining instruction is emitted.
func (b *Builder) NewValue(kind ValueKind, name string, fn *Function) ValueID {
	id := ValueID(len(b.prog.values))
	b.prog.values = append(b.prog.values, &Value{
		ID:   id,
		Kind: kind,
		Name: name,
		Func: fn,
	})
	return id
}

// Function registers a function with a body to be filled in with NewBlock.
func (b *Builder) Function(name string, params ...string) *Function {
	fn := &Function{Name: name, Prog: b.prog}
	for _, p := range params {
		fn.Params = append(fn.Params, b.NewValue(KindParam, "%"+p, fn))
	}
	b.prog.Functions = append(b.prog.Functions, fn)
	if _, ok := b.prog.byName[name]; !ok {
		b.prog.byName[name] = fn
	}
	return fn
}

// Declare registers an external function. It is the same as Function; the
// name documents that no block will be added.
func (b *Builder) Declare(name string, params ...string) *Function {
	return b.Function(name, params...)
}

// Const allocates a constant value.
func (b *Builder) Const(text string) ValueID {
	return b.NewValue(KindConst, text, nil)
}

// Global allocates a global value.
func (b *Builder) Global(name string) ValueID {
	return b.NewValue(KindGlobal, "@"+name, nil)
}

// NewBlock appends a new block to fn. The first block is the entry block.
func (b *Builder) NewBlock(fn *Function, comment string) *Block {
	blk := &Block{
		Index:   len(fn.Blocks),
		Comment: comment,
		Func:    fn,
	}
	fn.Blocks = append(fn.Blocks, blk)
	return blk
}

// AddEdge adds the CFG edge from → to.
func AddEdge(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// Emit appends instr to blk. If instr.Result is set, the value is bound to
// instr as its definition.
func (b *Builder) Emit(blk *Block, instr *Instruction) *Instruction {
	instr.Block = blk
	instr.Index = len(blk.Instrs)
	blk.Instrs = append(blk.Instrs, instr)
	if v := b.prog.Value(instr.Result); v != nil {
		v.Instr = instr
		if v.Func == nil {
			v.Func = blk.Func
		}
	}
	return instr
}

func (b *Builder) temp(fn *Function) ValueID {
	n := b.temps[fn]
	b.temps[fn] = n + 1
	return b.NewValue(KindInstr, fmt.Sprintf("%%%d", n), fn)
}

func (b *Builder) emitResult(blk *Block, op Op, mnemonic string, operands ...ValueID) ValueID {
	res := b.temp(blk.Func)
	b.Emit(blk, &Instruction{
		Op:       op,
		Mnemonic: mnemonic,
		Operands: operands,
		Result:   res,
	})
	return res
}

// Store emits `store val, ptr`.
func (b *Builder) Store(blk *Block, val, ptr ValueID) *Instruction {
	return b.Emit(blk, &Instruction{
		Op:       OpStore,
		Mnemonic: "store",
		Operands: []ValueID{val, ptr},
	})
}

// Load emits `%n = load ptr`.
func (b *Builder) Load(blk *Block, ptr ValueID) ValueID {
	return b.emitResult(blk, OpLoad, "load", ptr)
}

// Offset emits `%n = getelementptr base, idx...`.
func (b *Builder) Offset(blk *Block, base ValueID, idx ...ValueID) ValueID {
	return b.emitResult(blk, OpOffset, "getelementptr", append([]ValueID{base}, idx...)...)
}

// Cast emits `%n = bitcast src`.
func (b *Builder) Cast(blk *Block, src ValueID) ValueID {
	return b.emitResult(blk, OpCast, "bitcast", src)
}

// Phi emits `%n = phi incoming...`.
func (b *Builder) Phi(blk *Block, incoming ...ValueID) ValueID {
	return b.emitResult(blk, OpPhi, "phi", incoming...)
}

// Call emits `%n = call callee(args...)`. An empty callee is an indirect call.
func (b *Builder) Call(blk *Block, callee string, args ...ValueID) *Instruction {
	return b.Emit(blk, &Instruction{
		Op:       OpCall,
		Mnemonic: "call",
		Operands: args,
		Result:   b.temp(blk.Func),
		Callee:   callee,
	})
}

// Other emits a taint-transparent instruction with a result.
func (b *Builder) Other(blk *Block, mnemonic string, operands ...ValueID) ValueID {
	return b.emitResult(blk, OpOther, mnemonic, operands...)
}
