// Package ssair lowers Go SSA (golang.org/x/tools/go/ssa) into the ir
// program graph analyzed by taintpass.
//
// Go SSA instructions map onto the ir opcodes as follows:
//
//	*ssa.Store                            OpStore  [Val, Addr]
//	*ssa.UnOp with token.MUL              OpLoad   [X]
//	*ssa.FieldAddr, *ssa.Field            OpOffset [X]
//	*ssa.IndexAddr, *ssa.Index            OpOffset [X, Index]
//	*ssa.Lookup                           OpOffset [X, Index]
//	*ssa.Slice                            OpOffset [X, Low, High, Max]
//	conversions and type assertions       OpCast   [X]
//	*ssa.Phi                              OpPhi    [Edges...]
//	*ssa.Call                             OpCall   [Args...]
//
// Everything else, including go and defer statements, is lowered to
// OpOther. A call's callee is the String() of its static callee, e.g.
// "(*database/sql.DB).Query"; dynamic calls have no callee.
package ssair

import (
	"context"
	"fmt"
	"go/token"
	"slices"
	"strings"

	"github.com/picatz/taintpass/ir"
	"github.com/picatz/taintpass/logging"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Option configures the lowering.
type Option func(*options)

type options struct {
	scope func(*ssa.Function) bool
}

// WithScope limits the functions whose bodies are lowered. Functions out
// of scope are still registered, as declarations, when they are called.
func WithScope(inScope func(*ssa.Function) bool) Option {
	return func(o *options) {
		o.scope = inScope
	}
}

// WithPackages limits the lowered bodies to functions of the packages with
// the given import paths, and to their anonymous functions.
func WithPackages(paths ...string) Option {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return WithScope(func(fn *ssa.Function) bool {
		pkg := packageOf(fn)
		return pkg != nil && set[pkg.Pkg.Path()]
	})
}

// FromProgram lowers every function of prog. The program must already be
// built.
func FromProgram(ctx context.Context, prog *ssa.Program, opts ...Option) (*ir.Program, error) {
	if prog == nil {
		return nil, fmt.Errorf("ssair: nil program")
	}

	fns := make([]*ssa.Function, 0, 64)
	for fn := range ssautil.AllFunctions(prog) {
		fns = append(fns, fn)
	}
	// Map iteration order is random; the ir program is not.
	slices.SortFunc(fns, func(a, b *ssa.Function) int {
		return strings.Compare(a.String(), b.String())
	})

	return FromFunctions(ctx, fns, opts...)
}

// FromFunctions lowers fns, in order, and every function they statically
// call. Functions reached first are registered first.
func FromFunctions(ctx context.Context, fns []*ssa.Function, opts ...Option) (*ir.Program, error) {
	o := &options{
		scope: func(*ssa.Function) bool { return true },
	}
	for _, opt := range opts {
		opt(o)
	}

	l := &lowerer{
		opts:   o,
		b:      ir.NewBuilder(),
		fns:    make(map[*ssa.Function]*ir.Function),
		values: make(map[ssa.Value]ir.ValueID),
		logger: logging.FromContext(ctx).WithPrefix("ssair"),
	}

	for _, fn := range fns {
		if fn != nil {
			l.function(fn)
		}
	}

	l.progress = logging.NewProgressTracker(ctx, "Lowering functions", len(l.queue))
	for len(l.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]

		l.body(fn)
		l.progress.Update(fn.String())
	}
	l.progress.Complete()

	prog := l.b.Program()
	l.logger.Debug("lowered %d function(s), %d value(s)", len(prog.Functions), prog.NumValues())
	return prog, nil
}

type lowerer struct {
	opts   *options
	b      *ir.Builder
	fns    map[*ssa.Function]*ir.Function
	values map[ssa.Value]ir.ValueID
	queue  []*ssa.Function
	logger *logging.Logger

	// progress is nil until the initial functions are registered.
	progress *logging.ProgressTracker
}

// function registers fn, queueing its body if it has one in scope.
func (l *lowerer) function(fn *ssa.Function) *ir.Function {
	if f, ok := l.fns[fn]; ok {
		return f
	}

	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name()
	}

	f := l.b.Function(fn.String(), params...)
	if pkg := packageOf(fn); pkg != nil {
		f.Package = pkg.Pkg.Path()
	}
	for i, p := range fn.Params {
		l.values[p] = f.Params[i]
	}
	l.fns[fn] = f

	if len(fn.Blocks) > 0 && l.opts.scope(fn) {
		l.queue = append(l.queue, fn)
		if l.progress != nil {
			l.progress.Grow(1)
		}
	} else {
		l.logger.Trace("declare %s", fn)
	}
	return f
}

// packageOf returns the package of fn, or of its enclosing function for
// anonymous functions and instantiations.
func packageOf(fn *ssa.Function) *ssa.Package {
	for fn != nil {
		if fn.Pkg != nil {
			return fn.Pkg
		}
		if fn.Parent() != nil {
			fn = fn.Parent()
		} else {
			fn = fn.Origin()
		}
	}
	return nil
}

func (l *lowerer) body(fn *ssa.Function) {
	f := l.fns[fn]

	blocks := make([]*ir.Block, len(fn.Blocks))
	for i, bb := range fn.Blocks {
		blocks[i] = l.b.NewBlock(f, bb.Comment)
	}
	for i, bb := range fn.Blocks {
		for _, succ := range bb.Succs {
			ir.AddEdge(blocks[i], blocks[succ.Index])
		}
	}

	for i, bb := range fn.Blocks {
		for _, instr := range bb.Instrs {
			l.instruction(f, blocks[i], instr)
		}
	}
}

func (l *lowerer) instruction(f *ir.Function, blk *ir.Block, instr ssa.Instruction) {
	in := &ir.Instruction{
		Op:       ir.OpOther,
		Mnemonic: mnemonic(instr),
		Pos:      instr.Pos(),
	}

	if v, ok := instr.(ssa.Value); ok {
		in.Result = l.value(f, v)
		in.Text = v.Name() + " = " + instr.String()
	} else {
		in.Text = instr.String()
	}

	switch instr := instr.(type) {
	case *ssa.Store:
		in.Op = ir.OpStore
		in.Operands = l.operands(f, instr.Val, instr.Addr)
	case *ssa.UnOp:
		if instr.Op == token.MUL {
			in.Op = ir.OpLoad
		}
		in.Operands = l.operands(f, instr.X)
	case *ssa.FieldAddr:
		in.Op = ir.OpOffset
		in.Operands = l.operands(f, instr.X)
	case *ssa.Field:
		in.Op = ir.OpOffset
		in.Operands = l.operands(f, instr.X)
	case *ssa.IndexAddr:
		in.Op = ir.OpOffset
		in.Operands = l.operands(f, instr.X, instr.Index)
	case *ssa.Index:
		in.Op = ir.OpOffset
		in.Operands = l.operands(f, instr.X, instr.Index)
	case *ssa.Lookup:
		in.Op = ir.OpOffset
		in.Operands = l.operands(f, instr.X, instr.Index)
	case *ssa.Slice:
		in.Op = ir.OpOffset
		in.Operands = l.operands(f, instr.X, instr.Low, instr.High, instr.Max)
	case *ssa.Convert:
		in.Op = ir.OpCast
		in.Operands = l.operands(f, instr.X)
	case *ssa.ChangeType:
		in.Op = ir.OpCast
		in.Operands = l.operands(f, instr.X)
	case *ssa.ChangeInterface:
		in.Op = ir.OpCast
		in.Operands = l.operands(f, instr.X)
	case *ssa.MakeInterface:
		in.Op = ir.OpCast
		in.Operands = l.operands(f, instr.X)
	case *ssa.SliceToArrayPointer:
		in.Op = ir.OpCast
		in.Operands = l.operands(f, instr.X)
	case *ssa.MultiConvert:
		in.Op = ir.OpCast
		in.Operands = l.operands(f, instr.X)
	case *ssa.TypeAssert:
		in.Op = ir.OpCast
		in.Operands = l.operands(f, instr.X)
	case *ssa.Phi:
		in.Op = ir.OpPhi
		in.Operands = l.operands(f, instr.Edges...)
	case *ssa.Call:
		in.Op = ir.OpCall
		common := instr.Common()
		if callee := common.StaticCallee(); callee != nil {
			in.Callee = l.function(callee).Name
		}
		in.Operands = l.operands(f, common.Args...)
	default:
		var rands []ssa.Value
		for _, rand := range instr.Operands(nil) {
			if rand != nil {
				rands = append(rands, *rand)
			}
		}
		in.Operands = l.operands(f, rands...)
	}

	l.b.Emit(blk, in)
}

// operands resolves vs, skipping nil values such as the missing bounds of
// a slice expression.
func (l *lowerer) operands(f *ir.Function, vs ...ssa.Value) []ir.ValueID {
	ids := make([]ir.ValueID, 0, len(vs))
	for _, v := range vs {
		if v == nil {
			continue
		}
		ids = append(ids, l.value(f, v))
	}
	return ids
}

// value returns the handle of v, allocating it on first use. Instruction
// results may be referenced before their definition is lowered; Emit binds
// the definition later.
func (l *lowerer) value(f *ir.Function, v ssa.Value) ir.ValueID {
	if id, ok := l.values[v]; ok {
		return id
	}

	var id ir.ValueID
	switch v := v.(type) {
	case *ssa.Const:
		id = l.b.Const(v.String())
	case *ssa.Global:
		id = l.b.Global(v.String())
	case *ssa.Function:
		id = l.b.NewValue(ir.KindFunc, v.String(), nil)
	case *ssa.Builtin:
		id = l.b.NewValue(ir.KindFunc, v.Name(), nil)
	case *ssa.FreeVar:
		id = l.b.NewValue(ir.KindParam, "%"+v.Name(), f)
	case *ssa.Parameter:
		// parameter of a function that was never registered
		id = l.b.NewValue(ir.KindParam, "%"+v.Name(), nil)
	default:
		id = l.b.NewValue(ir.KindInstr, v.Name(), f)
	}
	l.values[v] = id
	return id
}

func mnemonic(instr ssa.Instruction) string {
	name := fmt.Sprintf("%T", instr)
	return strings.ToLower(strings.TrimPrefix(name, "*ssa."))
}
