package taintpass

import (
	"context"
	"slices"
	"testing"

	"github.com/picatz/taintpass/ir"
)

func TestTransferRules(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Function("f", "x", "y")
	blk := b.NewBlock(fn, "entry")
	x, y := fn.Param(0), fn.Param(1)

	p := b.Other(blk, "alloca")
	store := b.Store(blk, x, p)
	loadP := b.Load(blk, p)
	loadY := b.Load(blk, y)
	off := b.Offset(blk, loadP, b.Const("4"))
	offIdx := b.Offset(blk, y, x)
	cast := b.Cast(blk, off)
	bin := b.Other(blk, "add", x, y)

	a := newAnalysis(context.Background(), b.Program(), DefaultOptions())
	tainted := valueSet{x: {}}
	for _, instr := range blk.Instrs {
		a.evaluate(instr, tainted)
	}

	for name, id := range map[string]ir.ValueID{"store target": p, "load": loadP, "offset": off, "cast": cast} {
		if !tainted.includes(id) {
			t.Errorf("expected %s to be tainted", name)
		}
	}
	for name, id := range map[string]ir.ValueID{"load of clean pointer": loadY, "tainted index": offIdx, "binary op": bin, "store value": y} {
		if tainted.includes(id) {
			t.Errorf("expected %s to be clean", name)
		}
	}
	if store.Result != ir.NoValue {
		t.Errorf("store should not produce a value")
	}
}

func TestPhiRequiresTaintedIncoming(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Function("f", "x")
	blk := b.NewBlock(fn, "entry")
	phi := b.Phi(blk, b.Const("0"), b.Const("1"))

	a := newAnalysis(context.Background(), b.Program(), DefaultOptions())
	tainted := valueSet{fn.Param(0): {}}
	for _, instr := range blk.Instrs {
		a.evaluate(instr, tainted)
	}
	if tainted.includes(phi) {
		t.Fatal("phi with only clean incoming values must stay clean")
	}
}

func TestMissingOperandsHaveNoEffect(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Function("f", "x")
	blk := b.NewBlock(fn, "entry")
	b.Emit(blk, &ir.Instruction{Op: ir.OpStore, Operands: []ir.ValueID{fn.Param(0)}})
	b.Emit(blk, &ir.Instruction{Op: ir.OpLoad})

	a := newAnalysis(context.Background(), b.Program(), DefaultOptions())
	tainted := valueSet{fn.Param(0): {}}
	for _, instr := range blk.Instrs {
		a.evaluate(instr, tainted)
	}
	if got := tainted.sorted(); !slices.Equal(got, []ir.ValueID{fn.Param(0)}) {
		t.Fatalf("expected only the seed, got %v", got)
	}
}

func TestTaintSetMonotonic(t *testing.T) {
	b, main, entry := mainProgram()
	mid := b.NewBlock(main, "mid")
	end := b.NewBlock(main, "end")
	ir.AddEdge(entry, mid)
	ir.AddEdge(mid, end)

	p := b.Other(entry, "alloca")
	b.Store(entry, main.Param(1), p)
	v := b.Load(mid, p)
	b.Cast(end, v)

	var snapshots [][]ir.ValueID
	a := newAnalysis(context.Background(), b.Program(), DefaultOptions())
	a.afterBlock = func(_ *ir.Block, tainted valueSet) {
		snapshots = append(snapshots, tainted.sorted())
	}
	a.run(main)

	if len(snapshots) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snapshots))
	}
	for i := 1; i < len(snapshots); i++ {
		for _, id := range snapshots[i-1] {
			if !slices.Contains(snapshots[i], id) {
				t.Fatalf("value %d disappeared after block %d", id, i)
			}
		}
		if len(snapshots[i]) <= len(snapshots[i-1]) {
			t.Fatalf("expected block %d to add taint", i)
		}
	}
}

func TestTaintedSlots(t *testing.T) {
	b := ir.NewBuilder()
	fn := b.Function("f", "a", "b", "c")
	blk := b.NewBlock(fn, "entry")
	call := b.Call(blk, "g", fn.Param(2), fn.Param(1), fn.Param(2))

	tainted := valueSet{fn.Param(2): {}}
	if got := taintedSlots(call, tainted); !slices.Equal(got, []int{0, 2}) {
		t.Fatalf("unexpected slots: %v", got)
	}
	if got := slotKey([]int{0, 2}); got != "0,2" {
		t.Fatalf("unexpected key: %q", got)
	}
}
