package taintpass

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/picatz/taintpass/ir"
)

// mainProgram starts a program with the conventional entry point
// main(argc, argv) and returns its entry block.
func mainProgram() (*ir.Builder, *ir.Function, *ir.Block) {
	b := ir.NewBuilder()
	b.Declare("strcpy", "dst", "src")
	main := b.Function("main", "argc", "argv")
	return b, main, b.NewBlock(main, "entry")
}

func check(t *testing.T, prog *ir.Program, opts Options) Results {
	t.Helper()
	results, err := Check(context.Background(), prog, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return results
}

func TestDirectSink(t *testing.T) {
	b, main, entry := mainProgram()

	dst := b.Other(entry, "alloca")
	p := b.Other(entry, "alloca")
	b.Store(entry, main.Param(1), p)
	v := b.Load(entry, p)
	sink := b.Call(entry, "strcpy", dst, v)

	results := check(t, b.Program(), DefaultOptions())

	if len(results) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(results))
	}
	got := results[0]
	if got.Site.Instr != sink || got.Site.Function != "main" {
		t.Fatalf("unexpected site: %v", got.Site)
	}
	if len(got.Backtrace) != 0 {
		t.Fatalf("expected empty backtrace, got %v", got.Backtrace)
	}
	if got.Sink != (SinkSpec{Name: "strcpy", Arg: 1}) {
		t.Fatalf("unexpected sink: %v", got.Sink)
	}
}

func TestUntaintedSinkArgument(t *testing.T) {
	b, main, entry := mainProgram()

	dst := b.Other(entry, "alloca")
	p := b.Other(entry, "alloca")
	b.Store(entry, main.Param(1), p)
	v := b.Load(entry, p)
	// tainted value in the destination slot only
	b.Call(entry, "strcpy", v, dst)

	if results := check(t, b.Program(), DefaultOptions()); len(results) != 0 {
		t.Fatalf("expected no violations, got %v", results)
	}
}

func TestSinkInHelper(t *testing.T) {
	b, main, entry := mainProgram()

	helper := b.Function("helper", "p0")
	hb := b.NewBlock(helper, "entry")
	local := b.Other(hb, "alloca")
	sink := b.Call(hb, "strcpy", local, helper.Param(0))

	p := b.Other(entry, "alloca")
	b.Store(entry, main.Param(1), p)
	v := b.Load(entry, p)
	call := b.Call(entry, "helper", v)

	results := check(t, b.Program(), DefaultOptions())

	if len(results) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(results))
	}
	got := results[0]
	if got.Site.Instr != sink || got.Site.Function != "helper" {
		t.Fatalf("unexpected site: %v", got.Site)
	}
	want := []Frame{{Function: "main", Instr: call}}
	if !reflect.DeepEqual(got.Backtrace, want) {
		t.Fatalf("unexpected backtrace: %v", got.Backtrace)
	}
}

func TestBacktraceOrder(t *testing.T) {
	b, main, entry := mainProgram()

	f2 := b.Function("f2", "x")
	f2b := b.NewBlock(f2, "entry")
	sink := b.Call(f2b, "strcpy", b.Const("null"), f2.Param(0))

	f1 := b.Function("f1", "x")
	f1b := b.NewBlock(f1, "entry")
	callF2 := b.Call(f1b, "f2", f1.Param(0))

	callF1 := b.Call(entry, "f1", main.Param(1))

	results := check(t, b.Program(), DefaultOptions())
	if len(results) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(results))
	}

	trace := results[0].Trace()
	want := []*ir.Instruction{sink, callF2, callF1}
	if len(trace) != len(want) {
		t.Fatalf("expected %d frames, got %v", len(want), trace)
	}
	for i, f := range trace {
		if f.Instr != want[i] {
			t.Errorf("frame %d: got %v, want %v", i, f.Instr, want[i])
		}
	}
	if trace[1].Function != "f1" || trace[2].Function != "main" {
		t.Errorf("unexpected frame functions: %v", trace)
	}
}

func TestExternalCallIsTransparent(t *testing.T) {
	b, main, entry := mainProgram()
	b.Declare("puts", "s")

	r := b.Call(entry, "puts", main.Param(1))
	b.Call(entry, "strcpy", b.Const("null"), r.Result)

	var blocks []*ir.Block
	a := newAnalysis(context.Background(), b.Program(), DefaultOptions())
	a.afterBlock = func(blk *ir.Block, _ valueSet) {
		blocks = append(blocks, blk)
	}
	a.run(main)

	if len(a.results) != 0 {
		t.Fatalf("expected no violations, got %v", a.results)
	}
	if len(blocks) != 1 || blocks[0].Func != main {
		t.Fatalf("expected only main's block to be traversed, got %v", blocks)
	}
}

func TestUnresolvedCallee(t *testing.T) {
	b, main, entry := mainProgram()

	b.Call(entry, "", main.Param(1))
	b.Call(entry, "nowhere", main.Param(1))

	if results := check(t, b.Program(), DefaultOptions()); len(results) != 0 {
		t.Fatalf("expected no violations, got %v", results)
	}
}

func TestMalformedSinkIndex(t *testing.T) {
	for _, arg := range []int{-1, 2, 100} {
		b, main, entry := mainProgram()
		b.Call(entry, "strcpy", main.Param(1), main.Param(1))

		sinks, err := NewSinks(SinkSpec{Name: "strcpy", Arg: arg})
		if err != nil {
			t.Fatal(err)
		}
		opts := DefaultOptions()
		opts.Sinks = sinks

		if results := check(t, b.Program(), opts); len(results) != 0 {
			t.Errorf("arg %d: expected no violations, got %v", arg, results)
		}
	}
}

func TestPhiMerge(t *testing.T) {
	b, main, entry := mainProgram()
	left := b.NewBlock(main, "left")
	right := b.NewBlock(main, "right")
	join := b.NewBlock(main, "join")
	ir.AddEdge(entry, left)
	ir.AddEdge(entry, right)
	ir.AddEdge(left, join)
	ir.AddEdge(right, join)

	clean := b.Cast(left, b.Const("0"))
	dirty := b.Cast(right, main.Param(1))
	merged := b.Phi(join, clean, dirty)
	sink := b.Call(join, "strcpy", b.Const("null"), merged)

	results := check(t, b.Program(), DefaultOptions())
	if len(results) != 1 || results[0].Site.Instr != sink {
		t.Fatalf("expected one violation at the phi sink, got %v", results)
	}
}

func TestContinueAfterViolation(t *testing.T) {
	b, main, entry := mainProgram()
	next := b.NewBlock(main, "next")
	ir.AddEdge(entry, next)

	first := b.Call(entry, "strcpy", b.Const("null"), main.Param(1))
	second := b.Call(next, "strcpy", b.Const("null"), main.Param(1))

	var streamed []Violation
	opts := DefaultOptions()
	opts.OnViolation = func(v Violation) {
		streamed = append(streamed, v)
	}

	results := check(t, b.Program(), opts)
	if len(results) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(results))
	}
	if results[0].Site.Instr != first || results[1].Site.Instr != second {
		t.Fatalf("unexpected order: %v", results)
	}
	if !reflect.DeepEqual(streamed, []Violation(results)) {
		t.Fatal("expected streamed violations to match the results")
	}
}

func TestBackEdgeNotRevisited(t *testing.T) {
	b, main, entry := mainProgram()
	header := b.NewBlock(main, "header")
	body := b.NewBlock(main, "body")
	exit := b.NewBlock(main, "exit")
	ir.AddEdge(entry, header)
	ir.AddEdge(header, body)
	ir.AddEdge(header, exit)
	ir.AddEdge(body, header)

	p := b.Other(entry, "alloca")
	v := b.Load(header, p)
	b.Call(header, "strcpy", b.Const("null"), v)
	b.Store(body, main.Param(1), p)

	// The store in the loop body happens after the header was visited;
	// the load in the header is not revisited.
	if results := check(t, b.Program(), DefaultOptions()); len(results) != 0 {
		t.Fatalf("expected no violations, got %v", results)
	}
}

func TestEntryNotFound(t *testing.T) {
	b := ir.NewBuilder()
	b.Function("start", "argc", "argv")

	_, err := Check(context.Background(), b.Program(), DefaultOptions())
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}

	if _, err := Check(context.Background(), nil, DefaultOptions()); !errors.Is(err, ErrNilProgram) {
		t.Fatalf("expected ErrNilProgram, got %v", err)
	}
}

func TestMissingSourceParameter(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Function("main")
	entry := b.NewBlock(main, "entry")
	b.Call(entry, "strcpy", b.Const("null"), b.Const("null"))

	if results := check(t, b.Program(), DefaultOptions()); len(results) != 0 {
		t.Fatalf("expected no violations, got %v", results)
	}
}

func TestRecursionGuard(t *testing.T) {
	b, main, entry := mainProgram()

	rec := b.Function("rec", "p")
	rb := b.NewBlock(rec, "entry")
	sink := b.Call(rb, "strcpy", b.Const("null"), rec.Param(0))
	b.Call(rb, "rec", rec.Param(0))

	b.Call(entry, "rec", main.Param(1))

	a := newAnalysis(context.Background(), b.Program(), DefaultOptions())
	a.run(main)

	if len(a.results) != 1 || a.results[0].Site.Instr != sink {
		t.Fatalf("expected one violation in rec, got %v", a.results)
	}
	if len(a.stack) != 0 || len(a.active) != 0 {
		t.Fatalf("expected balanced bookkeeping, got stack=%d active=%d", len(a.stack), len(a.active))
	}
}

func TestRepeatedCallsAreReported(t *testing.T) {
	b, main, entry := mainProgram()

	helper := b.Function("helper", "p")
	hb := b.NewBlock(helper, "entry")
	b.Call(hb, "strcpy", b.Const("null"), helper.Param(0))

	first := b.Call(entry, "helper", main.Param(1))
	second := b.Call(entry, "helper", main.Param(1))

	results := check(t, b.Program(), DefaultOptions())
	if len(results) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(results))
	}
	if results[0].Backtrace[0].Instr != first || results[1].Backtrace[0].Instr != second {
		t.Fatalf("unexpected backtraces: %v", results)
	}
}

func TestMaxDepth(t *testing.T) {
	b, main, entry := mainProgram()

	f2 := b.Function("f2", "x")
	f2b := b.NewBlock(f2, "entry")
	b.Call(f2b, "strcpy", b.Const("null"), f2.Param(0))

	f1 := b.Function("f1", "x")
	f1b := b.NewBlock(f1, "entry")
	b.Call(f1b, "f2", f1.Param(0))

	b.Call(entry, "f1", main.Param(1))

	opts := DefaultOptions()
	opts.MaxDepth = 1
	if results := check(t, b.Program(), opts); len(results) != 0 {
		t.Fatalf("expected the descent into f2 to be cut, got %v", results)
	}

	opts.MaxDepth = 2
	if results := check(t, b.Program(), opts); len(results) != 1 {
		t.Fatalf("expected 1 violation, got %v", results)
	}
}

func TestSinkWithBodyIsNotFollowed(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Function("main", "argc", "argv")
	entry := b.NewBlock(main, "entry")

	strcpy := b.Function("strcpy", "dst", "src")
	sb := b.NewBlock(strcpy, "entry")
	b.Call(sb, "strcpy", strcpy.Param(0), strcpy.Param(1))

	b.Call(entry, "strcpy", b.Const("null"), main.Param(1))

	if results := check(t, b.Program(), DefaultOptions()); len(results) != 1 {
		t.Fatalf("expected exactly 1 violation, got %v", results)
	}
}

func TestSlotsBeyondParameters(t *testing.T) {
	b, main, entry := mainProgram()

	noargs := b.Function("noargs")
	nb := b.NewBlock(noargs, "entry")
	b.Call(nb, "strcpy", b.Const("null"), b.Const("null"))

	b.Call(entry, "noargs", main.Param(1))

	var traversed []*ir.Function
	a := newAnalysis(context.Background(), b.Program(), DefaultOptions())
	a.afterBlock = func(blk *ir.Block, _ valueSet) {
		traversed = append(traversed, blk.Func)
	}
	a.run(main)

	if len(traversed) != 1 || traversed[0] != main {
		t.Fatalf("expected noargs not to be traversed, got %v", traversed)
	}
	if len(a.stack) != 0 {
		t.Fatalf("expected empty stack, got %d", len(a.stack))
	}
}

func TestChildTaintSetIsolated(t *testing.T) {
	b, main, entry := mainProgram()

	helper := b.Function("helper", "p")
	hb := b.NewBlock(helper, "entry")
	q := b.Other(hb, "alloca")
	b.Store(hb, helper.Param(0), q)

	b.Call(entry, "helper", main.Param(1))

	sets := map[*ir.Function]valueSet{}
	a := newAnalysis(context.Background(), b.Program(), DefaultOptions())
	a.afterBlock = func(blk *ir.Block, tainted valueSet) {
		sets[blk.Func] = tainted
	}
	a.run(main)

	if sets[main].includes(helper.Param(0)) || sets[main].includes(q) {
		t.Fatal("callee taint leaked into the caller's set")
	}
	if !sets[helper].includes(q) {
		t.Fatal("expected the callee store to taint q")
	}
	if sets[helper].includes(main.Param(1)) {
		t.Fatal("caller taint leaked into the callee's set")
	}
}

func TestIdempotence(t *testing.T) {
	b, main, entry := mainProgram()

	helper := b.Function("helper", "p")
	hb := b.NewBlock(helper, "entry")
	b.Call(hb, "strcpy", b.Const("null"), helper.Param(0))

	b.Call(entry, "helper", main.Param(1))
	b.Call(entry, "strcpy", b.Const("null"), main.Param(1))

	prog := b.Program()
	first := check(t, prog, DefaultOptions())
	second := check(t, prog, DefaultOptions())

	if len(first) != 2 || !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %v and %v", first, second)
	}
}

func TestPatternSink(t *testing.T) {
	b, main, entry := mainProgram()
	b.Declare("strncpy", "dst", "src", "n")
	b.Call(entry, "strncpy", b.Const("null"), main.Param(1), b.Const("8"))

	sinks, err := NewSinks(SinkSpec{Name: "glob:str*cpy", Arg: 1})
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.Sinks = sinks

	results := check(t, b.Program(), opts)
	if len(results) != 1 || results[0].Sink.Name != "glob:str*cpy" {
		t.Fatalf("expected a pattern sink match, got %v", results)
	}
}
