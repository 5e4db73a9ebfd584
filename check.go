package taintpass

import (
	"context"
	"errors"
	"fmt"

	"github.com/picatz/taintpass/ir"
	"github.com/picatz/taintpass/logging"
)

var (
	// ErrEntryNotFound is returned when the program has no function with
	// the configured entry name. Nothing is analyzed in that case.
	ErrEntryNotFound = errors.New("taintpass: entry function not found")

	// ErrNilProgram is returned when Check is given no program.
	ErrNilProgram = errors.New("taintpass: nil program")
)

// Options configure a Check run.
type Options struct {
	// Entry is the exact name of the function where analysis starts.
	Entry string

	// Source is the index of the entry function parameter that carries
	// untrusted data.
	Source int

	// Sinks is the sink registry. A nil registry uses DefaultSinks.
	Sinks *Sinks

	// Guard stops a descent into a callee whose (function, tainted
	// argument positions) signature is already on the current call path.
	// Without it a recursive call graph recurses until the stack is
	// exhausted.
	Guard bool

	// MaxDepth limits the interprocedural call depth. Values <= 0 mean
	// no limit.
	MaxDepth int

	// OnViolation, if set, is called for each finding as it is found.
	OnViolation func(Violation)
}

// DefaultOptions returns options for the conventional C entry point:
// argv, the second parameter of main, is the source, strcpy the sink, and
// the recursion guard is on.
func DefaultOptions() Options {
	return Options{
		Entry:  "main",
		Source: 1,
		Sinks:  DefaultSinks(),
		Guard:  true,
	}
}

// analysis holds the state of one Check run.
type analysis struct {
	prog   *ir.Program
	sinks  *Sinks
	opts   Options
	logger *logging.Logger

	// stack is the backtrace shared by the whole run.
	stack backtrace

	// active holds the signatures of descents in progress.
	active map[signature]struct{}

	results Results

	// afterBlock is a test hook called after each block is processed.
	afterBlock func(*ir.Block, valueSet)
}

func newAnalysis(ctx context.Context, prog *ir.Program, opts Options) *analysis {
	sinks := opts.Sinks
	if sinks == nil {
		sinks = DefaultSinks()
	}
	return &analysis{
		prog:   prog,
		sinks:  sinks,
		opts:   opts,
		logger: logging.FromContext(ctx).WithPrefix("taint"),
		active: make(map[signature]struct{}),
	}
}

// Check is the primary function users of this package will use.
//
// It locates the entry function of prog, marks its source parameter as
// tainted, and walks the program from there. Every sink call whose
// sensitive argument is tainted is reported; the walk continues after each
// finding. The program is never modified.
//
// The logger, if any, is taken from ctx. The walk itself always runs to
// completion.
func Check(ctx context.Context, prog *ir.Program, opts Options) (Results, error) {
	if prog == nil {
		return nil, ErrNilProgram
	}

	entry := prog.Func(opts.Entry)
	if entry == nil {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, opts.Entry)
	}

	a := newAnalysis(ctx, prog, opts)
	a.run(entry)
	return a.results, nil
}

func (a *analysis) run(entry *ir.Function) {
	a.logger.Step("analyzing", entry.Name, fmt.Sprintf("%d sink(s)", a.sinks.Len()))

	tainted := make(valueSet)
	src := entry.Param(a.opts.Source)
	if src == ir.NoValue {
		a.logger.Warning("%s has no parameter %d, nothing is tainted", entry.Name, a.opts.Source)
	}
	tainted.add(src)

	a.traverse(entry, tainted)

	a.logger.Step("done", fmt.Sprintf("%d violation(s)", len(a.results)))
}
