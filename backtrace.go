package taintpass

import (
	"fmt"

	"github.com/picatz/taintpass/ir"
)

// backtrace is the stack of call sites on the current interprocedural
// path, outermost first.
type backtrace []*ir.Instruction

func (b *backtrace) push(site *ir.Instruction) {
	*b = append(*b, site)
}

func (b *backtrace) pop() {
	s := *b
	if len(s) == 0 {
		return
	}
	s[len(s)-1] = nil
	*b = s[:len(s)-1]
}

func (b backtrace) depth() int {
	return len(b)
}

// Frame is one entry of a reported call chain.
type Frame struct {
	// Function is the name of the function containing Instr.
	Function string
	Instr    *ir.Instruction
}

func newFrame(instr *ir.Instruction) Frame {
	f := Frame{Instr: instr}
	if fn := instr.Func(); fn != nil {
		f.Function = fn.Name
	}
	return f
}

// String returns "function : instruction".
func (f Frame) String() string {
	return fmt.Sprintf("%s : %s", f.Function, f.Instr)
}

// Violation is an individual finding: tainted data reached the sensitive
// argument of a sink call.
type Violation struct {
	Sink SinkSpec

	// Site is the sink call.
	Site Frame

	// Backtrace lists the call sites that led to Site's function,
	// innermost first, ending at the call made from the entry function.
	// It is empty when the sink is called from the entry function itself.
	Backtrace []Frame
}

// Trace returns the full call chain: Site followed by Backtrace.
func (v Violation) Trace() []Frame {
	trace := make([]Frame, 0, len(v.Backtrace)+1)
	trace = append(trace, v.Site)
	return append(trace, v.Backtrace...)
}

// String returns a one-line summary of the violation.
func (v Violation) String() string {
	return fmt.Sprintf("tainted data reaches argument %d of %s in %s", v.Sink.Arg, v.Sink.Name, v.Site.Function)
}

// Results is the collection of findings of one analysis run, in the order
// they were found.
type Results []Violation

// violation records a finding at site using the current backtrace.
func (a *analysis) violation(site *ir.Instruction, spec SinkSpec) {
	v := Violation{
		Sink: spec,
		Site: newFrame(site),
	}
	for i := len(a.stack) - 1; i >= 0; i-- {
		v.Backtrace = append(v.Backtrace, newFrame(a.stack[i]))
	}

	a.logger.Info("%s", v)

	a.results = append(a.results, v)
	if a.opts.OnViolation != nil {
		a.opts.OnViolation(v)
	}
}
