package ir

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// String renders the instruction in an LLVM-like syntax, e.g.
// "%2 = load %p" or "call strcpy(%dst, %1)".
func (i *Instruction) String() string {
	if i == nil {
		return "<nil>"
	}
	if i.Text != "" {
		return i.Text
	}

	var prog *Program
	if fn := i.Func(); fn != nil {
		prog = fn.Prog
	}
	name := func(id ValueID) string {
		if v := prog.Value(id); v != nil {
			return v.Name
		}
		return "?"
	}

	var sb strings.Builder
	if i.Result != NoValue {
		sb.WriteString(name(i.Result))
		sb.WriteString(" = ")
	}
	mnemonic := i.Mnemonic
	if mnemonic == "" {
		mnemonic = i.Op.String()
	}
	sb.WriteString(mnemonic)

	ops := make([]string, len(i.Operands))
	for n, id := range i.Operands {
		ops[n] = name(id)
	}
	if i.Op == OpCall {
		callee := i.Callee
		if callee == "" {
			callee = "<indirect>"
		}
		fmt.Fprintf(&sb, " %s(%s)", callee, strings.Join(ops, ", "))
	} else if len(ops) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(ops, ", "))
	}
	return sb.String()
}

// WriteTo writes a textual dump of fn to w.
func (f *Function) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	params := make([]string, len(f.Params))
	for n, id := range f.Params {
		params[n] = f.Prog.Value(id).String()
	}

	if f.IsDeclaration() {
		fmt.Fprintf(cw, "declare %s(%s)\n\n", f.Name, strings.Join(params, ", "))
		return cw.n, cw.flush()
	}

	fmt.Fprintf(cw, "define %s(%s) {\n", f.Name, strings.Join(params, ", "))
	for _, blk := range f.Blocks {
		succs := make([]string, len(blk.Succs))
		for n, s := range blk.Succs {
			succs[n] = s.String()
		}
		fmt.Fprintf(cw, "%s:", blk)
		if len(succs) > 0 {
			fmt.Fprintf(cw, " ; succs: %s", strings.Join(succs, ", "))
		}
		fmt.Fprintln(cw)
		for _, instr := range blk.Instrs {
			fmt.Fprintf(cw, "\t%s\n", instr)
		}
	}
	fmt.Fprint(cw, "}\n\n")
	return cw.n, cw.flush()
}

// WriteTo writes every function of the program to w.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, fn := range p.Functions {
		n, err := fn.WriteTo(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

func (c *countingWriter) flush() error {
	if c.err != nil {
		return c.err
	}
	return c.w.Flush()
}
