// Package report renders taintpass results as styled text, JSON or
// MessagePack.
package report

import (
	"fmt"
	"go/token"
	"io"

	"github.com/picatz/taintpass"
	"github.com/picatz/taintpass/config"
)

// Frame is one entry of a finding's call chain.
type Frame struct {
	Function    string `json:"function" msgpack:"function"`
	Instruction string `json:"instruction" msgpack:"instruction"`
	Position    string `json:"position,omitempty" msgpack:"position,omitempty"`
}

// Finding is a rendered violation.
type Finding struct {
	Message string `json:"message" msgpack:"message"`
	Sink    string `json:"sink" msgpack:"sink"`
	Arg     int    `json:"arg" msgpack:"arg"`

	// Callee is the name of the called sink function, which differs from
	// Sink when the sink is a pattern.
	Callee string `json:"callee" msgpack:"callee"`

	// Trace starts at the sink call and ends at the call made from the
	// entry function.
	Trace []Frame `json:"trace" msgpack:"trace"`
}

// Report is the rendered result of one analysis run.
type Report struct {
	Entry    string    `json:"entry" msgpack:"entry"`
	Count    int       `json:"count" msgpack:"count"`
	Findings []Finding `json:"findings" msgpack:"findings"`
}

// Option configures New.
type Option func(*builder)

type builder struct {
	fset *token.FileSet
}

// WithFileSet resolves instruction positions to file:line:column.
func WithFileSet(fset *token.FileSet) Option {
	return func(b *builder) {
		b.fset = fset
	}
}

// New renders results of a run that started at entry.
func New(entry string, results taintpass.Results, opts ...Option) *Report {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}

	r := &Report{
		Entry:    entry,
		Count:    len(results),
		Findings: make([]Finding, 0, len(results)),
	}
	for _, v := range results {
		f := Finding{
			Message: v.String(),
			Sink:    v.Sink.Name,
			Arg:     v.Sink.Arg,
		}
		if v.Site.Instr != nil {
			f.Callee = v.Site.Instr.Callee
		}
		for _, fr := range v.Trace() {
			f.Trace = append(f.Trace, b.frame(fr))
		}
		r.Findings = append(r.Findings, f)
	}
	return r
}

func (b *builder) frame(fr taintpass.Frame) Frame {
	out := Frame{
		Function:    fr.Function,
		Instruction: fr.Instr.String(),
	}
	if b.fset != nil && fr.Instr != nil && fr.Instr.Pos.IsValid() {
		out.Position = b.fset.Position(fr.Instr.Pos).String()
	}
	return out
}

// Write writes r to w in the given format.
func Write(w io.Writer, format string, r *Report) error {
	switch format {
	case config.FormatText, "":
		return NewTextWriter(w).Write(r)
	case config.FormatJSON:
		return WriteJSON(w, r)
	case config.FormatMsgpack:
		return WriteMsgpack(w, r)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}
