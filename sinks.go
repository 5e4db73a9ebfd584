package taintpass

import (
	"fmt"
	"strings"

	"github.com/picatz/taintpass/callgraphutil"
)

// SinkSpec names a dangerous function and the argument position whose
// taint should be reported. Arg is an index, not an argument count.
type SinkSpec struct {
	Name string
	Arg  int
}

// String returns "name[arg]".
func (s SinkSpec) String() string {
	return fmt.Sprintf("%s[%d]", s.Name, s.Arg)
}

// matches reports whether the sensitive argument is among the tainted
// slots. A negative or out of range Arg never matches.
func (s SinkSpec) matches(slots []int) bool {
	if s.Arg < 0 {
		return false
	}
	for _, slot := range slots {
		if slot == s.Arg {
			return true
		}
	}
	return false
}

// Sinks is the sink registry. It is populated before an analysis starts
// and only read during it.
type Sinks struct {
	exact map[string]SinkSpec

	// patterns hold specs whose name carries a matcher prefix
	// such as "glob:" or "regex:", in registration order.
	patterns []patternSink
}

type patternSink struct {
	spec    SinkSpec
	matcher *callgraphutil.FunctionMatcher
}

// NewSinks returns a registry with the given specs. It fails if a pattern
// spec cannot be compiled.
func NewSinks(specs ...SinkSpec) (*Sinks, error) {
	s := &Sinks{exact: make(map[string]SinkSpec, len(specs))}
	for _, spec := range specs {
		if err := s.Add(spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DefaultSinks returns the built-in registry: strcpy with its source
// operand (argument 1) as the sensitive position.
func DefaultSinks() *Sinks {
	return &Sinks{
		exact: map[string]SinkSpec{
			"strcpy": {Name: "strcpy", Arg: 1},
		},
	}
}

// Add registers a spec. Names of the form "glob:...", "regex:..." or
// "fuzzy:..." are matched with a callgraphutil.FunctionMatcher; every
// other name must match exactly. A later exact spec replaces an earlier
// one with the same name.
func (s *Sinks) Add(spec SinkSpec) error {
	if s.exact == nil {
		s.exact = make(map[string]SinkSpec)
	}
	if !hasMatcherPrefix(spec.Name) {
		s.exact[spec.Name] = spec
		return nil
	}
	m, err := callgraphutil.NewFunctionMatcherFromString(spec.Name)
	if err != nil {
		return fmt.Errorf("taintpass: invalid sink %q: %w", spec.Name, err)
	}
	s.patterns = append(s.patterns, patternSink{spec: spec, matcher: m})
	return nil
}

func hasMatcherPrefix(name string) bool {
	for _, prefix := range []string{"glob:", "regex:", "fuzzy:"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Lookup returns the spec for the named function. Absence is the normal
// "not a sink" answer.
func (s *Sinks) Lookup(name string) (SinkSpec, bool) {
	if s == nil {
		return SinkSpec{}, false
	}
	if spec, ok := s.exact[name]; ok {
		return spec, true
	}
	for _, p := range s.patterns {
		if p.matcher.Match(name) {
			return p.spec, true
		}
	}
	return SinkSpec{}, false
}

// Len returns the number of registered specs.
func (s *Sinks) Len() int {
	if s == nil {
		return 0
	}
	return len(s.exact) + len(s.patterns)
}
