package callgraphutil

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// MatchStrategy is how a FunctionMatcher compares function names.
type MatchStrategy int

const (
	MatchExact MatchStrategy = iota
	MatchFuzzy               // substring
	MatchGlob                // path.Match syntax
	MatchRegex
)

// strategyPrefixes maps the pattern prefixes accepted by
// NewFunctionMatcherFromString to their strategy.
var strategyPrefixes = map[string]MatchStrategy{
	"exact": MatchExact,
	"fuzzy": MatchFuzzy,
	"glob":  MatchGlob,
	"regex": MatchRegex,
}

func (m MatchStrategy) String() string {
	for prefix, s := range strategyPrefixes {
		if s == m {
			return prefix
		}
	}
	return "unknown"
}

// FunctionMatcher matches ir function names, such as sink names or call
// graph nodes, against a pattern.
type FunctionMatcher struct {
	pattern  string
	strategy MatchStrategy
	regex    *regexp.Regexp
}

// NewFunctionMatcher returns a matcher for pattern. Regex patterns are
// compiled up front.
func NewFunctionMatcher(pattern string, strategy MatchStrategy) (*FunctionMatcher, error) {
	m := &FunctionMatcher{pattern: pattern, strategy: strategy}
	if strategy == MatchRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		m.regex = re
	}
	return m, nil
}

// NewFunctionMatcherFromString parses "strategy:pattern", where strategy
// is one of exact, fuzzy, glob or regex. Anything else, including names
// with an unknown prefix, is an exact pattern.
func NewFunctionMatcherFromString(input string) (*FunctionMatcher, error) {
	if prefix, pattern, ok := strings.Cut(input, ":"); ok {
		if strategy, known := strategyPrefixes[prefix]; known {
			return NewFunctionMatcher(pattern, strategy)
		}
	}
	return NewFunctionMatcher(input, MatchExact)
}

// Match reports whether name matches. An invalid glob only matches itself.
func (m *FunctionMatcher) Match(name string) bool {
	switch m.strategy {
	case MatchFuzzy:
		return strings.Contains(name, m.pattern)
	case MatchGlob:
		matched, err := path.Match(m.pattern, name)
		if err != nil {
			return name == m.pattern
		}
		return matched
	case MatchRegex:
		return m.regex != nil && m.regex.MatchString(name)
	default:
		return name == m.pattern
	}
}

func (m *FunctionMatcher) Strategy() MatchStrategy { return m.strategy }

func (m *FunctionMatcher) Pattern() string { return m.pattern }

// String returns the matcher in the form accepted by
// NewFunctionMatcherFromString.
func (m *FunctionMatcher) String() string {
	return m.strategy.String() + ":" + m.pattern
}

// PathsSearchCallToWithMatcher returns paths that call functions matching the given matcher
func PathsSearchCallToWithMatcher(start *Node, matcher *FunctionMatcher) Paths {
	return PathsSearch(start, func(n *Node) bool {
		return matcher.Match(n.Func.Name)
	})
}

// PathsSearchCallToAdvanced finds paths from start to functions matching
// pattern. The pattern format determines the matching strategy:
//   - "pattern" or "exact:pattern" → exact string matching
//   - "fuzzy:pattern" → substring matching
//   - "glob:pattern" → shell-style glob matching
//   - "regex:pattern" → regular expression matching
func PathsSearchCallToAdvanced(start *Node, pattern string) (Paths, MatchStrategy, error) {
	matcher, err := NewFunctionMatcherFromString(pattern)
	if err != nil {
		return nil, MatchExact, err
	}
	return PathsSearchCallToWithMatcher(start, matcher), matcher.Strategy(), nil
}

// CallersOf returns, for every node matching pattern, the edges that call
// it. Unlike PathsSearchCallToAdvanced it does not need a root, so it also
// covers functions not reachable from the entry point.
func CallersOf(g *Graph, pattern string) ([]*Edge, error) {
	matcher, err := NewFunctionMatcherFromString(pattern)
	if err != nil {
		return nil, err
	}

	var edges []*Edge
	for _, n := range g.order {
		if matcher.Match(n.Func.Name) {
			edges = append(edges, n.In...)
		}
	}
	return edges, nil
}
