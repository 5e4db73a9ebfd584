package taintpass

import (
	"slices"

	"github.com/picatz/taintpass/ir"
)

// valueSet is the set of tainted values of one traversal instance. It is
// keyed by value identity and only ever grows.
type valueSet map[ir.ValueID]struct{}

// includes returns true if the value is in the set.
func (v valueSet) includes(id ir.ValueID) bool {
	if v == nil || id == ir.NoValue {
		return false
	}
	_, ok := v[id]
	return ok
}

// add adds the value to the set. NoValue is ignored.
func (v valueSet) add(id ir.ValueID) {
	if id == ir.NoValue {
		return
	}
	v[id] = struct{}{}
}

// sorted returns the members in ascending ID order.
func (v valueSet) sorted() []ir.ValueID {
	ids := make([]ir.ValueID, 0, len(v))
	for id := range v {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
