// Package taintpass enables "taint checking" over a program IR: it decides
// whether data entering through a parameter of the entry function (the
// "source") can reach a sensitive argument of a dangerous call (a "sink"),
// and reports the chain of calls connecting them.
//
// The classic example is a C program whose argv ends up as the source
// operand of strcpy:
//
//	define main(%argc, %argv) {
//	b0:
//		store %argv, %p
//		%v = load %p
//		call strcpy(%dst, %v)   ; reported
//	}
//
// The analysis walks each function's control-flow graph breadth first,
// propagating taint through stores, loads, address offsets, casts and phi
// merges, and follows direct calls into callees that have a body. It is
// flow-insensitive across loop back-edges, field-insensitive, and never
// resolves indirect calls.
package taintpass
