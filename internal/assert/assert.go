// Package assert centralizes the engine's fatal-assertion convention.
//
// Paxos safety depends on several invariants (no duplicate instance ids,
// get() never missing, well-formed frames from a trusted transport) that
// spec.md classifies as programmer errors rather than recoverable
// conditions. A violation panics immediately instead of being logged and
// swallowed — a node that can no longer trust its own state has no safe
// path forward.
package assert

import "fmt"

// True panics with msg if cond is false.
func True(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Never always panics; used for unreachable branches.
func Never(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}
