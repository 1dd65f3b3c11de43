package track

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/phipsgabler/beyond-overdubbing/trace"
)

// Policy decides, per call site, whether dispatch recurses into an
// instrumented callee or records a leaf. It is consulted only for callees
// with an obtainable graph; opaque callees are always leaves.
type Policy func(parent *trace.Context, callee string, args []any) bool

// RecurseAll recurses whenever a graph is obtainable. This is the default.
func RecurseAll() Policy {
	return func(*trace.Context, string, []any) bool { return true }
}

// LeafSet forces leaf treatment for the named callees, trading trace
// fidelity for speed on hot primitives.
func LeafSet(names ...string) Policy {
	set := mapset.NewSet(names...)
	return func(_ *trace.Context, callee string, _ []any) bool {
		return !set.Contains(callee)
	}
}
