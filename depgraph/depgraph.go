// Package depgraph turns a sealed trace into consumer-facing views: a lazy,
// restartable sequence of records in execution order, and a flattened
// dependency graph connecting each recorded operation to the operations
// whose results it consumed.
package depgraph

import (
	"fmt"

	"github.com/phipsgabler/beyond-overdubbing/trace"
)

// Entry is one recorded operation surfaced during a walk. Path
// disambiguates nodes across nested contexts as the dotted ids of the
// enclosing call nodes, e.g. "4.2" for node 2 inside the call recorded as
// node 4 of the root.
type Entry struct {
	Path  string
	Depth int
	Node  *trace.Node
	Ctx   *trace.Context
}

// Summary renders the entry for listings.
func (e Entry) Summary() string {
	return fmt.Sprintf("%-8s %s", e.Path, e.Node.Summary())
}

type frame struct {
	ctx    *trace.Context
	next   int
	prefix string
}

// Iterator walks a sealed context tree in execution order, emitting each
// call node before descending into its child trace. The underlying trace is
// never consumed; Walk again (or Reset) restarts from the top.
type Iterator struct {
	root  *trace.Context
	stack []frame
}

// Walk returns a fresh iterator over root.
func Walk(root *trace.Context) *Iterator {
	it := &Iterator{root: root}
	it.Reset()
	return it
}

// Reset restarts the iterator.
func (it *Iterator) Reset() {
	it.stack = it.stack[:0]
	if it.root != nil {
		it.stack = append(it.stack, frame{ctx: it.root})
	}
}

// Next returns the next entry in execution order.
func (it *Iterator) Next() (Entry, bool) {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.next >= top.ctx.Len() {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		n := top.ctx.Node(trace.NodeID(top.next))
		top.next++
		e := Entry{
			Path:  top.prefix + fmt.Sprint(n.ID()),
			Depth: len(it.stack) - 1,
			Node:  n,
			Ctx:   top.ctx,
		}
		if child := n.Child(); child != nil {
			it.stack = append(it.stack, frame{ctx: child, prefix: e.Path + "."})
		}
		return e, true
	}
	return Entry{}, false
}

// Collect drains a fresh walk of root into a slice.
func Collect(root *trace.Context) []Entry {
	var out []Entry
	it := Walk(root)
	for {
		e, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}
