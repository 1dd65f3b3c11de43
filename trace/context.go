package trace

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/phipsgabler/beyond-overdubbing/ir"
)

// ErrInconsistent marks failures to resolve a variable reference against the
// Context's value mapping. It indicates a dominance violation introduced by
// the rewriter, so it is surfaced as an assertion failure, never swallowed.
var ErrInconsistent = errors.New("trace: inconsistent variable reference")

// ErrBudget is returned by recording operations once the trace-wide node
// budget is exhausted.
var ErrBudget = errors.New("trace: node budget exhausted")

// Budget caps the total number of nodes recorded across one Context tree.
// Execution is single-threaded per trace, so no synchronization is needed.
type Budget struct {
	remaining int
	unlimited bool
}

// NewBudget returns a budget of n nodes; n <= 0 means unlimited.
func NewBudget(n int) *Budget {
	if n <= 0 {
		return &Budget{unlimited: true}
	}
	return &Budget{remaining: n}
}

func (b *Budget) take() error {
	if b == nil || b.unlimited {
		return nil
	}
	if b.remaining == 0 {
		return ErrBudget
	}
	b.remaining--
	return nil
}

// Context owns the ordered node sequence of one entered call. Nodes are
// appended in execution order and never mutated afterwards; once the call
// returns the Context is sealed and becomes the child trace of the caller's
// call node. The parent pointer is a non-owning back-reference used only for
// depth accounting and printing.
type Context struct {
	fn      string
	nodes   []*Node
	byValue map[ir.ValueID]NodeID
	parent  *Context
	depth   int
	budget  *Budget
	sealed  bool
}

// NewContext opens a recording context for a call to fn. parent is nil for
// the root. The budget is shared down the tree from the root; children must
// pass their parent's budget (Child does this automatically).
func NewContext(fn string, parent *Context, budget *Budget) *Context {
	c := &Context{
		fn:      fn,
		byValue: make(map[ir.ValueID]NodeID),
		parent:  parent,
		budget:  budget,
	}
	if parent != nil {
		c.depth = parent.depth + 1
		if c.budget == nil {
			c.budget = parent.budget
		}
	}
	return c
}

// Child opens a nested context for a call to fn made from c, sharing c's
// node budget.
func (c *Context) Child(fn string) *Context {
	return NewContext(fn, c, c.budget)
}

// Fn returns the callee name this context records.
func (c *Context) Fn() string { return c.fn }

// Parent returns the enclosing context, or nil at the root. Diagnostics
// only; ownership runs the other way through Node.Child.
func (c *Context) Parent() *Context { return c.parent }

// Depth returns the call nesting depth, zero at the root.
func (c *Context) Depth() int { return c.depth }

// Sealed reports whether recording has finished.
func (c *Context) Sealed() bool { return c.sealed }

// Seal closes the context for further appends. Sealing twice is a no-op.
func (c *Context) Seal() { c.sealed = true }

// Len returns the number of recorded nodes.
func (c *Context) Len() int { return len(c.nodes) }

// Node returns the node with the given id, or nil.
func (c *Context) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(c.nodes) {
		return nil
	}
	return c.nodes[id]
}

// Nodes returns the nodes in execution order. The returned slice must not be
// mutated.
func (c *Context) Nodes() []*Node { return c.nodes }

// Bind maps an original SSA value to the node that produced it, without
// recording anything. Block parameters are bound this way on block entry;
// instructions bind their origin as a side effect of recording.
func (c *Context) Bind(origin ir.ValueID, ref NodeID) error {
	if c.sealed {
		return errors.AssertionFailedf("bind on sealed context for %s", c.fn)
	}
	c.byValue[origin] = ref
	return nil
}

// NodeFor resolves the node that produced the given original SSA value in
// this context. A miss is an internal invariant violation.
func (c *Context) NodeFor(v ir.ValueID) (NodeID, error) {
	id, ok := c.byValue[v]
	if !ok {
		return NoNode, errors.Mark(
			errors.AssertionFailedf("no node recorded for value %%%d in %s", v, c.fn),
			ErrInconsistent)
	}
	return id, nil
}

func (c *Context) append(n *Node, origin ir.ValueID) (*Node, error) {
	if c.sealed {
		return nil, errors.AssertionFailedf("append to sealed context for %s", c.fn)
	}
	if err := c.budget.take(); err != nil {
		return nil, err
	}
	n.id = NodeID(len(c.nodes))
	c.nodes = append(c.nodes, n)
	if origin != ir.NoValue {
		// Re-entered loop blocks rebind; later uses resolve to the latest
		// recording, matching dynamic execution order.
		c.byValue[origin] = n.id
	}
	return n, nil
}

// RecordArgument records one original call argument at its declared
// position.
func (c *Context) RecordArgument(origin ir.ValueID, pos int, value any, loc ir.Loc) (*Node, error) {
	return c.append(&Node{kind: KindArgument, pos: pos, value: value, ref: NoNode, loc: loc}, origin)
}

// RecordConstant records a materialized constant.
func (c *Context) RecordConstant(origin ir.ValueID, value any) (*Node, error) {
	return c.append(&Node{kind: KindConstant, value: value, ref: NoNode, loc: ir.NoLoc}, origin)
}

// RecordCall records a performed call. child is the sealed context of a
// recursed call and nil for leaf calls; ownership of child transfers to the
// returned node.
func (c *Context) RecordCall(origin ir.ValueID, callee string, args []NodeID, result any, child *Context, loc ir.Loc) (*Node, error) {
	if child != nil && !child.sealed {
		return nil, errors.AssertionFailedf("child context for %s attached before sealing", callee)
	}
	return c.append(&Node{
		kind: KindCall, callee: callee, args: args, value: result,
		ref: NoNode, child: child, loc: loc,
	}, origin)
}

// RecordVariable records a re-read of a previously recorded value.
func (c *Context) RecordVariable(origin ir.ValueID, ref NodeID) (*Node, error) {
	return c.append(&Node{kind: KindVariable, ref: ref, loc: ir.NoLoc}, origin)
}

// RecordBranch records a taken control transfer to target. args are the
// nodes of the values carried to the target block's parameters; cond is the
// condition node for conditional branches and NoNode otherwise.
func (c *Context) RecordBranch(target ir.BlockID, cond NodeID, args []NodeID, loc ir.Loc) (*Node, error) {
	return c.append(&Node{kind: KindBranch, target: target, ref: cond, args: args, loc: loc}, ir.NoValue)
}

// RecordReturn records the call's return, referencing the returned value's
// node.
func (c *Context) RecordReturn(ref NodeID, value any, loc ir.Loc) (*Node, error) {
	return c.append(&Node{kind: KindReturn, ref: ref, value: value, loc: loc}, ir.NoValue)
}

// String renders the context tree with one indented line per node.
func (c *Context) String() string {
	var sb strings.Builder
	c.format(&sb, "")
	return strings.TrimRight(sb.String(), "\n")
}

func (c *Context) format(sb *strings.Builder, indent string) {
	sb.WriteString(indent + c.fn + ":\n")
	for _, n := range c.nodes {
		sb.WriteString(indent + "  " + n.Summary() + "\n")
		if n.child != nil {
			n.child.format(sb, indent+"    ")
		}
	}
}
