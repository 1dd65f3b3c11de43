// Package trace holds the runtime record of one instrumented execution: a
// tree of Contexts, one per entered call, each owning an append-only ordered
// sequence of Nodes describing the instructions and control-flow decisions
// that executed.
package trace

import (
	"fmt"

	"github.com/phipsgabler/beyond-overdubbing/ir"
)

// NodeID identifies a node within its owning Context. Ids are dense and
// monotonically increasing in execution order; they are not unique across
// Contexts.
type NodeID int

// NoNode marks an absent node reference.
const NoNode NodeID = -1

// Kind discriminates recorded node kinds.
type Kind uint8

const (
	KindArgument Kind = iota + 1
	KindConstant
	KindCall
	KindVariable
	KindBranch
	KindReturn
)

func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "argument"
	case KindConstant:
		return "constant"
	case KindCall:
		return "call"
	case KindVariable:
		return "variable"
	case KindBranch:
		return "branch"
	case KindReturn:
		return "return"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Node is one recorded fact about an executed instruction or branch. Nodes
// are immutable once recorded; all cross-references are NodeIDs within the
// owning Context except Child, which owns the nested Context of a recursed
// call.
type Node struct {
	id     NodeID
	kind   Kind
	value  any       // argument/constant value, call result, returned value
	pos    int       // argument position
	callee string    // call only
	args   []NodeID  // call argument nodes; branch argument nodes
	ref    NodeID    // variable referent, return value node, branch condition
	target ir.BlockID
	child  *Context // recursed call only; nil for leaf calls
	loc    ir.Loc
}

func (n *Node) ID() NodeID         { return n.id }
func (n *Node) Kind() Kind         { return n.kind }
func (n *Node) Value() any         { return n.value }
func (n *Node) Pos() int           { return n.pos }
func (n *Node) Callee() string     { return n.callee }
func (n *Node) Ref() NodeID        { return n.ref }
func (n *Node) Target() ir.BlockID { return n.target }
func (n *Node) Location() ir.Loc   { return n.loc }

// Args returns the argument node references. The returned slice must not be
// mutated.
func (n *Node) Args() []NodeID { return n.args }

// Child returns the nested Context of a recursed call, or nil for leaf calls
// and non-call nodes.
func (n *Node) Child() *Context { return n.child }

// Summary renders a one-line description of the node.
func (n *Node) Summary() string {
	switch n.kind {
	case KindArgument:
		return fmt.Sprintf("@%d: arg %d = %#v", n.id, n.pos, n.value)
	case KindConstant:
		return fmt.Sprintf("@%d: const %#v", n.id, n.value)
	case KindCall:
		mode := "leaf"
		if n.child != nil {
			mode = "nested"
		}
		return fmt.Sprintf("@%d: call %s%s = %#v [%s]", n.id, n.callee, refList(n.args), n.value, mode)
	case KindVariable:
		return fmt.Sprintf("@%d: var @%d", n.id, n.ref)
	case KindBranch:
		return fmt.Sprintf("@%d: branch b%d%s", n.id, n.target, refList(n.args))
	case KindReturn:
		return fmt.Sprintf("@%d: return @%d = %#v", n.id, n.ref, n.value)
	default:
		return fmt.Sprintf("@%d: %s", n.id, n.kind)
	}
}

func refList(ids []NodeID) string {
	s := "("
	for i, id := range ids {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("@%d", id)
	}
	return s + ")"
}
