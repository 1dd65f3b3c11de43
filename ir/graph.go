package ir

import (
	"fmt"
	"strings"
)

// Param is a typed block parameter. Type is informational (the argument
// shape string reported by the host); execution treats values as opaque.
type Param struct {
	ID   ValueID
	Name string
	Type string
}

// Block is an ordered sequence of instructions with parameters and a single
// terminator.
type Block struct {
	ID     BlockID
	Params []Param
	Instrs []Instruction
	Term   Branch
}

// Graph is the control-flow graph of one callable. Blocks[0] is the entry
// block and its parameters are the callable's parameters. A Graph is
// immutable once built; instrumented copies are shared read-only across
// invocations.
type Graph struct {
	Name   string
	Blocks []*Block

	nextValue ValueID
}

// Entry returns the entry block.
func (g *Graph) Entry() *Block { return g.Blocks[0] }

// Block returns the block with the given id, or nil.
func (g *Graph) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(g.Blocks) {
		return nil
	}
	return g.Blocks[id]
}

// Params returns the callable's parameters (the entry block's parameters).
func (g *Graph) Params() []Param { return g.Entry().Params }

// NewValue allocates a fresh SSA value id.
func (g *Graph) NewValue() ValueID {
	id := g.nextValue
	g.nextValue++
	return id
}

// NumValues returns the number of SSA value ids allocated so far. Valid ids
// are in [0, NumValues).
func (g *Graph) NumValues() int { return int(g.nextValue) }

// Successors returns the ids of the blocks b can transfer to.
func (b *Block) Successors() []BlockID {
	switch term := b.Term.(type) {
	case *Jump:
		return []BlockID{term.Target}
	case *CondBranch:
		if term.True == term.False {
			return []BlockID{term.True}
		}
		return []BlockID{term.True, term.False}
	default:
		return nil
	}
}

func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "graph %s {\n", g.Name)
	for _, b := range g.Blocks {
		fmt.Fprintf(&sb, "b%d", b.ID)
		if len(b.Params) > 0 {
			sb.WriteString("(")
			for i, p := range b.Params {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%%%d:%s", p.ID, p.Name)
			}
			sb.WriteString(")")
		}
		sb.WriteString(":\n")
		for _, ins := range b.Instrs {
			sb.WriteString("  " + ins.String() + "\n")
		}
		if b.Term != nil {
			sb.WriteString("  " + b.Term.String() + "\n")
		}
	}
	sb.WriteString("}")
	return sb.String()
}
