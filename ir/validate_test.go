package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func diamond(t *testing.T) *Graph {
	t.Helper()
	b := NewBuilder("diamond")
	x := b.Param("x")
	onTrue := b.NewBlock()
	onFalse := b.NewBlock()
	join := b.NewBlock()
	r := b.BlockParam(join, "r")
	b.CondBranch(x, onTrue, nil, onFalse, nil)
	b.SetBlock(onTrue)
	b.Jump(join, b.Const(1))
	b.SetBlock(onFalse)
	b.Jump(join, b.Const(0))
	b.SetBlock(join)
	b.Return(r)
	g, err := b.Graph()
	require.NoError(t, err)
	return g
}

func TestValidateAcceptsDiamond(t *testing.T) {
	g := diamond(t)
	require.NoError(t, Validate(g))
	require.Len(t, g.Blocks, 4)
	require.Equal(t, []BlockID{1, 2}, g.Entry().Successors())
}

func TestValidateRejectsUseBeforeDef(t *testing.T) {
	g := &Graph{Name: "bad", nextValue: 2}
	g.Blocks = []*Block{{
		ID: 0,
		Instrs: []Instruction{
			&Call{Dst: 0, Callee: "f", Args: []Value{Ref(1)}},
			&Constant{Dst: 1, Value: 10},
		},
		Term: &Return{Value: Ref(0)},
	}}
	err := Validate(g)
	require.Error(t, err)
	require.Contains(t, err.Error(), "before its definition")
}

func TestValidateRejectsNonDominatingUse(t *testing.T) {
	// b0 branches to b1 or b2; b1 defines %1; b2 uses %1.
	g := &Graph{Name: "bad", nextValue: 2}
	g.Blocks = []*Block{
		{
			ID:     0,
			Params: []Param{{ID: 0, Name: "x"}},
			Term:   &CondBranch{Cond: Ref(0), True: 1, False: 2},
		},
		{
			ID:     1,
			Instrs: []Instruction{&Constant{Dst: 1, Value: 1}},
			Term:   &Return{Value: Ref(1)},
		},
		{
			ID:   2,
			Term: &Return{Value: Ref(1)},
		},
	}
	err := Validate(g)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not dominate")
}

func TestValidateRejectsDoubleDefinition(t *testing.T) {
	g := &Graph{Name: "bad", nextValue: 1}
	g.Blocks = []*Block{{
		ID: 0,
		Instrs: []Instruction{
			&Constant{Dst: 0, Value: 1},
			&Constant{Dst: 0, Value: 2},
		},
		Term: &Return{Value: Ref(0)},
	}}
	err := Validate(g)
	require.Error(t, err)
	require.Contains(t, err.Error(), "defined twice")
}

func TestValidateRejectsArityMismatch(t *testing.T) {
	g := &Graph{Name: "bad", nextValue: 2}
	g.Blocks = []*Block{
		{
			ID:     0,
			Instrs: []Instruction{&Constant{Dst: 0, Value: 1}},
			Term:   &Jump{Target: 1},
		},
		{
			ID:     1,
			Params: []Param{{ID: 1, Name: "r"}},
			Term:   &Return{Value: Ref(1)},
		},
	}
	err := Validate(g)
	require.Error(t, err)
	require.Contains(t, err.Error(), "passes 0 args")
}

func TestValidateRejectsMissingTerminator(t *testing.T) {
	g := &Graph{Name: "bad"}
	g.Blocks = []*Block{{ID: 0}}
	require.Error(t, Validate(g))
}

func TestValidateSkipsUnreachableDominance(t *testing.T) {
	// An unreachable block may reference values its (unreachable)
	// predecessors would pass; structural checks still apply.
	g := &Graph{Name: "island", nextValue: 2}
	g.Blocks = []*Block{
		{
			ID:     0,
			Instrs: []Instruction{&Constant{Dst: 0, Value: 1}},
			Term:   &Return{Value: Ref(0)},
		},
		{
			ID:     1,
			Params: []Param{{ID: 1, Name: "p"}},
			Term:   &Return{Value: Ref(1)},
		},
	}
	require.NoError(t, Validate(g))
}

func TestValidateLoop(t *testing.T) {
	// b0 -> b1(i); b1: cond(done) ? b2 : b1(next)
	b := NewBuilder("loop")
	n := b.Param("n")
	body := b.NewBlock()
	exit := b.NewBlock()
	i := b.BlockParam(body, "i")
	b.Jump(body, b.Const(0))
	b.SetBlock(body)
	done := b.Call("lte", n, i)
	next := b.Call("add", i, b.Const(1))
	b.CondBranch(done, exit, nil, body, []Value{next})
	b.SetBlock(exit)
	b.Return(i)
	_, err := b.Graph()
	require.NoError(t, err)
}
