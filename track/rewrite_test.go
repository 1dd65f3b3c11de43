package track

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/phipsgabler/beyond-overdubbing/ir"
	"github.com/phipsgabler/beyond-overdubbing/trace"
)

func TestRewritePreservesValidity(t *testing.T) {
	for name, g := range testSource() {
		rg, err := Rewrite(g)
		require.NoError(t, err, name)
		require.NoError(t, ir.Validate(rg), name)
		require.Equal(t, len(g.Blocks), len(rg.Blocks), name)
	}
}

func TestRewriteParameterShape(t *testing.T) {
	g := branchyGraph()
	rg, err := Rewrite(g)
	require.NoError(t, err)

	// Entry gains the context parameter in front of the original ones.
	require.Len(t, rg.Entry().Params, len(g.Entry().Params)+1)
	require.Equal(t, "ctx", rg.Entry().Params[0].Name)

	// Every other block doubles its parameters (runtime value + node) and
	// gains one slot for the incoming branch record.
	for i, sb := range g.Blocks {
		if i == 0 {
			continue
		}
		rb := rg.Blocks[i]
		require.Len(t, rb.Params, 2*len(sb.Params)+1, "block %d", i)
		require.Equal(t, "pred.node", rb.Params[len(rb.Params)-1].Name)
	}
}

func TestRewriteRecordsPerInstruction(t *testing.T) {
	// Executing the rewritten graph directly must populate the context
	// with one node per original instruction and branch.
	tr := newTestTracker(t, DefaultConfig())
	rg, err := Rewrite(branchyGraph())
	require.NoError(t, err)

	root := trace.NewContext("branchy", nil, nil)
	out, err := tr.exec(rg, []any{root, true})
	require.NoError(t, err)
	require.Equal(t, 1, out)

	// arg x, condbr, const 1, jump, return
	kinds := make([]trace.Kind, 0, root.Len())
	for _, n := range root.Nodes() {
		kinds = append(kinds, n.Kind())
	}
	require.Equal(t, []trace.Kind{
		trace.KindArgument,
		trace.KindBranch,
		trace.KindConstant,
		trace.KindBranch,
		trace.KindReturn,
	}, kinds)
}

func TestCondBranchCarriesArgumentNodes(t *testing.T) {
	// pick(x) = x ? 10 : 20, passed as a block argument on both edges. The
	// recorded branch node must reference the taken side's argument nodes,
	// just like an unconditional jump does.
	b := ir.NewBuilder("pick")
	x := b.Param("x")
	join := b.NewBlock()
	r := b.BlockParam(join, "r")
	v := b.Const(10)
	w := b.Const(20)
	b.CondBranch(x, join, []ir.Value{v}, join, []ir.Value{w})
	b.SetBlock(join)
	b.Return(r)
	src := testSource()
	src["pick"] = b.MustGraph()

	tr, err := New(DefaultConfig(), src, WithPrimitives(testPrimitives()))
	require.NoError(t, err)

	for _, tc := range []struct {
		arg  bool
		want int
	}{
		{true, 10},
		{false, 20},
	} {
		out, root, err := tr.Call("pick", tc.arg)
		require.NoError(t, err)
		require.Equal(t, tc.want, out)

		var br *trace.Node
		for _, n := range root.Nodes() {
			if n.Kind() == trace.KindBranch {
				br = n
			}
		}
		require.NotNil(t, br)
		require.Len(t, br.Args(), 1)
		require.Equal(t, tc.want, root.Node(br.Args()[0]).Value())
		require.Equal(t, tc.arg, root.Node(br.Ref()).Value())
	}
}

func TestRewriteRejectsBranchToEntry(t *testing.T) {
	b := ir.NewBuilder("loopy")
	x := b.Param("x")
	exit := b.NewBlock()
	back := b.NewBlock()
	b.CondBranch(x, exit, nil, back, nil)
	b.SetBlock(exit)
	b.Return(b.Const(1))
	b.SetBlock(back)
	b.Jump(0, x)
	g := b.MustGraph()

	_, err := Rewrite(g)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRewrite))
}

func TestRewriteErrorFallsBackToLeaf(t *testing.T) {
	b := ir.NewBuilder("loopy")
	x := b.Param("x")
	exit := b.NewBlock()
	back := b.NewBlock()
	b.CondBranch(x, exit, nil, back, nil)
	b.SetBlock(exit)
	b.Return(b.Const(1))
	b.SetBlock(back)
	b.Jump(0, x)
	src := testSource()
	src["loopy"] = b.MustGraph()

	cfg := DefaultConfig()
	tr, err := New(cfg, src, WithPrimitives(testPrimitives()))
	require.NoError(t, err)

	out, root, err := tr.Call("loopy", true)
	require.NoError(t, err)
	require.Equal(t, 1, out)
	loopy := findCall(root, "loopy")
	require.NotNil(t, loopy)
	require.Nil(t, loopy.Child())

	cfg.FallbackOnRewriteError = false
	strict, err := New(cfg, src, WithPrimitives(testPrimitives()))
	require.NoError(t, err)
	_, root, err = strict.Call("loopy", true)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRewrite))
	require.True(t, root.Sealed())
}

func TestVariableReferenceConsistency(t *testing.T) {
	// A rewritten graph referencing a value no recording ever bound is an
	// internal invariant violation, surfaced, never swallowed.
	tr := newTestTracker(t, DefaultConfig())
	b := ir.NewBuilder("bogus")
	c := b.Param("ctx")
	b.Return(b.Call(opVar, c, ir.ConstOf(1), ir.ConstOf(99)))
	g := b.MustGraph()

	root := trace.NewContext("bogus", nil, nil)
	_, err := tr.exec(g, []any{root})
	require.Error(t, err)
	require.True(t, errors.Is(err, trace.ErrInconsistent))
}

func TestRewriteVarRefRecordsVariable(t *testing.T) {
	b := ir.NewBuilder("aliased")
	x := b.Param("x")
	y := b.VarRef(x)
	b.Return(b.Call("add", y, ir.ConstOf(1)))
	src := testSource()
	src["aliased"] = b.MustGraph()

	tr, err := New(DefaultConfig(), src, WithPrimitives(testPrimitives()))
	require.NoError(t, err)

	out, root, err := tr.Call("aliased", 4)
	require.NoError(t, err)
	require.Equal(t, 5, out)

	var v *trace.Node
	for _, n := range root.Nodes() {
		if n.Kind() == trace.KindVariable {
			v = n
		}
	}
	require.NotNil(t, v)
	require.Equal(t, trace.KindArgument, root.Node(v.Ref()).Kind())
}
