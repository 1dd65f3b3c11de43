package trace

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/phipsgabler/beyond-overdubbing/ir"
)

func TestRecordingOrderAndIDs(t *testing.T) {
	c := NewContext("f", nil, nil)
	a, err := c.RecordArgument(0, 0, 10, ir.NoLoc)
	require.NoError(t, err)
	k, err := c.RecordConstant(1, 32)
	require.NoError(t, err)
	call, err := c.RecordCall(2, "add", []NodeID{a.ID(), k.ID()}, 42, nil, ir.NoLoc)
	require.NoError(t, err)
	ret, err := c.RecordReturn(call.ID(), 42, ir.NoLoc)
	require.NoError(t, err)

	require.Equal(t, 4, c.Len())
	for i, n := range c.Nodes() {
		require.Equal(t, NodeID(i), n.ID())
	}
	require.Equal(t, KindArgument, a.Kind())
	require.Equal(t, KindConstant, k.Kind())
	require.Equal(t, KindCall, call.Kind())
	require.Equal(t, KindReturn, ret.Kind())
	require.Equal(t, call.ID(), ret.Ref())
	require.Nil(t, call.Child())
}

func TestValueMapping(t *testing.T) {
	c := NewContext("f", nil, nil)
	n, err := c.RecordConstant(7, "hello")
	require.NoError(t, err)

	id, err := c.NodeFor(7)
	require.NoError(t, err)
	require.Equal(t, n.ID(), id)

	_, err = c.NodeFor(99)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInconsistent))
}

func TestBindRebindsLatest(t *testing.T) {
	c := NewContext("loop", nil, nil)
	first, err := c.RecordConstant(3, 1)
	require.NoError(t, err)
	second, err := c.RecordConstant(3, 2)
	require.NoError(t, err)
	require.NotEqual(t, first.ID(), second.ID())

	id, err := c.NodeFor(3)
	require.NoError(t, err)
	require.Equal(t, second.ID(), id)
}

func TestSealedRejectsAppends(t *testing.T) {
	c := NewContext("f", nil, nil)
	c.Seal()
	require.True(t, c.Sealed())
	_, err := c.RecordConstant(ir.NoValue, 1)
	require.Error(t, err)
	require.Error(t, c.Bind(0, 0))
}

func TestBudgetSharedAcrossTree(t *testing.T) {
	root := NewContext("f", nil, NewBudget(3))
	_, err := root.RecordConstant(ir.NoValue, 1)
	require.NoError(t, err)

	child := root.Child("g")
	require.Equal(t, 1, child.Depth())
	_, err = child.RecordConstant(ir.NoValue, 2)
	require.NoError(t, err)
	_, err = child.RecordConstant(ir.NoValue, 3)
	require.NoError(t, err)

	_, err = root.RecordConstant(ir.NoValue, 4)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBudget))
}

func TestUnlimitedBudget(t *testing.T) {
	c := NewContext("f", nil, NewBudget(0))
	for i := 0; i < 100; i++ {
		_, err := c.RecordConstant(ir.NoValue, i)
		require.NoError(t, err)
	}
	require.Equal(t, 100, c.Len())
}

func TestChildMustBeSealedBeforeAttach(t *testing.T) {
	root := NewContext("f", nil, nil)
	child := root.Child("g")
	_, err := root.RecordCall(ir.NoValue, "g", nil, 1, child, ir.NoLoc)
	require.Error(t, err)

	child.Seal()
	n, err := root.RecordCall(ir.NoValue, "g", nil, 1, child, ir.NoLoc)
	require.NoError(t, err)
	require.Same(t, child, n.Child())
	require.Same(t, root, child.Parent())
}

func TestStringRendersTree(t *testing.T) {
	root := NewContext("outer", nil, nil)
	_, err := root.RecordArgument(0, 0, true, ir.NoLoc)
	require.NoError(t, err)
	child := root.Child("inner")
	_, err = child.RecordConstant(ir.NoValue, 5)
	require.NoError(t, err)
	child.Seal()
	_, err = root.RecordCall(ir.NoValue, "inner", nil, 5, child, ir.NoLoc)
	require.NoError(t, err)

	s := root.String()
	require.Contains(t, s, "outer:")
	require.Contains(t, s, "inner:")
	require.Contains(t, s, "arg 0 = true")
	require.Contains(t, s, "[nested]")
}
