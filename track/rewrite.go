package track

import (
	"github.com/cockroachdb/errors"

	"github.com/phipsgabler/beyond-overdubbing/ir"
)

// Rewrite produces a graph observationally equivalent to g that additionally
// records one trace node per original instruction and branch, in execution
// order, into the context passed as its prepended entry parameter.
//
// For every original SSA value the rewritten graph carries two values: the
// unchanged runtime value, still used for all computation, and the reference
// to the trace node that recorded it. Block parameters are doubled
// accordingly, and every non-entry block gains one extra parameter carrying
// the branch record of the edge that entered it. Branch records are emitted
// in the source block, before the transfer, because afterwards only the
// taken side is live. Dominance validity of the output is checked as a
// postcondition.
func Rewrite(g *ir.Graph) (*ir.Graph, error) {
	rw := &rewriter{
		src:      g,
		b:        ir.NewBuilder(g.Name + ".traced"),
		valueMap: make(map[ir.ValueID]ir.Value),
		nodeMap:  make(map[ir.ValueID]ir.Value),
		blockMap: make(map[ir.BlockID]ir.BlockID),
	}
	out, err := rw.rewrite()
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "rewrite of %s", g.Name), ErrRewrite)
	}
	return out, nil
}

type rewriter struct {
	src *ir.Graph
	b   *ir.Builder

	ctx      ir.Value                  // the threaded context parameter
	valueMap map[ir.ValueID]ir.Value   // original value -> runtime value
	nodeMap  map[ir.ValueID]ir.Value   // original value -> trace node reference
	blockMap map[ir.BlockID]ir.BlockID
}

func (rw *rewriter) rewrite() (*ir.Graph, error) {
	entry := rw.src.Entry()

	// Entry keeps the original parameters (raw runtime values) behind the
	// prepended context; their node references come from recording calls
	// emitted below. The context parameter dominates every block, so it
	// needs no threading of its own.
	rw.blockMap[entry.ID] = 0
	rw.ctx = rw.b.Param("ctx")
	for _, p := range entry.Params {
		rw.valueMap[p.ID] = rw.b.Param(p.Name)
	}

	// Remaining blocks: each original parameter becomes a runtime/node pair,
	// plus one slot receiving the predecessor's branch record.
	for _, sb := range rw.src.Blocks[1:] {
		id := rw.b.NewBlock()
		rw.blockMap[sb.ID] = id
		for _, p := range sb.Params {
			rw.valueMap[p.ID] = rw.b.BlockParam(id, p.Name)
			rw.nodeMap[p.ID] = rw.b.BlockParam(id, p.Name+".node")
		}
		rw.b.BlockParam(id, "pred.node")
	}

	// Record the call's arguments in declared order, first thing on entry.
	for i, p := range entry.Params {
		rw.nodeMap[p.ID] = rw.b.Call(opArg,
			rw.ctx, constID(p.ID), ir.ConstOf(i), constLoc(ir.NoLoc), rw.valueMap[p.ID])
	}

	for _, sb := range rw.src.Blocks {
		rw.b.SetBlock(rw.blockMap[sb.ID])
		if err := rw.block(sb); err != nil {
			return nil, err
		}
	}

	return rw.b.Graph()
}

func (rw *rewriter) block(sb *ir.Block) error {
	// Bind incoming block parameters into the context's value mapping so
	// variable references through them resolve at runtime.
	if sb.ID != rw.src.Entry().ID {
		for _, p := range sb.Params {
			rw.b.Call(opBind, rw.ctx, constID(p.ID), rw.nodeMap[p.ID])
		}
	}
	for _, ins := range sb.Instrs {
		switch ins := ins.(type) {
		case *ir.Constant:
			rv := rw.b.At(ins.At).Const(ins.Value)
			rw.valueMap[ins.Dst] = rv
			rw.nodeMap[ins.Dst] = rw.b.Call(opConst, rw.ctx, constID(ins.Dst), rv)

		case *ir.VarRef:
			rv, ok := rw.valueMap[ins.Src]
			if !ok {
				return errors.Newf("b%d: reference to unrewritten value %%%d", sb.ID, ins.Src)
			}
			rw.valueMap[ins.Dst] = rw.b.At(ins.At).VarRef(rv)
			rw.nodeMap[ins.Dst] = rw.b.Call(opVar, rw.ctx, constID(ins.Dst), constID(ins.Src))

		case *ir.Call:
			runtimes := make([]ir.Value, len(ins.Args))
			nodes := make([]ir.Value, len(ins.Args))
			for i, a := range ins.Args {
				rv, nv, err := rw.operand(sb, a)
				if err != nil {
					return err
				}
				runtimes[i], nodes[i] = rv, nv
			}
			args := make([]ir.Value, 0, 5+2*len(ins.Args))
			args = append(args, rw.ctx, constID(ins.Dst), ir.ConstOf(ins.Callee),
				constLoc(ins.At), ir.ConstOf(len(ins.Args)))
			args = append(args, nodes...)
			args = append(args, runtimes...)
			nref := rw.b.At(ins.At).Call(opDispatch, args...)
			rw.nodeMap[ins.Dst] = nref
			rw.valueMap[ins.Dst] = rw.b.Call(opResult, nref)

		default:
			return errors.Newf("b%d: unsupported instruction kind %T", sb.ID, ins)
		}
	}

	switch term := sb.Term.(type) {
	case *ir.Return:
		rv, nv, err := rw.operand(sb, term.Value)
		if err != nil {
			return err
		}
		rw.b.At(term.At).Call(opRet, rw.ctx, nv, rv, constLoc(term.At))
		rw.b.Return(rv)

	case *ir.Jump:
		runtimes, nodes, err := rw.operands(sb, term.Args)
		if err != nil {
			return err
		}
		recArgs := append([]ir.Value{rw.ctx, ir.ConstOf(int(term.Target)), constLoc(term.At)}, nodes...)
		bn := rw.b.At(term.At).Call(opJump, recArgs...)
		target, args, err := rw.edge(sb, term.Target, runtimes, nodes, bn)
		if err != nil {
			return err
		}
		rw.b.Jump(target, args...)

	case *ir.CondBranch:
		// The condition is recorded here, in the source block, and the
		// record travels into whichever target is taken. Both sides' edge
		// argument nodes are handed to the intrinsic; it records only the
		// taken side's.
		condRV, condNV, err := rw.operand(sb, term.Cond)
		if err != nil {
			return err
		}
		trueRVs, trueNVs, err := rw.operands(sb, term.TrueArgs)
		if err != nil {
			return err
		}
		falseRVs, falseNVs, err := rw.operands(sb, term.FalseArgs)
		if err != nil {
			return err
		}
		recArgs := make([]ir.Value, 0, 8+len(trueNVs)+len(falseNVs))
		recArgs = append(recArgs, rw.ctx, condNV, condRV,
			ir.ConstOf(int(term.True)), ir.ConstOf(int(term.False)), constLoc(term.At),
			ir.ConstOf(len(trueNVs)), ir.ConstOf(len(falseNVs)))
		recArgs = append(recArgs, trueNVs...)
		recArgs = append(recArgs, falseNVs...)
		bn := rw.b.At(term.At).Call(opCond, recArgs...)

		tTarget, tArgs, err := rw.edge(sb, term.True, trueRVs, trueNVs, bn)
		if err != nil {
			return err
		}
		fTarget, fArgs, err := rw.edge(sb, term.False, falseRVs, falseNVs, bn)
		if err != nil {
			return err
		}
		rw.b.CondBranch(condRV, tTarget, tArgs, fTarget, fArgs)

	default:
		return errors.Newf("b%d: unsupported terminator kind %T", sb.ID, term)
	}
	return nil
}

// operand resolves one original operand into its runtime value and node
// reference. A literal constant argument becomes a freshly recorded
// constant node while the literal keeps flowing as-is.
func (rw *rewriter) operand(sb *ir.Block, v ir.Value) (ir.Value, ir.Value, error) {
	if v.Kind == ir.Konst {
		node := rw.b.Call(opConst, rw.ctx, constID(ir.NoValue), v)
		return v, node, nil
	}
	rv, ok := rw.valueMap[v.ID]
	if !ok {
		return ir.Value{}, ir.Value{}, errors.Newf("b%d: use of unrewritten value %%%d", sb.ID, v.ID)
	}
	nv, ok := rw.nodeMap[v.ID]
	if !ok {
		return ir.Value{}, ir.Value{}, errors.Newf("b%d: no node value for %%%d", sb.ID, v.ID)
	}
	return rv, nv, nil
}

func (rw *rewriter) operands(sb *ir.Block, vs []ir.Value) ([]ir.Value, []ir.Value, error) {
	runtimes := make([]ir.Value, len(vs))
	nodes := make([]ir.Value, len(vs))
	for i, v := range vs {
		rv, nv, err := rw.operand(sb, v)
		if err != nil {
			return nil, nil, err
		}
		runtimes[i], nodes[i] = rv, nv
	}
	return runtimes, nodes, nil
}

// edge assembles the rewritten argument list for one control-flow edge:
// each original argument as a runtime/node pair, then the branch record.
func (rw *rewriter) edge(sb *ir.Block, target ir.BlockID, runtimes, nodes []ir.Value, bn ir.Value) (ir.BlockID, []ir.Value, error) {
	if target == rw.src.Entry().ID {
		return 0, nil, errors.Newf("b%d: branch to entry block is unsupported", sb.ID)
	}
	args := make([]ir.Value, 0, 2*len(runtimes)+1)
	for i := range runtimes {
		args = append(args, runtimes[i], nodes[i])
	}
	args = append(args, bn)
	return rw.blockMap[target], args, nil
}

func constID(id ir.ValueID) ir.Value { return ir.ConstOf(int(id)) }
func constLoc(loc ir.Loc) ir.Value   { return ir.ConstOf(int(loc)) }
