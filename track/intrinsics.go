package track

import (
	"github.com/cockroachdb/errors"

	"github.com/phipsgabler/beyond-overdubbing/ir"
	"github.com/phipsgabler/beyond-overdubbing/trace"
)

// Recording intrinsics. The rewriter emits calls to these in place of plain
// instructions; the evaluator routes them here instead of through invoke.
// Static operands (value ids, positions, block ids, locations, callee
// names) are encoded as constant operands by the rewriter.
const intrinsicPrefix = "!trace."

const (
	opArg      = "!trace.arg"      // (ctx, origID, pos, loc, value) -> node
	opConst    = "!trace.const"    // (ctx, origID, value) -> node
	opVar      = "!trace.var"      // (ctx, origID, srcID) -> node
	opDispatch = "!trace.dispatch" // (ctx, origID, callee, loc, n, node..., val...) -> node
	opResult   = "!trace.result"   // (node) -> runtime result of the call
	opJump     = "!trace.br"      // (ctx, target, loc, node...) -> node
	opCond     = "!trace.condbr"  // (ctx, condNode, condVal, trueID, falseID, loc, nT, nF, trueNode..., falseNode...) -> node
	opRet      = "!trace.ret"     // (ctx, valueNode, value, loc) -> node
	opBind     = "!trace.bind"    // (ctx, origID, node) -> node
)

func (t *Tracker) intrinsic(name string, args []any) (any, error) {
	switch name {
	case opArg:
		ctx, err := asContext(args[0])
		if err != nil {
			return nil, err
		}
		origin, pos, loc := asValueID(args[1]), asInt(args[2]), asLoc(args[3])
		n, err := ctx.RecordArgument(origin, pos, args[4], loc)
		return n, limitErr(err)

	case opConst:
		ctx, err := asContext(args[0])
		if err != nil {
			return nil, err
		}
		n, err := ctx.RecordConstant(asValueID(args[1]), args[2])
		return n, limitErr(err)

	case opVar:
		ctx, err := asContext(args[0])
		if err != nil {
			return nil, err
		}
		src := asValueID(args[2])
		ref, err := ctx.NodeFor(src)
		if err != nil {
			return nil, err
		}
		n, err := ctx.RecordVariable(asValueID(args[1]), ref)
		return n, limitErr(err)

	case opDispatch:
		ctx, err := asContext(args[0])
		if err != nil {
			return nil, err
		}
		origin := asValueID(args[1])
		callee, ok := args[2].(string)
		if !ok {
			return nil, errors.AssertionFailedf("dispatch callee operand is %T", args[2])
		}
		loc := asLoc(args[3])
		n := asInt(args[4])
		rest := args[5:]
		if len(rest) != 2*n {
			return nil, errors.AssertionFailedf("dispatch %s expects %d packed operands, got %d",
				callee, 2*n, len(rest))
		}
		argNodes := make([]*trace.Node, n)
		for i := 0; i < n; i++ {
			node, err := asNode(rest[i])
			if err != nil {
				return nil, err
			}
			argNodes[i] = node
		}
		return t.dispatch(ctx, origin, callee, loc, argNodes, rest[n:])

	case opResult:
		node, err := asNode(args[0])
		if err != nil {
			return nil, err
		}
		return node.Value(), nil

	case opJump:
		ctx, err := asContext(args[0])
		if err != nil {
			return nil, err
		}
		target, loc := ir.BlockID(asInt(args[1])), asLoc(args[2])
		carried, err := asNodeIDs(args[3:])
		if err != nil {
			return nil, err
		}
		n, err := ctx.RecordBranch(target, trace.NoNode, carried, loc)
		return n, limitErr(err)

	case opCond:
		ctx, err := asContext(args[0])
		if err != nil {
			return nil, err
		}
		condNode, err := asNode(args[1])
		if err != nil {
			return nil, err
		}
		taken, err := truthy(args[2])
		if err != nil {
			return nil, errors.AssertionFailedf("recorded condition: %v", err)
		}
		nT, nF := asInt(args[6]), asInt(args[7])
		rest := args[8:]
		if len(rest) != nT+nF {
			return nil, errors.AssertionFailedf("condbr expects %d edge nodes, got %d",
				nT+nF, len(rest))
		}
		target := ir.BlockID(asInt(args[3]))
		edgeNodes := rest[:nT]
		if !taken {
			target = ir.BlockID(asInt(args[4]))
			edgeNodes = rest[nT:]
		}
		carried, err := asNodeIDs(edgeNodes)
		if err != nil {
			return nil, err
		}
		n, err := ctx.RecordBranch(target, condNode.ID(), carried, asLoc(args[5]))
		return n, limitErr(err)

	case opBind:
		ctx, err := asContext(args[0])
		if err != nil {
			return nil, err
		}
		node, err := asNode(args[2])
		if err != nil {
			return nil, err
		}
		if err := ctx.Bind(asValueID(args[1]), node.ID()); err != nil {
			return nil, err
		}
		return node, nil

	case opRet:
		ctx, err := asContext(args[0])
		if err != nil {
			return nil, err
		}
		valueNode, err := asNode(args[1])
		if err != nil {
			return nil, err
		}
		n, err := ctx.RecordReturn(valueNode.ID(), args[2], asLoc(args[3]))
		return n, limitErr(err)

	default:
		return nil, errors.AssertionFailedf("unknown intrinsic %s", name)
	}
}

func asContext(v any) (*trace.Context, error) {
	ctx, ok := v.(*trace.Context)
	if !ok {
		return nil, errors.AssertionFailedf("intrinsic context operand is %T", v)
	}
	return ctx, nil
}

func asNode(v any) (*trace.Node, error) {
	n, ok := v.(*trace.Node)
	if !ok {
		return nil, errors.AssertionFailedf("intrinsic node operand is %T", v)
	}
	return n, nil
}

func asNodeIDs(vs []any) ([]trace.NodeID, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	ids := make([]trace.NodeID, len(vs))
	for i, v := range vs {
		n, err := asNode(v)
		if err != nil {
			return nil, err
		}
		ids[i] = n.ID()
	}
	return ids, nil
}

func asInt(v any) int {
	n, _ := v.(int)
	return n
}

func asValueID(v any) ir.ValueID {
	if n, ok := v.(int); ok {
		return ir.ValueID(n)
	}
	return ir.NoValue
}

func asLoc(v any) ir.Loc {
	if n, ok := v.(int); ok {
		return ir.Loc(n)
	}
	return ir.NoLoc
}

// limitErr converts budget exhaustion into the recursion-limit error class;
// other recording failures pass through.
func limitErr(err error) error {
	if err != nil && errors.Is(err, trace.ErrBudget) {
		return errors.Mark(err, ErrRecursionLimit)
	}
	return err
}
