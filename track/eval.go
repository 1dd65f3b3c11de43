package track

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/phipsgabler/beyond-overdubbing/ir"
)

// exec evaluates a graph with the given arguments bound to the entry block's
// parameters. Values live in a flat register file indexed by ValueID; block
// transfer evaluates branch arguments against the source block before
// binding the target's parameters. The evaluator is trace-agnostic: tracing
// happens only because rewritten graphs call recording intrinsics.
func (t *Tracker) exec(g *ir.Graph, args []any) (any, error) {
	entry := g.Entry()
	if len(args) != len(entry.Params) {
		return nil, errors.Newf("track: %s takes %d arguments, got %d",
			g.Name, len(entry.Params), len(args))
	}
	regs := make([]any, g.NumValues())
	blk := entry
	for i, p := range entry.Params {
		regs[p.ID] = args[i]
	}

	for {
		for _, ins := range blk.Instrs {
			switch ins := ins.(type) {
			case *ir.Constant:
				regs[ins.Dst] = ins.Value
			case *ir.VarRef:
				regs[ins.Dst] = regs[ins.Src]
			case *ir.Call:
				vals := make([]any, len(ins.Args))
				for i, a := range ins.Args {
					vals[i] = operand(regs, a)
				}
				var out any
				var err error
				if strings.HasPrefix(ins.Callee, intrinsicPrefix) {
					out, err = t.intrinsic(ins.Callee, vals)
				} else {
					out, err = t.invoke(ins.Callee, vals)
				}
				if err != nil {
					return nil, err
				}
				regs[ins.Dst] = out
			default:
				return nil, errors.Newf("track: unsupported instruction %T in %s", ins, g.Name)
			}
		}

		switch term := blk.Term.(type) {
		case *ir.Return:
			return operand(regs, term.Value), nil
		case *ir.Jump:
			blk = transfer(g, regs, term.Target, term.Args)
		case *ir.CondBranch:
			taken, err := truthy(operand(regs, term.Cond))
			if err != nil {
				return nil, errors.Wrapf(err, "track: condition in %s b%d", g.Name, blk.ID)
			}
			if taken {
				blk = transfer(g, regs, term.True, term.TrueArgs)
			} else {
				blk = transfer(g, regs, term.False, term.FalseArgs)
			}
		default:
			return nil, errors.Newf("track: unsupported terminator %T in %s", term, g.Name)
		}
	}
}

func operand(regs []any, v ir.Value) any {
	if v.Kind == ir.Konst {
		return v.Lit
	}
	return regs[v.ID]
}

// transfer binds the taken branch's arguments to the target block's
// parameters. Arguments are evaluated before any parameter is written, so a
// loop edge may freely permute its own parameters.
func transfer(g *ir.Graph, regs []any, target ir.BlockID, args []ir.Value) *ir.Block {
	blk := g.Block(target)
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = operand(regs, a)
	}
	for i, p := range blk.Params {
		regs[p.ID] = vals[i]
	}
	return blk
}

func truthy(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.Newf("non-boolean condition %#v", v)
	}
	return b, nil
}
