package ir

import (
	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
)

// defSite records where an SSA value is defined: as the parameter of a block
// or as the result of the instruction at index instr within a block.
type defSite struct {
	block BlockID
	instr int // -1 for block parameters
}

// Validate checks structural well-formedness and SSA dominance of g: every
// value is defined exactly once, every branch argument list matches the
// target block's parameters, and every use is dominated by its definition.
// The instrumentation pass runs this as a postcondition on its output.
func Validate(g *Graph) error {
	if len(g.Blocks) == 0 {
		return errors.New("graph has no blocks")
	}

	defs := make(map[ValueID]defSite)
	define := func(id ValueID, site defSite) error {
		if id < 0 || int(id) >= g.NumValues() {
			return errors.Newf("value %%%d out of range", id)
		}
		if prev, ok := defs[id]; ok {
			return errors.Newf("value %%%d defined twice (b%d and b%d)", id, prev.block, site.block)
		}
		defs[id] = site
		return nil
	}

	for _, b := range g.Blocks {
		if b == nil {
			return errors.New("nil block")
		}
		if b.Term == nil {
			return errors.Newf("b%d has no terminator", b.ID)
		}
		for _, p := range b.Params {
			if err := define(p.ID, defSite{block: b.ID, instr: -1}); err != nil {
				return err
			}
		}
		for i, ins := range b.Instrs {
			if err := define(ins.Result(), defSite{block: b.ID, instr: i}); err != nil {
				return err
			}
		}
	}

	// Branch targets and argument arity.
	for _, b := range g.Blocks {
		for _, succ := range b.Successors() {
			if g.Block(succ) == nil {
				return errors.Newf("b%d branches to unknown block b%d", b.ID, succ)
			}
		}
		switch term := b.Term.(type) {
		case *Jump:
			if len(term.Args) != len(g.Block(term.Target).Params) {
				return errors.Newf("b%d passes %d args to b%d which takes %d",
					b.ID, len(term.Args), term.Target, len(g.Block(term.Target).Params))
			}
		case *CondBranch:
			if len(term.TrueArgs) != len(g.Block(term.True).Params) {
				return errors.Newf("b%d passes %d args to b%d which takes %d",
					b.ID, len(term.TrueArgs), term.True, len(g.Block(term.True).Params))
			}
			if len(term.FalseArgs) != len(g.Block(term.False).Params) {
				return errors.Newf("b%d passes %d args to b%d which takes %d",
					b.ID, len(term.FalseArgs), term.False, len(g.Block(term.False).Params))
			}
		}
	}

	dom := dominators(g)

	// Every use must be dominated by its definition.
	for _, b := range g.Blocks {
		if _, reachable := dom[b.ID]; !reachable {
			continue
		}
		checkUse := func(v Value, at int) error {
			if v.Kind != Variable {
				return nil
			}
			site, ok := defs[v.ID]
			if !ok {
				return errors.Newf("b%d uses undefined value %%%d", b.ID, v.ID)
			}
			if site.block == b.ID {
				if site.instr >= 0 && site.instr >= at {
					return errors.Newf("b%d uses %%%d before its definition", b.ID, v.ID)
				}
				return nil
			}
			if !dom[b.ID].Contains(site.block) {
				return errors.Newf("b%d uses %%%d defined in b%d which does not dominate it",
					b.ID, v.ID, site.block)
			}
			return nil
		}
		for i, ins := range b.Instrs {
			var operands []Value
			switch ins := ins.(type) {
			case *Call:
				operands = ins.Args
			case *VarRef:
				operands = []Value{Ref(ins.Src)}
			}
			for _, op := range operands {
				if err := checkUse(op, i); err != nil {
					return err
				}
			}
		}
		end := len(b.Instrs)
		switch term := b.Term.(type) {
		case *Jump:
			for _, a := range term.Args {
				if err := checkUse(a, end); err != nil {
					return err
				}
			}
		case *CondBranch:
			if err := checkUse(term.Cond, end); err != nil {
				return err
			}
			for _, a := range term.TrueArgs {
				if err := checkUse(a, end); err != nil {
					return err
				}
			}
			for _, a := range term.FalseArgs {
				if err := checkUse(a, end); err != nil {
					return err
				}
			}
		case *Return:
			if err := checkUse(term.Value, end); err != nil {
				return err
			}
		}
	}
	return nil
}

// dominators computes, for every block reachable from the entry, the set of
// blocks dominating it (including itself), by iterating
// dom(b) = {b} ∪ ⋂ dom(preds(b)) to a fixpoint.
func dominators(g *Graph) map[BlockID]mapset.Set[BlockID] {
	preds := make(map[BlockID][]BlockID)
	reachable := mapset.NewSet[BlockID]()
	worklist := []BlockID{0}
	reachable.Add(0)
	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		for _, succ := range g.Block(id).Successors() {
			preds[succ] = append(preds[succ], id)
			if !reachable.Contains(succ) {
				reachable.Add(succ)
				worklist = append(worklist, succ)
			}
		}
	}

	all := mapset.NewSet[BlockID]()
	for _, id := range reachable.ToSlice() {
		all.Add(id)
	}

	dom := make(map[BlockID]mapset.Set[BlockID])
	for _, id := range reachable.ToSlice() {
		if id == 0 {
			dom[id] = mapset.NewSet[BlockID](BlockID(0))
		} else {
			dom[id] = all.Clone()
		}
	}

	for changed := true; changed; {
		changed = false
		for _, id := range reachable.ToSlice() {
			if id == 0 {
				continue
			}
			next := all.Clone()
			seen := false
			for _, p := range preds[id] {
				if !reachable.Contains(p) {
					continue
				}
				if !seen {
					next = dom[p].Clone()
					seen = true
				} else {
					next = next.Intersect(dom[p])
				}
			}
			if !seen {
				next = mapset.NewSet[BlockID]()
			}
			next.Add(id)
			if !next.Equal(dom[id]) {
				dom[id] = next
				changed = true
			}
		}
	}
	return dom
}
