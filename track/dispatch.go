package track

import (
	"github.com/cockroachdb/errors"

	"github.com/phipsgabler/beyond-overdubbing/ir"
	"github.com/phipsgabler/beyond-overdubbing/trace"
)

// Call is the instrumented entry point: it executes callee with args,
// tracing into a fresh root context, and returns the result together with
// the sealed root. The root is returned even on failure, truncated at the
// point the error occurred, so partial traces stay inspectable.
func (t *Tracker) Call(callee string, args ...any) (any, *trace.Context, error) {
	root := trace.NewContext(callee, nil, trace.NewBudget(t.cfg.MaxNodes))
	defer root.Seal()

	rg, err := t.instrument(callee, ShapeOf(args))
	if err != nil {
		if !t.cfg.FallbackOnRewriteError {
			return nil, root, err
		}
		t.log.Debugw("rewrite failed, tracing as leaf", "callee", callee, "err", err)
		rg = nil
	}
	if rg == nil {
		out, err := t.leafEntry(root, callee, args)
		return out, root, err
	}

	out, err := t.exec(rg, prependCtx(root, args))
	if err != nil {
		return nil, root, err
	}
	return out, root, nil
}

// leafEntry traces a top-level call to an opaque callable: the arguments,
// one leaf call node and the return record.
func (t *Tracker) leafEntry(root *trace.Context, callee string, args []any) (any, error) {
	argIDs := make([]trace.NodeID, len(args))
	for i, a := range args {
		n, err := root.RecordArgument(ir.NoValue, i, a, ir.NoLoc)
		if err != nil {
			return nil, limitErr(err)
		}
		argIDs[i] = n.ID()
	}
	out, err := t.invoke(callee, args)
	if err != nil {
		return nil, err
	}
	t.counters.leafCalls.Inc()
	cn, err := root.RecordCall(ir.NoValue, callee, argIDs, out, nil, ir.NoLoc)
	if err != nil {
		return nil, limitErr(err)
	}
	if _, err := root.RecordReturn(cn.ID(), out, ir.NoLoc); err != nil {
		return nil, limitErr(err)
	}
	return out, nil
}

// instrument returns the rewritten graph for (callee, shape), rewriting and
// caching on a miss. nil without error means the callee is opaque and must
// be recorded as a leaf.
func (t *Tracker) instrument(callee string, shape Shape) (*ir.Graph, error) {
	key := cacheKey{callee: callee, shape: shape}
	if rg, ok := t.cache.get(key); ok {
		t.counters.cacheHits.Inc()
		return rg, nil
	}
	t.counters.cacheMisses.Inc()
	if t.source == nil {
		return nil, nil
	}
	src, ok := t.source.GraphFor(callee, shape)
	if !ok {
		return nil, nil
	}
	t.counters.rewrites.Inc()
	rg, err := Rewrite(src)
	if err != nil {
		return nil, err
	}
	t.cache.add(key, rg)
	t.log.Debugw("instrumented", "callee", callee, "shape", string(shape), "blocks", len(rg.Blocks))
	return rg, nil
}

// dispatch performs the call behind a rewritten call instruction: it decides
// between recursing into an instrumented callee and recording an opaque
// leaf, performs the real call exactly once either way, and records the
// resulting call node in parent.
func (t *Tracker) dispatch(parent *trace.Context, origin ir.ValueID, callee string, loc ir.Loc, argNodes []*trace.Node, argVals []any) (*trace.Node, error) {
	argIDs := make([]trace.NodeID, len(argNodes))
	for i, n := range argNodes {
		argIDs[i] = n.ID()
	}

	leaf := func() (*trace.Node, error) {
		out, err := t.invoke(callee, argVals)
		if err != nil {
			// The callee's failure propagates unchanged; no call node is
			// finalized, but the already-recorded argument nodes stay.
			return nil, err
		}
		t.counters.leafCalls.Inc()
		n, err := parent.RecordCall(origin, callee, argIDs, out, nil, loc)
		return n, limitErr(err)
	}

	if !t.policy(parent, callee, argVals) {
		return leaf()
	}
	rg, err := t.instrument(callee, ShapeOf(argVals))
	if err != nil {
		if t.cfg.FallbackOnRewriteError {
			t.log.Debugw("rewrite failed, recording leaf", "callee", callee, "err", err)
			return leaf()
		}
		return nil, err
	}
	if rg == nil {
		return leaf()
	}

	if t.cfg.MaxDepth > 0 && parent.Depth()+1 > t.cfg.MaxDepth {
		return nil, errors.Mark(
			errors.Newf("track: depth limit %d reached entering %s", t.cfg.MaxDepth, callee),
			ErrRecursionLimit)
	}

	child := parent.Child(callee)
	out, err := t.exec(rg, prependCtx(child, argVals))
	child.Seal()
	if err != nil {
		return nil, err
	}
	t.counters.nestedCalls.Inc()
	n, err := parent.RecordCall(origin, callee, argIDs, out, child, loc)
	return n, limitErr(err)
}

func prependCtx(ctx *trace.Context, args []any) []any {
	out := make([]any, 0, len(args)+1)
	out = append(out, ctx)
	return append(out, args...)
}
