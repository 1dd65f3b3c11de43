package main

import (
	"github.com/cockroachdb/errors"

	"github.com/phipsgabler/beyond-overdubbing/ir"
	"github.com/phipsgabler/beyond-overdubbing/track"
)

// Built-in sample programs, expressed directly as control-flow graphs the
// way a front end would hand them to the tracker.

func programs() track.MapSource {
	return track.MapSource{
		"branchy":   branchyGraph(),
		"square":    squareGraph(),
		"poly":      polyGraph(),
		"countdown": countdownGraph(),
		"model":     modelGraph(),
	}
}

// defaultArgs supplies arguments for each program when none are given on
// the command line.
func defaultArgs() map[string][]any {
	return map[string][]any{
		"branchy":   {true},
		"square":    {7},
		"poly":      {5},
		"countdown": {3},
		"model":     {},
	}
}

// branchy(x) = x ? 1 : 0
func branchyGraph() *ir.Graph {
	b := ir.NewBuilder("branchy")
	x := b.Param("x")
	onTrue := b.NewBlock()
	onFalse := b.NewBlock()
	join := b.NewBlock()
	r := b.BlockParam(join, "r")
	b.CondBranch(x, onTrue, nil, onFalse, nil)
	b.SetBlock(onTrue)
	one := b.Const(1)
	b.Jump(join, one)
	b.SetBlock(onFalse)
	zero := b.Const(0)
	b.Jump(join, zero)
	b.SetBlock(join)
	b.Return(r)
	return b.MustGraph()
}

// square(x) = mul(x, x)
func squareGraph() *ir.Graph {
	b := ir.NewBuilder("square")
	x := b.Param("x")
	b.Return(b.Call("mul", x, x))
	return b.MustGraph()
}

// poly(x) = x^2 + 2x + 3, with square as a nested graph call
func polyGraph() *ir.Graph {
	b := ir.NewBuilder("poly")
	x := b.Param("x")
	sq := b.Call("square", x)
	lin := b.Call("mul", ir.ConstOf(2), x)
	sum := b.Call("add", sq, lin)
	b.Return(b.Call("add", sum, ir.ConstOf(3)))
	return b.MustGraph()
}

// countdown(n) = n <= 0 ? 0 : countdown(n-1)
func countdownGraph() *ir.Graph {
	b := ir.NewBuilder("countdown")
	n := b.Param("n")
	done := b.NewBlock()
	recur := b.NewBlock()
	stop := b.Call("lte", n, ir.ConstOf(0))
	b.CondBranch(stop, done, nil, recur, nil)
	b.SetBlock(done)
	b.Return(b.Const(0))
	b.SetBlock(recur)
	m := b.Call("sub", n, ir.ConstOf(1))
	b.Return(b.Call("countdown", m))
	return b.MustGraph()
}

// model() = observe(square-of-sample): a toy probabilistic program whose
// sample and observe calls get surfaced by the dependency-graph marker.
func modelGraph() *ir.Graph {
	b := ir.NewBuilder("model")
	p := b.Call("sample")
	y := b.Call("mul", p, p)
	b.Return(b.Call("observe", y))
	return b.MustGraph()
}

func primitives() map[string]track.Primitive {
	return map[string]track.Primitive{
		"add": arith("add"),
		"sub": arith("sub"),
		"mul": arith("mul"),
		"lte": compare("lte"),
		"lt":  compare("lt"),
		// Deterministic stand-ins so dumps are reproducible.
		"sample": func(args ...any) (any, error) {
			return 0.25, nil
		},
		"observe": func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, errors.New("observe takes one value")
			}
			return args[0], nil
		},
	}
}

// isModelMarker tags the callees a probabilistic-model consumer cares
// about.
func isModelMarker(callee string) bool {
	return callee == "sample" || callee == "observe"
}

func arith(op string) track.Primitive {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errors.Newf("%s takes two arguments", op)
		}
		if a, ok := args[0].(int); ok {
			if b, ok := args[1].(int); ok {
				switch op {
				case "add":
					return a + b, nil
				case "sub":
					return a - b, nil
				case "mul":
					return a * b, nil
				}
			}
		}
		a, aok := toFloat(args[0])
		b, bok := toFloat(args[1])
		if !aok || !bok {
			return nil, errors.Newf("%s: non-numeric arguments %T, %T", op, args[0], args[1])
		}
		switch op {
		case "add":
			return a + b, nil
		case "sub":
			return a - b, nil
		case "mul":
			return a * b, nil
		}
		return nil, errors.Newf("unknown arithmetic op %s", op)
	}
}

func compare(op string) track.Primitive {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errors.Newf("%s takes two arguments", op)
		}
		a, aok := toFloat(args[0])
		b, bok := toFloat(args[1])
		if !aok || !bok {
			return nil, errors.Newf("%s: non-numeric arguments %T, %T", op, args[0], args[1])
		}
		switch op {
		case "lte":
			return a <= b, nil
		case "lt":
			return a < b, nil
		}
		return nil, errors.Newf("unknown comparison op %s", op)
	}
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
