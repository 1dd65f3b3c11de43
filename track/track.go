// Package track rewrites control-flow graphs so that executing them records
// every instruction, call and control-flow decision into a trace context,
// recursively through called graphs. The rewritten form of each callable is
// cached per argument shape and shared across invocations.
package track

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/phipsgabler/beyond-overdubbing/ir"
)

// GraphSource supplies the control-flow graph of a callable at a given
// argument shape, or reports that none is obtainable (an opaque callable,
// recorded as a leaf). This is the boundary to the graph producer; the
// engine never builds graphs from source itself.
type GraphSource interface {
	GraphFor(callee string, shape Shape) (*ir.Graph, bool)
}

// GraphSourceFunc adapts a function to GraphSource.
type GraphSourceFunc func(callee string, shape Shape) (*ir.Graph, bool)

func (f GraphSourceFunc) GraphFor(callee string, shape Shape) (*ir.Graph, bool) {
	return f(callee, shape)
}

// MapSource is a GraphSource backed by a fixed name-to-graph map, ignoring
// shapes. Convenient for tests and embedders with shape-insensitive
// callables.
type MapSource map[string]*ir.Graph

func (m MapSource) GraphFor(callee string, _ Shape) (*ir.Graph, bool) {
	g, ok := m[callee]
	return g, ok
}

// Primitive is an opaque host operation. Primitives are always leaves; any
// side effect happens exactly once, at the point of the real call.
type Primitive func(args ...any) (any, error)

// Tracker is the tracing engine: it resolves callables, rewrites and caches
// their graphs, executes the rewritten form and hands out the recorded
// trace.
type Tracker struct {
	cfg      Config
	source   GraphSource
	prims    map[string]Primitive
	policy   Policy
	cache    *rewriteCache
	log      *zap.SugaredLogger
	counters counters
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithLogger routes the tracker's debug logging to the given logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.log = l.Sugar() }
}

// WithPolicy replaces the recursion policy derived from Config.Leaves.
func WithPolicy(p Policy) Option {
	return func(t *Tracker) { t.policy = p }
}

// WithPrimitives registers a batch of opaque host operations.
func WithPrimitives(prims map[string]Primitive) Option {
	return func(t *Tracker) {
		for name, fn := range prims {
			t.prims[name] = fn
		}
	}
}

// New builds a Tracker. Start from DefaultConfig when in doubt; source may
// be nil for a purely primitive environment.
func New(cfg Config, source GraphSource, opts ...Option) (*Tracker, error) {
	if err := cfg.sanitize(); err != nil {
		return nil, err
	}
	if cfg.Debug {
		EnableDebugLogs(true)
	}
	t := &Tracker{
		cfg:    cfg,
		source: source,
		prims:  make(map[string]Primitive),
		policy: RecurseAll(),
	}
	if len(cfg.Leaves) > 0 {
		t.policy = LeafSet(cfg.Leaves...)
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = defaultLogger()
	}
	cache, err := newRewriteCache(cfg.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "track: cache")
	}
	t.cache = cache
	return t, nil
}

// RegisterPrimitive registers an opaque host operation under name.
func (t *Tracker) RegisterPrimitive(name string, fn Primitive) {
	t.prims[name] = fn
}

// Run executes callee uninstrumented and returns its result. This is the
// baseline the traced execution must be observationally equivalent to.
func (t *Tracker) Run(callee string, args ...any) (any, error) {
	return t.invoke(callee, args)
}

// invoke performs a plain, untraced call: a registered primitive, or a
// graph obtained from the source and evaluated directly.
func (t *Tracker) invoke(callee string, args []any) (any, error) {
	if fn, ok := t.prims[callee]; ok {
		return fn(args...)
	}
	if t.source != nil {
		if g, ok := t.source.GraphFor(callee, ShapeOf(args)); ok {
			return t.exec(g, args)
		}
	}
	return nil, errors.Newf("track: unknown callable %q", callee)
}
