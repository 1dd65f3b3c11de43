package track

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phipsgabler/beyond-overdubbing/ir"
)

// Shape is the argument-type signature of a call, e.g. "int,bool". Cache
// entries are keyed per (callee, shape), not per call site.
type Shape string

// ShapeOf derives the shape of a concrete argument tuple.
func ShapeOf(args []any) Shape {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%T", a)
	}
	return Shape(strings.Join(parts, ","))
}

type cacheKey struct {
	callee string
	shape  Shape
}

// rewriteCache memoizes rewritten graphs per (callee, shape). Entries are
// immutable once inserted: a rewritten graph is a pure function of the key
// and is shared read-only by every invocation that hits it. The LRU bound
// only caps memory; eviction never affects correctness.
type rewriteCache struct {
	entries *lru.Cache[cacheKey, *ir.Graph]
}

func newRewriteCache(capacity int) (*rewriteCache, error) {
	entries, err := lru.New[cacheKey, *ir.Graph](capacity)
	if err != nil {
		return nil, err
	}
	return &rewriteCache{entries: entries}, nil
}

func (c *rewriteCache) get(key cacheKey) (*ir.Graph, bool) {
	return c.entries.Get(key)
}

func (c *rewriteCache) add(key cacheKey, g *ir.Graph) {
	c.entries.Add(key, g)
}

func (c *rewriteCache) len() int { return c.entries.Len() }
