package depgraph

import (
	"fmt"
	"strings"

	"github.com/phipsgabler/beyond-overdubbing/trace"
)

// Options tunes graph construction. Marker designates callees to surface
// distinctly (e.g. a probabilistic model's "sample" and "observe"); it is a
// consumer policy, not part of the trace itself.
type Options struct {
	Marker func(callee string) bool
}

// Vertex is one recorded operation in the flattened graph.
type Vertex struct {
	Path   string
	Node   *trace.Node
	Marked bool
}

// Edge states that the To vertex's recorded inputs reference the From
// vertex's result.
type Edge struct {
	From, To int
}

// Graph is the flattened, order-preserving dependency graph of one trace.
// Vertices appear in execution order (the same order Walk produces).
type Graph struct {
	Vertices []Vertex
	Edges    []Edge
}

type ctxNode struct {
	ctx *trace.Context
	id  trace.NodeID
}

// Build flattens a sealed context tree into a dependency graph. Edges come
// from each node's recorded input references within its owning context; a
// recursed call additionally depends on its child trace's return.
func Build(root *trace.Context, opts Options) *Graph {
	g := &Graph{}
	index := make(map[ctxNode]int)

	for _, e := range Collect(root) {
		v := Vertex{Path: e.Path, Node: e.Node}
		if opts.Marker != nil && e.Node.Kind() == trace.KindCall {
			v.Marked = opts.Marker(e.Node.Callee())
		}
		index[ctxNode{e.Ctx, e.Node.ID()}] = len(g.Vertices)
		g.Vertices = append(g.Vertices, v)
	}

	for _, e := range Collect(root) {
		to := index[ctxNode{e.Ctx, e.Node.ID()}]
		for _, ref := range e.Node.Args() {
			if from, ok := index[ctxNode{e.Ctx, ref}]; ok {
				g.Edges = append(g.Edges, Edge{From: from, To: to})
			}
		}
		if ref := e.Node.Ref(); ref != trace.NoNode {
			if from, ok := index[ctxNode{e.Ctx, ref}]; ok {
				g.Edges = append(g.Edges, Edge{From: from, To: to})
			}
		}
		if child := e.Node.Child(); child != nil && child.Len() > 0 {
			last := child.Node(trace.NodeID(child.Len() - 1))
			if last.Kind() == trace.KindReturn {
				if from, ok := index[ctxNode{child, last.ID()}]; ok {
					g.Edges = append(g.Edges, Edge{From: from, To: to})
				}
			}
		}
	}
	return g
}

// Inputs returns the vertex indices feeding vertex i, in edge order.
func (g *Graph) Inputs(i int) []int {
	var in []int
	for _, e := range g.Edges {
		if e.To == i {
			in = append(in, e.From)
		}
	}
	return in
}

// Format renders the graph as one line per vertex with its input paths.
func (g *Graph) Format() string {
	var sb strings.Builder
	for i, v := range g.Vertices {
		sb.WriteString(fmt.Sprintf("%-8s %s", v.Path, v.Node.Summary()))
		if in := g.Inputs(i); len(in) > 0 {
			parts := make([]string, len(in))
			for j, f := range in {
				parts[j] = g.Vertices[f].Path
			}
			sb.WriteString("  <- " + strings.Join(parts, ", "))
		}
		if v.Marked {
			sb.WriteString("  *")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
