package routing

import (
	"fmt"

	"route_planner/pkg/ch"
)

// overlayArc is one arc of a reconstructed up-down path, in original
// direction. skip < 0 marks a plain (original-graph) arc.
type overlayArc struct {
	from, to uint32
	weight   float64
	skip     int32
}

// reconstruct walks the predecessor arcs on both sides of the meeting node
// and unpacks every shortcut into original-graph edges.
func (qe *QueryEngine) reconstruct(qs *QueryState, meet uint32, weight float64) (*Path, error) {
	h := qe.h

	// Forward side: meet ← ... ← seed, then reversed.
	var arcs []overlayArc
	node := meet
	for qs.EdgeFwd[node] != noEdge {
		e := uint32(qs.EdgeFwd[node])
		p := qs.PredFwd[node]
		arcs = append(arcs, overlayArc{from: p, to: node, weight: h.FwdWeight[e], skip: h.FwdSkip[e]})
		node = p
	}
	for i, j := 0, len(arcs)-1; i < j; i, j = i+1, j-1 {
		arcs[i], arcs[j] = arcs[j], arcs[i]
	}
	start := node

	// Backward side: a backward-overlay arc p→n stands for the original arc
	// n→p, so the walk from meet already emits arcs in path order.
	node = meet
	for qs.EdgeBwd[node] != noEdge {
		e := uint32(qs.EdgeBwd[node])
		p := qs.PredBwd[node]
		arcs = append(arcs, overlayArc{from: node, to: p, weight: h.BwdWeight[e], skip: h.BwdSkip[e]})
		node = p
	}

	return assemblePath(h, start, arcs, weight)
}

// assemblePath unpacks overlay arcs into original edges and builds the Path.
func assemblePath(h *ch.Hierarchy, start uint32, arcs []overlayArc, weight float64) (*Path, error) {
	edges := make([]PathEdge, 0, len(arcs))
	for _, a := range arcs {
		if err := unpackArc(h, a, &edges); err != nil {
			return nil, err
		}
	}

	vertices := make([]uint32, 0, len(edges)+1)
	vertices = append(vertices, start)
	for _, e := range edges {
		vertices = append(vertices, e.To)
	}

	return &Path{Vertices: vertices, Edges: edges, Weight: weight}, nil
}

// unpackArc expands a single overlay arc into original-graph edges using an
// explicit stack over the skip-node tree, so unpacking depth is bounded by
// the slice and not the goroutine stack.
func unpackArc(h *ch.Hierarchy, a overlayArc, out *[]PathEdge) error {
	stack := []overlayArc{a}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.skip < 0 {
			*out = append(*out, PathEdge{From: it.from, To: it.to, Weight: it.weight})
			continue
		}

		m := uint32(it.skip)
		w1, s1, ok1 := h.FindArc(it.from, m)
		w2, s2, ok2 := h.FindArc(m, it.to)
		if !ok1 || !ok2 {
			return fmt.Errorf("shortcut %d→%d via %d: constituent arc missing", it.from, it.to, m)
		}

		// Push the right half first so the left half unpacks first (LIFO).
		stack = append(stack, overlayArc{from: m, to: it.to, weight: w2, skip: s2})
		stack = append(stack, overlayArc{from: it.from, to: m, weight: w1, skip: s1})
	}

	return nil
}
