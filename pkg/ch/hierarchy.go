// Package ch implements Contraction Hierarchies preprocessing: given a
// non-negatively weighted graph it computes a total vertex order and inserts
// shortcut edges so that shortest-path queries can run a restricted
// bidirectional search over upward edges only (see pkg/routing).
//
// The hierarchy is built once and is immutable afterwards; any structural
// change to the input graph invalidates it.
package ch

import "route_planner/pkg/graph"

// NoNode is the sentinel for "no node".
const NoNode = ^uint32(0)

// Hierarchy is the output of contraction: the input graph plus a rank per
// node and two upward CSR overlays. An edge u→v is "upward" iff
// Rank[u] < Rank[v]; the forward overlay stores upward arcs in their
// original direction, the backward overlay stores upward arcs of the
// transposed graph (arc u→v in Bwd represents the original arc v→u).
//
// Shortcut arcs carry the id of the node they skip in the Skip arrays;
// original arcs carry -1. Shortcuts may skip other shortcuts, forming a
// binary unpacking tree that pkg/routing walks iteratively.
type Hierarchy struct {
	NumNodes uint32
	Rank     []uint32 // Rank[node] = position in contraction order (a bijection)
	Epsilon  float64  // weight-comparison tolerance used at build and query time

	FwdFirstOut []uint32
	FwdHead     []uint32
	FwdWeight   []float64
	FwdSkip     []int32

	BwdFirstOut []uint32
	BwdHead     []uint32
	BwdWeight   []float64
	BwdSkip     []int32

	// The input graph, kept for path unpacking, snapping and geometry.
	// Read-only; never mutated by queries.
	Graph *graph.Graph
}

// FindArc looks up the overlay arc for the original direction a→b.
// The arc lives in the forward overlay when Rank[a] < Rank[b], otherwise in
// the backward overlay as b→a. Returns ok=false if no such arc exists.
func (h *Hierarchy) FindArc(a, b uint32) (weight float64, skip int32, ok bool) {
	for e := h.FwdFirstOut[a]; e < h.FwdFirstOut[a+1]; e++ {
		if h.FwdHead[e] == b {
			return h.FwdWeight[e], h.FwdSkip[e], true
		}
	}
	for e := h.BwdFirstOut[b]; e < h.BwdFirstOut[b+1]; e++ {
		if h.BwdHead[e] == a {
			return h.BwdWeight[e], h.BwdSkip[e], true
		}
	}
	return 0, -1, false
}

// ShortcutCount returns the number of shortcut arcs in both overlays.
func (h *Hierarchy) ShortcutCount() int {
	n := 0
	for _, s := range h.FwdSkip {
		if s >= 0 {
			n++
		}
	}
	for _, s := range h.BwdSkip {
		if s >= 0 {
			n++
		}
	}
	return n
}
