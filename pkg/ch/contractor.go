package ch

import "route_planner/pkg/graph"

// arc is an edge in the mutable adjacency lists used during contraction.
type arc struct {
	to     uint32
	weight float64
	skip   int32 // -1 for original edges, else the contracted node id
}

// shortcut is a shortcut edge produced by contracting a node.
type shortcut struct {
	from, to uint32
	weight   float64
	skip     int32
}

// buildAdjacency converts the CSR input into mutable forward and reverse
// adjacency lists. Parallel arcs collapse to their minimum weight and
// self-loops are dropped: neither can appear on a shortest path through a
// contracted node. The original edges stay untouched in g for unpacking.
func buildAdjacency(g *graph.Graph) (outAdj, inAdj [][]arc) {
	n := g.NumNodes
	outAdj = make([][]arc, n)
	inAdj = make([][]arc, n)

	for u := uint32(0); u < n; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			if v == u {
				continue
			}
			addArc(outAdj, u, v, g.Weight[e], -1)
			addArc(inAdj, v, u, g.Weight[e], -1)
		}
	}
	return outAdj, inAdj
}

// addArc inserts the arc from→to, keeping only the minimum-weight arc per
// ordered pair. A cheaper arc replaces the existing entry in place so the
// overlay stays free of redundant parallel arcs.
func addArc(adj [][]arc, from, to uint32, weight float64, skip int32) {
	for i := range adj[from] {
		if adj[from][i].to == to {
			if weight < adj[from][i].weight {
				adj[from][i].weight = weight
				adj[from][i].skip = skip
			}
			return
		}
	}
	adj[from] = append(adj[from], arc{to: to, weight: weight, skip: skip})
}

// contract computes the shortcuts required to preserve all shortest paths
// when node is removed from the remaining graph. For every pair (u, w) of
// remaining in/out neighbors the candidate cost is
// weight(u,node) + weight(node,w); a shortcut is needed only when no witness
// path u→w of cost ≤ candidate (within eps) avoids node.
//
// contract is read-only on the shared adjacency lists; the builder applies
// the returned shortcuts between waves. inWave marks the members of the
// current wave, which witness searches must avoid like contracted nodes.
func contract(ws *witnessState, outAdj, inAdj [][]arc, node uint32, contracted, inWave []bool, eps float64) []shortcut {
	var incoming []arc
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			incoming = append(incoming, e)
		}
	}

	var outgoing []arc
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			outgoing = append(outgoing, e)
		}
	}

	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil
	}

	var shortcuts []shortcut

	for _, in := range incoming {
		// Upper bound for this batch: the most expensive candidate among
		// all outgoing targets of this incoming neighbor.
		maxOut := -1.0
		for _, out := range outgoing {
			if out.to != in.to && out.weight > maxOut {
				maxOut = out.weight
			}
		}
		if maxOut < 0 {
			continue // every outgoing arc returns to in.to
		}

		maxCost := in.weight + maxOut

		// One bounded Dijkstra from in.to serves every outgoing target.
		runWitnessSearch(ws, outAdj, in.to, node, maxCost, contracted, inWave)

		for _, out := range outgoing {
			if out.to == in.to {
				continue
			}

			scWeight := in.weight + out.weight

			// A witness of cost ≤ candidate (within eps) proves the
			// shortcut redundant.
			if ws.dist[out.to] <= scWeight+eps {
				continue
			}

			shortcuts = append(shortcuts, shortcut{
				from:   in.to,
				to:     out.to,
				weight: scWeight,
				skip:   int32(node),
			})
		}
	}

	return shortcuts
}
