package routing

import (
	"math"
	"sync"
)

// PathEdge is one original-graph edge on a returned path.
type PathEdge struct {
	From   uint32
	To     uint32
	Weight float64
}

// Path is the result of a shortest-path query: the visited node sequence,
// the original-graph edges connecting them in order, and the total weight.
// A path from a node to itself has one vertex and no edges.
type Path struct {
	Vertices []uint32
	Edges    []PathEdge
	Weight   float64
}

// searchTree is the result of a full one-directional upward search: sparse
// distance and predecessor maps over the nodes the search reached.
type searchTree struct {
	root     uint32
	dist     map[uint32]float64
	predNode map[uint32]uint32
	predEdge map[uint32]uint32
}

// upwardSearch runs a complete Dijkstra over one upward overlay (forward
// when backward is false, the transposed overlay otherwise) with no cutoff,
// settling every upward-reachable node.
func (qe *QueryEngine) upwardSearch(root uint32, backward bool) *searchTree {
	h := qe.h
	firstOut, head, weight := h.FwdFirstOut, h.FwdHead, h.FwdWeight
	if backward {
		firstOut, head, weight = h.BwdFirstOut, h.BwdHead, h.BwdWeight
	}

	t := &searchTree{
		root:     root,
		dist:     map[uint32]float64{root: 0},
		predNode: make(map[uint32]uint32),
		predEdge: make(map[uint32]uint32),
	}

	var pq MinHeap
	pq.Push(root, 0)

	for pq.Len() > 0 {
		item := pq.Pop()
		u := item.Node
		if item.Dist > t.dist[u] {
			continue // stale entry
		}
		for e := firstOut[u]; e < firstOut[u+1]; e++ {
			v := head[e]
			newDist := item.Dist + weight[e]
			if d, seen := t.dist[v]; !seen || newDist < d {
				t.dist[v] = newDist
				t.predNode[v] = u
				t.predEdge[v] = e
				pq.Push(v, newDist)
			}
		}
	}

	return t
}

// arcsToRoot collects the overlay arcs from node back to the tree root, in
// path order and original direction.
func (t *searchTree) arcsToRoot(qe *QueryEngine, node uint32, backward bool) []overlayArc {
	h := qe.h
	var arcs []overlayArc
	for node != t.root {
		e := t.predEdge[node]
		p := t.predNode[node]
		if backward {
			// Backward arc p→node stands for the original arc node→p.
			arcs = append(arcs, overlayArc{from: node, to: p, weight: h.BwdWeight[e], skip: h.BwdSkip[e]})
		} else {
			arcs = append(arcs, overlayArc{from: p, to: node, weight: h.FwdWeight[e], skip: h.FwdSkip[e]})
		}
		node = p
	}
	if !backward {
		for i, j := 0, len(arcs)-1; i < j; i, j = i+1, j-1 {
			arcs[i], arcs[j] = arcs[j], arcs[i]
		}
	}
	return arcs
}

// ssEntry caches one resolved target of a SingleSourcePaths query.
type ssEntry struct {
	weight float64
	meet   uint32
	bwd    *searchTree
}

// SingleSourcePaths lazily answers shortest-path queries from a fixed
// source. The forward search runs once up front; each distinct target costs
// one backward search, cached afterwards. Safe for concurrent use.
type SingleSourcePaths struct {
	qe     *QueryEngine
	source uint32
	fwd    *searchTree

	mu    sync.Mutex
	cache map[uint32]ssEntry
}

// Paths runs the forward search from source and returns a lazy view over
// all targets.
func (qe *QueryEngine) Paths(source uint32) (*SingleSourcePaths, error) {
	if !qe.h.Graph.HasNode(source) {
		return nil, ErrVertexNotFound
	}
	return &SingleSourcePaths{
		qe:     qe,
		source: source,
		fwd:    qe.upwardSearch(source, false),
		cache:  make(map[uint32]ssEntry),
	}, nil
}

// Source returns the query source node.
func (p *SingleSourcePaths) Source() uint32 { return p.source }

func (p *SingleSourcePaths) resolve(target uint32) (ssEntry, error) {
	if !p.qe.h.Graph.HasNode(target) {
		return ssEntry{}, ErrVertexNotFound
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.cache[target]; ok {
		return e, nil
	}

	bwd := p.qe.upwardSearch(target, true)
	entry := ssEntry{weight: math.Inf(1), meet: noNode, bwd: bwd}
	for v, db := range bwd.dist {
		if df, ok := p.fwd.dist[v]; ok && df+db < entry.weight {
			entry.weight = df + db
			entry.meet = v
		}
	}

	p.cache[target] = entry
	return entry, nil
}

// Weight returns the shortest-path distance to target, +Inf if unreachable.
func (p *SingleSourcePaths) Weight(target uint32) (float64, error) {
	e, err := p.resolve(target)
	if err != nil {
		return 0, err
	}
	return e.weight, nil
}

// Path returns the shortest path to target, or (nil, nil) if unreachable.
func (p *SingleSourcePaths) Path(target uint32) (*Path, error) {
	e, err := p.resolve(target)
	if err != nil {
		return nil, err
	}
	if e.meet == noNode {
		return nil, nil
	}

	arcs := p.fwd.arcsToRoot(p.qe, e.meet, false)
	arcs = append(arcs, e.bwd.arcsToRoot(p.qe, e.meet, true)...)
	return assemblePath(p.qe.h, p.source, arcs, e.weight)
}
