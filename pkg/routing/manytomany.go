package routing

import "math"

// bucketEntry records, at some node, the backward distance from that node to
// one target. Buckets are filled once by the backward searches and then
// consulted by every forward search.
type bucketEntry struct {
	target int // index into the targets slice
	dist   float64
}

// ManyToManyPaths is the result table of a many-to-many query. Weights are
// materialized eagerly; paths are reconstructed on demand from the retained
// search trees. Read-only after construction, safe for concurrent use.
type ManyToManyPaths struct {
	qe      *QueryEngine
	sources []uint32
	targets []uint32
	sIdx    map[uint32]int
	tIdx    map[uint32]int

	weight [][]float64 // weight[si][ti], +Inf when unreachable
	meet   [][]uint32  // best meeting node per pair, noNode when unreachable
	fwd    []*searchTree
	bwd    []*searchTree
}

// ManyToMany computes shortest-path distances between every source and every
// target with |sources| + |targets| single-direction searches instead of a
// bidirectional search per pair: each target's backward search deposits its
// distances in per-node buckets, and each source's forward search combines
// with every bucket it encounters.
func (qe *QueryEngine) ManyToMany(sources, targets []uint32) (*ManyToManyPaths, error) {
	for _, s := range sources {
		if !qe.h.Graph.HasNode(s) {
			return nil, ErrVertexNotFound
		}
	}
	for _, t := range targets {
		if !qe.h.Graph.HasNode(t) {
			return nil, ErrVertexNotFound
		}
	}

	m := &ManyToManyPaths{
		qe:      qe,
		sources: sources,
		targets: targets,
		sIdx:    make(map[uint32]int, len(sources)),
		tIdx:    make(map[uint32]int, len(targets)),
		weight:  make([][]float64, len(sources)),
		meet:    make([][]uint32, len(sources)),
		fwd:     make([]*searchTree, len(sources)),
		bwd:     make([]*searchTree, len(targets)),
	}
	for si, s := range sources {
		m.sIdx[s] = si
		m.weight[si] = make([]float64, len(targets))
		m.meet[si] = make([]uint32, len(targets))
		for ti := range targets {
			m.weight[si][ti] = math.Inf(1)
			m.meet[si][ti] = noNode
		}
	}
	for ti, t := range targets {
		m.tIdx[t] = ti
	}

	// Backward phase: one full search per target, bucketing distances at
	// every node it settles.
	buckets := make(map[uint32][]bucketEntry)
	for ti, t := range targets {
		tree := qe.upwardSearch(t, true)
		m.bwd[ti] = tree
		for v, d := range tree.dist {
			buckets[v] = append(buckets[v], bucketEntry{target: ti, dist: d})
		}
	}

	// Forward phase: one full search per source; every reached node with
	// bucket entries is a candidate meeting node.
	for si, s := range sources {
		tree := qe.upwardSearch(s, false)
		m.fwd[si] = tree
		for v, df := range tree.dist {
			for _, b := range buckets[v] {
				if cand := df + b.dist; cand < m.weight[si][b.target] {
					m.weight[si][b.target] = cand
					m.meet[si][b.target] = v
				}
			}
		}
	}

	return m, nil
}

func (m *ManyToManyPaths) pair(source, target uint32) (int, int, error) {
	si, ok := m.sIdx[source]
	if !ok {
		return 0, 0, ErrVertexNotFound
	}
	ti, ok := m.tIdx[target]
	if !ok {
		return 0, 0, ErrVertexNotFound
	}
	return si, ti, nil
}

// GetWeight returns the shortest-path distance for a (source, target) pair
// of the query, +Inf when unreachable. Nodes outside the queried sets are
// an error.
func (m *ManyToManyPaths) GetWeight(source, target uint32) (float64, error) {
	si, ti, err := m.pair(source, target)
	if err != nil {
		return 0, err
	}
	return m.weight[si][ti], nil
}

// GetPath reconstructs the shortest path for a (source, target) pair, or
// returns (nil, nil) when unreachable.
func (m *ManyToManyPaths) GetPath(source, target uint32) (*Path, error) {
	si, ti, err := m.pair(source, target)
	if err != nil {
		return nil, err
	}

	meet := m.meet[si][ti]
	if meet == noNode {
		return nil, nil
	}

	arcs := m.fwd[si].arcsToRoot(m.qe, meet, false)
	arcs = append(arcs, m.bwd[ti].arcsToRoot(m.qe, meet, true)...)
	return assemblePath(m.qe.h, source, arcs, m.weight[si][ti])
}
