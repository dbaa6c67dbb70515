package ch

import (
	"math/rand"
	"sort"

	"route_planner/pkg/graph"
)

// An OrderStrategy decides the contraction order. Order returns a
// permutation of the node indices: position i holds the i-th node to
// contract. Correctness of the hierarchy never depends on the choice of
// order, only the number of shortcuts does.
type OrderStrategy interface {
	Order(g *graph.Graph) []uint32
}

// RandomOrder contracts nodes in a seeded pseudo-random order. Cheap,
// reproducible for a fixed seed, and good enough for moderately sized
// graphs.
type RandomOrder struct {
	// Src supplies the generator so two builds with the same seed produce
	// structurally identical hierarchies. Nil falls back to seed 1.
	Src func() *rand.Rand
}

// NewRandomOrder returns a RandomOrder with a fixed seed.
func NewRandomOrder(seed int64) RandomOrder {
	return RandomOrder{Src: func() *rand.Rand { return rand.New(rand.NewSource(seed)) }}
}

// Order returns a uniformly random permutation of the node set.
func (o RandomOrder) Order(g *graph.Graph) []uint32 {
	n := int(g.NumNodes)
	if n == 0 {
		return nil
	}
	src := o.Src
	if src == nil {
		src = func() *rand.Rand { return rand.New(rand.NewSource(1)) }
	}
	perm := src().Perm(n)
	order := make([]uint32, n)
	for i, v := range perm {
		order[i] = uint32(v)
	}
	return order
}

// EdgeDifferenceOrder contracts nodes in ascending static edge-difference
// order: in·out − (in + out), the worst-case number of shortcuts minus the
// number of arcs removed. Ties break on node index, keeping the order
// deterministic.
type EdgeDifferenceOrder struct{}

// Order computes the edge difference per node on the input graph and sorts.
func (EdgeDifferenceOrder) Order(g *graph.Graph) []uint32 {
	n := g.NumNodes
	if n == 0 {
		return nil
	}

	outDeg := make([]int, n)
	inDeg := make([]int, n)
	for u := uint32(0); u < n; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			if v == u {
				continue // self-loops never force shortcuts
			}
			outDeg[u]++
			inDeg[v]++
		}
	}

	order := make([]uint32, n)
	for i := range order {
		order[i] = uint32(i)
	}
	diff := func(v uint32) int {
		return inDeg[v]*outDeg[v] - (inDeg[v] + outDeg[v])
	}
	sort.SliceStable(order, func(i, j int) bool {
		di, dj := diff(order[i]), diff(order[j])
		if di != dj {
			return di < dj
		}
		return order[i] < order[j]
	})
	return order
}
