package routing

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"route_planner/pkg/ch"
	"route_planner/pkg/graph"
)

// buildHierarchy contracts a directed graph given as (from, to, weight)
// triples on dense ids.
func buildHierarchy(t *testing.T, edges [][3]float64) *ch.Hierarchy {
	t.Helper()
	b := graph.NewBuilder(true)
	for _, e := range edges {
		b.AddEdge(int64(e[0]), int64(e[1]), e[2])
	}
	h, err := ch.Build(b.Build(), ch.WithSeed(1))
	require.NoError(t, err)
	return h
}

// randomHierarchy builds a random graph with integer-valued weights plus its
// hierarchy. The ring base keeps every node reachable.
func randomHierarchy(t *testing.T, n int, seed int64) (*graph.Graph, *ch.Hierarchy) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	b := graph.NewBuilder(true)
	for i := 0; i < n; i++ {
		b.AddEdge(int64(i), int64((i+1)%n), float64(rng.Intn(100)+1))
	}
	for i := 0; i < n*3; i++ {
		b.AddEdge(int64(rng.Intn(n)), int64(rng.Intn(n)), float64(rng.Intn(100)+1))
	}
	g := b.Build()
	h, err := ch.Build(g, ch.WithSeed(seed))
	require.NoError(t, err)
	return g, h
}

// referenceDist computes all distances from source with textbook Dijkstra on
// the original graph.
func referenceDist(g *graph.Graph, source uint32) []float64 {
	dist := make([]float64, g.NumNodes)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[source] = 0

	type item struct {
		node uint32
		dist float64
	}
	pq := []item{{source, 0}}
	for len(pq) > 0 {
		minIdx := 0
		for i := 1; i < len(pq); i++ {
			if pq[i].dist < pq[minIdx].dist {
				minIdx = i
			}
		}
		cur := pq[minIdx]
		pq[minIdx] = pq[len(pq)-1]
		pq = pq[:len(pq)-1]
		if cur.dist > dist[cur.node] {
			continue
		}
		start, end := g.EdgesFrom(cur.node)
		for e := start; e < end; e++ {
			v := g.Head[e]
			if nd := cur.dist + g.Weight[e]; nd < dist[v] {
				dist[v] = nd
				pq = append(pq, item{v, nd})
			}
		}
	}
	return dist
}

// requireValidPath checks that a path is contiguous, made of original edges,
// and sums to its weight.
func requireValidPath(t *testing.T, g *graph.Graph, p *Path, source, target uint32) {
	t.Helper()
	require.NotNil(t, p)
	require.NotEmpty(t, p.Vertices)
	require.Equal(t, source, p.Vertices[0])
	require.Equal(t, target, p.Vertices[len(p.Vertices)-1])
	require.Len(t, p.Vertices, len(p.Edges)+1)

	sum := 0.0
	for i, e := range p.Edges {
		require.Equal(t, p.Vertices[i], e.From, "edge %d not contiguous", i)
		require.Equal(t, p.Vertices[i+1], e.To, "edge %d not contiguous", i)
		w, ok := g.MinWeight(e.From, e.To)
		require.True(t, ok, "edge %d (%d->%d) not in original graph", i, e.From, e.To)
		require.InDelta(t, w, e.Weight, 1e-9, "edge %d weight", i)
		sum += e.Weight
	}
	require.InDelta(t, p.Weight, sum, 1e-9, "edge weights must sum to the path weight")
}

func TestDistanceMatchesDijkstra(t *testing.T) {
	for _, stall := range []bool{false, true} {
		g, h := randomHierarchy(t, 40, 17)
		qe := NewQueryEngine(h, WithStallOnDemand(stall))

		for s := uint32(0); s < g.NumNodes; s++ {
			want := referenceDist(g, s)
			for d := uint32(0); d < g.NumNodes; d++ {
				got, err := qe.Distance(s, d)
				require.NoError(t, err)
				require.InDelta(t, want[d], got, 1e-9, "stall=%v s=%d d=%d", stall, s, d)
			}
		}
	}
}

func TestDistanceUnreachable(t *testing.T) {
	// 0 -> 1, 2 isolated on the arc level (only 2 -> 0).
	h := buildHierarchy(t, [][3]float64{
		{0, 1, 5},
		{2, 0, 1},
	})
	qe := NewQueryEngine(h)

	d, err := qe.Distance(1, 2)
	require.NoError(t, err)
	require.True(t, math.IsInf(d, 1), "unreachable target must give +Inf, got %g", d)

	p, err := qe.ShortestPath(1, 2)
	require.NoError(t, err)
	require.Nil(t, p, "unreachable target must give a nil path")
}

func TestDistanceUnknownVertex(t *testing.T) {
	h := buildHierarchy(t, [][3]float64{{0, 1, 1}})
	qe := NewQueryEngine(h)

	_, err := qe.Distance(0, 99)
	require.ErrorIs(t, err, ErrVertexNotFound)
	_, err = qe.ShortestPath(99, 0)
	require.ErrorIs(t, err, ErrVertexNotFound)
}

func TestShortestPathSameVertex(t *testing.T) {
	h := buildHierarchy(t, [][3]float64{{0, 1, 1}})
	qe := NewQueryEngine(h)

	d, err := qe.Distance(0, 0)
	require.NoError(t, err)
	require.Equal(t, 0.0, d)

	p, err := qe.ShortestPath(0, 0)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, []uint32{0}, p.Vertices)
	require.Empty(t, p.Edges)
	require.Equal(t, 0.0, p.Weight)
}

func TestShortestPathUnpacksShortcuts(t *testing.T) {
	// Long chain forces nested shortcuts; the unpacked path must walk every
	// original edge.
	var edges [][3]float64
	const n = 20
	for i := 0; i < n-1; i++ {
		edges = append(edges, [3]float64{float64(i), float64(i + 1), float64(i + 1)})
	}
	h := buildHierarchy(t, edges)
	qe := NewQueryEngine(h)

	p, err := qe.ShortestPath(0, n-1)
	require.NoError(t, err)
	requireValidPath(t, h.Graph, p, 0, n-1)
	require.Len(t, p.Vertices, n, "chain path must visit every node")

	want := float64(n * (n - 1) / 2)
	require.InDelta(t, want, p.Weight, 1e-9)
}

func TestShortestPathRandomGraphs(t *testing.T) {
	g, h := randomHierarchy(t, 30, 23)
	qe := NewQueryEngine(h, WithStallOnDemand(true))

	for s := uint32(0); s < g.NumNodes; s += 3 {
		want := referenceDist(g, s)
		for d := uint32(0); d < g.NumNodes; d += 2 {
			if s == d {
				continue
			}
			p, err := qe.ShortestPath(s, d)
			require.NoError(t, err)
			requireValidPath(t, g, p, s, d)
			require.InDelta(t, want[d], p.Weight, 1e-9, "s=%d d=%d", s, d)
		}
	}
}

func TestParallelEdgesUseCheapest(t *testing.T) {
	h := buildHierarchy(t, [][3]float64{
		{0, 1, 10},
		{0, 1, 4}, // cheaper parallel arc
		{1, 2, 1},
	})
	qe := NewQueryEngine(h)

	p, err := qe.ShortestPath(0, 2)
	require.NoError(t, err)
	requireValidPath(t, h.Graph, p, 0, 2)
	require.InDelta(t, 5.0, p.Weight, 1e-9)
}

func TestQueryEngineConcurrentUse(t *testing.T) {
	g, h := randomHierarchy(t, 25, 31)
	qe := NewQueryEngine(h)

	want := make([][]float64, g.NumNodes)
	for s := uint32(0); s < g.NumNodes; s++ {
		want[s] = referenceDist(g, s)
	}

	done := make(chan error, 8)
	for w := 0; w < 8; w++ {
		go func(off uint32) {
			for s := off; s < g.NumNodes; s += 8 {
				for d := uint32(0); d < g.NumNodes; d++ {
					got, err := qe.Distance(s, d)
					if err != nil {
						done <- err
						return
					}
					if math.Abs(got-want[s][d]) > 1e-9 && !(math.IsInf(got, 1) && math.IsInf(want[s][d], 1)) {
						done <- errMismatch
						return
					}
				}
			}
			done <- nil
		}(uint32(w))
	}
	for w := 0; w < 8; w++ {
		require.NoError(t, <-done)
	}
}

var errMismatch = errors.New("concurrent query mismatch")
