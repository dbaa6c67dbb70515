package ch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"route_planner/pkg/graph"
)

func TestBuildAdjacencyDedupAndSelfLoops(t *testing.T) {
	b := graph.NewBuilder(true)
	b.AddEdge(0, 1, 10)
	b.AddEdge(0, 1, 4) // parallel, cheaper
	b.AddEdge(1, 1, 1) // self-loop
	b.AddEdge(1, 2, 7)
	g := b.Build()

	outAdj, inAdj := buildAdjacency(g)

	require.Len(t, outAdj[0], 1, "parallel arcs must collapse")
	require.Equal(t, 4.0, outAdj[0][0].weight, "dedup keeps the minimum weight")
	require.Equal(t, int32(-1), outAdj[1][0].skip, "original arcs carry skip=-1")
	require.Len(t, outAdj[1], 1, "self-loop must be dropped")
	require.Len(t, inAdj[1], 1)
	require.Equal(t, uint32(0), inAdj[1][0].to)
}

func TestAddArcReplacesInPlace(t *testing.T) {
	adj := make([][]arc, 2)
	addArc(adj, 0, 1, 10, -1)
	addArc(adj, 0, 1, 12, 5) // worse, ignored
	require.Len(t, adj[0], 1)
	require.Equal(t, 10.0, adj[0][0].weight)
	require.Equal(t, int32(-1), adj[0][0].skip)

	addArc(adj, 0, 1, 6, 7) // better, replaces
	require.Len(t, adj[0], 1)
	require.Equal(t, 6.0, adj[0][0].weight)
	require.Equal(t, int32(7), adj[0][0].skip)
}

func contractTestState(n uint32) *witnessState {
	return newWitnessState(n, searchLimits{maxSettled: defaultMaxSettled, maxHops: defaultMaxHops})
}

func TestContractNeedsShortcut(t *testing.T) {
	// 0 -> 1 -> 2, no alternative: contracting 1 must add 0->2.
	b := graph.NewBuilder(true)
	b.AddEdge(0, 1, 3)
	b.AddEdge(1, 2, 4)
	g := b.Build()

	outAdj, inAdj := buildAdjacency(g)
	contracted := make([]bool, g.NumNodes)
	inWave := make([]bool, g.NumNodes)
	ws := contractTestState(g.NumNodes)

	shortcuts := contract(ws, outAdj, inAdj, 1, contracted, inWave, DefaultEpsilon)
	require.Len(t, shortcuts, 1)
	sc := shortcuts[0]
	require.Equal(t, uint32(0), sc.from)
	require.Equal(t, uint32(2), sc.to)
	require.Equal(t, 7.0, sc.weight)
	require.Equal(t, int32(1), sc.skip)
}

func TestContractWitnessSuppressesShortcut(t *testing.T) {
	// Direct arc 0->2 is as cheap as going through 1: no shortcut needed.
	b := graph.NewBuilder(true)
	b.AddEdge(0, 1, 3)
	b.AddEdge(1, 2, 4)
	b.AddEdge(0, 2, 7)
	g := b.Build()

	outAdj, inAdj := buildAdjacency(g)
	contracted := make([]bool, g.NumNodes)
	inWave := make([]bool, g.NumNodes)
	ws := contractTestState(g.NumNodes)

	shortcuts := contract(ws, outAdj, inAdj, 1, contracted, inWave, DefaultEpsilon)
	require.Empty(t, shortcuts, "equal-cost witness must suppress the shortcut")
}

func TestContractWaveMemberBlocksWitness(t *testing.T) {
	// The only equal-cost witness for 0->2 runs through node 3. When 3 is
	// being contracted concurrently, the witness must not count and the
	// shortcut must be kept.
	b := graph.NewBuilder(true)
	b.AddEdge(0, 1, 3)
	b.AddEdge(1, 2, 4)
	b.AddEdge(0, 3, 3)
	b.AddEdge(3, 2, 4)
	g := b.Build()

	outAdj, inAdj := buildAdjacency(g)
	contracted := make([]bool, g.NumNodes)
	inWave := make([]bool, g.NumNodes)
	inWave[3] = true
	ws := contractTestState(g.NumNodes)

	shortcuts := contract(ws, outAdj, inAdj, 1, contracted, inWave, DefaultEpsilon)
	require.Len(t, shortcuts, 1, "witness through a wave member must be ignored")
	require.Equal(t, uint32(0), shortcuts[0].from)
	require.Equal(t, uint32(2), shortcuts[0].to)
	require.Equal(t, 7.0, shortcuts[0].weight)
}

func TestContractIgnoresContractedNeighbors(t *testing.T) {
	b := graph.NewBuilder(true)
	b.AddEdge(0, 1, 3)
	b.AddEdge(1, 2, 4)
	b.AddEdge(3, 1, 5)
	g := b.Build()

	outAdj, inAdj := buildAdjacency(g)
	contracted := make([]bool, g.NumNodes)
	contracted[3] = true // already out of the remaining graph
	inWave := make([]bool, g.NumNodes)
	ws := contractTestState(g.NumNodes)

	shortcuts := contract(ws, outAdj, inAdj, 1, contracted, inWave, DefaultEpsilon)
	require.Len(t, shortcuts, 1, "only the remaining neighbor pair counts")
	require.Equal(t, uint32(0), shortcuts[0].from)
}

func TestContractDegreeOneNoShortcut(t *testing.T) {
	b := graph.NewBuilder(true)
	b.AddEdge(0, 1, 3)
	g := b.Build()

	outAdj, inAdj := buildAdjacency(g)
	contracted := make([]bool, g.NumNodes)
	inWave := make([]bool, g.NumNodes)
	ws := contractTestState(g.NumNodes)

	require.Empty(t, contract(ws, outAdj, inAdj, 1, contracted, inWave, DefaultEpsilon))
	require.Empty(t, contract(ws, outAdj, inAdj, 0, contracted, inWave, DefaultEpsilon))
}

func TestContractUndirectedPairNoLoopShortcut(t *testing.T) {
	// Undirected edge u-v: contracting v must not add u->u.
	b := graph.NewBuilder(false)
	b.AddEdge(0, 1, 3)
	b.AddEdge(1, 2, 4)
	g := b.Build()

	outAdj, inAdj := buildAdjacency(g)
	contracted := make([]bool, g.NumNodes)
	inWave := make([]bool, g.NumNodes)
	ws := contractTestState(g.NumNodes)

	shortcuts := contract(ws, outAdj, inAdj, 1, contracted, inWave, DefaultEpsilon)
	for _, sc := range shortcuts {
		require.NotEqual(t, sc.from, sc.to, "contraction produced a self-loop shortcut")
	}
	require.Len(t, shortcuts, 2, "expected 0->2 and 2->0")
}

func TestWitnessSearchRespectsExclusionAndBounds(t *testing.T) {
	// 0 -> 1 -> 3 (through excluded node) and 0 -> 2 -> 3 (witness).
	b := graph.NewBuilder(true)
	b.AddEdge(0, 1, 1)
	b.AddEdge(1, 3, 1)
	b.AddEdge(0, 2, 2)
	b.AddEdge(2, 3, 2)
	g := b.Build()

	outAdj, _ := buildAdjacency(g)
	contracted := make([]bool, g.NumNodes)
	inWave := make([]bool, g.NumNodes)
	ws := contractTestState(g.NumNodes)

	runWitnessSearch(ws, outAdj, 0, 1, 10, contracted, inWave)
	require.Equal(t, 4.0, ws.dist[3], "witness path must avoid the excluded node")
	require.True(t, ws.dist[1] > 4, "excluded node must stay unreached")
}
