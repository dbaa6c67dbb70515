// Package graph provides the weighted graph container consumed by the
// contraction hierarchy preprocessor and the query engines. Graphs are stored
// in CSR (Compressed Sparse Row) form and are immutable once built.
package graph

// Graph is a directed graph in CSR format with float64 edge weights.
//
// Undirected inputs are represented as two opposite directed arcs per edge
// (the Builder does this); Directed records what the caller declared so
// downstream consumers can tell the two cases apart.
type Graph struct {
	NumNodes uint32
	NumEdges uint32
	Directed bool

	FirstOut []uint32  // len: NumNodes + 1; FirstOut[i]..FirstOut[i+1] are edges from node i
	Head     []uint32  // len: NumEdges; target node for each edge
	Weight   []float64 // len: NumEdges

	// External node identifiers, indexed by dense node index.
	// May be nil for graphs built directly on dense indices.
	OrigID  []int64
	idIndex map[int64]uint32

	// Optional node coordinates (nil for abstract graphs).
	NodeLat []float64
	NodeLon []float64

	// Optional edge geometry: intermediate shape points for rendering.
	// GeoFirstOut[i]..GeoFirstOut[i+1] indexes into GeoShapeLat/Lon for edge i.
	GeoFirstOut []uint32
	GeoShapeLat []float64
	GeoShapeLon []float64
}

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// HasNode reports whether u is a valid dense node index.
func (g *Graph) HasNode(u uint32) bool {
	return u < g.NumNodes
}

// ReindexIDs rebuilds the external-id lookup from OrigID. Called after
// deserializing a graph.
func (g *Graph) ReindexIDs() {
	if g.OrigID == nil {
		g.idIndex = nil
		return
	}
	g.idIndex = make(map[int64]uint32, len(g.OrigID))
	for idx, id := range g.OrigID {
		g.idIndex[id] = uint32(idx)
	}
}

// NodeIndex returns the dense index for an external node id.
func (g *Graph) NodeIndex(id int64) (uint32, bool) {
	idx, ok := g.idIndex[id]
	return idx, ok
}

// MinWeight returns the minimum weight among parallel edges u→v, or
// (0, false) if no such edge exists.
func (g *Graph) MinWeight(u, v uint32) (float64, bool) {
	start, end := g.EdgesFrom(u)
	best := 0.0
	found := false
	for e := start; e < end; e++ {
		if g.Head[e] == v && (!found || g.Weight[e] < best) {
			best = g.Weight[e]
			found = true
		}
	}
	return best, found
}
