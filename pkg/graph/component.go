package graph

// UnionFind implements a disjoint-set structure with union by rank and
// path halving.
type UnionFind struct {
	parent []uint32
	rank   []byte // max rank ~30 for realistic graph sizes
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already merged.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the node indices of the largest weakly connected
// component (arc direction is ignored for the purpose of connectivity).
func LargestComponent(g *Graph) []uint32 {
	if g.NumNodes == 0 {
		return nil
	}

	uf := NewUnionFind(g.NumNodes)

	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			uf.Union(u, g.Head[e])
		}
	}

	bestRoot := uint32(0)
	bestSize := uint32(0)
	for i := uint32(0); i < g.NumNodes; i++ {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	nodes := make([]uint32, 0, bestSize)
	for i := uint32(0); i < g.NumNodes; i++ {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}

	return nodes
}

// FilterToComponent creates a new graph containing only the given nodes and
// the edges fully inside the set. Node indices are re-densified; external
// ids and geometry are carried over.
func FilterToComponent(g *Graph, nodes []uint32) *Graph {
	if len(nodes) == 0 {
		return &Graph{Directed: g.Directed}
	}

	oldToNew := make(map[uint32]uint32, len(nodes))
	for newIdx, oldIdx := range nodes {
		oldToNew[oldIdx] = uint32(newIdx)
	}

	numNodes := uint32(len(nodes))

	type edge struct {
		from, to  uint32
		weight    float64
		shapeLats []float64
		shapeLons []float64
	}
	var edges []edge

	for _, oldU := range nodes {
		start, end := g.EdgesFrom(oldU)
		for e := start; e < end; e++ {
			oldV := g.Head[e]
			newV, ok := oldToNew[oldV]
			if !ok {
				continue
			}
			var shapeLats, shapeLons []float64
			if g.GeoFirstOut != nil {
				geoStart := g.GeoFirstOut[e]
				geoEnd := g.GeoFirstOut[e+1]
				if geoEnd > geoStart {
					shapeLats = make([]float64, geoEnd-geoStart)
					copy(shapeLats, g.GeoShapeLat[geoStart:geoEnd])
					shapeLons = make([]float64, geoEnd-geoStart)
					copy(shapeLons, g.GeoShapeLon[geoStart:geoEnd])
				}
			}
			edges = append(edges, edge{
				from:      oldToNew[oldU],
				to:        newV,
				weight:    g.Weight[e],
				shapeLats: shapeLats,
				shapeLons: shapeLons,
			})
		}
	}

	numEdges := uint32(len(edges))

	firstOut := make([]uint32, numNodes+1)
	head := make([]uint32, numEdges)
	weight := make([]float64, numEdges)
	geoFirstOut := make([]uint32, numEdges+1)
	var geoShapeLat, geoShapeLon []float64

	for _, e := range edges {
		firstOut[e.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	pos := make([]uint32, numNodes)
	copy(pos, firstOut[:numNodes])
	for _, e := range edges {
		idx := pos[e.from]
		head[idx] = e.to
		weight[idx] = e.weight
		pos[e.from]++
	}

	// Geometry has to follow final CSR edge order; place it in a second pass.
	if g.GeoFirstOut != nil {
		placed := make([][]float64, numEdges*2)
		copy(pos, firstOut[:numNodes])
		for _, e := range edges {
			idx := pos[e.from]
			placed[idx*2] = e.shapeLats
			placed[idx*2+1] = e.shapeLons
			pos[e.from]++
		}
		for i := uint32(0); i < numEdges; i++ {
			geoFirstOut[i] = uint32(len(geoShapeLat))
			geoShapeLat = append(geoShapeLat, placed[i*2]...)
			geoShapeLon = append(geoShapeLon, placed[i*2+1]...)
		}
		geoFirstOut[numEdges] = uint32(len(geoShapeLat))
	}

	out := &Graph{
		NumNodes: numNodes,
		NumEdges: numEdges,
		Directed: g.Directed,
		FirstOut: firstOut,
		Head:     head,
		Weight:   weight,
	}
	if g.OrigID != nil {
		out.OrigID = make([]int64, numNodes)
		out.idIndex = make(map[int64]uint32, numNodes)
		for newIdx, oldIdx := range nodes {
			out.OrigID[newIdx] = g.OrigID[oldIdx]
			out.idIndex[g.OrigID[oldIdx]] = uint32(newIdx)
		}
	}
	if g.NodeLat != nil {
		out.NodeLat = make([]float64, numNodes)
		out.NodeLon = make([]float64, numNodes)
		for newIdx, oldIdx := range nodes {
			out.NodeLat[newIdx] = g.NodeLat[oldIdx]
			out.NodeLon[newIdx] = g.NodeLon[oldIdx]
		}
	}
	if g.GeoFirstOut != nil {
		out.GeoFirstOut = geoFirstOut
		out.GeoShapeLat = geoShapeLat
		out.GeoShapeLon = geoShapeLon
	}
	return out
}
