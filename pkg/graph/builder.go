package graph

import "sort"

// rawEdge is a pending edge held by the Builder before CSR assembly.
type rawEdge struct {
	from, to  int64
	weight    float64
	shapeLats []float64
	shapeLons []float64
}

// Builder accumulates nodes and edges keyed by external int64 ids and
// assembles a CSR Graph. For undirected builders every added edge produces
// two opposite directed arcs; the contracted overlay downstream is always
// directed, so this is resolved once here.
type Builder struct {
	directed bool
	ids      map[int64]uint32
	origID   []int64
	lats     []float64
	lons     []float64
	edges    []rawEdge
	hasCoord bool
}

// NewBuilder creates a Builder. directed controls whether AddEdge adds one
// arc or a pair of opposite arcs.
func NewBuilder(directed bool) *Builder {
	return &Builder{
		directed: directed,
		ids:      make(map[int64]uint32),
	}
}

// AddNode registers a node with coordinates. Calling it is optional: nodes
// referenced only by AddEdge are created with zero coordinates.
func (b *Builder) AddNode(id int64, lat, lon float64) uint32 {
	idx := b.node(id)
	b.lats[idx] = lat
	b.lons[idx] = lon
	b.hasCoord = true
	return idx
}

// AddEdge adds an edge between two external node ids. Parallel edges and
// self-loops are kept as given; consumers decide how to treat them.
func (b *Builder) AddEdge(from, to int64, weight float64) {
	b.node(from)
	b.node(to)
	b.edges = append(b.edges, rawEdge{from: from, to: to, weight: weight})
}

// AddEdgeShape adds an edge carrying intermediate geometry points
// (excluding the endpoints), ordered from→to.
func (b *Builder) AddEdgeShape(from, to int64, weight float64, shapeLats, shapeLons []float64) {
	b.node(from)
	b.node(to)
	b.edges = append(b.edges, rawEdge{from: from, to: to, weight: weight, shapeLats: shapeLats, shapeLons: shapeLons})
}

func (b *Builder) node(id int64) uint32 {
	if idx, ok := b.ids[id]; ok {
		return idx
	}
	idx := uint32(len(b.origID))
	b.ids[id] = idx
	b.origID = append(b.origID, id)
	b.lats = append(b.lats, 0)
	b.lons = append(b.lons, 0)
	return idx
}

// NumNodes returns the number of nodes registered so far.
func (b *Builder) NumNodes() int { return len(b.origID) }

// Build assembles the CSR graph. The Builder must not be reused afterwards.
func (b *Builder) Build() *Graph {
	numNodes := uint32(len(b.origID))

	type denseEdge struct {
		from, to  uint32
		weight    float64
		shapeLats []float64
		shapeLons []float64
		reversed  bool
	}

	dense := make([]denseEdge, 0, len(b.edges)*2)
	for _, e := range b.edges {
		u := b.ids[e.from]
		v := b.ids[e.to]
		dense = append(dense, denseEdge{from: u, to: v, weight: e.weight, shapeLats: e.shapeLats, shapeLons: e.shapeLons})
		if !b.directed && u != v {
			dense = append(dense, denseEdge{from: v, to: u, weight: e.weight, shapeLats: e.shapeLats, shapeLons: e.shapeLons, reversed: true})
		}
	}

	sort.SliceStable(dense, func(i, j int) bool {
		if dense[i].from != dense[j].from {
			return dense[i].from < dense[j].from
		}
		return dense[i].to < dense[j].to
	})

	numEdges := uint32(len(dense))
	firstOut := make([]uint32, numNodes+1)
	head := make([]uint32, numEdges)
	weight := make([]float64, numEdges)
	geoFirstOut := make([]uint32, numEdges+1)
	var geoShapeLat, geoShapeLon []float64

	for _, e := range dense {
		firstOut[e.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	for i, e := range dense {
		head[i] = e.to
		weight[i] = e.weight
		geoFirstOut[i] = uint32(len(geoShapeLat))
		if e.reversed {
			for k := len(e.shapeLats) - 1; k >= 0; k-- {
				geoShapeLat = append(geoShapeLat, e.shapeLats[k])
				geoShapeLon = append(geoShapeLon, e.shapeLons[k])
			}
		} else {
			geoShapeLat = append(geoShapeLat, e.shapeLats...)
			geoShapeLon = append(geoShapeLon, e.shapeLons...)
		}
	}
	geoFirstOut[numEdges] = uint32(len(geoShapeLat))

	g := &Graph{
		NumNodes: numNodes,
		NumEdges: numEdges,
		Directed: b.directed,
		FirstOut: firstOut,
		Head:     head,
		Weight:   weight,
		OrigID:   b.origID,
		idIndex:  b.ids,
	}
	if b.hasCoord {
		g.NodeLat = b.lats
		g.NodeLon = b.lons
	}
	if len(geoShapeLat) > 0 {
		g.GeoFirstOut = geoFirstOut
		g.GeoShapeLat = geoShapeLat
		g.GeoShapeLon = geoShapeLon
	}
	return g
}
