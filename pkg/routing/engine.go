package routing

import (
	"context"
	"errors"
	"math"

	"route_planner/pkg/ch"
	"route_planner/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two points.
var ErrNoRoute = errors.New("no route found")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Segment represents a road segment in the route result.
type Segment struct {
	DistanceMeters float64
	Geometry       []LatLng
}

// RouteResult is the output of a route query.
type RouteResult struct {
	TotalDistanceMeters float64
	Segments            []Segment
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, start, end LatLng) (*RouteResult, error)
}

// Engine implements Router over a built hierarchy, adding snapping and
// geometry assembly around the node-level query engine.
type Engine struct {
	qe      *QueryEngine
	g       *graph.Graph // for geometry and snap
	snapper *Snapper
}

// NewEngine creates a routing engine from a hierarchy.
func NewEngine(h *ch.Hierarchy, opts ...QueryOption) *Engine {
	return &Engine{
		qe:      NewQueryEngine(h, opts...),
		g:       h.Graph,
		snapper: NewSnapper(h.Graph),
	}
}

// Query returns the underlying node-level query engine.
func (e *Engine) Query() *QueryEngine { return e.qe }

// Route computes the shortest route between two geographic points.
func (e *Engine) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	startSnap, err := e.snapper.Snap(start.Lat, start.Lng)
	if err != nil {
		return nil, err
	}
	endSnap, err := e.snapper.Snap(end.Lat, end.Lng)
	if err != nil {
		return nil, err
	}

	// Both points on the same edge with the end downstream of the start: the
	// along-edge hop never passes a node, so the node search cannot find it.
	// It competes with any route via the endpoints and, on a one-way edge in
	// a sparse graph, may be the only route at all.
	direct := math.Inf(1)
	if startSnap.EdgeIdx == endSnap.EdgeIdx && startSnap.Ratio <= endSnap.Ratio {
		direct = e.g.Weight[startSnap.EdgeIdx] * (endSnap.Ratio - startSnap.Ratio)
	}

	qs := NewQueryState(e.qe.h.NumNodes)

	// Seed both endpoints of each snapped edge with the split weights, so
	// the search may leave the edge in either direction.
	seedForward(qs, e.g, startSnap)
	seedBackward(qs, e.g, endSnap)

	mu, meet := e.qe.run(ctx, qs)
	if !math.IsInf(direct, 1) && direct <= mu {
		geometry := []LatLng{pointAlongEdge(e.g, startSnap), pointAlongEdge(e.g, endSnap)}
		return &RouteResult{
			TotalDistanceMeters: direct,
			Segments: []Segment{
				{DistanceMeters: direct, Geometry: geometry},
			},
		}, nil
	}
	if meet == noNode || math.IsInf(mu, 1) {
		return nil, ErrNoRoute
	}

	path, err := e.qe.reconstruct(qs, meet, mu)
	if err != nil {
		return nil, err
	}

	geometry := e.buildGeometry(path)
	return &RouteResult{
		TotalDistanceMeters: mu,
		Segments: []Segment{
			{DistanceMeters: mu, Geometry: geometry},
		},
	}, nil
}

// Table computes a distance matrix in meters between geographic points,
// snapping each point to its nearest road node. Unreachable pairs are +Inf.
func (e *Engine) Table(ctx context.Context, sources, targets []LatLng) ([][]float64, error) {
	srcNodes, err := e.snapNodes(sources)
	if err != nil {
		return nil, err
	}
	tgtNodes, err := e.snapNodes(targets)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m, err := e.qe.ManyToMany(srcNodes, tgtNodes)
	if err != nil {
		return nil, err
	}

	table := make([][]float64, len(srcNodes))
	for i, s := range srcNodes {
		table[i] = make([]float64, len(tgtNodes))
		for j, t := range tgtNodes {
			w, err := m.GetWeight(s, t)
			if err != nil {
				return nil, err
			}
			table[i][j] = w
		}
	}
	return table, nil
}

// snapNodes snaps each point to the nearer endpoint of its nearest edge.
func (e *Engine) snapNodes(points []LatLng) ([]uint32, error) {
	nodes := make([]uint32, len(points))
	for i, p := range points {
		snap, err := e.snapper.Snap(p.Lat, p.Lng)
		if err != nil {
			return nil, err
		}
		if snap.Ratio <= 0.5 {
			nodes[i] = snap.NodeU
		} else {
			nodes[i] = snap.NodeV
		}
	}
	return nodes, nil
}

// buildGeometry converts a path's node sequence into lat/lng coordinates,
// including intermediate shape points from edge geometry.
func (e *Engine) buildGeometry(path *Path) []LatLng {
	if len(path.Vertices) == 0 {
		return nil
	}

	g := e.g
	geom := make([]LatLng, 0, len(path.Vertices))
	geom = append(geom, LatLng{Lat: g.NodeLat[path.Vertices[0]], Lng: g.NodeLon[path.Vertices[0]]})

	for _, pe := range path.Edges {
		if g.GeoFirstOut != nil {
			if edgeIdx := findEdge(g, pe.From, pe.To); edgeIdx != noNode {
				for k := g.GeoFirstOut[edgeIdx]; k < g.GeoFirstOut[edgeIdx+1]; k++ {
					geom = append(geom, LatLng{Lat: g.GeoShapeLat[k], Lng: g.GeoShapeLon[k]})
				}
			}
		}
		geom = append(geom, LatLng{Lat: g.NodeLat[pe.To], Lng: g.NodeLon[pe.To]})
	}

	return geom
}

// pointAlongEdge interpolates the snapped point's coordinates on the straight
// segment between the edge endpoints, matching how the snapper projects.
func pointAlongEdge(g *graph.Graph, snap SnapResult) LatLng {
	uLat, uLon := g.NodeLat[snap.NodeU], g.NodeLon[snap.NodeU]
	vLat, vLon := g.NodeLat[snap.NodeV], g.NodeLon[snap.NodeV]
	return LatLng{
		Lat: uLat + snap.Ratio*(vLat-uLat),
		Lng: uLon + snap.Ratio*(vLon-uLon),
	}
}

// findEdge locates the original edge u→v, noNode if absent. Parallel edges
// resolve to the cheapest one, matching the weight the search used.
func findEdge(g *graph.Graph, u, v uint32) uint32 {
	best := noNode
	bestWeight := math.Inf(1)
	start, end := g.EdgesFrom(u)
	for e := start; e < end; e++ {
		if g.Head[e] == v && g.Weight[e] < bestWeight {
			best = e
			bestWeight = g.Weight[e]
		}
	}
	return best
}

// seedForward seeds the forward PQ with the start snap point's reachable nodes.
func seedForward(qs *QueryState, g *graph.Graph, snap SnapResult) {
	weight := g.Weight[snap.EdgeIdx]

	// Distance from snap point to v (forward along edge u→v).
	qs.touchFwd(snap.NodeV, weight*(1-snap.Ratio))
	qs.FwdPQ.Push(snap.NodeV, weight*(1-snap.Ratio))

	// Distance from snap point to u (backward along edge u→v).
	du := weight * snap.Ratio
	if d := qs.DistFwd[snap.NodeU]; du < d {
		qs.touchFwd(snap.NodeU, du)
		qs.FwdPQ.Push(snap.NodeU, du)
	}
}

// seedBackward seeds the backward PQ with the end snap point's reachable nodes.
func seedBackward(qs *QueryState, g *graph.Graph, snap SnapResult) {
	weight := g.Weight[snap.EdgeIdx]

	// Distance from u to snap point.
	qs.touchBwd(snap.NodeU, weight*snap.Ratio)
	qs.BwdPQ.Push(snap.NodeU, weight*snap.Ratio)

	// Distance from v to snap point.
	dv := weight * (1 - snap.Ratio)
	if d := qs.DistBwd[snap.NodeV]; dv < d {
		qs.touchBwd(snap.NodeV, dv)
		qs.BwdPQ.Push(snap.NodeV, dv)
	}
}
