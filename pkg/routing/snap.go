package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"route_planner/pkg/geo"
	"route_planner/pkg/graph"
)

const maxSnapDistMeters = 500.0

// Search box padding in degrees. 0.01° ≈ 1.1 km at the equator, well over
// the 500 m max snap distance.
const snapSearchPadDeg = 0.01

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult represents a point snapped to a road segment.
type SnapResult struct {
	EdgeIdx uint32  // index into original edge arrays
	NodeU   uint32  // source node of the edge
	NodeV   uint32  // target node of the edge
	Ratio   float64 // 0.0 = at NodeU, 1.0 = at NodeV
	Dist    float64 // distance in meters from query point to snapped point
}

// snapTarget is one indexed edge: its edge index and source node. The target
// node is recoverable from the edge index.
type snapTarget struct {
	edgeIdx uint32
	source  uint32
}

// Snapper provides nearest-road snapping over an R-tree of edge bounding
// boxes. Read-only after construction, safe for concurrent use.
type Snapper struct {
	tree rtree.RTreeG[snapTarget]
	g    *graph.Graph
}

// NewSnapper indexes every original edge by its lon/lat bounding box.
func NewSnapper(g *graph.Graph) *Snapper {
	s := &Snapper{g: g}
	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			uLat, uLon := g.NodeLat[u], g.NodeLon[u]
			vLat, vLon := g.NodeLat[v], g.NodeLon[v]

			min := [2]float64{math.Min(uLon, vLon), math.Min(uLat, vLat)}
			max := [2]float64{math.Max(uLon, vLon), math.Max(uLat, vLat)}
			s.tree.Insert(min, max, snapTarget{edgeIdx: e, source: u})
		}
	}
	return s
}

// Snap finds the nearest road segment to the given lat/lng.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	min := [2]float64{lng - snapSearchPadDeg, lat - snapSearchPadDeg}
	max := [2]float64{lng + snapSearchPadDeg, lat + snapSearchPadDeg}

	bestDist := math.Inf(1)
	var bestResult SnapResult

	s.tree.Search(min, max, func(_, _ [2]float64, t snapTarget) bool {
		u := t.source
		v := s.g.Head[t.edgeIdx]

		exactDist, ratio := geo.PointToSegmentDist(
			lat, lng,
			s.g.NodeLat[u], s.g.NodeLon[u],
			s.g.NodeLat[v], s.g.NodeLon[v],
		)

		if exactDist < bestDist {
			bestDist = exactDist
			bestResult = SnapResult{
				EdgeIdx: t.edgeIdx,
				NodeU:   u,
				NodeV:   v,
				Ratio:   ratio,
				Dist:    exactDist,
			}
		}
		return true
	})

	if bestDist > maxSnapDistMeters {
		return SnapResult{}, ErrPointTooFar
	}

	return bestResult, nil
}
