// Package osm parses OpenStreetMap PBF extracts into routable graphs for
// car traffic.
package osm

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"route_planner/pkg/geo"
	"route_planner/pkg/graph"
)

// RawEdge represents a directed edge parsed from OSM data. Interior shape
// nodes that serve no other way are collapsed into the edge geometry, so
// From/To are always junction nodes.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Weight     float64   // distance in meters
	ShapeLats  []float64 // intermediate shape node latitudes (excluding from/to)
	ShapeLons  []float64 // intermediate shape node longitudes (excluding from/to)
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !carHighways[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	// Explicit oneway tag overrides.
	oneway := tags.Find("oneway")
	switch oneway {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent, skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges fully inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, filter edges to this bounding box

	// KeepIntermediate disables chain collapsing: every way node becomes a
	// graph node instead of only junctions.
	KeepIntermediate bool
}

// Parse reads an OSM PBF file and returns directed edges for car routing.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	refCount := make(map[osm.NodeID]int)
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		obj := scanner.Object()
		w, ok := obj.(*osm.Way)
		if !ok {
			continue
		}

		if !isCarAccessible(w.Tags) {
			continue
		}

		if len(w.Nodes) < 2 {
			continue
		}

		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			refCount[wn.ID]++
		}

		ways = append(ways, wayInfo{
			NodeIDs:  nodeIDs,
			Forward:  fwd,
			Backward: bwd,
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d ways, %d referenced nodes", len(ways), len(refCount))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(refCount))
	nodeLon := make(map[osm.NodeID]float64, len(refCount))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		obj := scanner.Object()
		n, ok := obj.(*osm.Node)
		if !ok {
			continue
		}

		if _, needed := refCount[n.ID]; !needed {
			continue
		}

		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(nodeLat))

	// Build edges from ways, collapsing chains of interior nodes that no
	// other way touches into edge shape points.
	var edges []RawEdge
	var skippedEdges int
	var bboxFiltered int

	for _, w := range ways {
		segStart := 0
		for i := 1; i < len(w.NodeIDs); i++ {
			isJunction := opt.KeepIntermediate ||
				i == len(w.NodeIDs)-1 ||
				refCount[w.NodeIDs[i]] > 1
			if !isJunction {
				continue
			}

			chain := w.NodeIDs[segStart : i+1]
			segStart = i

			e, ok := buildChainEdge(chain, nodeLat, nodeLon)
			if !ok {
				skippedEdges++
				continue
			}
			if useBBox && !chainInBBox(opt.BBox, chain, nodeLat, nodeLon) {
				bboxFiltered++
				continue
			}

			if w.Forward {
				edges = append(edges, e)
			}
			if w.Backward {
				edges = append(edges, reverseEdge(e))
			}
		}
	}

	if skippedEdges > 0 {
		log.Printf("Warning: skipped %d edges due to missing node coordinates", skippedEdges)
	}
	if bboxFiltered > 0 {
		log.Printf("Filtered %d edges outside bounding box", bboxFiltered)
	}
	log.Printf("Built %d directed edges", len(edges))

	return &ParseResult{
		Edges:   edges,
		NodeLat: nodeLat,
		NodeLon: nodeLon,
	}, nil
}

// buildChainEdge turns a run of way nodes (junction to junction) into one
// edge, accumulating the haversine length and the interior shape points.
func buildChainEdge(chain []osm.NodeID, nodeLat, nodeLon map[osm.NodeID]float64) (RawEdge, bool) {
	var dist float64
	var shapeLats, shapeLons []float64

	for i, id := range chain {
		lat, ok := nodeLat[id]
		if !ok {
			return RawEdge{}, false
		}
		lon := nodeLon[id]

		if i > 0 {
			dist += geo.Haversine(nodeLat[chain[i-1]], nodeLon[chain[i-1]], lat, lon)
		}
		if i > 0 && i < len(chain)-1 {
			shapeLats = append(shapeLats, lat)
			shapeLons = append(shapeLons, lon)
		}
	}

	if dist == 0 {
		dist = 0.001 // avoid zero-weight edges
	}

	return RawEdge{
		FromNodeID: chain[0],
		ToNodeID:   chain[len(chain)-1],
		Weight:     dist,
		ShapeLats:  shapeLats,
		ShapeLons:  shapeLons,
	}, true
}

func chainInBBox(b BBox, chain []osm.NodeID, nodeLat, nodeLon map[osm.NodeID]float64) bool {
	for _, id := range chain {
		if !b.Contains(nodeLat[id], nodeLon[id]) {
			return false
		}
	}
	return true
}

func reverseEdge(e RawEdge) RawEdge {
	r := RawEdge{
		FromNodeID: e.ToNodeID,
		ToNodeID:   e.FromNodeID,
		Weight:     e.Weight,
	}
	for i := len(e.ShapeLats) - 1; i >= 0; i-- {
		r.ShapeLats = append(r.ShapeLats, e.ShapeLats[i])
		r.ShapeLons = append(r.ShapeLons, e.ShapeLons[i])
	}
	return r
}

// BuildGraph converts a parse result into a directed CSR graph.
func BuildGraph(res *ParseResult) *graph.Graph {
	b := graph.NewBuilder(true)

	seen := make(map[osm.NodeID]bool)
	addNode := func(id osm.NodeID) {
		if !seen[id] {
			seen[id] = true
			b.AddNode(int64(id), res.NodeLat[id], res.NodeLon[id])
		}
	}

	for _, e := range res.Edges {
		addNode(e.FromNodeID)
		addNode(e.ToNodeID)
		if len(e.ShapeLats) > 0 {
			b.AddEdgeShape(int64(e.FromNodeID), int64(e.ToNodeID), e.Weight, e.ShapeLats, e.ShapeLons)
		} else {
			b.AddEdge(int64(e.FromNodeID), int64(e.ToNodeID), e.Weight)
		}
	}

	return b.Build()
}
