// Package api exposes the routing engine over HTTP with JSON bodies.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"

	"route_planner/pkg/routing"
)

const maxTablePoints = 100

// Tabler computes distance matrices between geographic points.
type Tabler interface {
	Table(ctx context.Context, sources, targets []routing.LatLng) ([][]float64, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router routing.Router
	tabler Tabler
	stats  StatsResponse
}

// NewHandlers creates handlers with the given router. tabler may be nil,
// disabling the table endpoint.
func NewHandlers(router routing.Router, tabler Tabler, stats StatsResponse) *Handlers {
	return &Handlers{
		router: router,
		tabler: tabler,
		stats:  stats,
	}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	// Enforce Content-Type.
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	// Parse request.
	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	// Validate coordinates.
	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}

	// Route.
	result, err := h.router.Route(r.Context(), routing.LatLng{Lat: req.Start.Lat, Lng: req.Start.Lng}, routing.LatLng{Lat: req.End.Lat, Lng: req.End.Lng})
	if err != nil {
		writeRoutingError(w, err)
		return
	}

	// Build response.
	resp := RouteResponse{
		TotalDistanceMeters: result.TotalDistanceMeters,
	}
	for _, seg := range result.Segments {
		geom := make([]LatLngJSON, len(seg.Geometry))
		for i, ll := range seg.Geometry {
			geom[i] = LatLngJSON{Lat: ll.Lat, Lng: ll.Lng}
		}
		resp.Segments = append(resp.Segments, SegmentJSON{
			DistanceMeters: seg.DistanceMeters,
			Geometry:       geom,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleTable handles POST /api/v1/table.
func (h *Handlers) HandleTable(w http.ResponseWriter, r *http.Request) {
	if h.tabler == nil {
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req TableRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	if len(req.Sources) == 0 || len(req.Sources) > maxTablePoints {
		writeError(w, http.StatusBadRequest, "invalid_request", "sources")
		return
	}
	if len(req.Targets) == 0 || len(req.Targets) > maxTablePoints {
		writeError(w, http.StatusBadRequest, "invalid_request", "targets")
		return
	}
	for _, p := range req.Sources {
		if err := validateCoord(p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", "sources")
			return
		}
	}
	for _, p := range req.Targets {
		if err := validateCoord(p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", "targets")
			return
		}
	}

	sources := make([]routing.LatLng, len(req.Sources))
	for i, p := range req.Sources {
		sources[i] = routing.LatLng{Lat: p.Lat, Lng: p.Lng}
	}
	targets := make([]routing.LatLng, len(req.Targets))
	for i, p := range req.Targets {
		targets[i] = routing.LatLng{Lat: p.Lat, Lng: p.Lng}
	}

	table, err := h.tabler.Table(r.Context(), sources, targets)
	if err != nil {
		writeRoutingError(w, err)
		return
	}

	resp := TableResponse{DistancesMeters: make([][]*float64, len(table))}
	for i, row := range table {
		resp.DistancesMeters[i] = make([]*float64, len(row))
		for j, d := range row {
			if !math.IsInf(d, 1) {
				v := d
				resp.DistancesMeters[i][j] = &v
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stats)
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeRoutingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrPointTooFar):
		writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "")
	case errors.Is(err, routing.ErrNoRoute):
		writeError(w, http.StatusNotFound, "no_route_found", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
