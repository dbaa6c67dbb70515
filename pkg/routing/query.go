package routing

import (
	"context"
	"errors"
	"math"

	"route_planner/pkg/ch"
)

// ErrVertexNotFound is returned when a query names a node outside the graph.
var ErrVertexNotFound = errors.New("vertex not in graph")

// QueryEngine answers shortest-path queries against a built hierarchy.
// It holds no mutable state: every query allocates its own priority queues
// and distance arrays, so a single QueryEngine may be shared by any number
// of goroutines.
type QueryEngine struct {
	h     *ch.Hierarchy
	stall bool
}

// A QueryOption configures a QueryEngine.
type QueryOption func(*QueryEngine)

// WithStallOnDemand enables stall-on-demand pruning: relaxations from a node
// already dominated via a settled higher-rank neighbor are skipped. Purely a
// performance optimization; results are identical either way.
func WithStallOnDemand(on bool) QueryOption {
	return func(qe *QueryEngine) { qe.stall = on }
}

// NewQueryEngine creates a query engine over h.
func NewQueryEngine(h *ch.Hierarchy, opts ...QueryOption) *QueryEngine {
	qe := &QueryEngine{h: h}
	for _, opt := range opts {
		opt(qe)
	}
	return qe
}

// Hierarchy returns the underlying hierarchy.
func (qe *QueryEngine) Hierarchy() *ch.Hierarchy { return qe.h }

// Distance returns the shortest-path distance from source to target, or
// +Inf when no path exists. Unknown nodes are an error; an unreachable
// target is not.
func (qe *QueryEngine) Distance(source, target uint32) (float64, error) {
	if !qe.h.Graph.HasNode(source) || !qe.h.Graph.HasNode(target) {
		return 0, ErrVertexNotFound
	}

	qs := NewQueryState(qe.h.NumNodes)
	qs.touchFwd(source, 0)
	qs.FwdPQ.Push(source, 0)
	qs.touchBwd(target, 0)
	qs.BwdPQ.Push(target, 0)

	mu, _ := qe.run(context.Background(), qs)
	return mu, nil
}

// ShortestPath returns the shortest path from source to target with its
// original-graph edge sequence, or (nil, nil) when no path exists.
func (qe *QueryEngine) ShortestPath(source, target uint32) (*Path, error) {
	if !qe.h.Graph.HasNode(source) || !qe.h.Graph.HasNode(target) {
		return nil, ErrVertexNotFound
	}

	qs := NewQueryState(qe.h.NumNodes)
	qs.touchFwd(source, 0)
	qs.FwdPQ.Push(source, 0)
	qs.touchBwd(target, 0)
	qs.BwdPQ.Push(target, 0)

	mu, meet := qe.run(context.Background(), qs)
	if meet == noNode || math.IsInf(mu, 1) {
		return nil, nil
	}

	return qe.reconstruct(qs, meet, mu)
}

// run drives the alternating bidirectional search until both frontiers'
// minimum keys exceed the best candidate. Returns the best distance and the
// meeting node (noNode when the searches never met).
func (qe *QueryEngine) run(ctx context.Context, qs *QueryState) (float64, uint32) {
	h := qe.h
	mu := math.Inf(1)
	meet := noNode

	iterations := 0

	for qs.FwdPQ.Len() > 0 || qs.BwdPQ.Len() > 0 {
		// Check context cancellation periodically.
		iterations++
		if iterations%100 == 0 {
			if ctx.Err() != nil {
				return mu, meet
			}
		}

		// Forward step.
		if qs.FwdPQ.Len() > 0 && qs.FwdPQ.PeekDist() < mu {
			item := qs.FwdPQ.Pop()
			u := item.Node
			d := item.Dist

			if d > qs.DistFwd[u] {
				goto backward // stale entry
			}

			if qe.stall && qe.stalledFwd(qs, u, d) {
				goto backward
			}

			// Meet condition.
			if !math.IsInf(qs.DistBwd[u], 1) {
				if candidate := d + qs.DistBwd[u]; candidate < mu {
					mu = candidate
					meet = u
				}
			}

			// Relax forward upward arcs.
			for e := h.FwdFirstOut[u]; e < h.FwdFirstOut[u+1]; e++ {
				v := h.FwdHead[e]
				newDist := d + h.FwdWeight[e]
				if newDist < qs.DistFwd[v] {
					qs.touchFwd(v, newDist)
					qs.FwdPQ.Push(v, newDist)
					qs.PredFwd[v] = u
					qs.EdgeFwd[v] = int32(e)
				}
			}
		}

	backward:
		// Backward step.
		if qs.BwdPQ.Len() > 0 && qs.BwdPQ.PeekDist() < mu {
			item := qs.BwdPQ.Pop()
			u := item.Node
			d := item.Dist

			if d > qs.DistBwd[u] {
				continue // stale entry
			}

			if qe.stall && qe.stalledBwd(qs, u, d) {
				continue
			}

			// Meet condition.
			if !math.IsInf(qs.DistFwd[u], 1) {
				if candidate := qs.DistFwd[u] + d; candidate < mu {
					mu = candidate
					meet = u
				}
			}

			// Relax backward upward arcs.
			for e := h.BwdFirstOut[u]; e < h.BwdFirstOut[u+1]; e++ {
				v := h.BwdHead[e]
				newDist := d + h.BwdWeight[e]
				if newDist < qs.DistBwd[v] {
					qs.touchBwd(v, newDist)
					qs.BwdPQ.Push(v, newDist)
					qs.PredBwd[v] = u
					qs.EdgeBwd[v] = int32(e)
				}
			}
		}

		// Termination check.
		if qs.FwdPQ.PeekDist() >= mu && qs.BwdPQ.PeekDist() >= mu {
			break
		}
	}

	return mu, meet
}

// stalledFwd reports whether the forward search can skip settling u: a
// settled higher-rank node v with a downward arc v→u that yields a shorter
// path to u proves every upward continuation from u dominated. Downward
// arcs into u are exactly the backward-overlay arcs u→v.
func (qe *QueryEngine) stalledFwd(qs *QueryState, u uint32, d float64) bool {
	h := qe.h
	for e := h.BwdFirstOut[u]; e < h.BwdFirstOut[u+1]; e++ {
		v := h.BwdHead[e]
		if qs.DistFwd[v]+h.BwdWeight[e] < d-h.Epsilon {
			return true
		}
	}
	return false
}

// stalledBwd mirrors stalledFwd for the backward search, using the forward
// overlay arcs u→v as the downward arcs of the transposed graph.
func (qe *QueryEngine) stalledBwd(qs *QueryState, u uint32, d float64) bool {
	h := qe.h
	for e := h.FwdFirstOut[u]; e < h.FwdFirstOut[u+1]; e++ {
		v := h.FwdHead[e]
		if qs.DistBwd[v]+h.FwdWeight[e] < d-h.Epsilon {
			return true
		}
	}
	return false
}
