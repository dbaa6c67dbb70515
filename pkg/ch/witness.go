package ch

import "math"

var inf = math.Inf(1)

// searchLimits bounds a witness search. Tighter limits only produce more
// shortcuts, never an incorrect hierarchy.
type searchLimits struct {
	maxSettled int // max nodes settled per search
	maxHops    int // max hops from the source
}

// witnessHeapItem is an entry in the witness search min-heap.
type witnessHeapItem struct {
	node uint32
	dist float64
	hops int
}

// witnessHeap is a concrete-typed binary min-heap for witness search.
type witnessHeap struct {
	items []witnessHeapItem
}

func (h *witnessHeap) Len() int { return len(h.items) }

func (h *witnessHeap) Push(node uint32, dist float64, hops int) {
	h.items = append(h.items, witnessHeapItem{node, dist, hops})
	h.siftUp(len(h.items) - 1)
}

func (h *witnessHeap) Pop() witnessHeapItem {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

// siftUp uses hole-sift: saves the floating item and does 1 assignment per
// level instead of 3 (swap).
func (h *witnessHeap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if item.dist >= h.items[parent].dist {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

// siftDown uses hole-sift: saves the floating item and does 1 assignment per
// level instead of 3 (swap).
func (h *witnessHeap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && h.items[right].dist < h.items[child].dist {
			child = right
		}
		if item.dist <= h.items[child].dist {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}

func (h *witnessHeap) Reset() {
	h.items = h.items[:0]
}

// witnessState holds reusable state for witness searches. Each concurrent
// contraction owns its own witnessState; nothing here is shared. The
// touched-list pattern avoids re-clearing the full distance array per call.
type witnessState struct {
	dist    []float64 // distance array indexed by node id, +Inf when unreached
	touched []uint32  // nodes touched since the last reset
	heap    witnessHeap
	limits  searchLimits
}

func newWitnessState(numNodes uint32, limits searchLimits) *witnessState {
	dist := make([]float64, numNodes)
	for i := range dist {
		dist[i] = inf
	}
	return &witnessState{
		dist:   dist,
		heap:   witnessHeap{items: make([]witnessHeapItem, 0, 256)},
		limits: limits,
	}
}

func (ws *witnessState) reset() {
	for _, n := range ws.touched {
		ws.dist[n] = inf
	}
	ws.touched = ws.touched[:0]
	ws.heap.Reset()
}

// runWitnessSearch runs a single cost- and hop-bounded Dijkstra from source
// over the remaining graph, excluding the node being contracted and never
// entering already-contracted nodes or other members of the current wave.
// Wave members count as contracted here: two wave members could otherwise
// witness each other's shortcuts away through equal-cost paths and leave a
// pair disconnected. Skipping them only suppresses witnesses, which can add
// shortcuts but never lose paths, and keeps every witness interior at a
// strictly higher rank than the contracted node. Distances of all reached
// nodes are left in ws.dist; the caller checks each outgoing target against
// its candidate shortcut cost (one search serves every target of the same
// incoming neighbor).
//
// The search only ever reads shared structures (adjacency, contracted,
// inWave), so neighborhood-disjoint contractions can run it concurrently.
func runWitnessSearch(ws *witnessState, outAdj [][]arc, source, excluded uint32, maxCost float64, contracted, inWave []bool) {
	ws.reset()

	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.heap.Push(source, 0, 0)

	settled := 0

	for ws.heap.Len() > 0 {
		cur := ws.heap.Pop()

		// Skip stale entries.
		if cur.dist > ws.dist[cur.node] {
			continue
		}

		settled++
		if settled >= ws.limits.maxSettled {
			break
		}

		if cur.dist > maxCost {
			continue
		}

		if cur.hops >= ws.limits.maxHops {
			continue
		}

		for _, e := range outAdj[cur.node] {
			if e.to == excluded || contracted[e.to] || inWave[e.to] {
				continue
			}

			newDist := cur.dist + e.weight
			if newDist > maxCost {
				continue
			}

			if newDist < ws.dist[e.to] {
				if math.IsInf(ws.dist[e.to], 1) {
					ws.touched = append(ws.touched, e.to)
				}
				ws.dist[e.to] = newDist
				ws.heap.Push(e.to, newDist, cur.hops+1)
			}
		}
	}
}
