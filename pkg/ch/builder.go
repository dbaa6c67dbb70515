package ch

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"route_planner/pkg/graph"
)

// ErrNegativeWeight is returned by Build when the input graph contains a
// negative (or NaN) edge weight. Contraction assumes non-negative weights;
// no partial hierarchy is produced.
var ErrNegativeWeight = errors.New("negative edge weight")

// ErrBadOrder is returned when an OrderStrategy does not produce a
// permutation of the node set.
var ErrBadOrder = errors.New("contraction order is not a permutation")

// DefaultEpsilon is the default weight-comparison tolerance. An epsilon set
// too tight can surface as spurious negative-cycle failures in consumers
// that reweight edges using hierarchy distances; set it relative to the
// magnitude of your edge weights.
const DefaultEpsilon = 1e-9

const (
	defaultMaxSettled = 500
	defaultMaxHops    = 5
)

type buildConfig struct {
	order   OrderStrategy
	workers int
	epsilon float64
	limits  searchLimits
}

// An Option configures Build.
type Option func(*buildConfig)

// WithOrder sets the contraction order strategy.
func WithOrder(o OrderStrategy) Option {
	return func(c *buildConfig) { c.order = o }
}

// WithSeed uses a random contraction order with the given seed. Two builds
// with the same seed and graph produce identical hierarchies.
func WithSeed(seed int64) Option {
	return func(c *buildConfig) { c.order = NewRandomOrder(seed) }
}

// WithRandomSource uses a random contraction order drawing from the supplied
// generator factory.
func WithRandomSource(src func() *rand.Rand) Option {
	return func(c *buildConfig) { c.order = RandomOrder{Src: src} }
}

// WithWorkers bounds the contraction worker pool. Values < 1 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *buildConfig) { c.workers = n }
}

// WithEpsilon sets the weight-comparison tolerance used during witness
// checks and carried into the hierarchy for query-time comparisons.
func WithEpsilon(eps float64) Option {
	return func(c *buildConfig) { c.epsilon = eps }
}

// WithSearchLimits bounds witness searches. Tighter limits speed up
// preprocessing and only ever add shortcuts, never break correctness.
func WithSearchLimits(maxSettled, maxHops int) Option {
	return func(c *buildConfig) { c.limits = searchLimits{maxSettled: maxSettled, maxHops: maxHops} }
}

// Build runs Contraction Hierarchies preprocessing on g.
//
// Nodes are contracted in strict rank order. Consecutive nodes in the order
// whose closed neighborhoods are disjoint form a wave and are contracted
// concurrently: workers only read the shared remaining graph and return
// their shortcut lists, which the builder applies serially between waves, so
// no locking is needed. Witness searches treat every wave member as already
// contracted; otherwise two wave members could suppress each other's
// shortcuts through equal-cost paths via one another and break distance
// preservation.
func Build(g *graph.Graph, opts ...Option) (*Hierarchy, error) {
	cfg := buildConfig{
		order:   NewRandomOrder(1),
		workers: runtime.GOMAXPROCS(0),
		epsilon: DefaultEpsilon,
		limits:  searchLimits{maxSettled: defaultMaxSettled, maxHops: defaultMaxHops},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}

	// Non-negativity is a precondition of the whole scheme; check before
	// any contraction work.
	for e, w := range g.Weight {
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("edge %d (%d→%d) has weight %g: %w",
				e, csrTail(g, uint32(e)), g.Head[e], w, ErrNegativeWeight)
		}
	}

	n := g.NumNodes
	if n == 0 {
		return emptyHierarchy(g, cfg.epsilon), nil
	}

	order := cfg.order.Order(g)
	rank, err := rankFromOrder(order, n)
	if err != nil {
		return nil, err
	}

	outAdj, inAdj := buildAdjacency(g)
	contracted := make([]bool, n)
	inWave := make([]bool, n)

	// Per-worker witness state; handed out through a channel so concurrent
	// contractions never share a distance array.
	statePool := make(chan *witnessState, cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		statePool <- newWitnessState(n, cfg.limits)
	}

	log.Printf("Starting contraction of %d nodes (%d workers)...", n, cfg.workers)

	var totalShortcuts int
	var waves int
	processed := uint32(0)
	nextLog := logInterval(n)

	wave := make([]uint32, 0, cfg.workers*4)
	claimed := make([]bool, n)
	var claimedList []uint32
	results := make([][]shortcut, 0, cfg.workers*4)

	for processed < n {
		// Scheduling pass: take the longest prefix of the remaining order
		// whose members have pairwise disjoint closed neighborhoods. The
		// wave ends at the first conflicting node so rank order is kept.
		wave = wave[:0]
		claimedList = claimedList[:0]
		for j := processed; j < n; j++ {
			v := order[j]
			if conflicts(v, claimed, outAdj, inAdj, contracted) {
				break
			}
			claimedList = claim(v, claimed, outAdj, inAdj, contracted, claimedList)
			wave = append(wave, v)
			inWave[v] = true
		}

		results = results[:0]
		for range wave {
			results = append(results, nil)
		}

		if len(wave) == 1 {
			ws := <-statePool
			results[0] = contract(ws, outAdj, inAdj, wave[0], contracted, inWave, cfg.epsilon)
			statePool <- ws
		} else {
			var eg errgroup.Group
			eg.SetLimit(cfg.workers)
			for k, v := range wave {
				k, v := k, v
				eg.Go(func() error {
					ws := <-statePool
					results[k] = contract(ws, outAdj, inAdj, v, contracted, inWave, cfg.epsilon)
					statePool <- ws
					return nil
				})
			}
			eg.Wait()
		}

		// Apply wave results serially: mark contracted, insert shortcuts.
		for k, v := range wave {
			contracted[v] = true
			inWave[v] = false
			for _, sc := range results[k] {
				addArc(outAdj, sc.from, sc.to, sc.weight, sc.skip)
				addArc(inAdj, sc.to, sc.from, sc.weight, sc.skip)
				totalShortcuts++
			}
		}

		for _, c := range claimedList {
			claimed[c] = false
		}

		processed += uint32(len(wave))
		waves++

		if processed >= nextLog {
			log.Printf("Contracted %d/%d nodes, %d shortcuts, %d waves", processed, n, totalShortcuts, waves)
			nextLog = processed + logInterval(n-processed)
		}
	}

	log.Printf("Contraction complete: %d shortcuts (%.2fx original edges), %d waves",
		totalShortcuts, float64(totalShortcuts)/float64(max(g.NumEdges, 1)), waves)

	return buildOverlay(g, outAdj, inAdj, rank, cfg.epsilon), nil
}

// csrTail finds the tail node of edge e by scanning FirstOut. Only used on
// the error path.
func csrTail(g *graph.Graph, e uint32) uint32 {
	for u := uint32(0); u < g.NumNodes; u++ {
		if g.FirstOut[u] <= e && e < g.FirstOut[u+1] {
			return u
		}
	}
	return NoNode
}

// rankFromOrder inverts the contraction order and validates that it is a
// permutation of 0..n-1.
func rankFromOrder(order []uint32, n uint32) ([]uint32, error) {
	if uint32(len(order)) != n {
		return nil, fmt.Errorf("order has %d entries for %d nodes: %w", len(order), n, ErrBadOrder)
	}
	rank := make([]uint32, n)
	seen := make([]bool, n)
	for i, v := range order {
		if v >= n || seen[v] {
			return nil, fmt.Errorf("node %d at position %d: %w", v, i, ErrBadOrder)
		}
		seen[v] = true
		rank[v] = uint32(i)
	}
	return rank, nil
}

// conflicts reports whether v or any of its remaining neighbors is already
// claimed by the current wave.
func conflicts(v uint32, claimed []bool, outAdj, inAdj [][]arc, contracted []bool) bool {
	if claimed[v] {
		return true
	}
	for _, e := range outAdj[v] {
		if !contracted[e.to] && claimed[e.to] {
			return true
		}
	}
	for _, e := range inAdj[v] {
		if !contracted[e.to] && claimed[e.to] {
			return true
		}
	}
	return false
}

// claim marks v and its remaining neighbors as owned by the current wave.
func claim(v uint32, claimed []bool, outAdj, inAdj [][]arc, contracted []bool, list []uint32) []uint32 {
	mark := func(x uint32) []uint32 {
		if !claimed[x] {
			claimed[x] = true
			list = append(list, x)
		}
		return list
	}
	list = mark(v)
	for _, e := range outAdj[v] {
		if !contracted[e.to] {
			list = mark(e.to)
		}
	}
	for _, e := range inAdj[v] {
		if !contracted[e.to] {
			list = mark(e.to)
		}
	}
	return list
}

// logInterval picks a progress log step proportional to the remaining work.
func logInterval(remaining uint32) uint32 {
	switch {
	case remaining < 1_000:
		return 100
	case remaining < 10_000:
		return 1_000
	case remaining < 100_000:
		return 10_000
	default:
		return 50_000
	}
}

func emptyHierarchy(g *graph.Graph, eps float64) *Hierarchy {
	return &Hierarchy{
		Epsilon:     eps,
		Graph:       g,
		FwdFirstOut: []uint32{0},
		BwdFirstOut: []uint32{0},
	}
}

// buildOverlay splits the contracted adjacency lists into forward and
// backward upward CSR graphs. An arc u→v is upward iff rank[u] < rank[v];
// downward arcs appear transposed in the backward overlay so the backward
// search can follow them from the target.
func buildOverlay(orig *graph.Graph, outAdj, inAdj [][]arc, rank []uint32, eps float64) *Hierarchy {
	n := orig.NumNodes

	type csrEdge struct {
		from, to uint32
		weight   float64
		skip     int32
	}

	var fwdEdges, bwdEdges []csrEdge

	for u := uint32(0); u < n; u++ {
		for _, e := range outAdj[u] {
			if rank[u] < rank[e.to] {
				fwdEdges = append(fwdEdges, csrEdge{from: u, to: e.to, weight: e.weight, skip: e.skip})
			}
		}
		// inAdj[u] holds arcs v→u; when rank[u] < rank[v] the arc is upward
		// in the transposed graph and is stored as u→v.
		for _, e := range inAdj[u] {
			if rank[u] < rank[e.to] {
				bwdEdges = append(bwdEdges, csrEdge{from: u, to: e.to, weight: e.weight, skip: e.skip})
			}
		}
	}

	log.Printf("Overlay: %d forward upward arcs, %d backward upward arcs", len(fwdEdges), len(bwdEdges))

	buildCSR := func(edges []csrEdge) (firstOut, head []uint32, weight []float64, skip []int32) {
		numEdges := uint32(len(edges))
		firstOut = make([]uint32, n+1)
		head = make([]uint32, numEdges)
		weight = make([]float64, numEdges)
		skip = make([]int32, numEdges)

		for _, e := range edges {
			firstOut[e.from+1]++
		}
		for i := uint32(1); i <= n; i++ {
			firstOut[i] += firstOut[i-1]
		}

		pos := make([]uint32, n)
		copy(pos, firstOut[:n])
		for _, e := range edges {
			idx := pos[e.from]
			head[idx] = e.to
			weight[idx] = e.weight
			skip[idx] = e.skip
			pos[e.from]++
		}

		return
	}

	fwdFirstOut, fwdHead, fwdWeight, fwdSkip := buildCSR(fwdEdges)
	bwdFirstOut, bwdHead, bwdWeight, bwdSkip := buildCSR(bwdEdges)

	return &Hierarchy{
		NumNodes:    n,
		Rank:        rank,
		Epsilon:     eps,
		FwdFirstOut: fwdFirstOut,
		FwdHead:     fwdHead,
		FwdWeight:   fwdWeight,
		FwdSkip:     fwdSkip,
		BwdFirstOut: bwdFirstOut,
		BwdHead:     bwdHead,
		BwdWeight:   bwdWeight,
		BwdSkip:     bwdSkip,
		Graph:       orig,
	}
}
