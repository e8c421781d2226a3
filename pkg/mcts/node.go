package mcts

import "sync/atomic"

// nodeStats is the pair of relaxed atomics shared by nodes and edges:
// a visit counter and a compounded-evaluation sum. Down/up implement the
// virtual-loss dance described in the design: down() is applied on
// descent (optimistic penalty + visit), up() is applied on backprop
// (penalty undone, real reward credited). Both use relaxed ordering
// throughout — concurrent selectors are expected to see transient
// inconsistencies and are designed to tolerate them.
type nodeStats struct {
	sum    atomic.Int64
	visits atomic.Uint32
}

func (s *nodeStats) down(virtualLoss int64) {
	s.sum.Add(-virtualLoss)
	s.visits.Add(1)
}

func (s *nodeStats) up(virtualLoss, eval int64) {
	s.sum.Add(eval + virtualLoss)
}

func (s *nodeStats) replaceFrom(other *nodeStats) {
	s.visits.Store(other.visits.Load())
	s.sum.Store(other.sum.Load())
}

func (s *nodeStats) Visits() int32 { return int32(s.visits.Load()) }
func (s *nodeStats) SumRewards() int64 { return s.sum.Load() }

// hotEdge is the frequently-touched half of an edge: visits, the running
// reward sum for the child subtree, and the move's prior evaluation
// (meaningful only under AlphaGoPolicy; UCTPolicy ignores it). Kept
// separate from coldEdge so that the selection hot loop doesn't drag cold,
// rarely-read fields (the move object, child pointer, owned flag) into the
// same cache line.
type hotEdge struct {
	nodeStats
	prior float32
}

// coldEdge is the rarely-touched half of an edge: the move itself, and the
// child link. child is nullable and published via CAS by whichever
// playout wins the race to expand this edge; if that playout then finds an
// equivalent node already in the transposition table, it repoints child at
// that node (see descend).
// owned distinguishes the edge that created the child (via the arena) from
// one that merely aliases a node discovered through the transposition
// table.
type coldEdge[M MoveLike, E any, ND any] struct {
	mov   M
	child atomic.Pointer[SearchNode[M, E, ND]]
	owned atomic.Bool
}

// EdgeHandle is a paired view over one edge's hot and cold halves, handed
// to tree policies and to anything inspecting a node's moves.
type EdgeHandle[M MoveLike, E any, ND any] struct {
	hot  *hotEdge
	cold *coldEdge[M, E, ND]
}

// Move returns the move this edge represents.
func (h EdgeHandle[M, E, ND]) Move() M { return h.cold.mov }

// Prior returns the move evaluation supplied at expansion time (the
// AlphaGo prior; unused by UCT).
func (h EdgeHandle[M, E, ND]) Prior() float32 { return h.hot.prior }

// Visits returns this edge's visit count.
func (h EdgeHandle[M, E, ND]) Visits() int64 { return int64(h.hot.visits.Load()) }

// SumRewards returns this edge's compounded reward sum.
func (h EdgeHandle[M, E, ND]) SumRewards() int64 { return h.hot.sum.Load() }

// AverageReward returns sum/visits, or false if the edge has never been
// visited.
func (h EdgeHandle[M, E, ND]) AverageReward() (float64, bool) {
	v := h.Visits()
	if v == 0 {
		return 0, false
	}
	return float64(h.SumRewards()) / float64(v), true
}

// Child returns the edge's child node, or (nil, false) if it hasn't been
// expanded yet.
func (h EdgeHandle[M, E, ND]) Child() (*SearchNode[M, E, ND], bool) {
	c := h.cold.child.Load()
	return c, c != nil
}

// Owned reports whether this playout's expansion created the child (as
// opposed to aliasing it through the transposition table).
func (h EdgeHandle[M, E, ND]) Owned() bool { return h.cold.owned.Load() }

func (h EdgeHandle[M, E, ND]) down(virtualLoss int64) { h.hot.down(virtualLoss) }

// replaceFrom copies a (non-owning) snapshot of the child node's aggregate
// statistics into this edge's hot fields. This is the one place the design
// tolerates a known race: a concurrent backprop through the same edge can
// interleave with this copy. That's an accepted approximation, not a bug
// to "fix" with stronger synchronization (see DESIGN.md).
func (h EdgeHandle[M, E, ND]) replaceFrom(n *SearchNode[M, E, ND]) {
	h.hot.replaceFrom(&n.stats)
}

// SearchNode represents one state reached during search. Its edge arrays
// are fixed at construction (invariant: immutable after expansion); only
// edge statistics and child pointers mutate afterwards.
type SearchNode[M MoveLike, E any, ND any] struct {
	hots  []hotEdge
	colds []coldEdge[M, E, ND]
	data  ND
	evaln E
	stats nodeStats
}

// Moves returns an iterable view over this node's edges.
func (n *SearchNode[M, E, ND]) Moves() Moves[M, E, ND] {
	return Moves[M, E, ND]{hots: n.hots, colds: n.colds}
}

// Data returns the node's domain-extensible data, set once at expansion.
func (n *SearchNode[M, E, ND]) Data() ND { return n.data }

// Eval returns the node's evaluation, assigned at creation and never
// mutated afterwards.
func (n *SearchNode[M, E, ND]) Eval() E { return n.evaln }

// Visits returns the node's own visit count (distinct from the sum of its
// edges' visit counts, though the two agree in expectation).
func (n *SearchNode[M, E, ND]) Visits() int32 { return n.stats.Visits() }

func (n *SearchNode[M, E, ND]) down(virtualLoss int64)     { n.stats.down(virtualLoss) }
func (n *SearchNode[M, E, ND]) up(virtualLoss, eval int64) { n.stats.up(virtualLoss, eval) }

// Moves is a fixed, ordered view over one node's edges, pairing each hot
// record with its cold counterpart by shared index.
type Moves[M MoveLike, E any, ND any] struct {
	hots  []hotEdge
	colds []coldEdge[M, E, ND]
}

// Len returns the number of edges.
func (m Moves[M, E, ND]) Len() int { return len(m.hots) }

// At returns the edge handle at index i.
func (m Moves[M, E, ND]) At(i int) EdgeHandle[M, E, ND] {
	return EdgeHandle[M, E, ND]{hot: &m.hots[i], cold: &m.colds[i]}
}

// TotalVisits sums the visit counts across every edge, as needed by both
// tree policies' exploration terms.
func (m Moves[M, E, ND]) TotalVisits() int64 {
	var total int64
	for i := range m.hots {
		total += int64(m.hots[i].visits.Load())
	}
	return total
}
