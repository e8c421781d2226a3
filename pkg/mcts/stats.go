package mcts

import (
	"fmt"
	"sync/atomic"
)

// TreeStats accumulates diagnostics about a single SearchTree's lifetime,
// all updated with relaxed atomics from arbitrary worker goroutines. The
// node count doubles as the node budget (see reserve) and is read by
// Playout and the manager's limiter; the other numbers are for
// observability only.
type TreeStats struct {
	numNodes                  atomic.Uint32
	transpositionHits         atomic.Uint32
	delayedTranspositionHits  atomic.Uint32
	expansionContentionEvents atomic.Uint32
	maxdepth                  atomic.Int32
	cycles                    atomic.Uint32
	detectedCycles            atomic.Uint32
	cps                       atomic.Uint32
}

// reserve optimistically claims a node-budget slot for an in-flight
// playout, returning the count observed just before the claim (so the
// caller can compare it against the node limit). Pair with release.
func (s *TreeStats) reserve() uint32 { return s.numNodes.Add(1) - 1 }

// release gives back the slot claimed by reserve once a playout finishes,
// whether or not it went on to create a permanent node.
func (s *TreeStats) release() { s.numNodes.Add(^uint32(0)) }

func (s *TreeStats) incNodes()                  { s.numNodes.Add(1) }
func (s *TreeStats) incTranspositionHit()       { s.transpositionHits.Add(1) }
func (s *TreeStats) incDelayedTranspositionHit() { s.delayedTranspositionHits.Add(1) }
func (s *TreeStats) incExpansionContention()    { s.expansionContentionEvents.Add(1) }
func (s *TreeStats) incCycle()                  { s.cycles.Add(1) }
func (s *TreeStats) incDetectedCycle()          { s.detectedCycles.Add(1) }
func (s *TreeStats) setCps(v uint32)            { s.cps.Store(v) }

func (s *TreeStats) observeDepth(depth int) bool {
	for {
		cur := s.maxdepth.Load()
		if int32(depth) <= cur {
			return false
		}
		if s.maxdepth.CompareAndSwap(cur, int32(depth)) {
			return true
		}
	}
}

// NumNodes returns the number of nodes added to the tree so far (the root
// included), plus one slot for each playout in flight at the moment of
// the call.
func (s *TreeStats) NumNodes() uint32 { return s.numNodes.Load() }

// TranspositionHits returns how many descents landed on a node already
// present in the transposition table (an immediate hit, found before any
// expansion was attempted).
func (s *TreeStats) TranspositionHits() uint32 { return s.transpositionHits.Load() }

// DelayedTranspositionHits returns how many descents started expanding a
// node only to discover, via the transposition table, that another
// playout had already created an equivalent one — the loser's freshly
// arena-allocated node is discarded unowned.
func (s *TreeStats) DelayedTranspositionHits() uint32 { return s.delayedTranspositionHits.Load() }

// ExpansionContentionEvents returns how many times two or more playouts
// raced to expand the same edge.
func (s *TreeStats) ExpansionContentionEvents() uint32 { return s.expansionContentionEvents.Load() }

// MaxDepth returns the longest principal variation (at most pvReportDepth
// plies) that the first worker of a running search has observed so far.
func (s *TreeStats) MaxDepth() int { return int(s.maxdepth.Load()) }

// Cycles returns the total number of completed playouts.
func (s *TreeStats) Cycles() int { return int(s.cycles.Load()) }

// DetectedCycles returns how many playouts were cut short after
// revisiting a node already on their own path (only possible once the
// transposition table turns the tree into a DAG).
func (s *TreeStats) DetectedCycles() int { return int(s.detectedCycles.Load()) }

// Cps returns the last observed playouts-per-second figure.
func (s *TreeStats) Cps() uint32 { return s.cps.Load() }

func (s *TreeStats) String() string {
	return fmt.Sprintf(
		"TreeStats{nodes=%d, cycles=%d, cps=%d, maxdepth=%d, tt_hits=%d, tt_delayed_hits=%d, expansion_contention=%d}",
		s.NumNodes(), s.Cycles(), s.Cps(), s.MaxDepth(),
		s.TranspositionHits(), s.DelayedTranspositionHits(), s.ExpansionContentionEvents(),
	)
}
