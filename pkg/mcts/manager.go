package mcts

import (
	"sync"
	"time"
	"unsafe"
)

// pvReportDepth is how many plies of the principal variation listener
// snapshots carry.
const pvReportDepth = 10

// Mode is a SearchManager's lifecycle state.
type Mode int

const (
	// Idle: no workers running; playouts, if any, happen synchronously on
	// the caller's own goroutine (see PlayoutN).
	Idle Mode = iota
	// Running: worker goroutines are actively playing out the tree.
	Running
	// Halted: workers have been told to stop and Halt is waiting for them
	// to join. Transient; callers never observe this from outside Halt.
	Halted
)

// SearchManager owns a SearchTree across repeated searches, applying
// limits, running worker goroutines, and reporting results. Lifecycle:
// Idle with no workers, Running with N workers async, briefly Halted
// while joining back to Idle.
type SearchManager[M MoveLike, E any, ND any] struct {
	mu       sync.Mutex
	tree     *SearchTree[M, E, ND]
	table    TranspositionTable[M, E, ND]
	limits   *Limits
	limiter  *limiter
	listener *StatsListener[M]
	wg       sync.WaitGroup
	mode     Mode
	seedBase int64
}

// NewSearchManager builds a manager around a freshly-expanded tree rooted
// at state.
func NewSearchManager[M MoveLike, E any, ND any](
	state State[M],
	policy TreePolicy[M, E, ND],
	evaluator Evaluator[M, E, ND],
	table TranspositionTable[M, E, ND],
	limits *Limits,
) *SearchManager[M, E, ND] {
	if limits == nil {
		limits = DefaultLimits()
	}
	tree := New(state, policy, evaluator, table, limits)
	var nodeSize SearchNode[M, E, ND]
	lim := newLimiter(uint32(unsafe.Sizeof(nodeSize)))
	lim.SetLimits(limits)

	return &SearchManager[M, E, ND]{
		tree:     tree,
		table:    table,
		limits:   limits,
		limiter:  lim,
		listener: &StatsListener[M]{},
		seedBase: seedGeneratorFn(),
	}
}

// Tree exposes the manager's current tree for read-only inspection (root
// state, node handles, diagnostics). Never call its Playout directly while
// the manager is Running — workers own that.
func (m *SearchManager[M, E, ND]) Tree() *SearchTree[M, E, ND] { return m.tree }

// Mode reports the manager's current lifecycle state.
func (m *SearchManager[M, E, ND]) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Limits returns the manager's active limits.
func (m *SearchManager[M, E, ND]) Limits() *Limits { return m.limits }

// SetLimits updates the limits used by future searches (Begin/PlayoutN).
// Returns false without applying anything if the manager is currently
// Running — stop the search first with Halt.
func (m *SearchManager[M, E, ND]) SetLimits(limits *Limits) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Idle {
		return false
	}
	m.limits = limits
	m.limiter.SetLimits(limits)
	return true
}

// Listener returns the manager's stats listener, for attaching callbacks.
func (m *SearchManager[M, E, ND]) Listener() *StatsListener[M] { return m.listener }

func (m *SearchManager[M, E, ND]) invokeListener(f ListenerFunc[M]) {
	if f == nil {
		return
	}
	f(m.snapshotStats())
}

func (m *SearchManager[M, E, ND]) snapshotStats() ListenerTreeStats[M] {
	pv := m.tree.PrincipalVariation(pvReportDepth)
	lines := make([]SearchLine[M], 0, len(pv))
	if len(pv) > 0 {
		moves := make([]M, len(pv))
		for i, e := range pv {
			moves[i] = e.Move()
		}
		terminal := false
		if child, ok := pv[len(pv)-1].Child(); ok {
			terminal = child.Moves().Len() == 0
		}
		avg, _ := pv[0].AverageReward()
		lines = append(lines, SearchLine[M]{
			BestMove: pv[0].Move(),
			Moves:    moves,
			Eval:     avg,
			Terminal: terminal,
			Draw:     false,
		})
	}
	return ListenerTreeStats[M]{
		Maxdepth:   m.tree.Stats().MaxDepth(),
		Cycles:     m.tree.Stats().Cycles(),
		TimeMs:     int(m.limiter.Elapsed()),
		Cps:        m.tree.Stats().Cps(),
		Lines:      lines,
		StopReason: m.limiter.StopReason(),
	}
}

// Begin transitions the manager Idle -> Running, starting Limits.NThreads
// worker goroutines that each loop Tree().Playout until the limiter calls
// a halt or the tree's node limit is reached. Returns false if the
// manager wasn't Idle.
func (m *SearchManager[M, E, ND]) Begin() bool {
	m.mu.Lock()
	if m.mode != Idle {
		m.mu.Unlock()
		return false
	}
	m.mode = Running
	m.limiter.reset()
	m.mu.Unlock()

	threads := max(1, m.limits.NThreads)
	m.wg.Add(threads)
	for id := 0; id < threads; id++ {
		go m.worker(id)
	}
	return true
}

func (m *SearchManager[M, E, ND]) worker(id int) {
	defer m.wg.Done()
	tld := m.tree.NewThreadData(m.seedBase + int64(id))

	for m.limiter.Ok(m.tree.Stats().NumNodes()) {
		if !m.tree.Playout(tld) {
			break
		}
		if elapsed := m.limiter.Elapsed(); elapsed > 0 {
			m.tree.Stats().setCps(uint32(uint64(m.tree.Stats().Cycles()) * 1000 / uint64(elapsed)))
		}
		if id == 0 {
			if m.tree.Stats().observeDepth(len(m.tree.PrincipalVariation(pvReportDepth))) {
				m.invokeListener(m.listener.onDepth)
			}
			if iv := m.listener.cycleInterval; iv > 0 && m.tree.Stats().Cycles()%iv == 0 {
				m.invokeListener(m.listener.onCycle)
			}
		}
	}
}

// Halt stops any running search, waits for its workers to join, and
// returns the manager to Idle. Safe to call when already Idle (a no-op).
func (m *SearchManager[M, E, ND]) Halt() {
	m.mu.Lock()
	if m.mode != Running {
		m.mu.Unlock()
		return
	}
	m.mode = Halted
	m.mu.Unlock()

	m.limiter.SetStop(true)
	m.wg.Wait()
	m.invokeListener(m.listener.onStop)

	m.mu.Lock()
	m.mode = Idle
	m.mu.Unlock()
}

// PlayoutN runs n playouts synchronously on the calling goroutine; only
// valid while Idle. Returns the number of playouts actually run (fewer
// than n if the node limit was hit).
func (m *SearchManager[M, E, ND]) PlayoutN(n int) int {
	tld := m.tree.NewThreadData(m.seedBase)
	ran := 0
	for i := 0; i < n; i++ {
		if !m.tree.Playout(tld) {
			break
		}
		ran++
	}
	return ran
}

// PerfTest runs n playouts single- or multi-threaded (per Limits.NThreads)
// and returns the tree's node count divided by the elapsed seconds. The
// tree keeps everything the playouts added; call Reset for a fresh one.
// Useful for benchmarking an Evaluator/State pair in isolation from
// search quality.
func (m *SearchManager[M, E, ND]) PerfTest(n int) float64 {
	threads := max(1, m.limits.NThreads)
	start := time.Now()

	var wg sync.WaitGroup
	perThread := (n + threads - 1) / threads
	for id := 0; id < threads; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tld := m.tree.NewThreadData(m.seedBase + int64(id))
			for i := 0; i < perThread; i++ {
				if !m.tree.Playout(tld) {
					return
				}
			}
		}(id)
	}
	wg.Wait()

	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.tree.Stats().NumNodes()) / elapsed
}

// Reset discards the current tree, rebuilding a structurally fresh one
// rooted at the same state, with the tree policy reset. The caller
// supplies a fresh transposition table since the manager only knows the
// table by its interface. Halts any running search first.
func (m *SearchManager[M, E, ND]) Reset(table TranspositionTable[M, E, ND]) {
	m.Halt()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = table
	m.tree = m.tree.Reset(table)
	m.listener.reset()
}

// SetPosition discards the current tree and rebuilds one rooted at a new
// state, keeping the evaluator and a reset copy of the tree policy. Halts
// any running search first.
func (m *SearchManager[M, E, ND]) SetPosition(state State[M], table TranspositionTable[M, E, ND]) {
	m.Halt()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = table
	fresh := New(state, m.tree.policy.Reset(), m.tree.evaluator, table, m.limits)
	fresh.cycle = m.tree.cycle
	fresh.hooks = m.tree.hooks
	fresh.selector = m.tree.selector
	m.tree = fresh
	m.listener.reset()
}

// SetCycleBehaviour configures the underlying tree's cycle handling.
// Only valid while Idle.
func (m *SearchManager[M, E, ND]) SetCycleBehaviour(b CycleBehaviour[E]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Idle {
		return false
	}
	m.tree.SetCycleBehaviour(b)
	return true
}

// SetPlayoutHooks installs playout hooks on the underlying tree. Only
// valid while Idle.
func (m *SearchManager[M, E, ND]) SetPlayoutHooks(h PlayoutHooks[M, E, ND]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Idle {
		return false
	}
	m.tree.SetPlayoutHooks(h)
	return true
}

// SetSelectChildAfterSearch replaces the post-search child selection rule
// backing BestMove and the principal variation. Only valid while Idle.
func (m *SearchManager[M, E, ND]) SetSelectChildAfterSearch(s ChildSelector[M, E, ND]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != Idle {
		return false
	}
	m.tree.SetSelectChildAfterSearch(s)
	return true
}

// BestMove returns the root move picked by the tree's child selector (the
// most-visited one by default), or the zero value and
// false if the root has no expanded children (e.g. terminal position, or
// no search has run yet).
func (m *SearchManager[M, E, ND]) BestMove() (M, bool) {
	root := m.tree.RootNode()
	moves := root.Moves()
	if moves.Len() == 0 {
		var zero M
		return zero, false
	}
	best := m.tree.selector(moves)
	if best.Visits() == 0 {
		var zero M
		return zero, false
	}
	return best.Move(), true
}

// PrincipalVariation returns the best line's moves, up to numMoves deep.
func (m *SearchManager[M, E, ND]) PrincipalVariation(numMoves int) []M {
	edges := m.tree.PrincipalVariation(numMoves)
	moves := make([]M, len(edges))
	for i, e := range edges {
		moves[i] = e.Move()
	}
	return moves
}

// PrincipalVariationInfo returns the best line's edges, exposing visit
// counts and average rewards alongside each move.
func (m *SearchManager[M, E, ND]) PrincipalVariationInfo(numMoves int) []EdgeHandle[M, E, ND] {
	return m.tree.PrincipalVariation(numMoves)
}

// PrincipalVariationStates replays the best line from the root, returning
// the state reached after each of its moves.
func (m *SearchManager[M, E, ND]) PrincipalVariationStates(numMoves int) []State[M] {
	return m.tree.PrincipalVariationStates(numMoves)
}

// Diagnose renders the underlying tree's diagnostic counters.
func (m *SearchManager[M, E, ND]) Diagnose() string {
	return m.tree.Diagnose()
}
