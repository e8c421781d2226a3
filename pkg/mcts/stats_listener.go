package mcts

// SearchLine is one line of a multi-PV report: the move the line starts
// with, the full principal variation from there, and its evaluation.
type SearchLine[M MoveLike] struct {
	BestMove M
	Moves    []M
	Eval     float64
	Terminal bool
	Draw     bool
}

// ListenerTreeStats is the snapshot handed to listener callbacks: a copy,
// not a live view, so a slow callback can't be surprised by concurrent
// mutation.
type ListenerTreeStats[M MoveLike] struct {
	Maxdepth   int
	Cycles     int
	TimeMs     int
	Cps        uint32
	Lines      []SearchLine[M]
	StopReason StopReason
}

// ListenerFunc receives a ListenerTreeStats snapshot.
type ListenerFunc[M MoveLike] func(ListenerTreeStats[M])

// StatsListener is a set of optional callbacks a SearchManager invokes at
// well-defined points during a search. Every field is a plain func value;
// nil callbacks are simply skipped.
type StatsListener[M MoveLike] struct {
	onDepth       ListenerFunc[M]
	onCycle       ListenerFunc[M]
	onStop        ListenerFunc[M]
	cycleInterval int
}

// OnDepth attaches a callback invoked whenever the search's max depth
// increases. Called only from the goroutine of the search's first worker.
func (l *StatsListener[M]) OnDepth(f ListenerFunc[M]) *StatsListener[M] {
	l.onDepth = f
	return l
}

// OnCycle attaches a callback invoked every SetCycleInterval completed
// playouts. This is for diagnostics: computing a PV snapshot on every
// call is not free, so don't wire this into a hot path.
func (l *StatsListener[M]) OnCycle(f ListenerFunc[M]) *StatsListener[M] {
	l.onCycle = f
	return l
}

// SetCycleInterval sets how many playouts pass between OnCycle calls;
// values below 1 fall back to a sane default.
func (l *StatsListener[M]) SetCycleInterval(n int) *StatsListener[M] {
	l.cycleInterval = max(1, n)
	return l
}

// OnStop attaches a callback invoked exactly once when the search halts.
func (l *StatsListener[M]) OnStop(f ListenerFunc[M]) *StatsListener[M] {
	l.onStop = f
	return l
}

func (l *StatsListener[M]) reset() *StatsListener[M] {
	l.cycleInterval = 0
	return l.OnDepth(nil).OnCycle(nil).OnStop(nil)
}
