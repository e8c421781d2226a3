package mcts

// PlayoutHooks lets the embedding game layer interpose on a playout's
// selection loop without owning the tree policy: OverridePolicy can force
// a specific edge (e.g. replaying a book line), and OnChoiceMade can keep
// per-playout bookkeeping keyed off the choices actually taken. Both see
// the same playout-scoped data value, created fresh by NewPlayoutData at
// the start of every playout.
type PlayoutHooks[M MoveLike, E any, ND any] interface {
	// NewPlayoutData creates the scratch value threaded through this
	// playout's hook calls. Return nil if the hooks keep no state.
	NewPlayoutData() any
	// OverridePolicy may preempt the tree policy for this step. Return
	// (edge, true) to force edge; return (_, false) to defer to the
	// configured TreePolicy.
	OverridePolicy(data any, state State[M], moves Moves[M, E, ND]) (EdgeHandle[M, E, ND], bool)
	// OnChoiceMade observes the edge actually selected this step, whether
	// it came from OverridePolicy or the tree policy.
	OnChoiceMade(data any, state State[M], moves Moves[M, E, ND], choice EdgeHandle[M, E, ND], handle *Handle[M, E, ND])
}

// NoHooks is the default PlayoutHooks: never overrides, observes nothing.
type NoHooks[M MoveLike, E any, ND any] struct{}

func (NoHooks[M, E, ND]) NewPlayoutData() any { return nil }

func (NoHooks[M, E, ND]) OverridePolicy(any, State[M], Moves[M, E, ND]) (EdgeHandle[M, E, ND], bool) {
	return EdgeHandle[M, E, ND]{}, false
}

func (NoHooks[M, E, ND]) OnChoiceMade(any, State[M], Moves[M, E, ND], EdgeHandle[M, E, ND], *Handle[M, E, ND]) {
}
