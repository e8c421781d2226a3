// Package mcts implements a concurrent, transposition-aware Monte Carlo
// tree search generic over a pluggable game state, leaf evaluator and tree
// policy. Nodes and edges live in an arena (see pkg/arena) for the
// lifetime of a single SearchTree; the tree is rebuilt per root rather than
// persisted across searches.
package mcts

// MoveLike is the constraint satisfied by any domain's move identifier: it
// must be cheap to copy and comparable so it can key an edge and be used as
// a map/transposition entry without indirection.
type MoveLike comparable

// State is the game-state contract the search drives. Implementations must
// make move enumeration deterministic and Fingerprint stable across clones
// of equivalent states (it is the transposition table's lookup key).
type State[M MoveLike] interface {
	// CurrentPlayer identifies whose turn it is; passed to
	// Evaluator.InterpretEvaluationForPlayer during backpropagation.
	CurrentPlayer() int8
	// AvailableMoves enumerates the legal moves from this state. Must be
	// stable: the same order and identity every time it's called on
	// equivalent states, since edge arrays are built once from this list
	// and never resized.
	AvailableMoves() []M
	// MakeMove mutates the state in place by playing m. MakeMove must be
	// total over the enumerated move set.
	MakeMove(m M)
	// Clone returns a deep, independent copy of the state.
	Clone() State[M]
	// Fingerprint returns a 64-bit hash used as the (approximate)
	// transposition key. Collisions are permitted.
	Fingerprint() uint64
}

// Evaluator supplies leaf evaluations and move priors to the search. E is
// the evaluator's node-level evaluation type (opaque to the core); ND is
// per-node domain-extensible data attached at expansion time.
type Evaluator[M MoveLike, E any, ND any] interface {
	// EvaluateNewState is called once, at expansion, for a state that has
	// no search node yet. It returns a prior move evaluation per move (in
	// the same order as moves), a state-level evaluation, and arbitrary
	// per-node domain data. Priors must be in [0, 1] and sum to 1 ± 0.1 for
	// policies that use them (AlphaGoPolicy); UCTPolicy ignores them.
	EvaluateNewState(state State[M], moves []M, handle *Handle[M, E, ND]) (priors []float32, eval E, data ND)
	// EvaluateExistingState is called on a non-creating descent into an
	// already-expanded node, to get a fresh evaluation for backpropagation
	// without touching the node's immutable evaln field.
	EvaluateExistingState(state State[M], priorEval E, handle *Handle[M, E, ND]) E
	// InterpretEvaluationForPlayer projects an evaluation onto a single
	// player's outcome scale (i64, so atomic sums stay exact). Must be
	// sign-symmetric across players for two-player zero-sum games.
	InterpretEvaluationForPlayer(eval E, player int8) int64
	// OnBackpropagation is a hook invoked once per traversed edge (and
	// once more at the leaf) during backpropagation, primarily so
	// evaluators can collect statistics keyed off the playout path.
	OnBackpropagation(eval E, handle *Handle[M, E, ND])
}

// TreePolicy selects which child to descend into during selection. Pure
// and safe for concurrent use: it must not mutate anything but thread-local
// scratch state (RNG, etc.) reachable only through handle.
type TreePolicy[M MoveLike, E any, ND any] interface {
	ChooseChild(state State[M], moves Moves[M, E, ND], handle *Handle[M, E, ND]) EdgeHandle[M, E, ND]
	// ValidateEvaluations is called right after EvaluateNewState with the
	// priors it returned, so a policy that depends on them (AlphaGoPolicy)
	// can assert its invariants; UCTPolicy's implementation is a no-op.
	ValidateEvaluations(priors []float32)
	// Reset returns a policy ready for a fresh search (e.g. with any
	// internal counters cleared); stateless policies can return themselves.
	Reset() TreePolicy[M, E, ND]
}

// TranspositionTable maps a state fingerprint to a previously-created node.
// It never owns nodes: every node it returns lives in the tree's arena and
// remains valid for the tree's lifetime regardless of what the table does
// internally (resize, replace, etc).
type TranspositionTable[M MoveLike, E any, ND any] interface {
	Lookup(state State[M], handle *Handle[M, E, ND]) (*SearchNode[M, E, ND], bool)
	// Insert records node for state's fingerprint. If another insert has
	// already bound that slot, Insert returns the winning node and false;
	// otherwise it returns (node, true).
	Insert(state State[M], node *SearchNode[M, E, ND], handle *Handle[M, E, ND]) (*SearchNode[M, E, ND], bool)
}

// CycleKind selects how the search reacts to revisiting a node already on
// the current playout's path (possible because the transposition table
// turns the tree into a DAG with potential cycles).
type CycleKind int

const (
	// CycleIgnore keeps playing through the cycle (bounded eventually by
	// MaxPlayoutLength).
	CycleIgnore CycleKind = iota
	// CyclePanic treats any detected cycle as a fatal embedder bug.
	CyclePanic
	// CycleUseCurrentEval stops the playout at the cycle and backpropagates
	// the revisited node's own stored evaluation.
	CycleUseCurrentEval
	// CycleUseFixedEval stops the playout at the cycle and backpropagates a
	// fixed, configured evaluation instead.
	CycleUseFixedEval
)

// CycleBehaviour configures how cycles are handled. FixedEval is only
// consulted when Kind == CycleUseFixedEval; it is a full evaluator-typed
// evaluation, back-propagated through the same per-player projection as
// any ordinary leaf evaluation.
type CycleBehaviour[E any] struct {
	Kind      CycleKind
	FixedEval E
}
