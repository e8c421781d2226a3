package mcts

import (
	"fmt"
	"math/rand"

	"github.com/jacobjackson/sashimi/pkg/arena"
)

// createNode expands state into a freshly-built node: it asks the
// evaluator for priors/eval/data, validates the priors against the tree
// policy, and allocates the node's edge arrays (and the node itself) from
// al. Used both for the tree's root (via an allocator with an empty-path
// handle) and for every node created during descend.
func createNode[M MoveLike, E any, ND any](
	policy TreePolicy[M, E, ND],
	evaluator Evaluator[M, E, ND],
	state State[M],
	al *arena.Allocator,
	handle *Handle[M, E, ND],
) *SearchNode[M, E, ND] {
	moves := state.AvailableMoves()
	priors, eval, data := evaluator.EvaluateNewState(state, moves, handle)
	policy.ValidateEvaluations(priors)

	n := len(moves)
	hots := arena.AllocSlice[hotEdge](al, n)
	colds := arena.AllocSlice[coldEdge[M, E, ND]](al, n)
	for i := 0; i < n; i++ {
		var prior float32
		if i < len(priors) {
			prior = priors[i]
		}
		hots[i].prior = prior
		colds[i].mov = moves[i]
	}

	node := arena.AllocOne[SearchNode[M, E, ND]](al)
	node.hots = hots
	node.colds = colds
	node.data = data
	node.evaln = eval
	return node
}

// isCycle reports whether current already appears (by pointer identity)
// among the nodes already visited on this playout's path.
func isCycle[M MoveLike, E any, ND any](path []*SearchNode[M, E, ND], current *SearchNode[M, E, ND]) bool {
	for _, p := range path {
		if p == current {
			return true
		}
	}
	return false
}

// SearchTree is a single root's worth of search state: the arena backing
// every node and edge it grows, the transposition table aliasing
// equivalent states, and the policy/evaluator pair driving playouts.
// Playout is safe to call concurrently from many goroutines, each with
// its own ThreadData.
type SearchTree[M MoveLike, E any, ND any] struct {
	rootNode  *SearchNode[M, E, ND]
	rootState State[M]
	policy    TreePolicy[M, E, ND]
	evaluator Evaluator[M, E, ND]
	table     TranspositionTable[M, E, ND]
	arena     *arena.Arena
	limits    *Limits
	cycle     CycleBehaviour[E]
	hooks     PlayoutHooks[M, E, ND]
	selector  ChildSelector[M, E, ND]

	stats TreeStats
}

// ChildSelector picks a root (or interior) child once searching is done;
// it backs BestMove and the principal variation. The default is
// MostVisited.
type ChildSelector[M MoveLike, E any, ND any] func(Moves[M, E, ND]) EdgeHandle[M, E, ND]

// MostVisited returns the edge with the highest visit count, the
// conventional post-search selection rule (visit counts are far more
// robust than raw averages once the search has converged).
func MostVisited[M MoveLike, E any, ND any](moves Moves[M, E, ND]) EdgeHandle[M, E, ND] {
	best := moves.At(0)
	for i := 1; i < moves.Len(); i++ {
		if e := moves.At(i); e.Visits() > best.Visits() {
			best = e
		}
	}
	return best
}

// New builds a tree rooted at state, immediately expanding the root node.
func New[M MoveLike, E any, ND any](
	state State[M],
	policy TreePolicy[M, E, ND],
	evaluator Evaluator[M, E, ND],
	table TranspositionTable[M, E, ND],
	limits *Limits,
) *SearchTree[M, E, ND] {
	if limits == nil {
		limits = DefaultLimits()
	}
	a := arena.New()
	al := arena.NewAllocator(a, limits.ChunkSize)
	bootstrap := &Handle[M, E, ND]{
		tld:       &ThreadData[M, E, ND]{Allocator: al, PolicyRNG: rand.New(rand.NewSource(0))},
		policy:    policy,
		evaluator: evaluator,
	}
	root := createNode(policy, evaluator, state, al, bootstrap)

	t := &SearchTree[M, E, ND]{
		rootNode:  root,
		rootState: state,
		policy:    policy,
		evaluator: evaluator,
		table:     table,
		arena:     a,
		limits:    limits,
		hooks:     NoHooks[M, E, ND]{},
		selector:  MostVisited[M, E, ND],
	}
	t.stats.numNodes.Store(1)
	return t
}

// SetPlayoutHooks installs hooks interposing on every future playout's
// selection loop. Not safe to call while playouts are running.
func (t *SearchTree[M, E, ND]) SetPlayoutHooks(h PlayoutHooks[M, E, ND]) {
	t.hooks = h
}

// SetCycleBehaviour configures how playouts react to revisiting a node
// already on their own path. Not safe to call while playouts are running.
func (t *SearchTree[M, E, ND]) SetCycleBehaviour(b CycleBehaviour[E]) {
	t.cycle = b
}

// SetSelectChildAfterSearch replaces the post-search child selection rule
// used by the principal variation (and, through the manager, BestMove).
func (t *SearchTree[M, E, ND]) SetSelectChildAfterSearch(s ChildSelector[M, E, ND]) {
	t.selector = s
}

// Reset discards this tree's arena and transposition table and builds a
// fresh one rooted at the same state, with the tree policy reset to a
// clean slate.
func (t *SearchTree[M, E, ND]) Reset(table TranspositionTable[M, E, ND]) *SearchTree[M, E, ND] {
	fresh := New(t.rootState, t.policy.Reset(), t.evaluator, table, t.limits)
	fresh.cycle = t.cycle
	fresh.hooks = t.hooks
	fresh.selector = t.selector
	return fresh
}

// NewThreadData allocates per-worker scratch drawing from this tree's
// arena, seeded with seed.
func (t *SearchTree[M, E, ND]) NewThreadData(seed int64) *ThreadData[M, E, ND] {
	return NewThreadData[M, E, ND](t.arena, t.limits.ChunkSize, seed)
}

// RootState returns the tree's starting state.
func (t *SearchTree[M, E, ND]) RootState() State[M] { return t.rootState }

// RootNode returns a handle to the tree's root.
func (t *SearchTree[M, E, ND]) RootNode() NodeHandle[M, E, ND] {
	return NodeHandle[M, E, ND]{node: t.rootNode}
}

// Stats returns the tree's diagnostic counters.
func (t *SearchTree[M, E, ND]) Stats() *TreeStats { return &t.stats }

// Playout runs one selection/expansion/evaluation/backpropagation cycle.
// It returns false without doing any work if the node limit has already
// been reached (accounting for playouts currently in flight on other
// goroutines, so concurrent callers don't all overshoot together).
func (t *SearchTree[M, E, ND]) Playout(tld *ThreadData[M, E, ND]) bool {
	before := t.stats.reserve()
	defer t.stats.release()
	if before >= t.limits.Nodes {
		return false
	}
	// The root is never on the node path, so its visit is counted here.
	t.rootNode.stats.visits.Add(1)

	state := t.rootState.Clone()
	playoutData := t.hooks.NewPlayoutData()
	var edgePath []EdgeHandle[M, E, ND]
	var nodePath []*SearchNode[M, E, ND]
	var players []int8
	didWeCreate := false
	node := t.rootNode

selection:
	for {
		moves := node.Moves()
		if moves.Len() == 0 {
			break
		}
		if len(edgePath) >= t.limits.MaxPlayoutLength {
			break
		}

		handle := &Handle[M, E, ND]{tld: tld, path: nodePath, policy: t.policy, evaluator: t.evaluator}
		choice, forced := t.hooks.OverridePolicy(playoutData, state, moves)
		if !forced {
			choice = t.policy.ChooseChild(state, moves, handle)
		}
		t.hooks.OnChoiceMade(playoutData, state, moves, choice, handle)
		choice.down(t.limits.VirtualLoss)
		players = append(players, state.CurrentPlayer())
		edgePath = append(edgePath, choice)
		if len(edgePath) > t.limits.MaxPlayoutLength {
			panic(fmt.Sprintf("mcts: playout length exceeded maximum of %d (the transposition table may be forming an infinite loop)", t.limits.MaxPlayoutLength))
		}

		state.MakeMove(choice.Move())
		newNode, newDidCreate := t.descend(state, choice.cold, tld, nodePath)
		node = newNode
		didWeCreate = newDidCreate

		switch t.cycle.Kind {
		case CycleIgnore:
		case CyclePanic:
			if isCycle(nodePath, node) {
				panic("mcts: cycle detected in search tree; make states acyclic, drop the transposition table, or set a CycleBehaviour that tolerates cycles")
			}
		case CycleUseCurrentEval:
			if isCycle(nodePath, node) {
				t.stats.incDetectedCycle()
				break selection
			}
		case CycleUseFixedEval:
			if isCycle(nodePath, node) {
				t.stats.incDetectedCycle()
				t.finishPlayout(edgePath, nodePath, players, tld, t.cycle.FixedEval)
				t.stats.incCycle()
				return true
			}
		}

		nodePath = append(nodePath, node)
		node.down(t.limits.VirtualLoss)
		if node.Visits() <= t.limits.VisitsBeforeExpansion {
			break
		}
	}

	var evaln E
	if didWeCreate {
		evaln = node.Eval()
	} else {
		handle := &Handle[M, E, ND]{tld: tld, path: nodePath, policy: t.policy, evaluator: t.evaluator}
		evaln = t.evaluator.EvaluateExistingState(state, node.Eval(), handle)
	}
	t.finishPlayout(edgePath, nodePath, players, tld, evaln)
	t.stats.incCycle()
	return true
}

// descend resolves one edge to its child node: the fast path follows an
// already-published child pointer; otherwise it checks the transposition
// table, and failing that creates a brand new node, racing any concurrent
// playout doing the same thing via a single CAS on the edge's child
// pointer. Returns the resolved node and whether this call is the one
// that created (and owns) it.
func (t *SearchTree[M, E, ND]) descend(
	state State[M],
	choice *coldEdge[M, E, ND],
	tld *ThreadData[M, E, ND],
	path []*SearchNode[M, E, ND],
) (*SearchNode[M, E, ND], bool) {
	if child := choice.child.Load(); child != nil {
		return child, false
	}

	handle := &Handle[M, E, ND]{tld: tld, path: path, policy: t.policy, evaluator: t.evaluator}

	if node, ok := t.table.Lookup(state, handle); ok {
		if choice.child.CompareAndSwap(nil, node) {
			t.stats.incTranspositionHit()
			return node, false
		}
		return choice.child.Load(), false
	}

	created := createNode(t.policy, t.evaluator, state, tld.Allocator, handle)
	if !choice.child.CompareAndSwap(nil, created) {
		t.stats.incExpansionContention()
		return choice.child.Load(), false
	}

	if existing, inserted := t.table.Insert(state, created, handle); !inserted {
		t.stats.incDelayedTranspositionHit()
		choice.child.Store(existing)
		return existing, false
	}

	choice.owned.Store(true)
	t.stats.incNodes()
	return created, true
}

// finishPlayout backpropagates a playout's result up its path. evaln
// (the state-level evaluation, or the configured fixed evaluation of a
// cycle-terminated playout) is projected per-player at each traversed
// edge via Evaluator.InterpretEvaluationForPlayer, since different steps
// of the path may belong to different players.
func (t *SearchTree[M, E, ND]) finishPlayout(
	edgePath []EdgeHandle[M, E, ND],
	nodePath []*SearchNode[M, E, ND],
	players []int8,
	tld *ThreadData[M, E, ND],
	evaln E,
) {
	n := len(edgePath)
	if len(nodePath) < n {
		n = len(nodePath)
	}
	handle := &Handle[M, E, ND]{tld: tld, path: nodePath, policy: t.policy, evaluator: t.evaluator}

	for i := n - 1; i >= 0; i-- {
		v := t.evaluator.InterpretEvaluationForPlayer(evaln, players[i])
		nodePath[i].up(t.limits.VirtualLoss, v)
		edgePath[i].replaceFrom(nodePath[i])
		t.evaluator.OnBackpropagation(evaln, handle)
	}
	t.evaluator.OnBackpropagation(evaln, handle)
}

// PrincipalVariation walks the tree from the root, at each step following
// the edge picked by the tree's child selector (MostVisited unless replaced
// with SetSelectChildAfterSearch), up to numMoves deep or until the line
// runs off the expanded portion of the tree.
func (t *SearchTree[M, E, ND]) PrincipalVariation(numMoves int) []EdgeHandle[M, E, ND] {
	var result []EdgeHandle[M, E, ND]
	cur := t.rootNode
	for cur.Moves().Len() > 0 && len(result) < numMoves {
		choice := t.selector(cur.Moves())
		result = append(result, choice)
		child, ok := choice.Child()
		if !ok {
			break
		}
		cur = child
	}
	return result
}

// PrincipalVariationStates replays the principal variation from the root,
// returning the state reached after each of its moves.
func (t *SearchTree[M, E, ND]) PrincipalVariationStates(numMoves int) []State[M] {
	edges := t.PrincipalVariation(numMoves)
	states := make([]State[M], 0, len(edges))
	cur := t.rootState.Clone()
	for _, e := range edges {
		cur.MakeMove(e.Move())
		states = append(states, cur)
		cur = cur.Clone()
	}
	return states
}

// Diagnose renders the tree's diagnostic counters for human consumption.
func (t *SearchTree[M, E, ND]) Diagnose() string {
	return fmt.Sprintf(
		"%d nodes\n%d transposition table hits\n%d delayed transposition table hits\n%d expansion contention events\n",
		t.stats.NumNodes(), t.stats.TranspositionHits(), t.stats.DelayedTranspositionHits(), t.stats.ExpansionContentionEvents(),
	)
}
