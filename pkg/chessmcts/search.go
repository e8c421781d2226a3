package chessmcts

import (
	dragontoothmg "github.com/IlikeChooros/dragontoothmg"

	"github.com/jacobjackson/sashimi/pkg/mcts"
)

// DefaultNodeLimit bounds how many positions a single search may expand.
const DefaultNodeLimit uint32 = 4_000_000

// Manager is the chess instantiation of the generic search manager.
type Manager = mcts.SearchManager[dragontoothmg.Move, Eval, NodeData]

// Table is the chess instantiation of the approximate transposition table.
type Table = mcts.ApproxTable[dragontoothmg.Move, Eval, NodeData]

// NewTable sizes a transposition table to comfortably hold nodeLimit
// positions.
func NewTable(nodeLimit uint32) *Table {
	return mcts.EnoughToHold[dragontoothmg.Move, Eval, NodeData](int(nodeLimit))
}

// DefaultSearchLimits returns the search tunables this engine plays with:
// a virtual loss of one pawn and a hard node ceiling.
func DefaultSearchLimits() *mcts.Limits {
	return mcts.DefaultLimits().
		SetNodes(DefaultNodeLimit).
		SetVirtualLoss(Scale)
}

// drawOnRepetition scores a playout that transposed back into its own
// path as a draw. Repetitions in chess are drawn, so the cycle entry gets
// a zero evaluation rather than an endless descent.
func drawOnRepetition() mcts.CycleBehaviour[Eval] {
	return mcts.CycleBehaviour[Eval]{Kind: mcts.CycleUseFixedEval, FixedEval: 0}
}

// NewSearch builds a manager over state using the AlphaGo selection policy
// with the heuristic move-prior evaluator. This is the engine's playing
// configuration.
func NewSearch(state *State, limits *mcts.Limits) *Manager {
	if limits == nil {
		limits = DefaultSearchLimits()
	}
	manager := mcts.NewSearchManager[dragontoothmg.Move, Eval, NodeData](
		state,
		mcts.NewAlphaGoPolicy[dragontoothmg.Move, Eval, NodeData](5*float64(Scale)),
		HeuristicPolicyEvaluator{},
		NewTable(limits.Nodes),
		limits,
	)
	manager.SetCycleBehaviour(drawOnRepetition())
	return manager
}

// NewUctSearch builds a manager over state using plain UCT with the
// material evaluator, the configuration the engine's tests and benchmarks
// lean on when priors would only add noise.
func NewUctSearch(state *State, limits *mcts.Limits) *Manager {
	if limits == nil {
		limits = DefaultSearchLimits()
	}
	manager := mcts.NewSearchManager[dragontoothmg.Move, Eval, NodeData](
		state,
		mcts.NewUCTPolicyWithConstant[dragontoothmg.Move, Eval, NodeData](5*float64(Scale)),
		MaterialEvaluator{},
		NewTable(limits.Nodes),
		limits,
	)
	manager.SetCycleBehaviour(drawOnRepetition())
	return manager
}
