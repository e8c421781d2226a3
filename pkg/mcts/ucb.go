package mcts

import (
	"fmt"
	"math"
)

// UCTPolicy is the classic UCB1-for-trees selection rule: a mean-reward
// exploitation term plus an exploration bonus that grows with the
// parent's total visit count and shrinks with the child's own. Unvisited
// edges score +Inf so every move is tried before any is revisited; ties
// (including the universal +Inf tie among unvisited edges) are broken
// uniformly at random with the worker's thread-local RNG.
type UCTPolicy[M MoveLike, E any, ND any] struct {
	ExplorationConstant float64
}

// NewUCTPolicy returns a UCTPolicy with the conventional sqrt(2)
// exploration constant.
func NewUCTPolicy[M MoveLike, E any, ND any]() *UCTPolicy[M, E, ND] {
	return &UCTPolicy[M, E, ND]{ExplorationConstant: math.Sqrt2}
}

// NewUCTPolicyWithConstant returns a UCTPolicy with exploration constant
// c. Rewards live on the evaluator's own scale, so c must be chosen
// relative to it; c must be positive.
func NewUCTPolicyWithConstant[M MoveLike, E any, ND any](c float64) *UCTPolicy[M, E, ND] {
	if c <= 0 {
		panic(fmt.Sprintf("mcts: exploration constant is %v (must be positive)", c))
	}
	return &UCTPolicy[M, E, ND]{ExplorationConstant: c}
}

// ChooseChild scores every edge with UCB1 and returns the best.
func (p *UCTPolicy[M, E, ND]) ChooseChild(_ State[M], moves Moves[M, E, ND], handle *Handle[M, E, ND]) EdgeHandle[M, E, ND] {
	adjustedTotal := float64(moves.TotalVisits() + 1)
	lnAdjustedTotal := math.Log(adjustedTotal)

	choice, _ := selectByKey(handle.ThreadDataOf().PolicyRNG, moves, func(e EdgeHandle[M, E, ND]) fraction {
		childVisits := e.Visits()
		if childVisits == 0 {
			return scalar(math.Inf(1))
		}
		exploreTerm := math.Sqrt(lnAdjustedTotal / float64(childVisits))
		meanActionValue := float64(e.SumRewards()) / adjustedTotal
		return scalar(p.ExplorationConstant*exploreTerm + meanActionValue)
	})
	return choice
}

// ValidateEvaluations is a no-op: UCT does not consume priors.
func (p *UCTPolicy[M, E, ND]) ValidateEvaluations(priors []float32) {}

// Reset returns p unchanged: UCTPolicy carries no per-search state.
func (p *UCTPolicy[M, E, ND]) Reset() TreePolicy[M, E, ND] { return p }
