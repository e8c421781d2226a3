package mcts

import (
	"fmt"
	"math"
)

// AlphaGoPolicy implements the PUCT selection rule from AlphaGo/AlphaZero:
// mean reward plus an exploration term weighted by the move's prior and
// attenuated by its own visit count. Scores are kept as fractions and
// compared by cross-multiplication so selection never divides. Priors
// must come from the evaluator (see Evaluator.EvaluateNewState) and are
// validated once at expansion time.
type AlphaGoPolicy[M MoveLike, E any, ND any] struct {
	ExplorationConstant float64
}

// NewAlphaGoPolicy returns an AlphaGoPolicy with exploration constant c,
// the weight applied to the prior-driven exploration term. Like the
// rewards themselves, c lives on the evaluator's scale.
func NewAlphaGoPolicy[M MoveLike, E any, ND any](c float64) *AlphaGoPolicy[M, E, ND] {
	return &AlphaGoPolicy[M, E, ND]{ExplorationConstant: c}
}

// priorTolerance bounds how far a node's prior sum may drift from 1.0
// before ValidateEvaluations considers the evaluator broken. Generous
// enough to absorb float32 accumulation error across a realistic
// branching factor, tight enough to catch an evaluator that forgot to
// normalize.
const priorTolerance = 0.1

// ValidateEvaluations panics if priors are negative or don't sum to
// approximately 1. This is an embedder programming error, not a runtime
// condition to recover from: an unnormalized policy head silently
// degrades every future playout through this node.
func (p *AlphaGoPolicy[M, E, ND]) ValidateEvaluations(priors []float32) {
	var sum float64
	for _, pr := range priors {
		if pr < -1e-6 {
			panic(fmt.Sprintf("mcts: move prior is %v (must be non-negative)", pr))
		}
		sum += float64(pr)
	}
	if len(priors) > 0 && math.Abs(sum-1.0) > priorTolerance {
		panic(fmt.Sprintf("mcts: sum of move priors is %v (should sum to 1)", sum))
	}
}

// Reset returns p unchanged: AlphaGoPolicy carries no per-search state.
func (p *AlphaGoPolicy[M, E, ND]) Reset() TreePolicy[M, E, ND] { return p }

// ChooseChild scores every edge with PUCT and returns the best, breaking
// ties via reservoir sampling against the handle's thread-local RNG.
func (p *AlphaGoPolicy[M, E, ND]) ChooseChild(_ State[M], moves Moves[M, E, ND], handle *Handle[M, E, ND]) EdgeHandle[M, E, ND] {
	exploreCoef := p.ExplorationConstant * math.Sqrt(float64(moves.TotalVisits()+1))

	choice, _ := selectByKey(handle.ThreadDataOf().PolicyRNG, moves, func(e EdgeHandle[M, E, ND]) fraction {
		return fraction{
			num: float64(e.SumRewards()) + exploreCoef*float64(e.Prior()),
			den: float64(e.Visits() + 1),
		}
	})
	return choice
}
