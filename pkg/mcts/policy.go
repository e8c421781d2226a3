package mcts

import (
	"math"
	"math/rand"
)

// fraction is a score expressed as numerator/denominator so selectors can
// compare by cross-multiplication instead of dividing in the hot loop.
// Denominators are always positive here, so the comparison is exact in
// direction (up to float rounding, which both policies tolerate).
type fraction struct {
	num, den float64
}

func scalar(x float64) fraction { return fraction{x, 1} }

// selectByKey returns the edge maximizing key, breaking ties uniformly at
// random by reservoir sampling against rng. Returns a zero handle and
// false for an empty move list.
func selectByKey[M MoveLike, E any, ND any](
	rng *rand.Rand,
	moves Moves[M, E, ND],
	key func(EdgeHandle[M, E, ND]) fraction,
) (EdgeHandle[M, E, ND], bool) {
	var choice EdgeHandle[M, E, ND]
	found := false
	numOptimal := 0
	best := scalar(math.Inf(-1))
	for i := 0; i < moves.Len(); i++ {
		e := moves.At(i)
		score := key(e)
		a := score.num * best.den
		b := score.den * best.num
		if a > b {
			choice = e
			found = true
			numOptimal = 1
			best = score
		} else if a == b {
			numOptimal++
			if rng.Intn(numOptimal) == 0 {
				choice = e
				found = true
				best = score
			}
		}
	}
	return choice, found
}
