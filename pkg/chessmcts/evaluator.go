package chessmcts

import (
	"math/bits"

	dragontoothmg "github.com/IlikeChooros/dragontoothmg"

	"github.com/jacobjackson/sashimi/pkg/mcts"
)

// Scale is the fixed-point factor mapping pawn-unit evaluations onto the
// search's int64 reward space: an evaluation of +Scale means white is up
// one pawn of material. Virtual loss and exploration constants are chosen
// relative to this (see NewSearch).
const Scale int64 = 1_000_000_000

// MateEval is the evaluation of a checkmated position, from white's point
// of view when white delivered the mate. Far outside any reachable
// material swing so mates dominate every exploitation term.
const MateEval = 100 * Scale

// Evaluations are white-centric int64s; InterpretEvaluationForPlayer flips
// the sign for black. Nodes carry no extra data.
type (
	Eval     = int64
	NodeData = struct{}
)

// materialEval scores the board as white's material minus black's, in
// Scale-scaled pawn units.
func materialEval(b *dragontoothmg.Board) int64 {
	count := func(bb dragontoothmg.Bitboards) int64 {
		return int64(bits.OnesCount64(bb.Pawns)) +
			3*int64(bits.OnesCount64(bb.Knights)) +
			3*int64(bits.OnesCount64(bb.Bishops)) +
			5*int64(bits.OnesCount64(bb.Rooks)) +
			9*int64(bits.OnesCount64(bb.Queens))
	}
	return (count(b.White) - count(b.Black)) * Scale
}

// terminalEval scores a position with no legal moves: 0 for stalemate,
// ±MateEval for checkmate (negative when white is the one mated).
func terminalEval(s *State) int64 {
	if !s.Checkmated() {
		return 0
	}
	if s.Board().Wtomove {
		return -MateEval
	}
	return MateEval
}

// MaterialEvaluator is the plain material-count evaluator used with the
// UCT policy: uniform priors (UCT ignores them anyway) and a white-centric
// material balance as the state evaluation.
type MaterialEvaluator struct{}

func (MaterialEvaluator) EvaluateNewState(
	state mcts.State[dragontoothmg.Move],
	moves []dragontoothmg.Move,
	_ *mcts.Handle[dragontoothmg.Move, Eval, NodeData],
) ([]float32, Eval, NodeData) {
	s := state.(*State)
	if len(moves) == 0 {
		return nil, terminalEval(s), NodeData{}
	}
	priors := make([]float32, len(moves))
	uniform := float32(1) / float32(len(moves))
	for i := range priors {
		priors[i] = uniform
	}
	return priors, materialEval(s.Board()), NodeData{}
}

func (MaterialEvaluator) EvaluateExistingState(
	_ mcts.State[dragontoothmg.Move],
	priorEval Eval,
	_ *mcts.Handle[dragontoothmg.Move, Eval, NodeData],
) Eval {
	return priorEval
}

func (MaterialEvaluator) InterpretEvaluationForPlayer(eval Eval, player int8) int64 {
	if player == White {
		return eval
	}
	return -eval
}

func (MaterialEvaluator) OnBackpropagation(Eval, *mcts.Handle[dragontoothmg.Move, Eval, NodeData]) {
}

// HeuristicPolicyEvaluator adds a hand-rolled move-prior head on top of
// MaterialEvaluator, for use with the AlphaGo policy: captures are
// weighted by the captured piece's value and promotions by the promoted
// piece's, then the weights are normalized into a distribution. It is a
// stand-in for a learned policy model, which lives outside this package.
type HeuristicPolicyEvaluator struct {
	MaterialEvaluator
}

func pieceValue(p dragontoothmg.Piece) float32 {
	switch p {
	case dragontoothmg.Pawn:
		return 1
	case dragontoothmg.Knight, dragontoothmg.Bishop:
		return 3
	case dragontoothmg.Rook:
		return 5
	case dragontoothmg.Queen:
		return 9
	default:
		return 0
	}
}

func (e HeuristicPolicyEvaluator) EvaluateNewState(
	state mcts.State[dragontoothmg.Move],
	moves []dragontoothmg.Move,
	handle *mcts.Handle[dragontoothmg.Move, Eval, NodeData],
) ([]float32, Eval, NodeData) {
	s := state.(*State)
	if len(moves) == 0 {
		return nil, terminalEval(s), NodeData{}
	}

	board := s.Board()
	theirs := board.Black.All
	if !board.Wtomove {
		theirs = board.White.All
	}

	priors := make([]float32, len(moves))
	var sum float32
	for i, m := range moves {
		w := float32(1)
		if theirs&(uint64(1)<<m.To()) != 0 {
			w += pieceValue(capturedPieceAt(board, dragontoothmg.Square(m.To())))
		}
		w += pieceValue(m.Promote())
		priors[i] = w
		sum += w
	}
	for i := range priors {
		priors[i] /= sum
	}
	return priors, materialEval(board), NodeData{}
}

func capturedPieceAt(b *dragontoothmg.Board, sq dragontoothmg.Square) dragontoothmg.Piece {
	bb := &b.Black
	if !b.Wtomove {
		bb = &b.White
	}
	mask := uint64(1) << sq
	switch {
	case bb.Pawns&mask != 0:
		return dragontoothmg.Pawn
	case bb.Knights&mask != 0:
		return dragontoothmg.Knight
	case bb.Bishops&mask != 0:
		return dragontoothmg.Bishop
	case bb.Rooks&mask != 0:
		return dragontoothmg.Rook
	case bb.Queens&mask != 0:
		return dragontoothmg.Queen
	default:
		return dragontoothmg.Nothing
	}
}
