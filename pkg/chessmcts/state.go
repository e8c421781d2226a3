// Package chessmcts instantiates pkg/mcts for chess, using dylhunn's
// dragontoothmg for move generation/application and a material-count
// Evaluator for leaf evaluations.
package chessmcts

import (
	"hash/fnv"

	dragontoothmg "github.com/IlikeChooros/dragontoothmg"

	"github.com/jacobjackson/sashimi/pkg/mcts"
)

// White and Black are the two players' CurrentPlayer values; the sign
// convention lets Evaluator.InterpretEvaluationForPlayer flip a
// white-centric score with a single multiply.
const (
	White int8 = 1
	Black int8 = -1
)

// moveKey hashes one ply's (side to move, move) pair into a fold-in value
// for State's incremental fingerprint. XOR-folding these in as moves are
// played gives equivalent positions reached via different move orders the
// same fingerprint, the same property a real Zobrist hash has, without
// needing access to dragontoothmg's internal board representation.
func moveKey(side int8, m dragontoothmg.Move) uint64 {
	h := fnv.New64a()
	if side == White {
		h.Write([]byte{'w'})
	} else {
		h.Write([]byte{'b'})
	}
	h.Write([]byte(m.String()))
	return h.Sum64()
}

// State wraps a dragontoothmg board as an mcts.State[dragontoothmg.Move].
// It keeps its own move list for AvailableMoves (dragontoothmg's generator
// isn't guaranteed stable-ordered across calls on a mutated board) and a
// fingerprint that's maintained incrementally rather than recomputed from
// the board on every call.
type State struct {
	board *dragontoothmg.Board
	moves []dragontoothmg.Move
	hash  uint64
}

// NewStartingState returns a State at the standard chess starting position.
func NewStartingState() *State {
	return newState(dragontoothmg.NewBoard(), 0)
}

// NewStateFromFen returns a State at the position fen describes. The base
// fingerprint is seeded from the FEN text itself, so distinct root
// positions never share fingerprint zero with the starting position.
func NewStateFromFen(fen string) *State {
	board := dragontoothmg.ParseFen(fen)
	h := fnv.New64a()
	h.Write([]byte(fen))
	return newState(&board, h.Sum64())
}

func newState(board *dragontoothmg.Board, hash uint64) *State {
	s := &State{board: board, hash: hash}
	s.moves = s.board.GenerateLegalMoves()
	return s
}

// Board exposes the underlying board for callers that need read-only
// access beyond the mcts.State contract (FEN printing, UCI reporting).
func (s *State) Board() *dragontoothmg.Board { return s.board }

func (s *State) CurrentPlayer() int8 {
	if s.board.Wtomove {
		return White
	}
	return Black
}

func (s *State) AvailableMoves() []dragontoothmg.Move {
	return s.moves
}

func (s *State) MakeMove(m dragontoothmg.Move) {
	s.hash ^= moveKey(s.CurrentPlayer(), m)
	s.board.Make(m)
	s.moves = s.board.GenerateLegalMoves()
}

func (s *State) Clone() mcts.State[dragontoothmg.Move] {
	return &State{
		board: s.board.Clone(),
		moves: append([]dragontoothmg.Move(nil), s.moves...),
		hash:  s.hash,
	}
}

func (s *State) Fingerprint() uint64 { return s.hash }

// Terminated reports whether the position has no legal moves, meaning the
// game has ended (checkmate or stalemate).
func (s *State) Terminated() bool {
	return s.board.IsTerminated(len(s.moves))
}

// Checkmated reports whether the side to move has been checkmated. Only
// meaningful once Terminated reports true.
func (s *State) Checkmated() bool {
	return s.board.Termination() == dragontoothmg.TerminationCheckmate
}
