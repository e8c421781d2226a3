package chessmcts

import (
	"testing"
	"time"
)

func TestStartingPositionMoves(t *testing.T) {
	s := NewStartingState()
	if got := len(s.AvailableMoves()); got != 20 {
		t.Errorf("starting position has %d moves, want 20", got)
	}
	if s.CurrentPlayer() != White {
		t.Error("white isn't to move in the starting position")
	}
	if s.Terminated() {
		t.Error("starting position reported as terminated")
	}
}

func TestFingerprintStableAcrossClones(t *testing.T) {
	s := NewStartingState()
	c := s.Clone().(*State)
	if s.Fingerprint() != c.Fingerprint() {
		t.Error("clone changed the fingerprint")
	}

	mv := s.AvailableMoves()[0]
	s.MakeMove(mv)
	c.MakeMove(mv)
	if s.Fingerprint() != c.Fingerprint() {
		t.Error("same move on clones diverged the fingerprint")
	}
}

func TestFingerprintTransposes(t *testing.T) {
	find := func(s *State, uci string) {
		for _, m := range s.AvailableMoves() {
			if m.String() == uci {
				s.MakeMove(m)
				return
			}
		}
		panic("no such move " + uci)
	}

	a := NewStartingState()
	find(a, "e2e3")
	find(a, "e7e6")
	find(a, "d2d3")
	find(a, "d7d6")

	b := NewStartingState()
	find(b, "d2d3")
	find(b, "d7d6")
	find(b, "e2e3")
	find(b, "e7e6")

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("transposed move orders produced different fingerprints")
	}

	c := NewStartingState()
	find(c, "e2e3")
	find(c, "d7d6")
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different positions share a fingerprint")
	}
}

func TestMaterialEval(t *testing.T) {
	if ev := materialEval(NewStartingState().Board()); ev != 0 {
		t.Errorf("starting material balance = %d, want 0", ev)
	}
	up := NewStateFromFen("6k1/8/6K1/8/8/8/8/R7 w - - 0 0")
	if ev := materialEval(up.Board()); ev != 5*Scale {
		t.Errorf("rook-up material balance = %d, want %d", ev, 5*Scale)
	}
}

func TestHeuristicPriorsSumToOne(t *testing.T) {
	s := NewStateFromFen("rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2")
	moves := s.AvailableMoves()
	priors, _, _ := HeuristicPolicyEvaluator{}.EvaluateNewState(s, moves, nil)

	var sum float32
	capturePrior := float32(-1)
	quietPrior := float32(-1)
	for i, p := range priors {
		sum += p
		if moves[i].String() == "e4d5" {
			capturePrior = p
		} else if quietPrior < 0 {
			quietPrior = p
		}
	}
	if sum < 0.99 || sum > 1.01 {
		t.Errorf("priors sum to %v, want 1", sum)
	}
	if capturePrior <= quietPrior {
		t.Errorf("capture prior %v not above quiet prior %v", capturePrior, quietPrior)
	}
}

func TestMateInOne(t *testing.T) {
	if testing.Short() {
		t.Skip("search test")
	}
	state := NewStateFromFen("6k1/8/6K1/8/8/8/8/R7 w - - 0 0")
	limits := DefaultSearchLimits().SetVirtualLoss(Scale)
	manager := NewUctSearch(state, limits)
	manager.PlayoutN(50_000)

	mv, ok := manager.BestMove()
	if !ok {
		t.Fatal("no best move found")
	}
	if mv.String() != "a1a8" {
		t.Errorf("best move = %s, want a1a8", mv.String())
	}
	t.Log(manager.Diagnose())
}

func TestMateInOneAlphaGo(t *testing.T) {
	if testing.Short() {
		t.Skip("search test")
	}
	state := NewStateFromFen("6k1/8/6K1/8/8/8/8/R7 w - - 0 0")
	manager := NewSearch(state, nil)
	manager.PlayoutN(50_000)

	mv, ok := manager.BestMove()
	if !ok {
		t.Fatal("no best move found")
	}
	if mv.String() != "a1a8" {
		t.Errorf("best move = %s, want a1a8", mv.String())
	}
}

func TestTerminalRootHasNoBestMove(t *testing.T) {
	// Back-rank mate: black king g8, white rook a8, white king g6.
	state := NewStateFromFen("R5k1/8/6K1/8/8/8/8/8 b - - 0 1")
	if !state.Terminated() || !state.Checkmated() {
		t.Fatal("position should be checkmate")
	}
	manager := NewUctSearch(state, nil)
	manager.PlayoutN(10)

	if _, ok := manager.BestMove(); ok {
		t.Error("checkmated root reported a best move")
	}
	if pv := manager.PrincipalVariation(5); len(pv) != 0 {
		t.Errorf("checkmated root has pv of length %d, want 0", len(pv))
	}
}

func TestSearchParallelSmoke(t *testing.T) {
	limits := DefaultSearchLimits().SetNodes(20_000).SetThreads(4)
	manager := NewSearch(NewStartingState(), limits)

	manager.Begin()
	deadline := time.Now().Add(5 * time.Second)
	for manager.Tree().Stats().NumNodes() < 1000 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	manager.Halt()

	if _, ok := manager.BestMove(); !ok {
		t.Error("no best move after parallel search")
	}
	if n := manager.Tree().Stats().NumNodes(); n <= 1 {
		t.Errorf("num nodes = %d, want > 1", n)
	}
}
