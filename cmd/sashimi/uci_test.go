package main

import "testing"

func TestStateFromTokens(t *testing.T) {
	if _, ok := stateFromTokens(nil); ok {
		t.Error("empty position parsed")
	}
	if _, ok := stateFromTokens([]string{"gibberish"}); ok {
		t.Error("gibberish position parsed")
	}

	s, ok := stateFromTokens([]string{"startpos"})
	if !ok {
		t.Fatal("startpos didn't parse")
	}
	if got := len(s.AvailableMoves()); got != 20 {
		t.Errorf("startpos has %d moves, want 20", got)
	}

	s, ok = stateFromTokens([]string{"startpos", "moves", "e2e4", "e7e5"})
	if !ok {
		t.Fatal("startpos with moves didn't parse")
	}
	if s.CurrentPlayer() != 1 {
		t.Error("white isn't to move after e2e4 e7e5")
	}

	if _, ok = stateFromTokens([]string{"startpos", "moves", "e2e5"}); ok {
		t.Error("illegal move accepted")
	}

	s, ok = stateFromTokens([]string{"fen", "6k1/8/6K1/8/8/8/8/R7", "w", "-", "-", "0", "0"})
	if !ok {
		t.Fatal("fen position didn't parse")
	}
	if s.Board().Wtomove != true {
		t.Error("fen side to move wrong")
	}
}

func TestEvalBarClamps(t *testing.T) {
	r := newRenderer(true)
	for _, pawns := range []float64{-100, -5, 0, 5, 100} {
		bar := r.evalBar(pawns)
		if len([]rune(bar)) != evalBarWidth+2 {
			t.Errorf("eval bar for %v has width %d, want %d", pawns, len([]rune(bar)), evalBarWidth+2)
		}
	}
}
