package mcts

import (
	"fmt"
	"os"
	"testing"
	"time"
)

const branchFactor = 4

// A dummy game for exercising the search: a fixed-branching tree of
// configurable depth, where the evaluation of every state is supplied by a
// closure. Fingerprints hash the full move sequence, so distinct paths
// never transpose.
type lineState struct {
	depth    int
	maxDepth int
	first    int
	player   int8
	hash     uint64
}

func newLineState(maxDepth int) *lineState {
	return &lineState{maxDepth: maxDepth, first: -1, player: 1, hash: 14695981039346656037}
}

func (s *lineState) CurrentPlayer() int8 { return s.player }

func (s *lineState) AvailableMoves() []int {
	if s.depth >= s.maxDepth {
		return nil
	}
	moves := make([]int, branchFactor)
	for i := range moves {
		moves[i] = i
	}
	return moves
}

func (s *lineState) MakeMove(m int) {
	if s.first == -1 {
		s.first = m
	}
	s.hash = s.hash*1099511628211 ^ uint64(m+1)
	s.depth++
	s.player = -s.player
}

func (s *lineState) Clone() State[int] {
	c := *s
	return &c
}

func (s *lineState) Fingerprint() uint64 { return s.hash }

// funcEval adapts a closure into an Evaluator with uniform priors.
type funcEval struct {
	fn func(State[int]) int64
}

func (e funcEval) EvaluateNewState(state State[int], moves []int, _ *Handle[int, int64, struct{}]) ([]float32, int64, struct{}) {
	priors := make([]float32, len(moves))
	if len(moves) > 0 {
		u := float32(1) / float32(len(moves))
		for i := range priors {
			priors[i] = u
		}
	}
	return priors, e.fn(state), struct{}{}
}

func (e funcEval) EvaluateExistingState(_ State[int], priorEval int64, _ *Handle[int, int64, struct{}]) int64 {
	return priorEval
}

func (e funcEval) InterpretEvaluationForPlayer(eval int64, player int8) int64 {
	return eval * int64(player)
}

func (e funcEval) OnBackpropagation(int64, *Handle[int, int64, struct{}]) {}

// firstMoveEval rewards any state whose game started with move 0.
var firstMoveEval = funcEval{fn: func(s State[int]) int64 {
	if s.(*lineState).first == 0 {
		return 100
	}
	return 0
}}

func constEval(v int64) funcEval {
	return funcEval{fn: func(State[int]) int64 { return v }}
}

func newLineManager(maxDepth int, eval funcEval, limits *Limits) *SearchManager[int, int64, struct{}] {
	return NewSearchManager[int, int64, struct{}](
		newLineState(maxDepth),
		NewUCTPolicy[int, int64, struct{}](),
		eval,
		EnoughToHold[int, int64, struct{}](1<<12),
		limits,
	)
}

func TestMain(m *testing.M) {
	SetSeedGeneratorFn(func() int64 {
		return 42
	})
	fmt.Printf("Using seed %d\n", SeedGeneratorFn()())

	os.Exit(m.Run())
}

func TestSearchFindsBestMove(t *testing.T) {
	manager := newLineManager(3, firstMoveEval, nil)
	manager.PlayoutN(2000)

	mv, ok := manager.BestMove()
	if !ok {
		t.Fatal("no best move after search")
	}
	if mv != 0 {
		t.Errorf("best move = %d, want 0", mv)
	}
	t.Log(manager.Diagnose())
}

func TestNodeLimitOne(t *testing.T) {
	manager := newLineManager(3, firstMoveEval, DefaultLimits().SetNodes(1))

	if ran := manager.PlayoutN(10); ran != 0 {
		t.Errorf("ran %d playouts with a node limit of 1, want 0", ran)
	}
	if n := manager.Tree().Stats().NumNodes(); n != 1 {
		t.Errorf("num nodes = %d, want 1 (just the root)", n)
	}
}

func TestTerminalRoot(t *testing.T) {
	manager := newLineManager(0, constEval(0), nil)
	manager.PlayoutN(3)

	if _, ok := manager.BestMove(); ok {
		t.Error("terminal root reported a best move")
	}
	if pv := manager.PrincipalVariation(5); len(pv) != 0 {
		t.Errorf("terminal root has pv of length %d, want 0", len(pv))
	}
}

func TestHaltIdempotent(t *testing.T) {
	manager := newLineManager(4, firstMoveEval, DefaultLimits().SetNodes(2000).SetThreads(2))

	// Halting an idle manager is a no-op.
	manager.Halt()
	if manager.Mode() != Idle {
		t.Fatal("halting an idle manager changed its mode")
	}

	if !manager.Begin() {
		t.Fatal("Begin refused on an idle manager")
	}
	deadline := time.Now().Add(5 * time.Second)
	for manager.Tree().Stats().NumNodes() < 100 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	manager.Halt()
	manager.Halt()
	if manager.Mode() != Idle {
		t.Fatal("manager not idle after double halt")
	}
	if n := manager.Tree().Stats().NumNodes(); n <= 1 {
		t.Errorf("num nodes = %d after parallel search, want > 1", n)
	}
}

func TestResetStructurallyEquivalent(t *testing.T) {
	manager := newLineManager(3, firstMoveEval, nil)
	before := manager.Tree().RootNode().Moves()
	priors := make([]float32, before.Len())
	for i := range priors {
		priors[i] = before.At(i).Prior()
	}

	manager.PlayoutN(500)
	manager.Reset(EnoughToHold[int, int64, struct{}](1 << 12))

	if n := manager.Tree().Stats().NumNodes(); n != 1 {
		t.Errorf("num nodes after reset = %d, want 1", n)
	}
	after := manager.Tree().RootNode().Moves()
	if after.Len() != len(priors) {
		t.Fatalf("root move count changed across reset: %d != %d", after.Len(), len(priors))
	}
	for i := range priors {
		e := after.At(i)
		if e.Prior() != priors[i] {
			t.Errorf("root prior %d changed across reset: %v != %v", i, e.Prior(), priors[i])
		}
		if e.Visits() != 0 {
			t.Errorf("root edge %d has %d visits after reset, want 0", i, e.Visits())
		}
	}
}

func TestPrincipalVariationDeterminism(t *testing.T) {
	run := func() []int {
		manager := newLineManager(4, firstMoveEval, nil)
		manager.PlayoutN(500)
		return manager.PrincipalVariation(10)
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("pv lengths differ across identical runs: %d != %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pv diverged at ply %d: %d != %d", i, a[i], b[i])
		}
	}
}

func TestVirtualLossNetEffect(t *testing.T) {
	manager := newLineManager(1, constEval(7), DefaultLimits().SetVirtualLoss(1000))
	manager.PlayoutN(1)

	moves := manager.Tree().RootNode().Moves()
	var visited []EdgeHandle[int, int64, struct{}]
	for i := 0; i < moves.Len(); i++ {
		if e := moves.At(i); e.Visits() > 0 {
			visited = append(visited, e)
		}
	}
	if len(visited) != 1 {
		t.Fatalf("one playout visited %d root edges, want 1", len(visited))
	}
	e := visited[0]
	if e.Visits() != 1 {
		t.Errorf("edge visits = %d, want 1 (virtual loss not undone)", e.Visits())
	}
	if e.SumRewards() != 7 {
		t.Errorf("edge sum = %d, want 7 (virtual loss residue left behind)", e.SumRewards())
	}
	child, ok := e.Child()
	if !ok {
		t.Fatal("visited edge has no child")
	}
	if child.Visits() != 1 || child.stats.SumRewards() != 7 {
		t.Errorf("child stats = (%d, %d), want (1, 7)", child.Visits(), child.stats.SumRewards())
	}
}

func TestNodeVisitsDominateEdgeVisits(t *testing.T) {
	manager := newLineManager(3, firstMoveEval, nil)
	manager.PlayoutN(1000)

	var walk func(n *SearchNode[int, int64, struct{}])
	seen := map[*SearchNode[int, int64, struct{}]]bool{}
	walk = func(n *SearchNode[int, int64, struct{}]) {
		if seen[n] {
			return
		}
		seen[n] = true
		moves := n.Moves()
		for i := 0; i < moves.Len(); i++ {
			e := moves.At(i)
			if int64(n.Visits()) < e.Visits() {
				t.Errorf("node visits %d < edge visits %d", n.Visits(), e.Visits())
			}
			if child, ok := e.Child(); ok {
				walk(child)
			}
		}
	}
	walk(manager.Tree().rootNode)
}

// A two-ply game whose fingerprint ignores move order, so the move
// sequences (0,1) and (1,0) describe the same position; no other two
// sequences share a fingerprint or a table bucket.
type transState struct {
	depth  int
	player int8
	hash   uint64
}

func (s *transState) CurrentPlayer() int8 { return s.player }

func (s *transState) AvailableMoves() []int {
	if s.depth >= 2 {
		return nil
	}
	return []int{0, 1}
}

func (s *transState) MakeMove(m int) {
	s.hash += 0x9e3779b97f4a7c15 * uint64(2*m+1)
	s.depth++
	s.player = -s.player
}

func (s *transState) Clone() State[int] {
	c := *s
	return &c
}

func (s *transState) Fingerprint() uint64 {
	return s.hash ^ uint64(s.depth)<<56
}

func TestTranspositionAliasing(t *testing.T) {
	manager := NewSearchManager[int, int64, struct{}](
		&transState{player: 1},
		NewUCTPolicy[int, int64, struct{}](),
		constEval(0),
		EnoughToHold[int, int64, struct{}](64),
		nil,
	)
	manager.PlayoutN(200)

	root := manager.Tree().RootNode().Moves()
	c0, ok0 := root.At(0).Child()
	c1, ok1 := root.At(1).Child()
	if !ok0 || !ok1 {
		t.Fatal("root children not expanded after 200 playouts")
	}
	e01 := c0.Moves().At(1)
	e10 := c1.Moves().At(0)
	g01, ok01 := e01.Child()
	g10, ok10 := e10.Child()
	if !ok01 || !ok10 {
		t.Fatal("transposing grandchildren not expanded after 200 playouts")
	}

	if g01 != g10 {
		t.Error("transposing paths resolved to distinct nodes")
	}
	if e01.Owned() == e10.Owned() {
		t.Errorf("owned flags = (%v, %v), want exactly one owner", e01.Owned(), e10.Owned())
	}
	if hits := manager.Tree().Stats().TranspositionHits(); hits != 1 {
		t.Errorf("transposition hits = %d, want 1", hits)
	}
}

// A game whose single move walks a 3-cycle of fingerprints.
type cycleState struct {
	v int
}

func (s *cycleState) CurrentPlayer() int8   { return 1 }
func (s *cycleState) AvailableMoves() []int { return []int{0} }
func (s *cycleState) MakeMove(int)          { s.v = (s.v + 1) % 3 }
func (s *cycleState) Fingerprint() uint64   { return uint64(s.v) }
func (s *cycleState) Clone() State[int] {
	c := *s
	return &c
}

func TestCycleUseFixedEval(t *testing.T) {
	manager := NewSearchManager[int, int64, struct{}](
		&cycleState{},
		NewUCTPolicy[int, int64, struct{}](),
		constEval(0),
		EnoughToHold[int, int64, struct{}](64),
		nil,
	)
	manager.SetCycleBehaviour(CycleBehaviour[int64]{Kind: CycleUseFixedEval, FixedEval: 42})

	if ran := manager.PlayoutN(10); ran != 10 {
		t.Fatalf("ran %d playouts, want 10", ran)
	}

	// The cycle closes after three created nodes (plus the root); nothing
	// past the cycle entry is ever created.
	if n := manager.Tree().Stats().NumNodes(); n != 4 {
		t.Errorf("num nodes = %d, want 4", n)
	}
	if dc := manager.Tree().Stats().DetectedCycles(); dc == 0 {
		t.Error("no cycles detected on a cyclic state graph")
	}

	e := manager.Tree().RootNode().Moves().At(0)
	if sum := e.SumRewards(); sum <= 0 || sum%42 != 0 {
		t.Errorf("root edge sum = %d, want a positive multiple of the fixed cycle eval", sum)
	}
}

// Like cycleState, but with the two players alternating moves, so
// backpropagation has to project evaluations per player along the path.
type twoPlayerCycleState struct {
	v      int
	player int8
}

func (s *twoPlayerCycleState) CurrentPlayer() int8   { return s.player }
func (s *twoPlayerCycleState) AvailableMoves() []int { return []int{0} }
func (s *twoPlayerCycleState) Fingerprint() uint64   { return uint64(s.v) }

func (s *twoPlayerCycleState) MakeMove(int) {
	s.v = (s.v + 1) % 3
	s.player = -s.player
}

func (s *twoPlayerCycleState) Clone() State[int] {
	c := *s
	return &c
}

func TestCycleFixedEvalProjectedPerPlayer(t *testing.T) {
	manager := NewSearchManager[int, int64, struct{}](
		&twoPlayerCycleState{player: 1},
		NewUCTPolicy[int, int64, struct{}](),
		constEval(0),
		EnoughToHold[int, int64, struct{}](64),
		nil,
	)
	manager.SetCycleBehaviour(CycleBehaviour[int64]{Kind: CycleUseFixedEval, FixedEval: 42})
	manager.PlayoutN(10)

	if dc := manager.Tree().Stats().DetectedCycles(); dc == 0 {
		t.Fatal("no cycles detected on a cyclic state graph")
	}

	// The fixed eval must be credited with the first player's sign at the
	// root edge and the second player's (flipped) sign one ply down.
	rootEdge := manager.Tree().RootNode().Moves().At(0)
	child, ok := rootEdge.Child()
	if !ok {
		t.Fatal("root edge has no child")
	}
	childEdge := child.Moves().At(0)

	if sum := rootEdge.SumRewards(); sum <= 0 || sum%42 != 0 {
		t.Errorf("root edge sum = %d, want a positive multiple of the fixed eval", sum)
	}
	if sum := childEdge.SumRewards(); sum >= 0 || sum%42 != 0 {
		t.Errorf("child edge sum = %d, want a negative multiple of the fixed eval", sum)
	}
	if rootEdge.SumRewards() != -childEdge.SumRewards() {
		t.Errorf("edge sums %d and %d aren't sign-symmetric across players",
			rootEdge.SumRewards(), childEdge.SumRewards())
	}
}

func TestCyclePanic(t *testing.T) {
	manager := NewSearchManager[int, int64, struct{}](
		&cycleState{},
		NewUCTPolicy[int, int64, struct{}](),
		constEval(0),
		EnoughToHold[int, int64, struct{}](64),
		nil,
	)
	manager.SetCycleBehaviour(CycleBehaviour[int64]{Kind: CyclePanic})

	defer func() {
		if recover() == nil {
			t.Error("no panic on a cyclic state graph with panic behaviour")
		}
	}()
	manager.PlayoutN(10)
}

// forceFirstHooks always forces edge 0 at the root and counts choices.
type forceFirstHooks struct {
	choices int
}

func (h *forceFirstHooks) NewPlayoutData() any { return nil }

func (h *forceFirstHooks) OverridePolicy(_ any, state State[int], moves Moves[int, int64, struct{}]) (EdgeHandle[int, int64, struct{}], bool) {
	if state.(*lineState).depth == 0 {
		return moves.At(0), true
	}
	return EdgeHandle[int, int64, struct{}]{}, false
}

func (h *forceFirstHooks) OnChoiceMade(_ any, _ State[int], _ Moves[int, int64, struct{}], _ EdgeHandle[int, int64, struct{}], _ *Handle[int, int64, struct{}]) {
	h.choices++
}

func TestPlayoutHooks(t *testing.T) {
	manager := newLineManager(2, constEval(0), nil)
	hooks := &forceFirstHooks{}
	if !manager.SetPlayoutHooks(hooks) {
		t.Fatal("SetPlayoutHooks refused on an idle manager")
	}
	manager.PlayoutN(50)

	moves := manager.Tree().RootNode().Moves()
	for i := 1; i < moves.Len(); i++ {
		if v := moves.At(i).Visits(); v != 0 {
			t.Errorf("root edge %d has %d visits despite the forced override", i, v)
		}
	}
	if moves.At(0).Visits() == 0 {
		t.Error("forced root edge was never visited")
	}
	if hooks.choices == 0 {
		t.Error("OnChoiceMade never invoked")
	}
}

func TestPerfTestReportsThroughput(t *testing.T) {
	manager := newLineManager(4, constEval(0), DefaultLimits().SetNodes(5000))
	if nps := manager.PerfTest(1000); nps <= 0 {
		t.Errorf("perf test reported %.0f nodes per second", nps)
	}
}

func TestPrincipalVariationStates(t *testing.T) {
	manager := newLineManager(3, firstMoveEval, nil)
	manager.PlayoutN(1000)

	pv := manager.PrincipalVariation(3)
	states := manager.PrincipalVariationStates(3)
	if len(states) != len(pv) {
		t.Fatalf("pv states length %d != pv length %d", len(states), len(pv))
	}
	for i, s := range states {
		if d := s.(*lineState).depth; d != i+1 {
			t.Errorf("pv state %d has depth %d, want %d", i, d, i+1)
		}
	}
}

func TestListenerOnStop(t *testing.T) {
	manager := newLineManager(4, firstMoveEval, DefaultLimits().SetNodes(3000).SetThreads(2))

	stops := 0
	manager.Listener().OnStop(func(stats ListenerTreeStats[int]) {
		stops++
		if len(stats.Lines) == 0 {
			t.Error("stop snapshot carries no lines")
		}
	})

	manager.Begin()
	time.Sleep(50 * time.Millisecond)
	manager.Halt()

	if stops != 1 {
		t.Errorf("OnStop fired %d times, want 1", stops)
	}
}
