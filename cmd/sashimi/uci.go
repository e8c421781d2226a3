package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	dragontoothmg "github.com/IlikeChooros/dragontoothmg"

	"github.com/jacobjackson/sashimi/pkg/chessmcts"
	"github.com/jacobjackson/sashimi/pkg/mcts"
)

const (
	engineName   = "Sashimi"
	engineAuthor = "Jacob Jackson"

	// timeupCmd is the internal command a think-time timer injects into the
	// UCI command stream; it carries the position number it was armed for so
	// a stale timer can't stop a search of a newer position.
	timeupCmd = "timeup"

	defaultMoveTime = 10 * time.Second
)

// uciLoop runs the engine's reduced UCI protocol over stdin/stdout. Both
// stdin lines and internally-generated commands (think-time expiry) flow
// through one channel, so the loop itself stays single-threaded. seed
// commands are processed before stdin is read, letting the CLI replay a
// scripted session (e.g. `sashimi "position startpos" "go movetime 100"`).
func uciLoop(seed []string) {
	commands := make(chan string, 16+len(seed))
	for _, cmd := range seed {
		commands <- cmd
	}
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			commands <- scanner.Text()
		}
		commands <- "quit"
	}()

	search := newUciSearch()
	var positionNum uint64

	for line := range commands {
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "uci":
			fmt.Printf("id name %s\n", engineName)
			fmt.Printf("id author %s\n", engineAuthor)
			fmt.Println("uciok")
		case "isready":
			fmt.Println("readyok")
		case "setoption":
			// No options yet.
		case "ucinewgame":
			positionNum++
		case "position":
			positionNum++
			state, ok := stateFromTokens(tokens[1:])
			if !ok {
				fmt.Fprintf(os.Stderr, "couldn't parse '%s' as position\n", line)
				continue
			}
			search.setPosition(state)
		case "go":
			search.beginSearch(tokens[1:], positionNum, commands)
		case "stop":
			search.stopAndPrint()
		case timeupCmd:
			if len(tokens) > 1 {
				if old, err := strconv.ParseUint(tokens[1], 10, 64); err == nil && old == positionNum {
					search.stopAndPrint()
				}
			}
		case "n/s":
			search.nodesPerSec()
		case "quit":
			search.halt()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s (this engine uses a reduced set of commands from the UCI protocol)\n", tokens[0])
		}
	}
}

// stateFromTokens parses the operand of a UCI "position" command:
// either "startpos [moves ...]" or "fen <6 fields> [moves ...]".
func stateFromTokens(tokens []string) (*chessmcts.State, bool) {
	if len(tokens) == 0 {
		return nil, false
	}
	var state *chessmcts.State
	rest := tokens[1:]
	switch tokens[0] {
	case "startpos":
		state = chessmcts.NewStartingState()
	case "fen":
		if len(rest) < 6 {
			return nil, false
		}
		state = chessmcts.NewStateFromFen(strings.Join(rest[:6], " "))
		rest = rest[6:]
	default:
		return nil, false
	}
	if len(rest) > 0 && rest[0] == "moves" {
		for _, mv := range rest[1:] {
			found := false
			for _, legal := range state.AvailableMoves() {
				if legal.String() == mv {
					state.MakeMove(legal)
					found = true
					break
				}
			}
			if !found {
				return nil, false
			}
		}
	}
	return state, true
}

// uciSearch owns the manager behind the UCI loop and the think-time
// bookkeeping around it.
type uciSearch struct {
	manager *chessmcts.Manager
	threads int
}

func newUciSearch() *uciSearch {
	return &uciSearch{
		manager: chessmcts.NewSearch(chessmcts.NewStartingState(), searchLimits()),
		threads: numThreads,
	}
}

func searchLimits() *mcts.Limits {
	return chessmcts.DefaultSearchLimits().SetThreads(numThreads)
}

func (s *uciSearch) setPosition(state *chessmcts.State) {
	s.halt()
	s.manager = chessmcts.NewSearch(state, searchLimits())
}

func (s *uciSearch) halt() {
	s.manager.Halt()
}

// stopAndPrint halts any running search, reports the best line in UCI
// terms, and resets the manager for the next go.
func (s *uciSearch) stopAndPrint() {
	running := s.manager.Mode() == mcts.Running
	s.manager.Halt()
	if !running {
		return
	}
	if mv, ok := s.manager.BestMove(); ok {
		fmt.Println(infoString(s.manager))
		fmt.Printf("bestmove %s\n", mv.String())
	}
	s.manager.Reset(chessmcts.NewTable(s.manager.Limits().Nodes))
}

func infoString(m *chessmcts.Manager) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d score cp %d pv", m.Tree().Stats().NumNodes(), scoreCp(m))
	for _, mv := range m.PrincipalVariation(10) {
		fmt.Fprintf(&sb, " %s", mv.String())
	}
	return sb.String()
}

// scoreCp converts the root's best edge statistics into a centipawn score.
func scoreCp(m *chessmcts.Manager) int64 {
	info := m.PrincipalVariationInfo(1)
	if len(info) == 0 || info[0].Visits() == 0 {
		return 0
	}
	return info[0].SumRewards() / info[0].Visits() / (chessmcts.Scale / 100)
}

// beginSearch starts an async search and arms a think-time timer unless
// the caller asked for an infinite search.
func (s *uciSearch) beginSearch(tokens []string, positionNum uint64, commands chan<- string) {
	s.stopAndPrint()

	thinkTime := defaultMoveTime
	infinite := false
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "movetime":
			if i+1 < len(tokens) {
				if ms, err := strconv.Atoi(tokens[i+1]); err == nil {
					thinkTime = time.Duration(ms) * time.Millisecond
				}
				i++
			}
		case "infinite":
			infinite = true
		}
	}

	s.manager.Begin()
	if !infinite {
		go func() {
			time.Sleep(thinkTime)
			commands <- fmt.Sprintf("%s %d", timeupCmd, positionNum)
		}()
	}
}

// nodesPerSec resets the tree and measures raw playout throughput,
// reporting to stderr so it doesn't pollute the protocol stream.
func (s *uciSearch) nodesPerSec() {
	s.stopAndPrint()
	s.manager.Reset(chessmcts.NewTable(s.manager.Limits().Nodes))
	nps := s.manager.PerfTest(100_000)
	fmt.Fprintf(os.Stderr, "%.0f nodes per second\n", nps)
	s.manager.Reset(chessmcts.NewTable(s.manager.Limits().Nodes))
}

func moveString(mvs []dragontoothmg.Move) string {
	parts := make([]string, len(mvs))
	for i := range mvs {
		parts[i] = mvs[i].String()
	}
	return strings.Join(parts, " ")
}
