package main

import (
	"fmt"
	"runtime"
	"time"

	dragontoothmg "github.com/IlikeChooros/dragontoothmg"
	"github.com/spf13/cobra"

	"github.com/jacobjackson/sashimi/pkg/chessmcts"
	"github.com/jacobjackson/sashimi/pkg/mcts"
)

var (
	numThreads int
	moveTimeMs int
	benchCount int
	fenFlag    string
	plainFlag  bool

	rootCmd = &cobra.Command{
		Use:   "sashimi [command ...]",
		Short: "A UCI chess engine built on a parallel, transposition-aware MCTS",
		Long: `Sashimi is a chess engine speaking a reduced subset of the UCI
protocol. Run it with no arguments to start the UCI loop; any positional
arguments are injected as UCI commands before stdin is read, which makes
scripted sessions easy:

  sashimi "position startpos" "go movetime 1000"`,
		Args: cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			uciLoop(args)
		},
	}

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Measure raw playout throughput on the starting position",
		Run:   runBench,
	}

	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Search one position and stream live progress with an eval bar",
		Run:   runSearch,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVar(&numThreads, "threads", runtime.NumCPU(), "number of search worker threads")
	benchCmd.Flags().IntVar(&benchCount, "playouts", 200_000, "playouts to run per measurement")
	searchCmd.Flags().StringVar(&fenFlag, "fen", "", "position to search (FEN); the starting position if empty")
	searchCmd.Flags().IntVar(&moveTimeMs, "movetime", 2000, "think time in milliseconds")
	searchCmd.Flags().BoolVar(&plainFlag, "plain", false, "disable colored output")
	rootCmd.AddCommand(benchCmd, searchCmd)
}

func runBench(cmd *cobra.Command, args []string) {
	manager := chessmcts.NewUctSearch(chessmcts.NewStartingState(), searchLimits())
	nps := manager.PerfTest(benchCount)
	fmt.Printf("%.0f nodes per second (%d threads)\n", nps, numThreads)
	fmt.Print(manager.Diagnose())
}

func runSearch(cmd *cobra.Command, args []string) {
	state := chessmcts.NewStartingState()
	if fenFlag != "" {
		state = chessmcts.NewStateFromFen(fenFlag)
	}

	limits := searchLimits().SetMovetime(moveTimeMs)
	manager := chessmcts.NewSearch(state, limits)
	r := newRenderer(plainFlag)

	manager.Listener().
		OnDepth(func(stats mcts.ListenerTreeStats[dragontoothmg.Move]) {
			if len(stats.Lines) > 0 {
				fmt.Println(r.infoLine(stats))
			}
		}).
		OnStop(func(stats mcts.ListenerTreeStats[dragontoothmg.Move]) {
			if len(stats.Lines) > 0 {
				fmt.Println(r.infoLine(stats))
				fmt.Printf("bestmove %s\n", stats.Lines[0].BestMove.String())
			}
		})

	manager.Begin()
	time.Sleep(time.Duration(moveTimeMs) * time.Millisecond)
	manager.Halt()
	fmt.Print(manager.Diagnose())
}
