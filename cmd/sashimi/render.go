package main

import (
	"fmt"
	"os"
	"strings"

	dragontoothmg "github.com/IlikeChooros/dragontoothmg"
	"github.com/muesli/termenv"

	"github.com/jacobjackson/sashimi/pkg/chessmcts"
	"github.com/jacobjackson/sashimi/pkg/mcts"
)

// evalBarWidth is the character width of the rendered eval bar, not
// counting its brackets.
const evalBarWidth = 21

// evalBarRange is the pawn advantage at which the bar saturates.
const evalBarRange = 5.0

// renderer formats live search output, degrading gracefully to plain text
// when the terminal reports no color support (or the user asked for none).
type renderer struct {
	out *termenv.Output
}

func newRenderer(plain bool) *renderer {
	opts := []termenv.OutputOption{}
	if plain {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	return &renderer{out: termenv.NewOutput(os.Stdout, opts...)}
}

// infoLine renders one live progress line: eval bar, numeric eval in
// pawns, depth/speed counters and the principal variation.
func (r *renderer) infoLine(stats mcts.ListenerTreeStats[dragontoothmg.Move]) string {
	line := stats.Lines[0]
	pawns := line.Eval / float64(chessmcts.Scale)

	var sb strings.Builder
	sb.WriteString(r.evalBar(pawns))
	fmt.Fprintf(&sb, " %+.2f", pawns)
	if line.Terminal {
		sb.WriteString(r.out.String(" mate").Foreground(r.out.Color("1")).String())
	}
	fmt.Fprintf(&sb, " depth %d cps %d pv %s", stats.Maxdepth, stats.Cps, moveString(line.Moves))
	return sb.String()
}

// evalBar draws a fixed-width bar whose filled region grows with the
// advantage of the side to move at the root (the perspective of the root
// edge's average reward), clamped to ±evalBarRange pawns.
func (r *renderer) evalBar(pawns float64) string {
	frac := (pawns + evalBarRange) / (2 * evalBarRange)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac*float64(evalBarWidth) + 0.5)

	white := r.out.String(strings.Repeat("█", filled)).Foreground(r.out.Color("7"))
	black := r.out.String(strings.Repeat("░", evalBarWidth-filled)).Foreground(r.out.Color("8"))
	return "[" + white.String() + black.String() + "]"
}
