package mcts

import (
	"testing"
	"time"
)

func TestLimiterSingleLimits(t *testing.T) {
	l := newLimiter(32)
	l.reset()

	if !l.Ok(1_000_000) {
		t.Error("default limiter should search infinitely")
	}

	l.SetLimits(DefaultLimits().SetNodes(100))
	l.reset()
	if ok := l.Ok(101); ok {
		t.Errorf("<Nodes=%d: ok=%v, want=%v", 101, ok, !ok)
	}
	if l.StopReason()&StopNodes == 0 {
		t.Errorf("stop reason = %v, want Nodes", l.StopReason())
	}
	if ok := l.Ok(99); !ok {
		t.Errorf(">Nodes=%d: ok=%v, want=%v", 99, ok, !ok)
	}

	l.SetLimits(DefaultLimits().SetByteSize(10 * 32))
	l.reset()
	if ok := l.Ok(11); ok {
		t.Errorf("<Size=%d nodes: ok=%v, want=%v", 11, ok, !ok)
	}
	if ok := l.Ok(9); !ok {
		t.Errorf(">Size=%d nodes: ok=%v, want=%v", 9, ok, !ok)
	}

	l.SetLimits(DefaultLimits().SetMovetime(100))
	l.reset()
	time.Sleep(time.Millisecond * 101)
	if ok := l.Ok(1); ok {
		t.Errorf("<Movetime: ok=%v, want=%v", ok, !ok)
	}
	if l.StopReason()&StopMovetime == 0 {
		t.Errorf("stop reason = %v, want Movetime", l.StopReason())
	}

	l.reset()
	if ok := l.Ok(1); !ok {
		t.Errorf(">Movetime: ok=%v, want=%v", ok, !ok)
	}
}

func TestLimiterStopFlag(t *testing.T) {
	l := newLimiter(32)
	l.reset()

	l.SetStop(true)
	if l.Ok(1) {
		t.Error("limiter ignored the stop flag")
	}
	if l.StopReason()&StopInterrupt == 0 {
		t.Errorf("stop reason = %v, want Interrupt", l.StopReason())
	}

	l.reset()
	if !l.Ok(1) {
		t.Error("reset didn't clear the stop flag")
	}
}

func TestStopReasonString(t *testing.T) {
	if s := StopNone.String(); s != "None" {
		t.Errorf("StopNone = %q", s)
	}
	if s := (StopMovetime | StopNodes).String(); s != "Movetime|Nodes" {
		t.Errorf("Movetime|Nodes = %q", s)
	}
}
