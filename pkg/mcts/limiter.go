package mcts

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// StopReason records why a search halted, as a bitmask: more than one
// condition can be true simultaneously (e.g. the deadline and the stop
// signal can both fire on the same poll).
type StopReason int

const StopNone StopReason = 0

const (
	StopInterrupt StopReason = 1 << iota
	StopMovetime
	StopMemory
	StopNodes
)

func (sr StopReason) String() string {
	if sr == StopNone {
		return "None"
	}
	reasons := []struct {
		flag StopReason
		name string
	}{
		{StopInterrupt, "Interrupt"},
		{StopMovetime, "Movetime"},
		{StopMemory, "Memory"},
		{StopNodes, "Nodes"},
	}
	var result string
	for _, r := range reasons {
		if sr&r.flag == r.flag {
			if result != "" {
				result += "|"
			}
			result += r.name
		}
	}
	return result
}

// limiter tracks a search's wall-clock deadline and node-count ceiling,
// and holds the cooperative stop flag workers poll between playouts. The
// deadline is a start instant plus an optional duration, both rearmed by
// reset at the start of every search.
type limiter struct {
	limits   *Limits
	nodeSize uint32
	maxNodes uint32
	start    time.Time
	deadline time.Duration
	stop     atomic.Bool
	reason   StopReason
	ctx      context.Context
}

func newLimiter(nodeSize uint32) *limiter {
	return &limiter{
		limits:   DefaultLimits(),
		nodeSize: nodeSize,
		start:    time.Now(),
		ctx:      context.Background(),
	}
}

// reset prepares the limiter for a fresh search: clears the stop flag and
// reason, rearms the deadline from Limits.Movetime, and recomputes the
// effective node ceiling from whichever of Nodes/ByteSize is tighter.
func (l *limiter) reset() {
	l.start = time.Now()
	l.deadline = 0
	if l.limits.Movetime > 0 {
		l.deadline = time.Duration(l.limits.Movetime) * time.Millisecond
	}
	l.stop.Store(false)
	l.reason = StopNone

	l.maxNodes = l.limits.Nodes
	if l.limits.ByteSize != DefaultByteSizeLimit && l.nodeSize > 0 {
		byMemory := uint32(l.limits.ByteSize) / l.nodeSize
		if byMemory < l.maxNodes {
			l.maxNodes = byMemory
		}
	}
	if l.limits.Infinite {
		l.maxNodes = math.MaxUint32
	}
}

func (l *limiter) SetContext(ctx context.Context) { l.ctx = ctx }
func (l *limiter) SetStop(v bool)                 { l.stop.Store(v) }

// Stop reports whether the search should halt, consulting both the
// explicit flag and the context's cancellation.
func (l *limiter) Stop() bool {
	select {
	case <-l.ctx.Done():
		l.stop.Store(true)
	default:
	}
	return l.stop.Load()
}

func (l *limiter) SetLimits(limits *Limits) { l.limits = limits }
func (l *limiter) Limits() *Limits          { return l.limits }

// timeUp reports whether a deadline was armed and has passed.
func (l *limiter) timeUp() bool {
	return l.deadline > 0 && time.Since(l.start) >= l.deadline
}

// Elapsed returns milliseconds since the last reset, never less than 1 so
// it can serve as a division denominator.
func (l *limiter) Elapsed() uint32 {
	return uint32(max(int(time.Since(l.start).Milliseconds()), 1))
}

// Ok reports whether the search may continue given the current node
// count; it also evaluates (and caches) the stop reason as a side effect,
// since computing it twice per poll is wasted work.
func (l *limiter) Ok(numNodes uint32) bool {
	reason := StopNone
	if l.Stop() {
		reason |= StopInterrupt
	}
	if l.timeUp() {
		reason |= StopMovetime
	}
	if numNodes >= l.maxNodes {
		reason |= StopNodes
	}
	l.reason = reason
	return reason == StopNone
}

func (l *limiter) StopReason() StopReason { return l.reason }
