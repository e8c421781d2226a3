package mcts

import (
	"encoding/json"
	"math"
	"strings"
)

// Limits bounds a search: how long it may run and how it behaves while
// running. Every stopping condition is optional: DefaultLimits leaves each
// one unbounded (Nodes at DefaultNodeLimit, Movetime and ByteSize at -1),
// and a Movetime of zero or less arms no deadline. Infinite stays true
// until a bound is set through SetNodes, SetMovetime or SetByteSize; while
// it is true the limiter applies no node ceiling.
type Limits struct {
	Nodes    uint32
	Movetime int
	Infinite bool
	NThreads int
	ByteSize int64
	MultiPv  int

	// VirtualLoss is the per-descent penalty applied to a node's stats and
	// undone on backprop, used to decorrelate concurrent playouts.
	VirtualLoss int64
	// VisitsBeforeExpansion is how many visits a node must already have
	// had before a playout descends through it to its children; until
	// then a playout reaching the node stops there and backs up the
	// node's evaluation.
	VisitsBeforeExpansion int32
	// MaxPlayoutLength bounds a single playout's depth, a last-resort
	// guard against runaway cyclic descents regardless of the tree's
	// CycleBehaviour.
	MaxPlayoutLength int
	// ChunkSize is the arena chunk size each search worker's allocator
	// requests; 0 selects pkg/arena's default.
	ChunkSize int
}

func (l Limits) String() string {
	builder := strings.Builder{}
	_ = json.NewEncoder(&builder).Encode(l)
	return builder.String()
}

const (
	DefaultNodeLimit     uint32 = math.MaxInt32*2 + 1
	DefaultMovetimeLimit int    = -1
	DefaultByteSizeLimit int64  = -1
)

// DefaultLimits returns the conservative defaults: effectively unbounded
// node count, single-threaded, no time limit, minimal virtual loss.
func DefaultLimits() *Limits {
	return &Limits{
		Nodes:                 DefaultNodeLimit,
		Movetime:              DefaultMovetimeLimit,
		Infinite:              true,
		NThreads:              1,
		ByteSize:              DefaultByteSizeLimit,
		MultiPv:               1,
		VirtualLoss:           1,
		VisitsBeforeExpansion: 1,
		MaxPlayoutLength:      1024,
	}
}

// SetNodes sets the maximum number of nodes the tree may grow to.
func (l *Limits) SetNodes(nodes uint32) *Limits {
	l.Nodes = nodes
	l.Infinite = false
	return l
}

// SetMovetime sets the maximum time (in milliseconds) the search may run.
func (l *Limits) SetMovetime(movetime int) *Limits {
	l.Movetime = movetime
	l.Infinite = false
	return l
}

func (l *Limits) SetInfinite(infinite bool) {
	l.Infinite = infinite
}

func (l *Limits) SetThreads(threads int) *Limits {
	l.NThreads = max(threads, 1)
	return l
}

func (l *Limits) SetMultiPv(multipv int) *Limits {
	l.MultiPv = max(1, multipv)
	return l
}

func (l *Limits) SetMbSize(mbsize int) *Limits {
	return l.SetByteSize(int64(mbsize) * (1 << 20))
}

func (l *Limits) SetByteSize(bytesize int64) *Limits {
	l.ByteSize = bytesize
	l.Infinite = false
	return l
}

func (l *Limits) InfiniteSize() bool {
	return l.ByteSize == DefaultByteSizeLimit
}

func (l *Limits) SetVirtualLoss(vl int64) *Limits {
	l.VirtualLoss = vl
	return l
}

func (l *Limits) SetVisitsBeforeExpansion(n int32) *Limits {
	l.VisitsBeforeExpansion = n
	return l
}

func (l *Limits) SetMaxPlayoutLength(n int) *Limits {
	l.MaxPlayoutLength = n
	return l
}

func (l *Limits) SetChunkSize(n int) *Limits {
	l.ChunkSize = n
	return l
}
