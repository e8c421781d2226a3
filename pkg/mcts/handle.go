package mcts

import (
	"math/rand"
	"unsafe"

	"github.com/jacobjackson/sashimi/pkg/arena"
)

// ThreadData is the per-worker scratch a playout needs: its own arena
// sub-allocator (never shared; see pkg/arena) and its own policy RNG (for
// UCTPolicy/AlphaGoPolicy's reservoir-sampling tie break). One ThreadData
// is created per search worker and reused across all of that worker's
// playouts.
type ThreadData[M MoveLike, E any, ND any] struct {
	Allocator *arena.Allocator
	PolicyRNG *rand.Rand
}

// NewThreadData creates thread-local data drawing chunks of chunkSize
// bytes from a and seeding its policy RNG from seed.
func NewThreadData[M MoveLike, E any, ND any](a *arena.Arena, chunkSize int, seed int64) *ThreadData[M, E, ND] {
	return &ThreadData[M, E, ND]{
		Allocator: arena.NewAllocator(a, chunkSize),
		PolicyRNG: rand.New(rand.NewSource(seed)),
	}
}

// NodeHandle is an opaque, stable reference to a node reached during
// search. Safe to read concurrently with ongoing playouts.
type NodeHandle[M MoveLike, E any, ND any] struct {
	node *SearchNode[M, E, ND]
}

// Moves returns the node's edges.
func (h NodeHandle[M, E, ND]) Moves() Moves[M, E, ND] { return h.node.Moves() }

// Data returns the node's domain-extensible data.
func (h NodeHandle[M, E, ND]) Data() ND { return h.node.Data() }

// Eval returns the node's evaluation.
func (h NodeHandle[M, E, ND]) Eval() E { return h.node.Eval() }

// Raw exposes the node handle as an untyped pointer, so it can be stashed
// outside the search's normal lifetime-scoped API (e.g. to cross-reference
// an opening-book entry against a previously-visited node). Pair with
// NodeHandleFromRaw. The pointer is only valid for the lifetime of the
// SearchTree that produced it.
func (h NodeHandle[M, E, ND]) Raw() unsafe.Pointer { return unsafe.Pointer(h.node) }

// NodeHandleFromRaw reconstructs a NodeHandle from a pointer previously
// produced by Raw. The caller is responsible for ensuring ptr actually
// came from a node of this same instantiation and tree.
func NodeHandleFromRaw[M MoveLike, E any, ND any](ptr unsafe.Pointer) NodeHandle[M, E, ND] {
	return NodeHandle[M, E, ND]{node: (*SearchNode[M, E, ND])(ptr)}
}

// Handle is passed to evaluator and tree-policy hooks during a playout. It
// exposes thread-local scratch data and the ancestor path walked so far.
type Handle[M MoveLike, E any, ND any] struct {
	tld       *ThreadData[M, E, ND]
	path      []*SearchNode[M, E, ND]
	policy    TreePolicy[M, E, ND]
	evaluator Evaluator[M, E, ND]
}

// ThreadDataOf returns the handle's thread-local scratch.
func (h *Handle[M, E, ND]) ThreadDataOf() *ThreadData[M, E, ND] { return h.tld }

// Depth returns how many edges have been traversed so far on this playout;
// 0 means we're still at the root.
func (h *Handle[M, E, ND]) Depth() int { return len(h.path) }

// NthParent returns the n-th ancestor on the current path counting back
// from the current node (n=0 is the current node itself).
func (h *Handle[M, E, ND]) NthParent(n int) (NodeHandle[M, E, ND], bool) {
	if n >= len(h.path) {
		return NodeHandle[M, E, ND]{}, false
	}
	return NodeHandle[M, E, ND]{node: h.path[len(h.path)-n-1]}, true
}

// Node returns the current node on the playout path.
func (h *Handle[M, E, ND]) Node() (NodeHandle[M, E, ND], bool) { return h.NthParent(0) }

// Parent returns the current node's parent, if any.
func (h *Handle[M, E, ND]) Parent() (NodeHandle[M, E, ND], bool) { return h.NthParent(1) }

// Grandparent returns the current node's grandparent, if any.
func (h *Handle[M, E, ND]) Grandparent() (NodeHandle[M, E, ND], bool) { return h.NthParent(2) }

// TreePolicyOf returns the search's tree policy.
func (h *Handle[M, E, ND]) TreePolicyOf() TreePolicy[M, E, ND] { return h.policy }

// EvaluatorOf returns the search's evaluator.
func (h *Handle[M, E, ND]) EvaluatorOf() Evaluator[M, E, ND] { return h.evaluator }
