// Package arena implements a concurrent chunked bump allocator that backs
// the search tree's nodes and edges for the lifetime of a single search.
//
// An Arena owns every chunk it hands out, behind one mutex. A
// per-goroutine Allocator bumps within its current chunk and only touches
// the Arena's lock when it needs a fresh one.
package arena

import (
	"sync"
	"unsafe"
)

// DefaultChunkSize is the size of a regular chunk (2 MiB).
const DefaultChunkSize = 1 << 21

// align is the alignment (in bytes) guaranteed for every allocation.
const align = 8

// Arena owns every chunk handed out to its allocators. Nothing is ever
// freed piecemeal: the whole arena, and everything allocated from it, is
// reclaimed together when the Arena becomes unreachable.
type Arena struct {
	mu     sync.Mutex
	chunks [][]byte
}

// New creates an empty Arena.
func New() *Arena {
	return &Arena{}
}

// alloc hands out a fresh chunk of exactly sz bytes and keeps it alive for
// the lifetime of the Arena.
func (a *Arena) alloc(sz int) []byte {
	buf := make([]byte, sz)
	a.mu.Lock()
	a.chunks = append(a.chunks, buf)
	a.mu.Unlock()
	return buf
}

// NumChunks reports how many chunks have been requested from the arena so
// far. Useful for diagnostics and tests; not part of the hot path.
func (a *Arena) NumChunks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.chunks)
}

// Allocator is a single goroutine's bump sub-allocator. It is NOT safe for
// concurrent use: each search worker owns exactly one Allocator. Only the
// rare chunk-exhaustion path touches the parent Arena's lock.
type Allocator struct {
	arena     *Arena
	chunkSize int
	memory    []byte
}

// NewAllocator creates a sub-allocator drawing chunks of chunkSize bytes
// from a. If chunkSize is 0, DefaultChunkSize is used.
func NewAllocator(a *Arena, chunkSize int) *Allocator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Allocator{
		arena:     a,
		chunkSize: chunkSize,
		memory:    a.alloc(chunkSize),
	}
}

// getMemory returns sz bytes of fresh storage, replenishing the current
// chunk (or falling back to a standalone allocation for oversize requests)
// as needed.
func (al *Allocator) getMemory(sz int) []byte {
	if sz <= len(al.memory) {
		left := al.memory[:sz:sz]
		al.memory = al.memory[sz:]
		return left
	}
	if sz > al.chunkSize {
		// Oversize request: never consumed from the bump chunk, so it
		// can't fragment future allocations.
		return al.arena.alloc(sz)
	}
	al.memory = al.arena.alloc(al.chunkSize)
	return al.getMemory(sz)
}

// paddedSize rounds n up to the next multiple of align.
func paddedSize(n int) int {
	if rem := n % align; rem != 0 {
		n += align - rem
	}
	return n
}

// AllocOne returns a pointer to a single zero-valued T, stable for the
// lifetime of the arena backing al.
func AllocOne[T any](al *Allocator) *T {
	var zero T
	sz := paddedSize(int(unsafe.Sizeof(zero)))
	if sz == 0 {
		sz = align
	}
	mem := al.getMemory(sz)
	return (*T)(unsafe.Pointer(unsafe.SliceData(mem)))
}

// AllocSlice returns a slice of n zero-valued Ts backed by contiguous
// arena storage, stable for the lifetime of the arena backing al.
func AllocSlice[T any](al *Allocator, n int) []T {
	if n == 0 {
		return nil
	}
	var zero T
	elemSize := paddedSize(int(unsafe.Sizeof(zero)))
	if elemSize == 0 {
		elemSize = align
	}
	mem := al.getMemory(elemSize * n)
	ptr := (*T)(unsafe.Pointer(unsafe.SliceData(mem)))
	return unsafe.Slice(ptr, n)
}
