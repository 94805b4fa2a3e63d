// Package slab implements the frame-scoped bump allocator and the
// chunked append-only vector built on top of it. Every per-frame
// structure in the renderer (draw-state copies, triangle records,
// parameter buffers, tile-queue chunks) is carved out of one Arena and
// freed in bulk by Arena.Reset between frames.
package slab

import (
	"fmt"
	"sync/atomic"
)

// Arena is a fixed-size bump allocator. Alloc is lock-free but not
// wait-free: a compare-and-swap loop moves the bump pointer to the next
// align boundary plus the requested size rounded up to align, and retries
// when another Alloc moved the pointer first. Reset rewinds
// the bump pointer to the base; it must only be called between frames, once
// every borrow handed out by Alloc has been dropped by the caller.
type Arena struct {
	buf    []byte
	offset atomic.Int64
}

// NewArena allocates a size-byte arena up front.
func NewArena(size int) *Arena {
	return &Arena{buf: make([]byte, size)}
}

// Alloc reserves size bytes aligned to align (which must be a power of two)
// and returns a byte slice borrowed from the arena. It panics on overflow,
// matching the teacher's assertion-not-recovery error policy for
// programmer-visible capacity errors (spec §7: "slab overflow is an
// assertion").
func (a *Arena) Alloc(size, align int) []byte {
	for {
		cur := a.offset.Load()
		aligned := alignUp(cur, int64(align))
		next := aligned + alignUp(int64(size), int64(align))
		if next > int64(len(a.buf)) {
			panic(fmt.Sprintf("slab: out of space allocating %d bytes (align %d), arena size %d", size, align, len(a.buf)))
		}
		if a.offset.CompareAndSwap(cur, next) {
			end := aligned + int64(size)
			return a.buf[aligned:end:end]
		}
	}
}

func alignUp(v, align int64) int64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// Reset rewinds the bump pointer to the base of the arena. Not safe to call
// concurrently with Alloc; the caller (the render context's finish()) must
// ensure all frame-scoped borrows have been dropped first.
func (a *Arena) Reset() {
	a.offset.Store(0)
}

// Used reports how many bytes are currently allocated, for diagnostics.
func (a *Arena) Used() int { return int(a.offset.Load()) }

// Cap reports the arena's total capacity in bytes.
func (a *Arena) Cap() int { return len(a.buf) }
