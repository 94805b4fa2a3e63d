package slab

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// BucketSize is the number of entries per lazily-allocated bucket.
const BucketSize = 64

// MaxBuckets bounds how many buckets a single ChunkedArray can grow to;
// with BucketSize entries each this caps one tile's queue at a large but
// finite number of triangles per frame.
const MaxBuckets = 1024

// ChunkedArray is an append-only, wait-free-on-the-common-path vector of T,
// one per screen tile. Many goroutines append to it concurrently during
// triangle binning; a single goroutine later sorts and iterates it during
// tile fill.
//
// Append is wait-free: the slot index comes from an atomic fetch-add. Only
// the rare case of being the first append to land in a new bucket needs to
// allocate; races on that allocation are resolved with a CAS on the bucket
// pointer rather than a lock, matching the design note that the arena
// tolerates wasted speculative allocations. Bucket storage is an ordinary
// Go slice (not a byte-arena-backed unsafe cast): T may hold pointers (a
// Triangle holds a *DrawState), and punning pointer-containing structs into
// an untyped byte arena would hide live references from the garbage
// collector. The source's raw memory arena is therefore re-expressed as a
// typed, per-bucket allocation instead of being ported literally.
type ChunkedArray[T any] struct {
	size    atomic.Int64
	buckets [MaxBuckets]atomic.Pointer[[BucketSize]T]
}

// NewChunkedArray returns an empty array.
func NewChunkedArray[T any]() *ChunkedArray[T] {
	return &ChunkedArray[T]{}
}

// Append reserves the next slot and stores v into it, returning the index
// it was stored at.
func (c *ChunkedArray[T]) Append(v T) int {
	idx := int(c.size.Add(1)) - 1
	bucketIdx := idx / BucketSize
	if bucketIdx >= MaxBuckets {
		panic(fmt.Sprintf("slab: chunked array exceeded %d buckets (%d entries)", MaxBuckets, idx))
	}
	bucket := c.ensureBucket(bucketIdx)
	bucket[idx%BucketSize] = v
	return idx
}

func (c *ChunkedArray[T]) ensureBucket(i int) *[BucketSize]T {
	if b := c.buckets[i].Load(); b != nil {
		return b
	}
	// Speculatively allocate; racing here just wastes one bucket's worth
	// of memory for the loser rather than blocking anyone, same tradeoff
	// as the lazy-allocation-under-CAS design note.
	candidate := new([BucketSize]T)
	if c.buckets[i].CompareAndSwap(nil, candidate) {
		return candidate
	}
	return c.buckets[i].Load()
}

// Len returns the number of appended elements.
func (c *ChunkedArray[T]) Len() int { return int(c.size.Load()) }

// At returns the element at index i.
func (c *ChunkedArray[T]) At(i int) T {
	b := c.buckets[i/BucketSize].Load()
	return b[i%BucketSize]
}

// Set overwrites the element at index i.
func (c *ChunkedArray[T]) Set(i int, v T) {
	b := c.buckets[i/BucketSize].Load()
	b[i%BucketSize] = v
}

// SortBy sorts the array's current elements using less, in place.
// Single-bucket arrays get a direct sort; multi-bucket arrays fall back to
// an exchange sort across buckets (O(n^2)), since tile queues are expected
// to hold at most a few dozen triangles and the across-bucket case is rare.
func (c *ChunkedArray[T]) SortBy(less func(a, b T) bool) {
	n := c.Len()
	if n <= 1 {
		return
	}
	if n <= BucketSize {
		b := c.buckets[0].Load()
		s := b[:n]
		sort.Slice(s, func(i, j int) bool { return less(s[i], s[j]) })
		return
	}
	for i := 0; i < n-1; i++ {
		for j := 0; j < n-1-i; j++ {
			if less(c.At(j+1), c.At(j)) {
				a, b := c.At(j), c.At(j+1)
				c.Set(j, b)
				c.Set(j+1, a)
			}
		}
	}
}

// Reset clears the logical length and releases bucket memory for GC. Must
// only be called once all readers for the frame have finished.
func (c *ChunkedArray[T]) Reset() {
	c.size.Store(0)
	for i := range c.buckets {
		c.buckets[i].Store(nil)
	}
}
