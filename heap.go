// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memalloc implements a general-purpose heap allocator on top of
// raw OS page mappings: an in-band block header, an address-ordered
// physical list for coalescing, and a LIFO explicit free list searched
// first-fit. It is a from-scratch Go port of the classical single-arena
// C heap interface (malloc/free/calloc/realloc), not a wrapper around
// Go's own garbage-collected allocator.
package memalloc

import (
	"sync"
	"unsafe"
)

// heap is the process-wide allocator state: the two list heads plus the
// mutex that serializes every public operation. Its zero value is not
// ready for use; once lazily seeds it on the first public call.
type heap struct {
	mu   sync.Mutex
	once sync.Once

	blocks physList
	free   freeList
}

var global heap

// init lazily constructs the heap by acquiring one page-sized region and
// seeding both lists with it. Guarded by sync.Once so concurrent callers
// racing to be first never observe a half-built heap; a bare boolean
// flag checked before any lock exists would race here instead.
func (h *heap) init() {
	h.once.Do(func() {
		b := acquirePage(0)
		h.blocks.head, h.blocks.tail = b, b
		h.free.insert(b)
	})
}

// grow acquires a new OS-backed block sized to satisfy at least n*
// payload bytes, links it into the physical list at its address-ordered
// position (a fresh mapping may land below existing ones), inserts it
// into the free list, and attempts to coalesce it with its physical
// neighbors. Distinct OS mappings are only sometimes contiguous, so the
// adjacency check in coalesce decides whether they merge.
func (h *heap) grow(n int) {
	b := acquirePage(n)
	at := h.blocks.tail
	for at != nil && uintptr(unsafe.Pointer(at)) > uintptr(unsafe.Pointer(b)) {
		at = at.prev
	}
	switch {
	case at == h.blocks.tail:
		h.blocks.append(b)
	case at != nil:
		h.blocks.insertAfter(at, b)
	default:
		b.next = h.blocks.head
		h.blocks.head.prev = b
		h.blocks.head = b
	}
	h.free.insert(b)
	coalesce(&h.blocks, &h.free, b)
}

// allocateLocked implements the core allocate procedure: find-or-grow,
// mark used, split. Must be called with h.mu held. On a miss it grows
// the heap once and retries the search directly, never going back
// through Allocate, since the lock is already held.
func (h *heap) allocateLocked(n int) unsafe.Pointer {
	h.init()

	want := align(n)
	b := h.free.firstFit(want)
	if b == nil {
		h.grow(want)
		b = h.free.firstFit(want)
		if b == nil {
			// acquirePage(want) is guaranteed to produce a block big
			// enough for want; reaching here means that guarantee was
			// violated, which is a programming error in this package.
			fatalf("heap growth did not yield a block large enough for %d bytes", want)
		}
	}

	b.isFree = false
	h.free.remove(b)
	h.maybeSplit(b, want)
	return b.payload()
}

// maybeSplit carves a free tail block out of b if the slack left after
// satisfying a want-byte request is large enough to host a header plus
// the minimum payload. Otherwise the whole block is handed to the
// caller as internal slack.
func (h *heap) maybeSplit(b *block, want int) {
	slack := b.size - want
	if slack < headerSize+minPayload {
		return
	}

	tail := (*block)(unsafe.Pointer(uintptr(b.payload()) + uintptr(want)))
	tail.size = slack - headerSize
	tail.isFree = true
	tail.magic = blockMagic
	tail.prevFree, tail.nextFree = nil, nil

	h.blocks.insertAfter(b, tail)
	b.size = want
	h.free.insert(tail)
}

// releaseLocked implements the five-step release procedure. Must be
// called with h.mu held.
func (h *heap) releaseLocked(p unsafe.Pointer) {
	if p == nil {
		return
	}
	if !isAligned(p) {
		fatalf("release: unaligned pointer %p (likely points into the middle of a block)", p)
		return
	}

	b := blockFromPayload(p)
	if b.magic != blockMagic {
		fatalf("release: bad magic at %p (corrupted header or foreign pointer)", p)
		return
	}
	if b.isFree {
		warnf("double free of %p", p)
		return
	}

	b.isFree = true
	h.free.insert(b)
	coalesce(&h.blocks, &h.free, b)
}

// Allocate returns a pointer to an aligned payload of at least n bytes,
// or aborts the process if the OS cannot satisfy the underlying mapping
// request. n must be non-negative.
func Allocate(n int) unsafe.Pointer {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.allocateLocked(n)
}

// Release returns a payload pointer previously obtained from Allocate or
// Resize to the allocator. p may be nil. Callers must not touch the
// memory p pointed to after this call returns: coalescing may have
// already overwritten it with neighboring block headers.
func Release(p unsafe.Pointer) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.releaseLocked(p)
}

// AllocateZeroed is Allocate(num*size) with the returned memory zeroed,
// and with overflow checking on the multiplication. Returns nil (without
// aborting) if num*size overflows.
func AllocateZeroed(num, size int) unsafe.Pointer {
	global.mu.Lock()
	defer global.mu.Unlock()

	total, ok := mulOverflows(num, size)
	if !ok {
		warnf("allocate_zeroed overflow: %d * %d", num, size)
		return nil
	}

	p := global.allocateLocked(total)
	if p == nil || total == 0 {
		return p
	}
	zero(p, total)
	return p
}

// mulOverflows computes num*size and reports whether it is representable
// without wraparound, mirroring the C idiom `num != 0 && total/num !=
// size`.
func mulOverflows(num, size int) (total int, ok bool) {
	total = num * size
	if num != 0 && total/num != size {
		return 0, false
	}
	return total, true
}

// zero writes n zero bytes starting at p.
func zero(p unsafe.Pointer, n int) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = 0
	}
}

// Resize changes the payload size of the block pointed to by p: nil acts
// like Allocate, zero size acts like Release, shrinking splits
// opportunistically in place, and growing allocates-copies-frees.
// Returns nil on bad header magic, on s==0, or if the underlying
// allocation for a grow fails (in which case the original block, and p,
// remain valid).
func Resize(p unsafe.Pointer, s int) unsafe.Pointer {
	global.mu.Lock()
	defer global.mu.Unlock()

	if p == nil {
		return global.allocateLocked(s)
	}
	if s == 0 {
		global.releaseLocked(p)
		return nil
	}

	b := blockFromPayload(p)
	if b.magic != blockMagic {
		warnf("resize: bad magic at %p (corrupted header or foreign pointer)", p)
		return nil
	}

	want := align(s)
	if b.size > want {
		global.maybeSplitForResize(b, want)
		return p
	}
	if b.size == want {
		return p
	}

	newPtr := global.allocateLocked(want)
	if newPtr == nil {
		return nil
	}
	copyBytes(newPtr, p, minInt(b.size, want))
	global.releaseLocked(p)
	return newPtr
}

// maybeSplitForResize is maybeSplit's shrink-path sibling: it splits off
// a free tail and coalesces it to the right, so a shrink opportunistically
// merges the carved remainder into a free neighbor instead of leaving it
// isolated.
func (h *heap) maybeSplitForResize(b *block, want int) {
	slack := b.size - want
	if slack < headerSize+minPayload {
		return
	}

	tail := (*block)(unsafe.Pointer(uintptr(b.payload()) + uintptr(want)))
	tail.size = slack - headerSize
	tail.isFree = true
	tail.magic = blockMagic
	tail.prevFree, tail.nextFree = nil, nil

	h.blocks.insertAfter(b, tail)
	b.size = want
	h.free.insert(tail)
	coalesce(&h.blocks, &h.free, tail)
}

func copyBytes(dst, src unsafe.Pointer, n int) {
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// UsableSize reports the payload capacity of the block p points to,
// which may exceed the size originally requested (internal slack left by
// a skipped split). p must have been returned by Allocate, AllocateZeroed
// or Resize.
func UsableSize(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	return blockFromPayload(p).size
}

// ValidateList walks the physical list checking every block's magic and
// bounding the walk length to detect cycles. It is diagnostic only (not
// invoked on any allocate/release/resize path) and is meant for use by
// tests and the cmd/heapbench driver.
func ValidateList() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	seen := 0
	limit := 1 << 24 // far beyond any real block count; a cycle guard
	for b := global.blocks.head; b != nil; b = b.next {
		if b.magic != blockMagic {
			return fatalMagicErr{addr: unsafe.Pointer(b)}
		}
		seen++
		if seen > limit {
			return cycleErr{}
		}
	}
	return nil
}

type fatalMagicErr struct{ addr unsafe.Pointer }

func (e fatalMagicErr) Error() string { return "corrupted block header: bad magic" }

type cycleErr struct{}

func (cycleErr) Error() string { return "physical list exceeds sanity bound: possible cycle" }
