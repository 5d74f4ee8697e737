// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memalloc

import "unsafe"

const (
	// alignment is the machine alignment every payload and header
	// boundary is rounded to. The allocator does not support
	// caller-requested alignments above this.
	alignment = 8

	// blockMagic is the integrity sentinel written into every live
	// header. release/resize abort if it is missing.
	blockMagic = 0xDEADBEEF

	// minPayload is the smallest payload a split-off remainder block
	// is allowed to have; splits that would leave less slack than
	// headerSize+minPayload are skipped.
	minPayload = 8
)

// roundup rounds n up to the next multiple of m. m must be a power of two.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

// align rounds a requested payload size up to the allocator's alignment.
func align(n int) int { return roundup(n, alignment) }

// block is the in-band header immediately preceding every payload region.
// Its on-memory footprint is headerSize bytes (the struct size rounded up
// to alignment); the payload begins at exactly that offset past the
// block's own address.
type block struct {
	size   int  // payload length in bytes, header excluded
	isFree bool
	magic  uint32

	prev, next         *block // physical list (address order)
	prevFree, nextFree *block // free list; meaningful only if isFree
}

// headerSize is the alignment-rounded on-memory size of block. Every
// byte offset from a block's address to its payload must use this value,
// never unsafe.Sizeof(block{}) directly.
var headerSize = roundup(int(unsafe.Sizeof(block{})), alignment)

// payload returns the address of b's payload region.
func (b *block) payload() unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(b)) + uintptr(headerSize))
}

// blockFromPayload steps back from a payload pointer to its header.
func blockFromPayload(p unsafe.Pointer) *block {
	return (*block)(unsafe.Pointer(uintptr(p) - uintptr(headerSize)))
}

// adjacentRight reports whether b and b.next physically abut, i.e. there
// is no gap (and hence no foreign memory) between b's payload end and
// next's header. Blocks from distinct OS mappings are linked in the
// physical list but are physically adjacent only when the kernel happened
// to place the two mappings back to back.
func adjacentRight(b, next *block) bool {
	return uintptr(unsafe.Pointer(b))+uintptr(headerSize)+uintptr(b.size) == uintptr(unsafe.Pointer(next))
}

// isAligned reports whether p is aligned to the allocator's alignment.
func isAligned(p unsafe.Pointer) bool {
	return uintptr(p)&uintptr(alignment-1) == 0
}
