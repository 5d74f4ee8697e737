// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memalloc

import "unsafe"

// Alloc is Allocate's safe-Go counterpart: it returns a byte slice of
// length n backed by the allocated block's payload rather than a raw
// pointer. The slice must be released with Free, not a runtime GC;
// this package's blocks live outside the Go heap.
func Alloc(n int) []byte {
	if n == 0 {
		return nil
	}
	p := Allocate(n)
	return unsafe.Slice((*byte)(p), n)
}

// AllocZeroed is Alloc with zeroed contents, layered over
// AllocateZeroed the same way Alloc is layered over Allocate.
func AllocZeroed(num, size int) []byte {
	total, ok := mulOverflows(num, size)
	if !ok || total == 0 {
		return nil
	}
	p := AllocateZeroed(num, size)
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(p), total)
}

// Free returns b to the allocator. b must have been returned by Alloc,
// AllocZeroed or ResizeSlice and not yet freed.
func Free(b []byte) {
	if len(b) == 0 {
		return
	}
	Release(unsafe.Pointer(&b[0]))
}

// ResizeSlice grows or shrinks b to newSize, copying the overlapping
// prefix, and returns the (possibly relocated) slice. A nil or empty b
// behaves like Alloc(newSize); newSize == 0 behaves like Free(b) and
// returns nil.
func ResizeSlice(b []byte, newSize int) []byte {
	if len(b) == 0 {
		return Alloc(newSize)
	}
	p := Resize(unsafe.Pointer(&b[0]), newSize)
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(p), newSize)
}
