// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin || dragonfly || freebsd || linux || openbsd || netbsd || solaris

package memalloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

var osPageSize = unix.Getpagesize()

// mapPages requests a fresh private anonymous read/write mapping of
// exactly size bytes (already rounded to a whole number of OS pages by
// the caller) from the kernel. A failure here is fatal: the process has
// no way to make forward progress without memory.
func mapPages(size int) []byte {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		fatalf("mmap(%d) failed: %v", size, err)
		return nil // unreachable: fatalf exits
	}
	if uintptr(unsafe.Pointer(&b[0]))&uintptr(osPageSize-1) != 0 {
		fatalf("mmap returned a non-page-aligned address")
	}
	return b
}

// acquirePage requests a region sized to satisfy at least minPayload
// bytes of payload, builds a single free block covering the whole
// region, and returns it. Sizing the mapping to at least the triggering
// request guarantees the grow-then-retry loop in allocateLocked always
// terminates.
func acquirePage(minPayload int) *block {
	need := minPayload + headerSize
	total := roundup(need, osPageSize)
	data := mapPages(total)

	b := (*block)(unsafe.Pointer(&data[0]))
	b.size = total - headerSize
	b.isFree = true
	b.magic = blockMagic
	b.prev, b.next = nil, nil
	b.prevFree, b.nextFree = nil, nil
	return b
}
