// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memalloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestResizeNullActsLikeAllocate(t *testing.T) {
	p := Resize(nil, 48)
	require.NotNil(t, p)
	require.True(t, isAligned(p))
	Release(p)
}

func TestResizeZeroActsLikeRelease(t *testing.T) {
	p := Allocate(48)
	got := Resize(p, 0)
	require.Nil(t, got)
}

func TestResizeSameSizeIsNoop(t *testing.T) {
	p := Allocate(64)
	got := Resize(p, 64)
	require.Equal(t, p, got, "resize to the current size must not relocate the block")
	Release(got)
}

func TestResizeGrowPreservesPrefix(t *testing.T) {
	const n = 100
	p := Allocate(n * int(unsafe.Sizeof(int(0))))
	ints := unsafe.Slice((*int)(p), n)
	for i := range ints {
		ints[i] = i
	}

	grown := Resize(p, 200*int(unsafe.Sizeof(int(0))))
	require.NotNil(t, grown)
	grownInts := unsafe.Slice((*int)(grown), 200)
	for i := 0; i < n; i++ {
		require.Equal(t, i, grownInts[i], "prefix entry %d not preserved across grow", i)
	}

	shrunk := Resize(grown, 5*int(unsafe.Sizeof(int(0))))
	require.NotNil(t, shrunk)
	shrunkInts := unsafe.Slice((*int)(shrunk), 5)
	for i := 0; i < 5; i++ {
		require.Equal(t, i, shrunkInts[i])
	}

	require.Nil(t, Resize(shrunk, 0))
}

func TestResizeShrinkSplitsAndCoalesces(t *testing.T) {
	p := Allocate(4096)
	before := UsableSize(p)
	require.Greater(t, before, 64)

	q := Resize(p, 64)
	require.Equal(t, p, q)
	require.Less(t, UsableSize(q), before, "shrink-resize should split off the slack")

	rest := blockFromPayload(q).next
	require.NotNil(t, rest)
	require.True(t, rest.isFree, "the carved-off tail must be free")
	if rest.next != nil {
		require.False(t, rest.next.isFree && adjacentRight(rest, rest.next),
			"the carved-off tail must have absorbed a free right neighbor")
	}
	Release(q)
}

// TestResizeBadMagicReturnsNil exercises the recoverable tier of resize:
// a corrupted header returns nil instead of aborting the process.
func TestResizeBadMagicReturnsNil(t *testing.T) {
	p := Allocate(32)
	b := blockFromPayload(p)
	b.magic = 0

	got := Resize(p, 64)
	require.Nil(t, got)

	b.magic = blockMagic // restore so Release below doesn't warn or abort
	Release(p)
}
