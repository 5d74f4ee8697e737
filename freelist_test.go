// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBlocks(n int) []*block {
	bs := make([]*block, n)
	for i := range bs {
		bs[i] = &block{size: 16, isFree: true, magic: blockMagic}
	}
	return bs
}

func TestFreeListInsertIsLIFO(t *testing.T) {
	var fl freeList
	bs := newTestBlocks(3)
	for _, b := range bs {
		fl.insert(b)
	}

	require.Equal(t, bs[2], fl.head)
	require.Equal(t, bs[1], fl.head.nextFree)
	require.Equal(t, bs[0], fl.head.nextFree.nextFree)
	require.Nil(t, fl.head.nextFree.nextFree.nextFree)
}

func TestFreeListRemoveMiddle(t *testing.T) {
	var fl freeList
	bs := newTestBlocks(3)
	for _, b := range bs {
		fl.insert(b)
	}

	fl.remove(bs[1])
	require.Nil(t, bs[1].nextFree)
	require.Nil(t, bs[1].prevFree)
	require.Equal(t, bs[2], fl.head)
	require.Equal(t, bs[0], fl.head.nextFree)
	require.Nil(t, fl.head.nextFree.nextFree)
}

func TestFreeListRemoveHeadAndTail(t *testing.T) {
	var fl freeList
	bs := newTestBlocks(2)
	fl.insert(bs[0])
	fl.insert(bs[1])

	fl.remove(bs[1]) // head
	require.Equal(t, bs[0], fl.head)

	fl.remove(bs[0]) // now-sole element
	require.Nil(t, fl.head)
}

func TestFreeListFirstFit(t *testing.T) {
	var fl freeList
	small := &block{size: 8, isFree: true, magic: blockMagic}
	big := &block{size: 64, isFree: true, magic: blockMagic}
	// Insertion order: big first, then small (small ends up at head).
	fl.insert(big)
	fl.insert(small)

	got := fl.firstFit(32)
	require.Equal(t, big, got, "first-fit should walk from head and skip undersized blocks")

	require.Nil(t, fl.firstFit(128))
}

func TestCoalesceMergesOnlyPhysicallyAdjacentFreeNeighbors(t *testing.T) {
	var pl physList
	var fl freeList

	raw := make([]byte, 3*(headerSize+64))
	base := &raw[0]
	at := func(i int) *block {
		return (*block)(unsafeAdd(base, i*(headerSize+64)))
	}

	a := at(0)
	b := at(1)
	c := at(2)
	for _, x := range []*block{a, b, c} {
		x.size = 64
		x.isFree = true
		x.magic = blockMagic
	}
	pl.append(a)
	pl.append(b)
	pl.append(c)
	fl.insert(a)
	fl.insert(b)
	fl.insert(c)

	coalesce(&pl, &fl, b)

	require.Equal(t, a, pl.head)
	require.Equal(t, pl.head, pl.tail, "three adjacent free blocks must fully merge into one")
	require.Equal(t, 3*64+2*headerSize, a.size)
}

func TestCoalesceSkipsNonAdjacentFreeNeighbor(t *testing.T) {
	var pl physList
	var fl freeList

	a := &block{size: 64, isFree: true, magic: blockMagic}
	// b lives in an unrelated allocation, so it is never physically
	// adjacent to a even though both are free and linked.
	gap := make([]byte, 128)
	_ = gap
	bBuf := make([]byte, headerSize+64)
	b := (*block)(unsafeAdd(&bBuf[0], 0))
	b.size = 64
	b.isFree = true
	b.magic = blockMagic

	pl.append(a)
	pl.append(b)
	fl.insert(a)
	fl.insert(b)

	coalesce(&pl, &fl, b)

	require.Equal(t, a, pl.head)
	require.Equal(t, b, pl.tail, "non-adjacent free blocks across mappings must not merge")
	require.Equal(t, 64, a.size)
	require.Equal(t, 64, b.size)
}
