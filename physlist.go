// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memalloc

// physList is the address-ordered doubly-linked chain containing every
// block, free or allocated. A block is only ever removed from it by
// coalesce, when it is absorbed into a physically adjacent neighbor.
type physList struct {
	head, tail *block
}

// append links b after the current tail. Used only by heap growth, when
// the block for a fresh OS mapping lies above every existing block.
func (l *physList) append(b *block) {
	if l.tail == nil {
		l.head = b
		l.tail = b
		return
	}
	l.tail.next = b
	b.prev = l.tail
	l.tail = b
}

// insertAfter splices n into the list immediately after existing block b.
// Used by the allocation-engine split paths to insert the carved-off
// remainder block, and by heap growth to place a fresh mapping's block
// in address order.
func (l *physList) insertAfter(b, n *block) {
	n.next = b.next
	n.prev = b
	if b.next != nil {
		b.next.prev = n
	} else {
		l.tail = n
	}
	b.next = n
}

// unlink splices b out of the physical list entirely. Used only by
// coalesce, which has already folded b's size into a surviving neighbor.
func (l *physList) unlink(b *block) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		l.head = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	} else {
		l.tail = b.prev
	}
	b.prev = nil
	b.next = nil
}

// coalesce merges c with its physical neighbors to the extent the
// adjacency and freeness invariants allow, mutating fl to match. c must
// already be marked free and already present in fl.
//
// Merge-right runs before merge-left so that when c is itself absorbed
// into its left neighbor, the left neighbor inherits the already-merged
// right edge in one step.
func coalesce(pl *physList, fl *freeList, c *block) {
	if c.next != nil && c.next.isFree && adjacentRight(c, c.next) {
		right := c.next
		fl.remove(right)
		c.size += right.size + headerSize
		pl.unlink(right)
	}

	if c.prev != nil && c.prev.isFree && adjacentRight(c.prev, c) {
		left := c.prev
		fl.remove(c)
		left.size += c.size + headerSize
		pl.unlink(c)
	}
}
