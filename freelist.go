// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memalloc

// freeList is a doubly-linked, unordered chain over the subset of blocks
// with isFree == true. Insertion is always at head (LIFO), giving the
// first-fit search in (*heap).allocateLocked its "most recently freed wins"
// behavior.
type freeList struct {
	head *block
}

// insert pushes b at the head of the list. b must already have
// b.isFree == true; the caller sets that before calling insert.
func (l *freeList) insert(b *block) {
	b.nextFree = l.head
	b.prevFree = nil
	if l.head != nil {
		l.head.prevFree = b
	}
	l.head = b
}

// remove unlinks b from wherever it sits in the list and clears its
// free-list links. Safe to call on a block not currently in the list
// only if its free-links are already nil (insert/remove keep that true).
func (l *freeList) remove(b *block) {
	if b.prevFree != nil {
		b.prevFree.nextFree = b.nextFree
	} else if l.head == b {
		l.head = b.nextFree
	}
	if b.nextFree != nil {
		b.nextFree.prevFree = b.prevFree
	}
	b.nextFree = nil
	b.prevFree = nil
}

// firstFit walks the list from head and returns the first block whose
// payload is at least n bytes, or nil if none fits.
func (l *freeList) firstFit(n int) *block {
	for b := l.head; b != nil; b = b.nextFree {
		if b.size >= n {
			return b
		}
	}
	return nil
}
