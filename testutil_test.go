// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memalloc

import "unsafe"

// unsafeAdd returns a pointer offset bytes past base, for tests that
// construct synthetic block layouts directly on top of a byte buffer
// instead of going through acquirePage.
func unsafeAdd(base *byte, offset int) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(base)) + uintptr(offset))
}
