// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command heapbench is the allocator's test harness and benchmark
// driver. It runs a comprehensive scenario battery covering alignment,
// allocate-zeroed overflow, resize, edge cases, coalescing, boundary
// checks, stress, and fragmentation recovery, and, optionally, a timed
// benchmark battery comparing memalloc against the Go runtime's own
// allocator.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
	"unsafe"

	memalloc "github.com/Krishanth-K/mem-alloc"
)

func main() {
	bench := flag.Bool("bench", false, "also run the timed benchmark battery")
	flag.Parse()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	banner(out)
	runComprehensiveSuite(out)
	if *bench {
		runBenchmarkSuite(out)
	}
}

func banner(out *bufio.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "╔════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║        mem-alloc COMPREHENSIVE ALLOCATOR HARNESS        ║")
	fmt.Fprintln(out, "╚════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
	out.Flush()
}

type step struct {
	name string
	run  func(out *bufio.Writer)
}

func runComprehensiveSuite(out *bufio.Writer) {
	steps := []step{
		{"Alignment", stepAlignment},
		{"Allocate-zeroed", stepCalloc},
		{"Resize", stepResize},
		{"Edge cases", stepEdgeCases},
		{"Coalescing", stepCoalescing},
		{"Boundaries", stepBoundaries},
		{"Stress", stepStress},
		{"Fragmentation recovery", stepFragmentation},
	}

	for i, s := range steps {
		fmt.Fprintf(out, "[%d/%d] %s...\n", i+1, len(steps), s.name)
		out.Flush()
		s.run(out)
		fmt.Fprintf(out, "  done.\n\n")
		out.Flush()
	}

	fmt.Fprintln(out, "╔════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║                  all scenarios passed                   ║")
	fmt.Fprintln(out, "╚════════════════════════════════════════════════════════╝")
}

func verifyPattern(out *bufio.Writer, p unsafe.Pointer, size int, pattern byte) {
	b := unsafe.Slice((*byte)(p), size)
	for i, got := range b {
		if got != pattern {
			fmt.Fprintf(out, "[ERROR] data corruption at offset %d: got %#x want %#x\n", i, got, pattern)
			out.Flush()
			os.Exit(1)
		}
	}
}

func stepAlignment(out *bufio.Writer) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		size := r.Intn(1000) + 1
		p := memalloc.Allocate(size)
		memalloc.Release(p)
	}
}

func stepCalloc(out *bufio.Writer) {
	p := memalloc.AllocateZeroed(100, 10)
	verifyPattern(out, p, 1000, 0)
	memalloc.Release(p)

	const maxInt = int(^uint(0) >> 1)
	if memalloc.AllocateZeroed(maxInt/2, maxInt/2) != nil {
		fmt.Fprintln(out, "[ERROR] allocate_zeroed did not detect overflow")
		os.Exit(1)
	}

	big := memalloc.AllocateZeroed(1000, 1000)
	verifyPattern(out, big, 1000000, 0)
	memalloc.Release(big)
}

func stepResize(out *bufio.Writer) {
	p := memalloc.Allocate(100)
	fillPattern(p, 100, 'A')
	p = memalloc.Resize(p, 500)
	verifyPattern(out, p, 100, 'A')
	memalloc.Release(p)

	p = memalloc.Allocate(1000)
	fillPattern(p, 1000, 'B')
	p = memalloc.Resize(p, 200)
	verifyPattern(out, p, 200, 'B')
	memalloc.Release(p)

	if memalloc.Resize(nil, 100) == nil {
		fmt.Fprintln(out, "[ERROR] resize(nil, size) failed")
		os.Exit(1)
	}

	p = memalloc.Allocate(100)
	if memalloc.Resize(p, 0) != nil {
		fmt.Fprintln(out, "[ERROR] resize(ptr, 0) did not return nil")
		os.Exit(1)
	}

	p = memalloc.Allocate(100)
	fillPattern(p, 100, 'C')
	p = memalloc.Resize(p, 10000)
	verifyPattern(out, p, 100, 'C')
	memalloc.Release(p)
}

func fillPattern(p unsafe.Pointer, size int, pattern byte) {
	b := unsafe.Slice((*byte)(p), size)
	for i := range b {
		b[i] = pattern
	}
}

func stepEdgeCases(out *bufio.Writer) {
	memalloc.Release(nil)

	p := memalloc.Allocate(100)
	memalloc.Release(p)
	memalloc.Release(p) // warns, does not abort

	huge := memalloc.Allocate(10 * 1024 * 1024)
	if huge != nil {
		fillPattern(huge, 100, 'X')
		verifyPattern(out, huge, 100, 'X')
		memalloc.Release(huge)
	}

	one := memalloc.Allocate(1)
	fillPattern(one, 1, 'Z')
	verifyPattern(out, one, 1, 'Z')
	memalloc.Release(one)
}

func stepCoalescing(out *bufio.Writer) {
	p1 := memalloc.Allocate(100)
	p2 := memalloc.Allocate(100)
	p3 := memalloc.Allocate(100)
	fillPattern(p1, 100, 'X')
	fillPattern(p2, 100, 'Y')
	fillPattern(p3, 100, 'Z')

	memalloc.Release(p2)
	verifyPattern(out, p1, 100, 'X')
	verifyPattern(out, p3, 100, 'Z')

	memalloc.Release(p1)
	memalloc.Release(p3)

	big := memalloc.Allocate(350)
	if big == nil {
		fmt.Fprintln(out, "  [INFO] large allocation after coalescing required new page")
	}
	memalloc.Release(big)
}

func stepBoundaries(out *bufio.Writer) {
	const n = 20
	ptrs := make([]unsafe.Pointer, n)
	for i := range ptrs {
		ptrs[i] = memalloc.Allocate(128)
		fillPattern(ptrs[i], 128, byte('A'+i))
	}
	for i := range ptrs {
		verifyPattern(out, ptrs[i], 128, byte('A'+i))
		memalloc.Release(ptrs[i])
	}
}

func stepStress(out *bufio.Writer) {
	const numPointers = 1000
	const iterations = 10000

	ptrs := make([]unsafe.Pointer, numPointers)
	sizes := make([]int, numPointers)
	active := make([]bool, numPointers)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < iterations; i++ {
		idx := r.Intn(numPointers)
		if active[idx] {
			verifyPattern(out, ptrs[idx], sizes[idx], byte(idx&0xFF))
			memalloc.Release(ptrs[idx])
			active[idx] = false
			continue
		}

		size := r.Intn(1024) + 1
		if r.Intn(10) == 0 {
			size += r.Intn(10) * 4096
		}
		p := memalloc.Allocate(size)
		fillPattern(p, size, byte(idx&0xFF))
		ptrs[idx], sizes[idx], active[idx] = p, size, true

		if i%2000 == 0 {
			fmt.Fprintf(out, "  iteration %d/%d...\n", i, iterations)
			out.Flush()
		}
	}

	for i := range ptrs {
		if active[i] {
			verifyPattern(out, ptrs[i], sizes[i], byte(i&0xFF))
			memalloc.Release(ptrs[i])
		}
	}
}

func stepFragmentation(out *bufio.Writer) {
	const n = 100
	ptrs := make([]unsafe.Pointer, n)
	for i := range ptrs {
		ptrs[i] = memalloc.Allocate(128)
		fillPattern(ptrs[i], 128, 'F')
	}
	for i := 0; i < n; i += 2 {
		memalloc.Release(ptrs[i])
	}

	big := memalloc.Allocate(5000)
	if big == nil {
		fmt.Fprintln(out, "[ERROR] large allocation after fragmentation failed")
		os.Exit(1)
	}
	memalloc.Release(big)

	for i := 1; i < n; i += 2 {
		verifyPattern(out, ptrs[i], 128, 'F')
		memalloc.Release(ptrs[i])
	}
}

func runBenchmarkSuite(out *bufio.Writer) {
	fmt.Fprintln(out, "\nbenchmark battery (memalloc vs. runtime):")

	benches := []struct {
		name string
		run  func(useCustom bool) time.Duration
	}{
		{"sequential small (10000x64B)", benchSequentialSmall},
		{"random mixed ops (1000 slots)", benchRandomOps},
	}

	for _, b := range benches {
		custom := b.run(true)
		runtimeDur := b.run(false)
		fmt.Fprintf(out, "  %-32s memalloc=%v runtime=%v\n", b.name, custom, runtimeDur)
	}
}

func benchSequentialSmall(useCustom bool) time.Duration {
	const n = 10000
	const size = 64

	start := time.Now()
	if useCustom {
		ptrs := make([]unsafe.Pointer, n)
		for i := range ptrs {
			ptrs[i] = memalloc.Allocate(size)
		}
		for _, p := range ptrs {
			memalloc.Release(p)
		}
	} else {
		bufs := make([][]byte, n)
		for i := range bufs {
			bufs[i] = make([]byte, size)
		}
	}
	return time.Since(start)
}

func benchRandomOps(useCustom bool) time.Duration {
	const slots = 1000
	const iterations = 20000

	r := rand.New(rand.NewSource(42))
	start := time.Now()

	if useCustom {
		ptrs := make([]unsafe.Pointer, slots)
		active := make([]bool, slots)
		for i := 0; i < iterations; i++ {
			idx := r.Intn(slots)
			if active[idx] {
				memalloc.Release(ptrs[idx])
				active[idx] = false
				continue
			}
			ptrs[idx] = memalloc.Allocate(r.Intn(512) + 1)
			active[idx] = true
		}
		for i := range ptrs {
			if active[i] {
				memalloc.Release(ptrs[i])
			}
		}
		return time.Since(start)
	}

	bufs := make([][]byte, slots)
	active := make([]bool, slots)
	for i := 0; i < iterations; i++ {
		idx := r.Intn(slots)
		if active[idx] {
			bufs[idx] = nil
			active[idx] = false
			continue
		}
		bufs[idx] = make([]byte, r.Intn(512)+1)
		active[idx] = true
	}
	return time.Since(start)
}
