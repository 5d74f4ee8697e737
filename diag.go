// Copyright 2024 The mem-alloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memalloc

import (
	"fmt"
	"io"
	"os"
)

// diagSink is the single byte sink every diagnostic message, fatal or
// warning, goes through.
var diagSink io.Writer = os.Stderr

// SetDiagnosticSink redirects fatal and warning diagnostics. Intended
// for tests that want to capture or silence them; the zero value
// (os.Stderr) is correct for normal use.
func SetDiagnosticSink(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	diagSink = w
}

// warnf logs a recoverable diagnostic and returns control to the caller
// with no state change. Used for double-free, and alongside the nil
// returns of AllocateZeroed (multiplication overflow) and Resize (bad
// header magic).
func warnf(format string, args ...interface{}) {
	fmt.Fprintf(diagSink, "[WARN] "+format+"\n", args...)
}

// osExit is overridden by tests so fatalf can be exercised without
// killing the test binary.
var osExit = os.Exit

// fatalf logs a fatal diagnostic and aborts the process. Used for OS
// mapping failure and pointer/header corruption detected by release,
// conditions that are unsafe to continue past. Resize does not use it:
// a bad header there yields a warning and a nil return.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(diagSink, "[FATAL] "+format+"\n", args...)
	osExit(1)
}
