// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package divergence

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by exported constructors. Everything past
// construction is a programmer-error assertion (see assertf), not a
// returned error: spec.md §7 draws this line deliberately — the oracle and
// propagator never fail at runtime once their preconditions hold.
var (
	// ErrNilCFG is returned when constructing an oracle or propagator
	// without a CFG view.
	ErrNilCFG = errors.New("divergence: cfg view must not be nil")

	// ErrNilDomInfo is returned when constructing an oracle or propagator
	// without dominator/loop information.
	ErrNilDomInfo = errors.New("divergence: dom info must not be nil")
)

// assertionError is the panic value raised by assertf. Callers that want to
// recover a failed precondition (e.g. a test asserting a specific failure
// mode) can type-assert on this rather than parsing a message string.
type assertionError struct {
	msg string
}

func (e *assertionError) Error() string { return e.msg }

// assertf panics with an *assertionError if cond is false. Used for the
// programmer-error preconditions spec.md §7 enumerates: irreducible control
// flow, marking an overridden-uniform value, a terminator with an
// unexpected kind, a missing reaching def at a loop exit. These are never
// recovered in normal operation — a caller hitting one has violated the
// analysis's prerequisites.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(&assertionError{msg: fmt.Sprintf(format, args...)})
	}
}
