// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package domtree

import "errors"

var (
	// ErrNoEntry is returned when building a dominator tree over a function
	// with no entry block.
	ErrNoEntry = errors.New("domtree: function has no entry block")

	// ErrNoExit is returned when building a post-dominator tree over a
	// function in which no block lacks successors (e.g. every path diverges
	// into an infinite loop).
	ErrNoExit = errors.New("domtree: function has no exit blocks")

	// ErrIrreducible is returned by Build when the CFG contains a region
	// entered through more than one node: a cycle the natural-loop
	// algorithm in DetectLoops cannot assign a single header to, and that
	// the divergence analysis's reducibility precondition (spec.md §1/§6)
	// forbids.
	ErrIrreducible = errors.New("domtree: irreducible control flow")
)
