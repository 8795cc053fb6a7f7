// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package domtree

import (
	"context"
	"fmt"

	"github.com/cdl-saarland/vplan-rv/ssa"
)

// Info bundles a dominator tree, post-dominator tree, and natural-loop
// forest for a single function, and implements ssa.DomInfo so the
// divergence analysis can consume it without depending on this package
// directly.
type Info struct {
	Dom     *Tree
	PostDom *Tree
	Loops   *Forest

	fn *ssa.Function
}

// Build runs dominator, post-dominator, and loop analysis over fn and
// returns the combined Info. The natural-loop forest is well defined from
// back edges alone regardless of reducibility, but the divergence analysis
// itself requires a reducible CFG (spec.md §1/§6), so Build checks this
// itself and returns ErrIrreducible rather than handing every caller an
// Info they must remember to validate before use.
func Build(ctx context.Context, fn *ssa.Function) (*Info, error) {
	dom, err := BuildDominators(ctx, fn)
	if err != nil {
		return nil, fmt.Errorf("domtree: building dominator tree: %w", err)
	}

	postDom, err := BuildPostDominators(ctx, fn)
	if err != nil {
		return nil, fmt.Errorf("domtree: building post-dominator tree: %w", err)
	}

	loops, err := DetectLoops(ctx, fn, dom)
	if err != nil {
		return nil, fmt.Errorf("domtree: detecting loops: %w", err)
	}

	if !Reducible(fn, dom) {
		return nil, ErrIrreducible
	}

	return &Info{Dom: dom, PostDom: postDom, Loops: loops, fn: fn}, nil
}

// Dominates implements ssa.DomInfo.
func (info *Info) Dominates(a, b *ssa.Block) bool {
	return info.Dom.Dominates(a, b)
}

// ImmediatePostDominator implements ssa.DomInfo.
func (info *Info) ImmediatePostDominator(b *ssa.Block) *ssa.Block {
	return info.PostDom.ImmediateDominator(b)
}

// LoopOf implements ssa.DomInfo. It returns a nil ssa.Loop (not a nil
// interface value carrying a non-nil *Loop) when b is not in any loop, so
// callers can compare the result directly against nil.
func (info *Info) LoopOf(b *ssa.Block) ssa.Loop {
	l := info.Loops.LoopOf(b)
	if l == nil {
		return nil
	}
	return l
}

// Reducible reports whether the analyzed function's CFG is reducible.
// Always true for an Info returned by Build, which already rejects an
// irreducible fn; exposed for callers that built Dom/Loops piecemeal.
func (info *Info) Reducible() bool {
	return Reducible(info.fn, info.Dom)
}
