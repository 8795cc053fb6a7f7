// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package domtree builds dominator trees, post-dominator trees, and a
// natural-loop forest over an ssa.Function.
//
// Per spec.md §1/§6 these are external collaborators to the divergence
// analysis — the oracle and propagator only ever consume them through the
// ssa.DomInfo/ssa.Loop interfaces. This package exists so the module is
// runnable end to end without requiring every caller to bring their own
// dominator-tree implementation; a caller with an existing one (e.g. from a
// real compiler's IR) can substitute it freely.
//
// The construction follows the iterative Cooper-Harvey-Kennedy algorithm,
// the same approach the teacher's graph package uses for its code-call-graph
// dominator trees, adapted here to *ssa.Block identities and to run twice
// (forward for dominance, reversed for post-dominance).
package domtree

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cdl-saarland/vplan-rv/internal/telemetry"
	"github.com/cdl-saarland/vplan-rv/ssa"
)

var domTracer = otel.Tracer("vplan-rv.domtree")

// domContextCheckInterval is how often Build checks context cancellation
// while iterating blocks.
const domContextCheckInterval = 256

// Tree is a dominator (or post-dominator) tree over a fixed root.
//
// Thread Safety: immutable after Build returns; safe for concurrent reads.
type Tree struct {
	Root *ssa.Block

	idom      map[*ssa.Block]*ssa.Block
	postOrder []*ssa.Block
	rpoIndex  map[*ssa.Block]int
}

// edgeView lets Tree be built either over the forward CFG or, for
// post-dominance, over the CFG with edges reversed.
type edgeView interface {
	succ(b *ssa.Block) []*ssa.Block
	pred(b *ssa.Block) []*ssa.Block
}

type forwardView struct{ cfg ssa.CFGView }

func (v forwardView) succ(b *ssa.Block) []*ssa.Block { return v.cfg.Successors(b) }
func (v forwardView) pred(b *ssa.Block) []*ssa.Block { return v.cfg.Predecessors(b) }

// BuildDominators computes the dominator tree of fn rooted at fn.Entry.
func BuildDominators(ctx context.Context, fn *ssa.Function) (*Tree, error) {
	ctx, span := domTracer.Start(ctx, "domtree.BuildDominators",
		trace.WithAttributes(attribute.String("function", fn.FuncName)))
	defer span.End()

	if fn.Entry == nil {
		return nil, ErrNoEntry
	}
	return build(ctx, forwardView{cfg: fn}, fn.Entry)
}

// BuildPostDominators computes the post-dominator tree of fn. Exit blocks
// are the blocks with no normal successors (returns, and blocks whose only
// terminator is an abnormal exit); a single exit block is the tree's root.
//
// If more than one real exit block exists they are unified under the
// synthetic root so the result is a single tree, matching common practice
// for post-dominance over functions with multiple returns.
func BuildPostDominators(ctx context.Context, fn *ssa.Function) (*Tree, error) {
	ctx, span := domTracer.Start(ctx, "domtree.BuildPostDominators",
		trace.WithAttributes(attribute.String("function", fn.FuncName)))
	defer span.End()

	exits := exitBlocks(fn)
	if len(exits) == 0 {
		telemetry.LoggerWithTrace(ctx, slog.Default()).Warn("domtree: function has no exit blocks",
			slog.String("function", fn.FuncName))
		return nil, ErrNoExit
	}

	root := exits[0]
	virtual := &virtualRoot{real: exits}
	if len(exits) > 1 {
		root = virtual.block()
	}

	view := multiExitReverseView{fn: fn, virtual: virtual, usingVirtual: len(exits) > 1}
	return build(ctx, view, root)
}

// exitBlocks returns, in function order, every block whose terminator has
// zero normal successors.
func exitBlocks(fn *ssa.Function) []*ssa.Block {
	var exits []*ssa.Block
	for _, b := range fn.Blocks {
		if len(b.Succs) == 0 {
			exits = append(exits, b)
		}
	}
	return exits
}

// virtualRoot is a synthetic exit block used only when a function has more
// than one real exit; it is never exposed outside this package.
type virtualRoot struct {
	real []*ssa.Block
	blk  *ssa.Block
}

func (v *virtualRoot) block() *ssa.Block {
	if v.blk == nil {
		v.blk = &ssa.Block{BlockName: "<virtual-exit>"}
	}
	return v.blk
}

// multiExitReverseView walks the CFG with its edges reversed and, when a
// virtual root is in use, treats the virtual root's successors as all real
// exits, and each real exit's predecessor set as including the virtual root.
type multiExitReverseView struct {
	fn           *ssa.Function
	virtual      *virtualRoot
	usingVirtual bool
}

func (v multiExitReverseView) succ(b *ssa.Block) []*ssa.Block {
	if v.usingVirtual && b == v.virtual.block() {
		return v.virtual.real
	}
	return v.fn.Predecessors(b)
}

func (v multiExitReverseView) pred(b *ssa.Block) []*ssa.Block {
	preds := v.fn.Successors(b)
	if v.usingVirtual && isExit(b) {
		preds = append(append([]*ssa.Block{}, preds...), v.virtual.block())
	}
	return preds
}

func isExit(b *ssa.Block) bool { return len(b.Succs) == 0 }

func build(ctx context.Context, view edgeView, root *ssa.Block) (*Tree, error) {
	postOrder, rpoIndex := reversePostorder(root, view)

	idom := make(map[*ssa.Block]*ssa.Block, len(postOrder))
	idom[root] = root

	changed := true
	processed := 0
	for changed {
		changed = false
		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Process in reverse postorder, skipping the root.
		for i := len(postOrder) - 1; i >= 0; i-- {
			b := postOrder[i]
			if b == root {
				continue
			}
			processed++
			if processed%domContextCheckInterval == 0 && ctx != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}

			var newIdom *ssa.Block
			for _, p := range view.pred(b) {
				if _, ok := idom[p]; !ok {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if newIdom == nil {
				continue
			}
			if idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	return &Tree{Root: root, idom: idom, postOrder: postOrder, rpoIndex: rpoIndex}, nil
}

// reversePostorder runs a DFS from root along view.succ and returns blocks
// in postorder (so iterating from the end gives reverse postorder), plus
// an index for O(1) position lookup.
func reversePostorder(root *ssa.Block, view edgeView) ([]*ssa.Block, map[*ssa.Block]int) {
	visited := make(map[*ssa.Block]bool)
	var post []*ssa.Block

	type frame struct {
		b    *ssa.Block
		next int
	}
	stack := []frame{{b: root}}
	visited[root] = true

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := view.succ(top.b)
		if top.next < len(succs) {
			s := succs[top.next]
			top.next++
			if !visited[s] {
				visited[s] = true
				stack = append(stack, frame{b: s})
			}
			continue
		}
		post = append(post, top.b)
		stack = stack[:len(stack)-1]
	}

	index := make(map[*ssa.Block]int, len(post))
	for i, b := range post {
		index[b] = i
	}
	return post, index
}

// intersect finds the nearest common dominator of a and b by walking up
// from whichever has the lower postorder index (rpoIndex holds postorder
// positions; Cooper-Harvey-Kennedy's "intersect" step).
func intersect(idom map[*ssa.Block]*ssa.Block, rpoIndex map[*ssa.Block]int, a, b *ssa.Block) *ssa.Block {
	for a != b {
		for rpoIndex[a] < rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] < rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (t *Tree) Dominates(a, b *ssa.Block) bool {
	if a == nil || b == nil {
		return false
	}
	if _, ok := t.idom[b]; !ok {
		return false
	}
	for cur := b; ; {
		if cur == a {
			return true
		}
		if cur == t.Root {
			return cur == a
		}
		next := t.idom[cur]
		if next == cur {
			return false
		}
		cur = next
	}
}

// ImmediateDominator returns b's immediate dominator, or nil if b is the
// root or unreachable.
func (t *Tree) ImmediateDominator(b *ssa.Block) *ssa.Block {
	if b == t.Root {
		return nil
	}
	idom, ok := t.idom[b]
	if !ok {
		return nil
	}
	return idom
}
