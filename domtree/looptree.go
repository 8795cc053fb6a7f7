// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package domtree

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cdl-saarland/vplan-rv/ssa"
)

var loopTracer = otel.Tracer("vplan-rv.domtree.loops")

// loopContextCheckInterval mirrors the cadence the teacher's loop-detection
// pass uses to check for cancellation during traversal.
const loopContextCheckInterval = 256

// Loop is a natural loop: a back edge latch -> header where header
// dominates latch, plus every block that can reach latch without passing
// through header.
//
// Loop implements ssa.Loop.
type Loop struct {
	header *ssa.Block
	latch  *ssa.Block

	body  map[*ssa.Block]bool
	exits []*ssa.Block

	parent   *Loop
	children []*Loop
	depth    int
}

func (l *Loop) Header() *ssa.Block     { return l.header }
func (l *Loop) Latch() *ssa.Block      { return l.latch }
func (l *Loop) ExitBlocks() []*ssa.Block { return l.exits }
func (l *Loop) Contains(b *ssa.Block) bool { return l.body[b] }

// Depth returns the loop's nesting depth; 0 for a top-level loop.
func (l *Loop) Depth() int { return l.depth }

// Parent returns the immediately enclosing loop, or nil at top level.
func (l *Loop) Parent() *Loop { return l.parent }

// Forest is the set of natural loops detected in a function, with a
// precomputed innermost-loop lookup per block.
type Forest struct {
	Loops    []*Loop
	TopLevel []*Loop

	loopOf map[*ssa.Block]*Loop
}

// LoopOf returns the innermost loop containing b, or nil if b is not in any
// loop.
func (f *Forest) LoopOf(b *ssa.Block) *Loop { return f.loopOf[b] }

// backEdge is a candidate back edge: from -> to, where to dominates from.
type backEdge struct {
	from, to *ssa.Block
}

// DetectLoops finds the natural loop forest of fn given its dominator tree.
// A back edge is any CFG edge whose target dominates its source (spec.md's
// loop membership is defined purely in terms of this dominance relation, so
// no separate reducibility precondition is required to find the loops
// themselves — see Reducible for the stronger whole-CFG check).
func DetectLoops(ctx context.Context, fn *ssa.Function, dom *Tree) (*Forest, error) {
	ctx, span := loopTracer.Start(ctx, "domtree.DetectLoops",
		trace.WithAttributes(attribute.String("function", fn.FuncName)))
	defer span.End()

	backEdges := findBackEdges(fn, dom)

	byHeader := make(map[*ssa.Block][]backEdge)
	var headerOrder []*ssa.Block
	for _, be := range backEdges {
		if _, seen := byHeader[be.to]; !seen {
			headerOrder = append(headerOrder, be.to)
		}
		byHeader[be.to] = append(byHeader[be.to], be)
	}

	var loops []*Loop
	processed := 0
	for _, header := range headerOrder {
		processed++
		if processed%loopContextCheckInterval == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		edges := byHeader[header]
		body := computeLoopBody(header, edges)
		loop := &Loop{
			header: header,
			latch:  edges[0].from,
			body:   body,
			exits:  computeExits(fn, body),
		}
		loops = append(loops, loop)
	}

	nestLoops(loops)

	forest := &Forest{loopOf: make(map[*ssa.Block]*Loop)}
	for _, loop := range loops {
		forest.Loops = append(forest.Loops, loop)
		if loop.parent == nil {
			forest.TopLevel = append(forest.TopLevel, loop)
		}
	}
	assignInnermost(forest, loops)

	span.SetAttributes(attribute.Int("loop_count", len(loops)))
	return forest, nil
}

// findBackEdges scans every CFG edge in fn and returns those whose target
// dominates their source.
func findBackEdges(fn *ssa.Function, dom *Tree) []backEdge {
	var edges []backEdge
	for _, b := range fn.Blocks {
		for _, s := range b.Succs {
			if dom.Dominates(s, b) {
				edges = append(edges, backEdge{from: b, to: s})
			}
		}
	}
	return edges
}

// computeLoopBody runs a reverse BFS from each back edge's source, walking
// predecessors, stopping at (but including) the header — the same
// reverse-BFS construction the teacher's dominators_loops.go uses to
// collect a natural loop's body from its back edges.
func computeLoopBody(header *ssa.Block, edges []backEdge) map[*ssa.Block]bool {
	body := map[*ssa.Block]bool{header: true}
	var stack []*ssa.Block
	for _, be := range edges {
		if !body[be.from] {
			body[be.from] = true
			stack = append(stack, be.from)
		}
	}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if b == header {
			continue
		}
		for _, p := range b.Preds {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}
	return body
}

// computeExits returns the loop's exit blocks: the blocks OUTSIDE body that
// are targets of an edge from an exiting block inside body. This matches
// LLVM's Loop::getExitBlocks (the blocks branched to, not the in-loop
// blocks doing the branching — those are "exiting blocks", a distinct
// notion spec.md does not need as a separate accessor).
func computeExits(fn *ssa.Function, body map[*ssa.Block]bool) []*ssa.Block {
	var exits []*ssa.Block
	seen := make(map[*ssa.Block]bool)
	for _, b := range fn.Blocks {
		if !body[b] {
			continue
		}
		for _, s := range b.Succs {
			if !body[s] && !seen[s] {
				seen[s] = true
				exits = append(exits, s)
			}
		}
	}
	return exits
}

// nestLoops assigns parent/children and depth by containment of loop
// bodies: the smallest loop body that strictly contains another loop's
// header is that loop's parent.
func nestLoops(loops []*Loop) {
	sorted := make([]*Loop, len(loops))
	copy(sorted, loops)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i].body) < len(sorted[j].body) })

	for _, l := range sorted {
		var best *Loop
		for _, candidate := range sorted {
			if candidate == l {
				continue
			}
			if len(candidate.body) <= len(l.body) {
				continue
			}
			if !candidate.body[l.header] {
				continue
			}
			if best == nil || len(candidate.body) < len(best.body) {
				best = candidate
			}
		}
		l.parent = best
		if best != nil {
			best.children = append(best.children, l)
		}
	}

	var depth func(l *Loop) int
	depth = func(l *Loop) int {
		if l.parent == nil {
			return 0
		}
		return depth(l.parent) + 1
	}
	for _, l := range loops {
		l.depth = depth(l)
	}
}

// assignInnermost populates forest.loopOf with the smallest loop body
// containing each block.
func assignInnermost(forest *Forest, loops []*Loop) {
	for _, l := range loops {
		for b := range l.body {
			cur, ok := forest.loopOf[b]
			if !ok || len(l.body) < len(cur.body) {
				forest.loopOf[b] = l
			}
		}
	}
}

// Reducible reports whether fn's CFG is reducible under dom: every
// retreating edge of the depth-first search dom was built from (an edge
// whose target finishes no earlier than its source in dom's postorder) must
// lead back to a block that dominates its source. A retreating edge into a
// non-dominator is evidence of a multi-entry cycle that the natural-loop
// formulation above cannot assign a single header to. Tree, forward and
// cross edges (e.g. the merge edges of a diamond) are always allowed;
// unreachable blocks are ignored.
//
// Grounded on the teacher's CheckReducibility edge classification, reduced
// to the boolean predicate spec.md's invariants actually need.
func Reducible(fn *ssa.Function, dom *Tree) bool {
	for _, b := range fn.Blocks {
		bPost, reachable := dom.rpoIndex[b]
		if !reachable {
			continue
		}
		for _, s := range b.Succs {
			if dom.rpoIndex[s] >= bPost && !dom.Dominates(s, b) {
				return false
			}
		}
	}
	return true
}
