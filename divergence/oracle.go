// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package divergence implements the two-layer control-flow divergence
// engine: JoinBlockOracle (sync-dependence, per terminator) and
// DivergencePropagator (the work-list fixed point that consumes it).
//
// Grounded directly on LLVM's BranchDependenceAnalysis.cpp (the oracle) and
// DivergenceAnalysis.cpp (the propagator) under original_source/, adapted
// from LLVM's Value/Instruction hierarchy to this module's ssa package.
package divergence

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cdl-saarland/vplan-rv/ssa"
)

var oracleTracer = otel.Tracer("vplan-rv.divergence.oracle")

// Oracle answers, for a terminator, the set of blocks whose φ-nodes become
// divergent if that terminator is divergent (spec.md §4.1). It implements
// the reaching-definition formulation (§4.1.b), chosen over the disjoint-
// paths/node-split-graph formulation for the reasons recorded in
// SPEC_FULL.md §3.
//
// Thread Safety: joinBlocks performs lazy cache insertion guarded by a
// mutex, so a single Oracle may be shared read-mostly across goroutines,
// but spec.md §5 only requires (and this module only exercises) one oracle
// per single-threaded function analysis.
type Oracle struct {
	cfg ssa.CFGView
	dom ssa.DomInfo

	mu    sync.Mutex
	cache map[*ssa.Instruction]map[*ssa.Block]bool
}

// NewOracle constructs an Oracle over cfg and dom. Neither may be nil.
func NewOracle(cfg ssa.CFGView, dom ssa.DomInfo) (*Oracle, error) {
	if cfg == nil {
		return nil, ErrNilCFG
	}
	if dom == nil {
		return nil, ErrNilDomInfo
	}
	return &Oracle{cfg: cfg, dom: dom, cache: make(map[*ssa.Instruction]map[*ssa.Block]bool)}, nil
}

// JoinBlocks returns the frozen set of join blocks for terminator t,
// computing and caching it on first request. Cache entries are pure
// functions of the CFG and DomInfo (spec.md §3 "JoinBlockCache"): they are
// never invalidated.
func (o *Oracle) JoinBlocks(ctx context.Context, t *ssa.Instruction) map[*ssa.Block]bool {
	o.mu.Lock()
	if cached, ok := o.cache[t]; ok {
		o.mu.Unlock()
		return cached
	}
	o.mu.Unlock()

	_, span := oracleTracer.Start(ctx, "Oracle.JoinBlocks",
		trace.WithAttributes(attribute.String("terminator", t.Name())))
	defer span.End()

	result := o.computeJoinBlocks(t)
	joinBlockComputations.Inc()

	o.mu.Lock()
	o.cache[t] = result
	o.mu.Unlock()

	span.SetAttributes(attribute.Int("join_block_count", len(result)))
	return result
}

// computeJoinBlocks implements spec.md §4.1.b's five numbered rules.
func (o *Oracle) computeJoinBlocks(t *ssa.Instruction) map[*ssa.Block]bool {
	result := make(map[*ssa.Block]bool)

	// Both formulations must treat a terminator with fewer than two normal
	// successors as trivially having an empty join set.
	if o.cfg.NumSuccessors(t) < 2 {
		return result
	}

	tBlock := o.cfg.BlockOf(t)
	branchLoop := o.dom.LoopOf(tBlock)
	postDomBound := o.dom.ImmediatePostDominator(tBlock)

	tSuccessors := make(map[*ssa.Block]bool)
	for _, s := range o.cfg.Successors(tBlock) {
		tSuccessors[s] = true
	}

	reachingDef := make(map[*ssa.Block]*ssa.Block)
	exitReach := make(map[*ssa.Block]*ssa.Block)

	var queue []*ssa.Block
	enqueued := make(map[*ssa.Block]bool)
	enqueue := func(b *ssa.Block) {
		if enqueued[b] {
			return
		}
		enqueued[b] = true
		queue = append(queue, b)
	}

	// 1. Seed.
	for _, s := range o.cfg.Successors(tBlock) {
		if branchLoop != nil && !branchLoop.Contains(s) {
			exitReach[s] = s
			continue
		}
		reachingDef[s] = s
		enqueue(s)
	}

	// 2 & 3. Walk bound + transition.
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		enqueued[b] = false // allow re-enqueue on a later join re-assignment

		d := reachingDef[b]

		// Walk bound: do not propagate past the post-dominator bound or
		// the enclosing loop's header.
		if b == postDomBound {
			continue
		}
		if branchLoop != nil && b == branchLoop.Header() {
			continue
		}

		for _, sp := range o.cfg.Successors(b) {
			if branchLoop != nil && !branchLoop.Contains(sp) {
				exitReach[sp] = d
				continue
			}

			existing, has := reachingDef[sp]
			switch {
			case !has:
				reachingDef[sp] = d
				enqueue(sp)
			case existing != d || (tSuccessors[d] && d == sp):
				// The second disjunct is the "two-entry cycle" case: d is
				// itself one of t's direct successors, and this edge
				// reaches it again (e.g. a back edge into a loop header
				// that is also t's direct successor). Two distinct edges
				// out of t converge on sp even though the label is the
				// same reaching def, so sp is still a join.
				result[sp] = true
				reachingDef[sp] = sp
				enqueue(sp)
			default:
				// existing == d: already reached consistently, nothing
				// new to propagate from here.
			}
		}
	}

	// 4. Loop-exit closure.
	if branchLoop != nil && postDomBound != nil && branchLoop.Contains(postDomBound) {
		if rd, ok := reachingDef[postDomBound]; ok {
			reachingDef[branchLoop.Header()] = rd
		}
	}

	// 5. Exit-block classification.
	if branchLoop != nil {
		headerDef, headerHasDef := reachingDef[branchLoop.Header()]
		for exitBlock, def := range exitReach {
			if !headerHasDef || def != headerDef {
				result[exitBlock] = true
			}
		}
	}

	assertf(reducibilityHolds(branchLoop, reachingDef), "divergence: oracle observed irreducible loop structure")

	return result
}

// reducibilityHolds is the oracle's debug-only reducibility assertion
// (spec.md §4.1 "Failure semantics"): every block the walk assigned a
// reaching def to must have one consistent with the loop header once the
// loop-exit closure runs, for blocks inside the loop at least the header
// itself must resolve. This is a cheap necessary-condition check, not a
// full reducibility proof — domtree.Reducible is the authoritative check,
// run once by domtree.Build before an Info is handed out.
func reducibilityHolds(branchLoop ssa.Loop, reachingDef map[*ssa.Block]*ssa.Block) bool {
	if branchLoop == nil {
		return true
	}
	_, ok := reachingDef[branchLoop.Header()]
	return ok || len(reachingDef) == 0
}
