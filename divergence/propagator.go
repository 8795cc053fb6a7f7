// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package divergence

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cdl-saarland/vplan-rv/ssa"
)

var propagatorTracer = otel.Tracer("vplan-rv.divergence.propagator")

// Option configures a Propagator. The identity-phi exclusion setting, when
// true, keeps a same-level join-block φ out of the divergent set if all of
// its incoming values are the same value (see
// ssa.CFGView.HasConstantOrUndefIdentity; spec.md §9's first Open
// Question). SPEC_FULL.md §4 decision 1 defaults it to true; frontends may
// flip it per Propagator instance via WithExcludeIdentityPhis.
type Option func(*Propagator)

// WithExcludeIdentityPhis overrides the identity-phi exclusion default.
func WithExcludeIdentityPhis(exclude bool) Option {
	return func(p *Propagator) { p.excludeIdentityPhis = exclude }
}

// Propagator is the work-list fixed-point engine of spec.md §4.2: it fuses
// data-dependence propagation with control-dependence propagation mediated
// by an Oracle.
//
// Grounded directly on LLVM's DivergenceAnalysis.cpp: the same three update
// rules (terminator / φ / ordinary instruction), the same loop-live-out
// tainting procedure for non-LCSSA cross-loop joins.
type Propagator struct {
	cfg    ssa.CFGView
	dom    ssa.DomInfo
	oracle *Oracle

	region func(*ssa.Instruction) bool

	excludeIdentityPhis bool

	s *state

	computed bool
}

// NewPropagator constructs a Propagator over cfg/dom, querying oracle for
// join blocks. region reports whether an instruction lies in the analysis
// region that users should be enqueued into: the whole function for a GPU
// frontend, a single loop for a loop-vectorizer frontend.
func NewPropagator(cfg ssa.CFGView, dom ssa.DomInfo, oracle *Oracle, region func(*ssa.Instruction) bool, opts ...Option) (*Propagator, error) {
	if cfg == nil {
		return nil, ErrNilCFG
	}
	if dom == nil {
		return nil, ErrNilDomInfo
	}
	if oracle == nil {
		return nil, fmt.Errorf("divergence: oracle must not be nil")
	}
	if region == nil {
		region = func(*ssa.Instruction) bool { return true }
	}

	p := &Propagator{
		cfg:                 cfg,
		dom:                 dom,
		oracle:              oracle,
		region:              region,
		excludeIdentityPhis: true,
		s:                   newState(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// MarkDivergent seeds v as divergent. Requires v not be in uniformOverrides.
func (p *Propagator) MarkDivergent(v ssa.Value) {
	assertf(!p.s.isUniformOverride(v), "divergence: marking %q divergent but it is a uniform override", v.Name())
	if !p.s.markDivergent(v) {
		return
	}
	p.enqueueUsers(v)
}

// AddUniformOverride declares v as never divergent. Must be called before
// Compute.
func (p *Propagator) AddUniformOverride(v ssa.Value) {
	assertf(!p.computed, "divergence: AddUniformOverride called after Compute")
	p.s.uniformOverrides[v] = true
}

// IsDivergent reports whether v has been marked divergent.
func (p *Propagator) IsDivergent(v ssa.Value) bool { return p.s.isDivergent(v) }

// IsAlwaysUniform reports whether v was declared a uniform override.
func (p *Propagator) IsAlwaysUniform(v ssa.Value) bool { return p.s.isUniformOverride(v) }

// Compute runs the work-list to a fixed point. isLCSSA selects the loop-
// vectorizer frontend's cross-loop join handling (temporal φ tainting) over
// the GPU frontend's (loop-live-out tainting).
func (p *Propagator) Compute(ctx context.Context, isLCSSA bool) {
	ctx, span := propagatorTracer.Start(ctx, "Propagator.Compute",
		trace.WithAttributes(attribute.Bool("is_lcssa", isLCSSA)))
	defer span.End()

	iterations := 0
	for {
		inst, ok := p.s.pop()
		if !ok {
			break
		}
		iterations++
		p.evaluate(ctx, inst, isLCSSA)
	}
	p.computed = true
	propagatorIterations.Observe(float64(iterations))
	span.SetAttributes(
		attribute.Int("iterations", iterations),
		attribute.Int("divergent_values", len(p.s.divergentValues)),
	)
}

// evaluate applies one of the three update rules (spec.md §4.2) to inst.
func (p *Propagator) evaluate(ctx context.Context, inst *ssa.Instruction, isLCSSA bool) {
	if p.s.isUniformOverride(inst) || p.s.isDivergent(inst) {
		return
	}

	var becameDivergent bool
	switch {
	case p.cfg.KindOf(inst) != ssa.KindNone:
		becameDivergent = p.evaluateTerminator(ctx, inst, isLCSSA)
	case inst.IsPhi():
		becameDivergent = p.evaluatePhi(inst)
	default:
		becameDivergent = p.evaluateOrdinary(inst)
	}

	if !becameDivergent {
		return
	}
	p.s.markDivergent(inst)
	p.enqueueUsers(inst)
}

// evaluateTerminator implements update rule 1.
func (p *Propagator) evaluateTerminator(ctx context.Context, t *ssa.Instruction, isLCSSA bool) bool {
	switch p.cfg.KindOf(t) {
	case ssa.KindCondBranch, ssa.KindSwitch:
		if !p.s.isDivergent(p.cfg.ConditionOf(t)) {
			return false
		}
	case ssa.KindAbnormal, ssa.KindUncond:
		return false
	default:
		assertf(false, "divergence: terminator %q has unexpected kind", t.Name())
		return false
	}

	joinBlocks := p.oracle.JoinBlocks(ctx, t)
	tBlock := p.cfg.BlockOf(t)
	branchLoop := p.dom.LoopOf(tBlock)

	// Deterministic iteration: sort by block name so diagnostic output and
	// any scheduling-sensitive observer see a stable order (spec.md §4.2
	// "Determinism").
	for _, j := range sortedBlocks(joinBlocks) {
		joinLoop := p.dom.LoopOf(j)
		switch {
		case sameLoop(branchLoop, joinLoop):
			p.s.markSameLevelJoin(j)
			p.enqueuePhis(j)
		case isLCSSA:
			p.s.markTemporalJoin(j)
			p.enqueuePhis(j)
		default:
			p.taintLoopLiveOuts(branchLoop)
		}
	}
	return true
}

// evaluatePhi implements update rule 2.
func (p *Propagator) evaluatePhi(phi *ssa.Instruction) bool {
	b := p.cfg.BlockOf(phi)
	status := p.s.joinStatus[b]

	if status.IsTemporal() {
		return true
	}
	if status.IsSameLevel() {
		if !(p.excludeIdentityPhis && p.cfg.HasConstantOrUndefIdentity(phi)) {
			return true
		}
	}
	for _, in := range p.cfg.IncomingValues(phi) {
		if p.s.isDivergent(in) {
			return true
		}
	}
	return false
}

// evaluateOrdinary implements update rule 3.
func (p *Propagator) evaluateOrdinary(inst *ssa.Instruction) bool {
	for _, op := range p.cfg.Operands(inst) {
		if p.s.isDivergent(op) {
			return true
		}
	}
	return false
}

// taintLoopLiveOuts implements §4.2.a: the non-LCSSA cross-loop join
// handling triggered when a divergent branch inside branchLoop induces
// divergence in values consumed outside it.
func (p *Propagator) taintLoopLiveOuts(branchLoop ssa.Loop) {
	visited := make(map[*ssa.Block]bool)

	var stack []*ssa.Block
	push := func(b *ssa.Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		stack = append(stack, b)
	}

	// 1. Collect exit blocks into a stack; mark them and the header
	// visited.
	push(branchLoop.Header())
	for _, x := range branchLoop.ExitBlocks() {
		push(x)
	}

	for len(stack) > 0 {
		n := len(stack) - 1
		u := stack[n]
		stack = stack[:n]

		if u == branchLoop.Header() {
			continue
		}

		// 2. Assert reducibility: u must not be inside the loop.
		assertf(!branchLoop.Contains(u), "divergence: loop-live-out tainting descended back into the loop (irreducible control flow)")

		// 3. Fringe-of-dominance: not dominated by the header -> temporal.
		if !p.dom.Dominates(branchLoop.Header(), u) {
			p.s.markTemporalJoin(u)
			p.enqueuePhis(u)
			continue
		}

		// 4. Taint instructions with an operand defined inside the loop.
		for _, inst := range p.cfg.Instructions(u) {
			if p.s.isUniformOverride(inst) || p.s.isDivergent(inst) {
				continue
			}
			definedInLoop := false
			for _, op := range p.cfg.Operands(inst) {
				if opBlock := p.cfg.BlockOf(op); opBlock != nil && branchLoop.Contains(opBlock) {
					definedInLoop = true
					break
				}
			}
			if definedInLoop {
				p.s.markDivergent(inst)
				p.enqueueUsers(inst)
			}
		}

		// 5. Descend to unvisited successors.
		for _, succ := range p.cfg.Successors(u) {
			push(succ)
		}
	}
}

// enqueueUsers pushes every instruction user of v that lies in the analysis
// region.
func (p *Propagator) enqueueUsers(v ssa.Value) {
	for _, u := range p.cfg.Users(v) {
		if p.region(u) {
			p.s.push(u)
		}
	}
}

// enqueuePhis pushes every φ-node of b.
func (p *Propagator) enqueuePhis(b *ssa.Block) {
	for _, phi := range p.cfg.PhiNodes(b) {
		p.s.push(phi)
	}
}

func sameLoop(a, b ssa.Loop) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Header() == b.Header()
}

// sortedBlocks returns the blocks of set in a deterministic (by name)
// order.
func sortedBlocks(set map[*ssa.Block]bool) []*ssa.Block {
	blocks := make([]*ssa.Block, 0, len(set))
	for b := range set {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Name() < blocks[j].Name() })
	return blocks
}

// Dump writes every divergent value in a deterministic per-function order
// (spec.md §6 "a diagnostic dump listing every divergent value in a
// deterministic per-function order").
func (p *Propagator) Dump(w io.Writer) error {
	names := make([]string, 0, len(p.s.divergentValues))
	for v := range p.s.divergentValues {
		names = append(names, v.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}
