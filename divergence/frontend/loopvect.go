// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package frontend

import (
	"context"
	"fmt"

	"github.com/cdl-saarland/vplan-rv/divergence"
	"github.com/cdl-saarland/vplan-rv/ssa"
)

// LoopOption configures RunLoopVectorizer.
type LoopOption func(*loopConfig)

type loopConfig struct {
	excludeIdentityPhis   bool
	exitConditionOverride bool
}

// WithExitConditionOverride marks the condition of the loop header's
// conditional branch as a uniform override before seeding; a header ending
// in any other terminator kind, and exit branches in other loop blocks, are
// left alone (spec.md's SUPPLEMENTED FEATURES: LLVM's
// LoopDivergenceAnalysis hard-codes this once the scalar remainder loop has
// been extracted; here it is an explicit, opt-in knob since not every
// caller has performed that extraction).
func WithExitConditionOverride(enabled bool) LoopOption {
	return func(c *loopConfig) { c.exitConditionOverride = enabled }
}

// WithIdentityPhiExclusion overrides the propagator's identity-phi
// exclusion default (spec.md §9's first Open Question) for this run.
func WithIdentityPhiExclusion(exclude bool) LoopOption {
	return func(c *loopConfig) { c.excludeIdentityPhis = exclude }
}

// RunLoopVectorizer seeds and runs the propagator for a single natural
// loop under LCSSA (spec.md §2 "loop-vectorizer frontend"): every φ-node
// of the loop header is seeded divergent, matching "a loop-vectorizer
// frontend that seeds the loop's header φ-nodes." isUniform, if non-nil,
// registers additional uniform overrides (e.g. trip-count computations
// known uniform after remainder splitting) before seeding.
func RunLoopVectorizer(ctx context.Context, fn *ssa.Function, dom ssa.DomInfo, loop ssa.Loop, isUniform UniformPredicate, opts ...LoopOption) (*divergence.Propagator, error) {
	cfg := loopConfig{excludeIdentityPhis: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	oracle, err := divergence.NewOracle(fn, dom)
	if err != nil {
		return nil, fmt.Errorf("frontend: loopvect: building oracle: %w", err)
	}

	region := func(i *ssa.Instruction) bool { return loop.Contains(i.Block) }
	prop, err := divergence.NewPropagator(fn, dom, oracle, region,
		divergence.WithExcludeIdentityPhis(cfg.excludeIdentityPhis))
	if err != nil {
		return nil, fmt.Errorf("frontend: loopvect: building propagator: %w", err)
	}

	if isUniform != nil {
		for _, b := range fn.Blocks {
			if !loop.Contains(b) {
				continue
			}
			for _, inst := range fn.Instructions(b) {
				if isUniform(inst) {
					prop.AddUniformOverride(inst)
				}
			}
		}
	}

	if cfg.exitConditionOverride {
		if t := fn.TerminatorOf(loop.Header()); t != nil && fn.KindOf(t) == ssa.KindCondBranch {
			prop.AddUniformOverride(fn.ConditionOf(t))
		}
	}

	for _, phi := range fn.PhiNodes(loop.Header()) {
		if !prop.IsAlwaysUniform(phi) {
			prop.MarkDivergent(phi)
		}
	}

	prop.Compute(ctx, true)
	return prop, nil
}
