// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package frontend provides the thin seeding adapters spec.md §2 calls for:
// a GPU-kernel frontend that seeds from an externally supplied
// "source of divergence" predicate, and a loop-vectorizer frontend that
// seeds a single loop's header φ-nodes under LCSSA.
package frontend

import (
	"context"
	"fmt"

	"github.com/cdl-saarland/vplan-rv/divergence"
	"github.com/cdl-saarland/vplan-rv/ssa"
)

// SourcePredicate reports whether v is a source of divergence (e.g. a
// thread/lane-ID-derived value). It is queried once per value reachable
// from fn's arguments and instructions (spec.md §2's "frontend in the
// original walks both instructions(F) and F.args()" — generalized here to
// one predicate over ssa.Value, since Value already covers both cases).
type SourcePredicate func(v ssa.Value) bool

// UniformPredicate reports whether v must never be marked divergent,
// regardless of what the propagator would otherwise conclude.
type UniformPredicate func(v ssa.Value) bool

// RunGPU seeds and runs the propagator for whole-function, non-LCSSA
// divergence analysis (spec.md §2 "GPU-kernel frontend"): every argument
// and instruction in fn for which isSource returns true is seeded
// divergent; every value for which isUniform returns true is registered as
// a uniform override before any seeding, so overrides win even if a value
// would also match isSource.
func RunGPU(ctx context.Context, fn *ssa.Function, dom ssa.DomInfo, isSource SourcePredicate, isUniform UniformPredicate) (*divergence.Propagator, error) {
	oracle, err := divergence.NewOracle(fn, dom)
	if err != nil {
		return nil, fmt.Errorf("frontend: gpu: building oracle: %w", err)
	}

	prop, err := divergence.NewPropagator(fn, dom, oracle, nil)
	if err != nil {
		return nil, fmt.Errorf("frontend: gpu: building propagator: %w", err)
	}

	if isUniform != nil {
		for _, arg := range fn.Args {
			if isUniform(arg) {
				prop.AddUniformOverride(arg)
			}
		}
		for _, b := range fn.Blocks {
			for _, inst := range b.Instrs {
				if isUniform(inst) {
					prop.AddUniformOverride(inst)
				}
			}
		}
	}

	if isSource != nil {
		for _, arg := range fn.Args {
			if isSource(arg) && !prop.IsAlwaysUniform(arg) {
				prop.MarkDivergent(arg)
			}
		}
		for _, b := range fn.Blocks {
			for _, inst := range b.Instrs {
				if isSource(inst) && !prop.IsAlwaysUniform(inst) {
					prop.MarkDivergent(inst)
				}
			}
		}
	}

	prop.Compute(ctx, false)
	return prop, nil
}
