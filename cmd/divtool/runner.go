// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"

	"github.com/cdl-saarland/vplan-rv/divergence"
	"github.com/cdl-saarland/vplan-rv/divergence/frontend"
	"github.com/cdl-saarland/vplan-rv/domtree"
	"github.com/cdl-saarland/vplan-rv/ssa"
)

// runCase loads path, builds the CFG, and runs the case's configured
// frontend to a fixed point, returning the resulting propagator and the
// function it ran over (for deterministic dumping).
func runCase(ctx context.Context, path string) (*divergence.Propagator, *ssa.Function, error) {
	cf, err := loadCaseFile(path)
	if err != nil {
		return nil, nil, err
	}

	fn, values, err := cf.build()
	if err != nil {
		return nil, nil, err
	}

	info, err := domtree.Build(ctx, fn)
	if err != nil {
		return nil, nil, fmt.Errorf("divtool: building dominator/loop info: %w", err)
	}

	lookup := func(names []string) (map[ssa.Value]bool, error) {
		set := make(map[ssa.Value]bool, len(names))
		for _, name := range names {
			v, ok := values[name]
			if !ok {
				return nil, fmt.Errorf("divtool: undefined value %q", name)
			}
			set[v] = true
		}
		return set, nil
	}

	seeds, err := lookup(cf.Seeds)
	if err != nil {
		return nil, nil, err
	}
	overrides, err := lookup(cf.UniformOverrides)
	if err != nil {
		return nil, nil, err
	}

	switch cf.Mode {
	case "", "gpu":
		prop, err := frontend.RunGPU(ctx, fn, info,
			func(v ssa.Value) bool { return seeds[v] },
			func(v ssa.Value) bool { return overrides[v] })
		if err != nil {
			return nil, nil, err
		}
		return prop, fn, nil

	case "loopvect":
		if cf.LoopHeader == "" {
			return nil, nil, fmt.Errorf("divtool: mode loopvect requires loop_header")
		}
		headerBlock, ok := findBlock(fn, cf.LoopHeader)
		if !ok {
			return nil, nil, fmt.Errorf("divtool: undefined loop header block %q", cf.LoopHeader)
		}
		loop := info.LoopOf(headerBlock)
		if loop == nil || loop.Header() != headerBlock {
			return nil, nil, fmt.Errorf("divtool: block %q is not a loop header", cf.LoopHeader)
		}

		opts := []frontend.LoopOption{frontend.WithExitConditionOverride(cf.ExitConditionOverride)}
		if cf.ExcludeIdentityPhis != nil {
			opts = append(opts, frontend.WithIdentityPhiExclusion(*cf.ExcludeIdentityPhis))
		}

		prop, err := frontend.RunLoopVectorizer(ctx, fn, info, loop,
			func(v ssa.Value) bool { return overrides[v] }, opts...)
		if err != nil {
			return nil, nil, err
		}
		return prop, fn, nil

	default:
		return nil, nil, fmt.Errorf("divtool: unknown mode %q (want \"gpu\" or \"loopvect\")", cf.Mode)
	}
}

func findBlock(fn *ssa.Function, name string) (*ssa.Block, bool) {
	for _, b := range fn.Blocks {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}
