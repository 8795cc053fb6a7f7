// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package divergence_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdl-saarland/vplan-rv/divergence"
	"github.com/cdl-saarland/vplan-rv/domtree"
	"github.com/cdl-saarland/vplan-rv/ssa"
)

// buildSingleBlockLoop builds: entry -> header; header -[cond]-> {body, exit};
// body -> header (back edge); exit: x = phi(v from header).
//
// The natural loop's body is {header, body}; its only exit block is "exit".
func buildSingleBlockLoop(t *testing.T) (*ssa.Function, map[string]*ssa.Block, *ssa.Argument, *ssa.Instruction, *ssa.Instruction) {
	t.Helper()
	b := ssa.NewBuilder("loopfn")
	entry := b.Block("entry")
	header := b.Block("header")
	body := b.Block("body")
	exit := b.Block("exit")

	cond := b.Arg("cond")
	b.Jump(entry, "entry.jmp", header)
	v := b.Inst(header, "v", "induction")
	headerBr := b.CondBranch(header, "header.br", cond, body, exit)
	b.Jump(body, "body.jmp", header)
	x := b.Phi(exit, "x", []ssa.Value{v}, []*ssa.Block{header})
	b.Return(exit, "exit.ret", x)

	fn, err := b.Build()
	require.NoError(t, err)

	blocks := map[string]*ssa.Block{
		"entry": entry, "header": header, "body": body, "exit": exit,
	}
	return fn, blocks, cond, headerBr, x
}

// S3 — uniform loop induction: no seeds, nothing divergent.
func TestPropagator_S3_UniformLoopInduction(t *testing.T) {
	ctx := context.Background()
	fn, _, _, _, _ := buildSingleBlockLoop(t)

	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)
	prop, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)

	prop.Compute(ctx, true)

	for _, b := range fn.Blocks {
		for _, inst := range b.Instrs {
			require.False(t, prop.IsDivergent(inst), "instruction %q must stay uniform", inst.Name())
		}
	}
}

// S4 — divergent exit (temporal): loop-vectorizer frontend, isLCSSA=true.
func TestPropagator_S4_DivergentExitTemporal(t *testing.T) {
	ctx := context.Background()
	fn, _, cond, headerBr, x := buildSingleBlockLoop(t)

	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)
	prop, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)

	prop.MarkDivergent(cond)
	prop.Compute(ctx, true)

	require.True(t, prop.IsDivergent(headerBr))
	require.True(t, prop.IsDivergent(x), "LCSSA exit phi must be tainted temporally divergent")
}

// S5 — divergent loop live-out, non-LCSSA GPU frontend: isLCSSA=false.
func TestPropagator_S5_DivergentLoopLiveOutNonLCSSA(t *testing.T) {
	ctx := context.Background()
	fn, _, cond, headerBr, x := buildSingleBlockLoop(t)

	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)
	prop, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)

	prop.MarkDivergent(cond)
	prop.Compute(ctx, false)

	require.True(t, prop.IsDivergent(headerBr))
	require.True(t, prop.IsDivergent(x), "loop-live-out tainting must mark the exit phi divergent")
}

// --- Universal invariants (spec.md §8) ---

func buildDiamondWithPhi(t *testing.T) (*ssa.Function, *ssa.Argument, *ssa.Instruction, *ssa.Instruction) {
	t.Helper()
	b := ssa.NewBuilder("diamond")
	entry := b.Block("entry")
	thenB := b.Block("then")
	elseB := b.Block("else")
	merge := b.Block("merge")

	cond := b.Arg("cond")
	br := b.CondBranch(entry, "entry.br", cond, thenB, elseB)
	b.Jump(thenB, "then.jmp", merge)
	b.Jump(elseB, "else.jmp", merge)
	phi := b.Phi(merge, "x", []ssa.Value{b.Const("one"), b.Const("two")}, []*ssa.Block{thenB, elseB})
	b.Return(merge, "ret", phi)

	fn, err := b.Build()
	require.NoError(t, err)
	return fn, cond, br, phi
}

func TestPropagator_Monotonicity(t *testing.T) {
	ctx := context.Background()
	fn, cond, _, phi := buildDiamondWithPhi(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)

	baseline, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)
	baseline.Compute(ctx, false)
	require.False(t, baseline.IsDivergent(phi))

	seeded, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)
	seeded.MarkDivergent(cond)
	seeded.Compute(ctx, false)
	require.True(t, seeded.IsDivergent(phi))
}

func TestPropagator_Idempotence(t *testing.T) {
	ctx := context.Background()
	fn, cond, _, phi := buildDiamondWithPhi(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)
	prop, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)

	prop.MarkDivergent(cond)
	prop.Compute(ctx, false)
	first := prop.IsDivergent(phi)

	prop.Compute(ctx, false)
	require.Equal(t, first, prop.IsDivergent(phi))
}

func TestPropagator_UniformOverrideRespected(t *testing.T) {
	ctx := context.Background()
	fn, cond, _, phi := buildDiamondWithPhi(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)
	prop, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)

	prop.AddUniformOverride(phi)
	prop.MarkDivergent(cond)
	prop.Compute(ctx, false)

	require.False(t, prop.IsDivergent(phi))
}

func TestPropagator_EmptyInputIdentity(t *testing.T) {
	ctx := context.Background()
	fn, _, br, phi := buildDiamondWithPhi(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)
	prop, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)

	prop.Compute(ctx, false)

	require.False(t, prop.IsDivergent(br))
	require.False(t, prop.IsDivergent(phi))

	var buf bytes.Buffer
	require.NoError(t, prop.Dump(&buf))
	require.Empty(t, buf.String())
}

func TestPropagator_ControlToDataSoundness(t *testing.T) {
	ctx := context.Background()
	fn, cond, br, _ := buildDiamondWithPhi(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)
	prop, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)

	prop.MarkDivergent(cond)
	prop.Compute(ctx, false)
	require.True(t, prop.IsDivergent(br))

	for b := range oracle.JoinBlocks(ctx, br) {
		phis := fn.PhiNodes(b)
		if len(phis) == 0 {
			continue
		}
		oneDivergent := false
		for _, phi := range phis {
			if prop.IsDivergent(phi) {
				oneDivergent = true
			}
		}
		require.True(t, oneDivergent, "join block %q must have a divergent phi", b.Name())
	}
}

func TestPropagator_DataToDataSoundness(t *testing.T) {
	ctx := context.Background()
	b := ssa.NewBuilder("chain")
	entry := b.Block("entry")
	arg := b.Arg("arg")
	i1 := b.Inst(entry, "i1", "add", arg)
	i2 := b.Inst(entry, "i2", "mul", i1)
	b.Return(entry, "ret", i2)

	fn, err := b.Build()
	require.NoError(t, err)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)
	prop, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)

	prop.MarkDivergent(arg)
	prop.Compute(ctx, false)

	require.True(t, prop.IsDivergent(i1))
	require.True(t, prop.IsDivergent(i2))
}

func TestPropagator_MarkingUniformOverrideDivergentPanics(t *testing.T) {
	ctx := context.Background()
	fn, cond, _, _ := buildDiamondWithPhi(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)
	prop, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)

	prop.AddUniformOverride(cond)
	require.Panics(t, func() { prop.MarkDivergent(cond) })
}

func TestPropagator_Dump_DeterministicOrder(t *testing.T) {
	ctx := context.Background()
	fn, cond, br, phi := buildDiamondWithPhi(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)
	oracle, err := divergence.NewOracle(fn, info)
	require.NoError(t, err)
	prop, err := divergence.NewPropagator(fn, info, oracle, nil)
	require.NoError(t, err)

	prop.MarkDivergent(cond)
	prop.Compute(ctx, false)

	var buf bytes.Buffer
	require.NoError(t, prop.Dump(&buf))

	names := []string{br.Name(), phi.Name()}
	for _, name := range names {
		require.Contains(t, buf.String(), name)
	}
	require.Equal(t, "cond\nentry.br\nx\n", buf.String(), "Dump lists divergent values sorted by name")
}
