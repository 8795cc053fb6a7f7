// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package frontend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdl-saarland/vplan-rv/divergence/frontend"
	"github.com/cdl-saarland/vplan-rv/domtree"
	"github.com/cdl-saarland/vplan-rv/ssa"
)

// buildDiamond builds entry -[tid]-> {then, else} -> merge, merge holds a φ.
func buildDiamond(t *testing.T) (*ssa.Function, *ssa.Argument, *ssa.Instruction) {
	t.Helper()
	b := ssa.NewBuilder("kernel")
	entry := b.Block("entry")
	thenB := b.Block("then")
	elseB := b.Block("else")
	merge := b.Block("merge")

	tid := b.Arg("tid")
	b.CondBranch(entry, "entry.br", tid, thenB, elseB)
	b.Jump(thenB, "then.jmp", merge)
	b.Jump(elseB, "else.jmp", merge)
	phi := b.Phi(merge, "x", []ssa.Value{b.Const("one"), b.Const("two")}, []*ssa.Block{thenB, elseB})
	b.Return(merge, "ret", phi)

	fn, err := b.Build()
	require.NoError(t, err)
	return fn, tid, phi
}

func TestRunGPU_SeedsSourcePredicate(t *testing.T) {
	ctx := context.Background()
	fn, tid, phi := buildDiamond(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)

	prop, err := frontend.RunGPU(ctx, fn, info, func(v ssa.Value) bool {
		return v == ssa.Value(tid)
	}, nil)
	require.NoError(t, err)

	require.True(t, prop.IsDivergent(tid))
	require.True(t, prop.IsDivergent(phi))
}

func TestRunGPU_UniformOverrideWinsOverSource(t *testing.T) {
	ctx := context.Background()
	fn, tid, phi := buildDiamond(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)

	pred := func(v ssa.Value) bool { return v == ssa.Value(tid) }
	prop, err := frontend.RunGPU(ctx, fn, info, pred, pred)
	require.NoError(t, err)

	require.True(t, prop.IsAlwaysUniform(tid))
	require.False(t, prop.IsDivergent(tid))
	require.False(t, prop.IsDivergent(phi))
}

// buildSingleBlockLoop builds: entry -> header; header -[cond]-> {body, exit};
// body -> header (back edge); exit: x = phi(v from header).
func buildSingleBlockLoop(t *testing.T) (*ssa.Function, map[string]*ssa.Block, *ssa.Argument) {
	t.Helper()
	b := ssa.NewBuilder("loopfn")
	entry := b.Block("entry")
	header := b.Block("header")
	body := b.Block("body")
	exit := b.Block("exit")

	cond := b.Arg("cond")
	b.Jump(entry, "entry.jmp", header)
	v := b.Inst(header, "v", "induction")
	b.CondBranch(header, "header.br", cond, body, exit)
	b.Jump(body, "body.jmp", header)
	x := b.Phi(exit, "x", []ssa.Value{v}, []*ssa.Block{header})
	b.Return(exit, "exit.ret", x)

	fn, err := b.Build()
	require.NoError(t, err)

	blocks := map[string]*ssa.Block{
		"entry": entry, "header": header, "body": body, "exit": exit,
	}
	return fn, blocks, cond
}

func TestRunLoopVectorizer_HeaderWithoutPhis(t *testing.T) {
	ctx := context.Background()
	fn, blocks, _ := buildSingleBlockLoop(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)

	loop := info.LoopOf(blocks["body"])
	require.NotNil(t, loop)

	headerPhis := fn.PhiNodes(blocks["header"])
	require.Empty(t, headerPhis, "this fixture's header has no phi — nothing should be seeded")

	prop, err := frontend.RunLoopVectorizer(ctx, fn, info, loop, nil)
	require.NoError(t, err)
	require.NotNil(t, prop)
}

func TestRunLoopVectorizer_ExitConditionOverride(t *testing.T) {
	ctx := context.Background()
	fn, blocks, cond := buildSingleBlockLoop(t)
	info, err := domtree.Build(ctx, fn)
	require.NoError(t, err)

	loop := info.LoopOf(blocks["body"])
	require.NotNil(t, loop)

	prop, err := frontend.RunLoopVectorizer(ctx, fn, info, loop, nil,
		frontend.WithExitConditionOverride(true))
	require.NoError(t, err)
	require.True(t, prop.IsAlwaysUniform(cond))
}
