// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package domtree_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdl-saarland/vplan-rv/domtree"
	"github.com/cdl-saarland/vplan-rv/ssa"
)

// buildDiamond builds entry -> {left, right} -> join -> exit.
func buildDiamond(t *testing.T) *ssa.Function {
	t.Helper()
	b := ssa.NewBuilder("diamond")
	entry := b.Block("entry")
	left := b.Block("left")
	right := b.Block("right")
	join := b.Block("join")
	exit := b.Block("exit")

	cond := b.Arg("cond")
	b.CondBranch(entry, "entry.br", cond, left, right)
	b.Jump(left, "left.jmp", join)
	b.Jump(right, "right.jmp", join)
	b.Jump(join, "join.jmp", exit)
	b.Return(exit, "exit.ret", nil)

	fn, err := b.Build()
	require.NoError(t, err)
	return fn
}

func blockByName(fn *ssa.Function, name string) *ssa.Block {
	for _, b := range fn.Blocks {
		if b.BlockName == name {
			return b
		}
	}
	return nil
}

func TestDominatorTree_Diamond(t *testing.T) {
	fn := buildDiamond(t)
	dom, err := domtree.BuildDominators(context.Background(), fn)
	require.NoError(t, err)

	entry := blockByName(fn, "entry")
	left := blockByName(fn, "left")
	right := blockByName(fn, "right")
	join := blockByName(fn, "join")
	exit := blockByName(fn, "exit")

	require.True(t, dom.Dominates(entry, join))
	require.True(t, dom.Dominates(entry, left))
	require.True(t, dom.Dominates(entry, right))
	require.False(t, dom.Dominates(left, right))
	require.False(t, dom.Dominates(right, left))
	require.Equal(t, entry, dom.ImmediateDominator(join))
	require.Equal(t, join, dom.ImmediateDominator(exit))
}

func TestPostDominatorTree_Diamond(t *testing.T) {
	fn := buildDiamond(t)
	postDom, err := domtree.BuildPostDominators(context.Background(), fn)
	require.NoError(t, err)

	entry := blockByName(fn, "entry")
	join := blockByName(fn, "join")
	exit := blockByName(fn, "exit")

	require.True(t, postDom.Dominates(exit, entry))
	require.True(t, postDom.Dominates(join, entry))
	require.Equal(t, join, postDom.ImmediateDominator(entry))
}

// buildLoop builds entry -> header -> body -> header (back edge), header -> exit.
func buildLoop(t *testing.T) (*ssa.Function, map[string]*ssa.Block) {
	t.Helper()
	b := ssa.NewBuilder("loop")
	entry := b.Block("entry")
	header := b.Block("header")
	body := b.Block("body")
	exit := b.Block("exit")

	cond := b.Arg("cond")
	b.Jump(entry, "entry.jmp", header)
	b.CondBranch(header, "header.br", cond, body, exit)
	b.Jump(body, "body.jmp", header)
	b.Return(exit, "exit.ret", nil)

	fn, err := b.Build()
	require.NoError(t, err)

	return fn, map[string]*ssa.Block{
		"entry": entry, "header": header, "body": body, "exit": exit,
	}
}

func TestDetectLoops_SingleLoop(t *testing.T) {
	fn, blocks := buildLoop(t)
	dom, err := domtree.BuildDominators(context.Background(), fn)
	require.NoError(t, err)

	forest, err := domtree.DetectLoops(context.Background(), fn, dom)
	require.NoError(t, err)
	require.Len(t, forest.Loops, 1)

	loop := forest.Loops[0]
	require.Equal(t, blocks["header"], loop.Header())
	require.Equal(t, blocks["body"], loop.Latch())
	require.True(t, loop.Contains(blocks["header"]))
	require.True(t, loop.Contains(blocks["body"]))
	require.False(t, loop.Contains(blocks["entry"]))
	require.False(t, loop.Contains(blocks["exit"]))
	require.Equal(t, []*ssa.Block{blocks["exit"]}, loop.ExitBlocks())

	require.Equal(t, loop, forest.LoopOf(blocks["body"]))
	require.Nil(t, forest.LoopOf(blocks["entry"]))
}

func TestReducible(t *testing.T) {
	fn, _ := buildLoop(t)
	dom, err := domtree.BuildDominators(context.Background(), fn)
	require.NoError(t, err)
	require.True(t, domtree.Reducible(fn, dom))
}

// buildIrreducible builds entry -> {a, b}, a -> {b, exit}, b -> {a, exit}: a
// two-node cycle entered from both a and b, with neither dominating the
// other.
func buildIrreducible(t *testing.T) *ssa.Function {
	t.Helper()
	b := ssa.NewBuilder("irreducible")
	entry := b.Block("entry")
	a := b.Block("a")
	bb := b.Block("b")
	exit := b.Block("exit")

	b.CondBranch(entry, "entry.br", b.Arg("cond"), a, bb)
	b.CondBranch(a, "a.br", b.Arg("condA"), bb, exit)
	b.CondBranch(bb, "b.br", b.Arg("condB"), a, exit)
	b.Return(exit, "exit.ret", nil)

	fn, err := b.Build()
	require.NoError(t, err)
	return fn
}

func TestReducible_IrreducibleCFG(t *testing.T) {
	fn := buildIrreducible(t)
	dom, err := domtree.BuildDominators(context.Background(), fn)
	require.NoError(t, err)
	require.False(t, domtree.Reducible(fn, dom))
}

func TestInfo_Build_RejectsIrreducibleCFG(t *testing.T) {
	fn := buildIrreducible(t)
	_, err := domtree.Build(context.Background(), fn)
	require.ErrorIs(t, err, domtree.ErrIrreducible)
}

func TestInfo_Build(t *testing.T) {
	fn, blocks := buildLoop(t)
	info, err := domtree.Build(context.Background(), fn)
	require.NoError(t, err)
	require.True(t, info.Reducible())
	require.NotNil(t, info.LoopOf(blocks["body"]))
	require.Nil(t, info.LoopOf(blocks["entry"]))
	require.Equal(t, blocks["header"], info.ImmediatePostDominator(blocks["entry"]))
}
