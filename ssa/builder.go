// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ssa

import "fmt"

// Builder assembles a *Function block by block, wiring use-def/def-use
// edges as instructions are added. It exists for frontends and tests that
// need to construct small CFGs programmatically rather than parse a real
// IR — the oracle and propagator never see a Builder, only the resulting
// *Function through the CFGView interface.
type Builder struct {
	fn     *Function
	blocks map[string]*Block

	terminated map[*Block]bool
	firstErr   error
}

// NewBuilder starts a function named name.
func NewBuilder(name string) *Builder {
	return &Builder{
		fn:         &Function{FuncName: name},
		blocks:     make(map[string]*Block),
		terminated: make(map[*Block]bool),
	}
}

// fail records the first error encountered during construction; Build
// returns it. Later errors are dropped since the first one is almost always
// the root cause.
func (b *Builder) fail(err error) {
	if b.firstErr == nil {
		b.firstErr = err
	}
}

// markTerminator records that blk was just given a terminator, failing
// with ErrTerminatorAlreadySet if it already had one.
func (b *Builder) markTerminator(blk *Block) {
	if b.terminated[blk] {
		b.fail(fmt.Errorf("%w: %s", ErrTerminatorAlreadySet, blk.BlockName))
		return
	}
	b.terminated[blk] = true
}

// Arg declares a formal parameter and returns it.
func (b *Builder) Arg(name string) *Argument {
	arg := &Argument{ArgName: name, Index: len(b.fn.Args)}
	b.fn.Args = append(b.fn.Args, arg)
	return arg
}

// Const returns a constant value named name. Constants are not deduplicated
// by name; callers that want sharing should keep their own handle.
func (b *Builder) Const(name string) *Const {
	return &Const{ConstName: name}
}

// Block creates a new, empty block. The first block created becomes the
// function's entry block.
func (b *Builder) Block(name string) *Block {
	if _, exists := b.blocks[name]; exists {
		b.fail(fmt.Errorf("%w: %s", ErrDuplicateBlock, name))
	}
	blk := &Block{BlockName: name, Func: b.fn}
	b.blocks[name] = blk
	b.fn.Blocks = append(b.fn.Blocks, blk)
	if b.fn.Entry == nil {
		b.fn.Entry = blk
	}
	return blk
}

// wireOperands records def-use edges from inst to each of its operands
// that are instructions or arguments (constants track no users).
func wireOperands(inst *Instruction) {
	for _, op := range inst.Operands {
		switch v := op.(type) {
		case *Instruction:
			v.addUser(inst)
		case *Argument:
			v.users = append(v.users, inst)
		}
	}
}

// Phi appends a phi node to blk. incoming and froms must be parallel and
// non-empty.
func (b *Builder) Phi(blk *Block, name string, incoming []Value, froms []*Block) *Instruction {
	inst := &Instruction{
		InstName:       name,
		Op:             "phi",
		Block:          blk,
		Operands:       incoming,
		IncomingBlocks: froms,
	}
	blk.Instrs = append(blk.Instrs, inst)
	wireOperands(inst)
	return inst
}

// Inst appends an ordinary (non-terminator) instruction to blk.
func (b *Builder) Inst(blk *Block, name, op string, operands ...Value) *Instruction {
	inst := &Instruction{
		InstName: name,
		Op:       op,
		Block:    blk,
		Operands: operands,
	}
	blk.Instrs = append(blk.Instrs, inst)
	wireOperands(inst)
	return inst
}

// addEdge links pred -> succ on both sides, idempotently.
func addEdge(pred, succ *Block) {
	for _, s := range pred.Succs {
		if s == succ {
			return
		}
	}
	pred.Succs = append(pred.Succs, succ)
	succ.Preds = append(succ.Preds, pred)
}

// CondBranch terminates blk with a two-way conditional branch.
func (b *Builder) CondBranch(blk *Block, name string, cond Value, thenBlk, elseBlk *Block) *Instruction {
	inst := &Instruction{
		InstName:   name,
		Op:         "br",
		Block:      blk,
		Operands:   []Value{cond},
		Kind:       KindCondBranch,
		Successors: []*Block{thenBlk, elseBlk},
	}
	blk.Instrs = append(blk.Instrs, inst)
	wireOperands(inst)
	addEdge(blk, thenBlk)
	addEdge(blk, elseBlk)
	b.markTerminator(blk)
	return inst
}

// Switch terminates blk with an n-way switch on cond.
func (b *Builder) Switch(blk *Block, name string, cond Value, targets []*Block) *Instruction {
	inst := &Instruction{
		InstName:   name,
		Op:         "switch",
		Block:      blk,
		Operands:   []Value{cond},
		Kind:       KindSwitch,
		Successors: targets,
	}
	blk.Instrs = append(blk.Instrs, inst)
	wireOperands(inst)
	for _, t := range targets {
		addEdge(blk, t)
	}
	b.markTerminator(blk)
	return inst
}

// Jump terminates blk with an unconditional jump to target.
func (b *Builder) Jump(blk *Block, name string, target *Block) *Instruction {
	inst := &Instruction{
		InstName:   name,
		Op:         "jmp",
		Block:      blk,
		Kind:       KindUncond,
		Successors: []*Block{target},
	}
	blk.Instrs = append(blk.Instrs, inst)
	addEdge(blk, target)
	b.markTerminator(blk)
	return inst
}

// Return terminates blk with a return, no successors.
func (b *Builder) Return(blk *Block, name string, val Value) *Instruction {
	var operands []Value
	if val != nil {
		operands = []Value{val}
	}
	inst := &Instruction{
		InstName: name,
		Op:       "ret",
		Block:    blk,
		Operands: operands,
		Kind:     KindUncond,
	}
	blk.Instrs = append(blk.Instrs, inst)
	wireOperands(inst)
	b.markTerminator(blk)
	return inst
}

// Abnormal terminates blk with an abnormal-exit terminator (e.g. a call
// that may unwind), optionally falling through to a single normal
// successor.
func (b *Builder) Abnormal(blk *Block, name string, normal *Block) *Instruction {
	var succs []*Block
	if normal != nil {
		succs = []*Block{normal}
	}
	inst := &Instruction{
		InstName:   name,
		Op:         "invoke",
		Block:      blk,
		Kind:       KindAbnormal,
		Successors: succs,
	}
	blk.Instrs = append(blk.Instrs, inst)
	if normal != nil {
		addEdge(blk, normal)
	}
	b.markTerminator(blk)
	return inst
}

// Build finalizes and returns the function. It fails if any error was
// recorded during construction (a duplicate block name or a block given
// more than one terminator), or if no entry block was ever created.
func (b *Builder) Build() (*Function, error) {
	if b.firstErr != nil {
		return nil, b.firstErr
	}
	if b.fn.Entry == nil {
		return nil, ErrNoEntryBlock
	}
	return b.fn, nil
}
