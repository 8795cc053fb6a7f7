// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ssa

// CFGView is the read-only query surface the divergence analysis is
// written against (spec.md §6 "Consumed"). *Function implements it
// directly; a frontend embedding a different IR only needs to implement
// this interface to reuse the oracle and propagator unchanged.
type CFGView interface {
	Successors(b *Block) []*Block
	Predecessors(b *Block) []*Block
	TerminatorOf(b *Block) *Instruction
	BlockOf(v Value) *Block
	Instructions(b *Block) []*Instruction
	PhiNodes(b *Block) []*Instruction
	Operands(i *Instruction) []Value
	Users(v Value) []*Instruction
	ConditionOf(t *Instruction) Value
	NumSuccessors(t *Instruction) int
	KindOf(t *Instruction) TerminatorKind
	IncomingValues(phi *Instruction) []Value
	HasConstantOrUndefIdentity(phi *Instruction) bool
}

// Loop is the external loop-forest element the analysis reasons about
// (spec.md §3 "Loop"). domtree.Loop satisfies this.
type Loop interface {
	Header() *Block
	Latch() *Block
	ExitBlocks() []*Block
	Contains(b *Block) bool
}

// DomInfo is the external dominator/post-dominator/loop-forest provider
// (spec.md §6). domtree.Info satisfies this.
type DomInfo interface {
	Dominates(a, b *Block) bool
	ImmediatePostDominator(b *Block) *Block
	LoopOf(b *Block) Loop
}

// Successors returns b's successors in declared order.
func (f *Function) Successors(b *Block) []*Block { return b.Succs }

// Predecessors returns b's predecessors in declared order.
func (f *Function) Predecessors(b *Block) []*Block { return b.Preds }

// TerminatorOf returns b's terminator, or nil if absent.
func (f *Function) TerminatorOf(b *Block) *Instruction { return b.Terminator() }

// BlockOf returns the block a value belongs to: the instruction's block for
// an *Instruction, or nil for an *Argument/*Const.
func (f *Function) BlockOf(v Value) *Block {
	if inst, ok := v.(*Instruction); ok {
		return inst.Block
	}
	return nil
}

// Instructions returns b's instructions in order.
func (f *Function) Instructions(b *Block) []*Instruction { return b.Instrs }

// PhiNodes returns b's leading phi-node run.
func (f *Function) PhiNodes(b *Block) []*Instruction { return b.PhiNodes() }

// Operands returns i's operands in order.
func (f *Function) Operands(i *Instruction) []Value { return i.Operands }

// Users returns v's consuming instructions.
func (f *Function) Users(v Value) []*Instruction {
	switch val := v.(type) {
	case *Instruction:
		return val.Users()
	case *Argument:
		return val.Users()
	default:
		return nil
	}
}

// ConditionOf returns the single condition value of a cond-branch or
// switch terminator. Panics if t is not one of those kinds; callers must
// check KindOf first (mirrors spec.md §6's narrow contract).
func (f *Function) ConditionOf(t *Instruction) Value {
	if t.Kind != KindCondBranch && t.Kind != KindSwitch {
		panic("ssa: ConditionOf called on a terminator with no condition")
	}
	return t.Operands[0]
}

// NumSuccessors returns the number of successors a terminator has.
func (f *Function) NumSuccessors(t *Instruction) int { return len(t.Successors) }

// KindOf returns the terminator kind, KindNone for non-terminators.
func (f *Function) KindOf(t *Instruction) TerminatorKind { return t.Kind }

// IncomingValues returns a phi's incoming operands, parallel to its
// IncomingBlocks.
func (f *Function) IncomingValues(phi *Instruction) []Value { return phi.Operands }

// HasConstantOrUndefIdentity reports whether every incoming value of phi is
// the same value — i.e. the phi does not actually merge distinct
// definitions. Values are compared by identity, constants included: two
// *Const handles are distinct values, and this package models no undef
// value. A phi with no incoming values counts as an identity. The
// propagator consults this for its identity-phi exclusion setting
// (spec.md §9).
func (f *Function) HasConstantOrUndefIdentity(phi *Instruction) bool {
	if len(phi.Operands) == 0 {
		return true
	}
	var distinct Value
	for _, v := range phi.Operands {
		if distinct == nil {
			distinct = v
			continue
		}
		if distinct != v {
			return false
		}
	}
	return true
}
