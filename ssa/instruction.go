// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ssa

// TerminatorKind discriminates the four terminator shapes spec.md §3 names.
// Modelled as a sum type discriminated at query time (spec.md §9
// "Variants as tagged unions") rather than as a class hierarchy.
type TerminatorKind int

const (
	// KindNone marks an instruction that is not a terminator.
	KindNone TerminatorKind = iota

	// KindCondBranch is a conditional branch: exactly 2 successors, a
	// condition value.
	KindCondBranch

	// KindSwitch is a multi-way branch: >=2 successors, a condition value.
	KindSwitch

	// KindAbnormal is an abnormal-exit terminator (e.g. invoke/landingpad
	// equivalents). Treated as having <=1 normal successor and is never
	// control-divergent.
	KindAbnormal

	// KindUncond is an unconditional jump or a return: <=1 successor,
	// never divergent as control.
	KindUncond
)

func (k TerminatorKind) String() string {
	switch k {
	case KindCondBranch:
		return "cond_branch"
	case KindSwitch:
		return "switch"
	case KindAbnormal:
		return "abnormal"
	case KindUncond:
		return "uncond"
	default:
		return "none"
	}
}

// Instruction is an SSA instruction. A terminator is simply an instruction
// whose Kind is one of the terminator kinds and that sits last in its
// block's instruction list; there is no separate Terminator type.
type Instruction struct {
	InstName string
	Op       string
	Block    *Block

	// Operands are this instruction's use-def edges, in operand order.
	// For a phi, Operands and IncomingBlocks are parallel slices: operand i
	// arrives from IncomingBlocks[i].
	Operands []Value

	// IncomingBlocks is non-nil only for phi nodes.
	IncomingBlocks []*Block

	// Kind is KindNone for ordinary instructions, otherwise one of the
	// terminator kinds. Only the last instruction of a block may have a
	// non-KindNone Kind.
	Kind TerminatorKind

	// Successors holds this terminator's targets in declared order. Empty
	// for non-terminators and for terminators with no normal successor.
	Successors []*Block

	users []*Instruction
}

func (i *Instruction) Name() string { return i.InstName }
func (i *Instruction) value()       {}

// Users returns the instructions that consume this instruction's result, in
// the order they were recorded.
func (i *Instruction) Users() []*Instruction { return i.users }

// IsPhi reports whether this instruction is a phi node: the def-use model
// treats phis as ordinary instructions with a fixed op name, since spec.md
// leaves phi-ness as a block-prefix property rather than a separate type.
func (i *Instruction) IsPhi() bool { return i.Op == "phi" }

// IsTerminator reports whether this instruction is the terminator of its
// block.
func (i *Instruction) IsTerminator() bool { return i.Kind != KindNone }

// addUser records user as a consumer of i. Internal: called by Builder when
// wiring operands.
func (i *Instruction) addUser(user *Instruction) {
	i.users = append(i.users, user)
}
