// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ssa

// Block is an opaque basic-block identity: an ordered list of predecessors,
// successors, and instructions. The first contiguous prefix of Instrs is
// the block's phi nodes (spec.md §3).
type Block struct {
	BlockName string
	Func      *Function

	Preds []*Block
	Succs []*Block

	// Instrs is ordered: phis first, then ordinary instructions, then
	// (if present) the terminator last.
	Instrs []*Instruction
}

func (b *Block) Name() string { return b.BlockName }

// PhiNodes returns the leading run of phi instructions in the block.
func (b *Block) PhiNodes() []*Instruction {
	var phis []*Instruction
	for _, inst := range b.Instrs {
		if !inst.IsPhi() {
			break
		}
		phis = append(phis, inst)
	}
	return phis
}

// Terminator returns the block's terminator, or nil if the block has no
// instructions yet (a malformed/under-construction block).
func (b *Block) Terminator() *Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !last.IsTerminator() {
		return nil
	}
	return last
}

// Function is a single SSA function/kernel: its entry block, the set of all
// blocks, and its formal arguments.
type Function struct {
	FuncName string
	Entry    *Block
	Blocks   []*Block
	Args     []*Argument
}
