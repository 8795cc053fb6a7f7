// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ssa defines the minimal control-flow/SSA data model consumed by
// the divergence analysis: blocks, terminators, and SSA values with their
// use-def and def-use edges.
//
// Per the external-interfaces contract, nothing in this package builds a
// dominator tree, a loop forest, or identifies sources of divergence — that
// is the job of package domtree and of the divergence/frontend adapters.
// This package only models the CFG/SSA surface those consumers read.
package ssa

// Value is any SSA definition: an instruction result, a function argument,
// or a constant.
type Value interface {
	// Name returns a stable, human-readable identifier for diagnostics.
	Name() string

	value() // unexported: restricts Value to this package's concrete types.
}

// Argument is a function parameter. Arguments have no operands and no
// originating block.
type Argument struct {
	ArgName string
	Index   int

	users []*Instruction
}

func (a *Argument) Name() string { return a.ArgName }
func (a *Argument) value()       {}

// Users returns the instructions that consume this argument as an operand,
// in the order they were recorded.
func (a *Argument) Users() []*Instruction { return a.users }

// Const is a compile-time constant. Constants are never divergent and are
// not tracked on any def-use chain; they exist so that an instruction
// operand list can include literal values without a sentinel nil.
type Const struct {
	ConstName string
}

func (c *Const) Name() string { return c.ConstName }
func (c *Const) value()       {}
