// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cdl-saarland/vplan-rv/ssa"
)

// caseFile is the YAML case-file format SPEC_FULL.md §1 calls for: a small,
// hand-writable CFG description (blocks, instructions, phis, seeds, loop
// header) used to drive the analysis from the command line without needing
// a real compiler front end wired in.
type caseFile struct {
	Function     string            `yaml:"function"`
	Args         []string          `yaml:"args"`
	Consts       []string          `yaml:"consts"`
	Blocks       []string          `yaml:"blocks"`
	Instructions []caseInstruction `yaml:"instructions"`

	// Mode selects the frontend: "gpu" (whole-function, non-LCSSA) or
	// "loopvect" (single loop, LCSSA).
	Mode                  string   `yaml:"mode"`
	Seeds                 []string `yaml:"seeds"`
	UniformOverrides      []string `yaml:"uniform_overrides"`
	LoopHeader            string   `yaml:"loop_header"`
	ExitConditionOverride bool     `yaml:"exit_condition_override"`
	ExcludeIdentityPhis   *bool    `yaml:"exclude_identity_phis"`
}

type caseIncoming struct {
	Value string `yaml:"value"`
	From  string `yaml:"from"`
}

// caseInstruction describes one instruction. Op selects which fields are
// read: "condbranch" (cond/then/else), "switch" (cond/targets), "jump"
// (target), "return" (value, optional), "abnormal" (normal, optional),
// "phi" (incoming), or anything else treated as an ordinary instruction
// with Operation/Operands.
type caseInstruction struct {
	Block string `yaml:"block"`
	Name  string `yaml:"name"`
	Op    string `yaml:"op"`

	Cond    string         `yaml:"cond"`
	Then    string         `yaml:"then"`
	Else    string         `yaml:"else"`
	Targets []string       `yaml:"targets"`
	Target  string         `yaml:"target"`
	Value   string         `yaml:"value"`
	Normal  string         `yaml:"normal"`
	Incoming []caseIncoming `yaml:"incoming"`

	Operation string   `yaml:"operation"`
	Operands  []string `yaml:"operands"`
}

// loadCaseFile reads and parses a case file from path.
func loadCaseFile(path string) (*caseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("divtool: reading case file: %w", err)
	}
	var cf caseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("divtool: parsing case file: %w", err)
	}
	if cf.Function == "" {
		return nil, fmt.Errorf("divtool: case file has no function name")
	}
	return &cf, nil
}

// build assembles the case file into an *ssa.Function via ssa.Builder, and
// returns a symbol table of every named value (arguments, constants, and
// instruction results) for the CLI's seed/override resolution.
func (cf *caseFile) build() (*ssa.Function, map[string]ssa.Value, error) {
	b := ssa.NewBuilder(cf.Function)

	values := make(map[string]ssa.Value)
	blocks := make(map[string]*ssa.Block)

	for _, name := range cf.Args {
		values[name] = b.Arg(name)
	}
	for _, name := range cf.Consts {
		values[name] = b.Const(name)
	}
	for _, name := range cf.Blocks {
		blocks[name] = b.Block(name)
	}

	lookupValue := func(name string) (ssa.Value, error) {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("divtool: undefined value %q", name)
		}
		return v, nil
	}
	lookupBlock := func(name string) (*ssa.Block, error) {
		blk, ok := blocks[name]
		if !ok {
			return nil, fmt.Errorf("divtool: %w: %s", ssa.ErrUnknownBlock, name)
		}
		return blk, nil
	}

	for _, ci := range cf.Instructions {
		blk, err := lookupBlock(ci.Block)
		if err != nil {
			return nil, nil, err
		}

		switch ci.Op {
		case "condbranch":
			cond, err := lookupValue(ci.Cond)
			if err != nil {
				return nil, nil, err
			}
			thenBlk, err := lookupBlock(ci.Then)
			if err != nil {
				return nil, nil, err
			}
			elseBlk, err := lookupBlock(ci.Else)
			if err != nil {
				return nil, nil, err
			}
			inst := b.CondBranch(blk, ci.Name, cond, thenBlk, elseBlk)
			values[ci.Name] = inst

		case "switch":
			cond, err := lookupValue(ci.Cond)
			if err != nil {
				return nil, nil, err
			}
			targets := make([]*ssa.Block, len(ci.Targets))
			for i, t := range ci.Targets {
				tb, err := lookupBlock(t)
				if err != nil {
					return nil, nil, err
				}
				targets[i] = tb
			}
			inst := b.Switch(blk, ci.Name, cond, targets)
			values[ci.Name] = inst

		case "jump":
			target, err := lookupBlock(ci.Target)
			if err != nil {
				return nil, nil, err
			}
			inst := b.Jump(blk, ci.Name, target)
			values[ci.Name] = inst

		case "return":
			var val ssa.Value
			if ci.Value != "" {
				val, err = lookupValue(ci.Value)
				if err != nil {
					return nil, nil, err
				}
			}
			inst := b.Return(blk, ci.Name, val)
			values[ci.Name] = inst

		case "abnormal":
			var normal *ssa.Block
			if ci.Normal != "" {
				normal, err = lookupBlock(ci.Normal)
				if err != nil {
					return nil, nil, err
				}
			}
			inst := b.Abnormal(blk, ci.Name, normal)
			values[ci.Name] = inst

		case "phi":
			incoming := make([]ssa.Value, len(ci.Incoming))
			froms := make([]*ssa.Block, len(ci.Incoming))
			for i, in := range ci.Incoming {
				v, err := lookupValue(in.Value)
				if err != nil {
					return nil, nil, err
				}
				fb, err := lookupBlock(in.From)
				if err != nil {
					return nil, nil, err
				}
				incoming[i] = v
				froms[i] = fb
			}
			inst := b.Phi(blk, ci.Name, incoming, froms)
			values[ci.Name] = inst

		default:
			operands := make([]ssa.Value, len(ci.Operands))
			for i, name := range ci.Operands {
				v, err := lookupValue(name)
				if err != nil {
					return nil, nil, err
				}
				operands[i] = v
			}
			operation := ci.Operation
			if operation == "" {
				operation = ci.Op
			}
			inst := b.Inst(blk, ci.Name, operation, operands...)
			values[ci.Name] = inst
		}
	}

	fn, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("divtool: building function: %w", err)
	}
	return fn, values, nil
}
