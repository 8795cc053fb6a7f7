// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package divergence

import "github.com/cdl-saarland/vplan-rv/ssa"

// JoinStatus is a block's join-block state as a single sum type (spec.md §9
// "Sum-type join-block state"), replacing separate divergentJoinBlocks /
// temporalDivergentBlocks set membership with one enumeration per block.
type JoinStatus int

const (
	// JoinNone is the zero value: the block is not a known join block.
	JoinNone JoinStatus = iota

	// JoinSameLevel: the block reconverges two disjoint paths from a
	// divergent branch at the same loop nesting level.
	JoinSameLevel

	// JoinTemporal: the block's φ-nodes are LCSSA exit phis of a loop
	// containing a divergent branch.
	JoinTemporal

	// JoinBoth: the block is independently both a same-level join and a
	// temporal-divergence exit (distinct branches can cause either).
	JoinBoth
)

func (s JoinStatus) String() string {
	switch s {
	case JoinSameLevel:
		return "same_level"
	case JoinTemporal:
		return "temporal"
	case JoinBoth:
		return "both"
	default:
		return "none"
	}
}

// IsSameLevel reports whether the status carries same-level join-ness.
func (s JoinStatus) IsSameLevel() bool { return s == JoinSameLevel || s == JoinBoth }

// IsTemporal reports whether the status carries temporal join-ness.
func (s JoinStatus) IsTemporal() bool { return s == JoinTemporal || s == JoinBoth }

// addSameLevel returns the status resulting from also marking same-level.
func (s JoinStatus) addSameLevel() JoinStatus {
	if s.IsTemporal() {
		return JoinBoth
	}
	return JoinSameLevel
}

// addTemporal returns the status resulting from also marking temporal.
func (s JoinStatus) addTemporal() JoinStatus {
	if s.IsSameLevel() {
		return JoinBoth
	}
	return JoinTemporal
}

// state is the propagator's owned, monotonically growing working set
// (spec.md §3 "DivergenceState"). It is not exported: callers interact with
// it only through Propagator's methods.
type state struct {
	divergentValues  map[ssa.Value]bool
	uniformOverrides map[ssa.Value]bool
	joinStatus       map[*ssa.Block]JoinStatus

	// worklist is a LIFO stack of pending instructions: spec.md §9 asks for
	// one discipline to be picked and documented for deterministic
	// diagnostic output; this implementation uses LIFO for locality,
	// matching the teacher's work-list passes elsewhere in the graph
	// package.
	worklist []*ssa.Instruction
	queued   map[*ssa.Instruction]bool
}

func newState() *state {
	return &state{
		divergentValues:  make(map[ssa.Value]bool),
		uniformOverrides: make(map[ssa.Value]bool),
		joinStatus:       make(map[*ssa.Block]JoinStatus),
		queued:           make(map[*ssa.Instruction]bool),
	}
}

func (s *state) isDivergent(v ssa.Value) bool { return s.divergentValues[v] }

func (s *state) isUniformOverride(v ssa.Value) bool { return s.uniformOverrides[v] }

// markDivergent records v as divergent. Returns false if v was already
// divergent (a no-op the caller should treat as "nothing new to enqueue").
func (s *state) markDivergent(v ssa.Value) bool {
	if s.divergentValues[v] {
		return false
	}
	s.divergentValues[v] = true
	divergentValuesMarked.Inc()
	return true
}

func (s *state) push(i *ssa.Instruction) {
	if s.queued[i] {
		return
	}
	s.queued[i] = true
	s.worklist = append(s.worklist, i)
}

func (s *state) pop() (*ssa.Instruction, bool) {
	if len(s.worklist) == 0 {
		return nil, false
	}
	n := len(s.worklist) - 1
	i := s.worklist[n]
	s.worklist = s.worklist[:n]
	delete(s.queued, i)
	return i, true
}

func (s *state) markSameLevelJoin(b *ssa.Block) {
	s.joinStatus[b] = s.joinStatus[b].addSameLevel()
}

func (s *state) markTemporalJoin(b *ssa.Block) {
	s.joinStatus[b] = s.joinStatus[b].addTemporal()
}
