// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ssa_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdl-saarland/vplan-rv/ssa"
)

func TestBuilder_Build_NoEntryBlock(t *testing.T) {
	b := ssa.NewBuilder("empty")
	_, err := b.Build()
	require.ErrorIs(t, err, ssa.ErrNoEntryBlock)
}

func TestBuilder_Build_DuplicateBlockName(t *testing.T) {
	b := ssa.NewBuilder("fn")
	entry := b.Block("entry")
	b.Block("entry")
	b.Return(entry, "ret", nil)

	_, err := b.Build()
	require.ErrorIs(t, err, ssa.ErrDuplicateBlock)
}

func TestBuilder_Build_DoubleTerminator(t *testing.T) {
	b := ssa.NewBuilder("fn")
	entry := b.Block("entry")
	exit := b.Block("exit")
	b.Jump(entry, "jmp1", exit)
	b.Jump(entry, "jmp2", exit)
	b.Return(exit, "ret", nil)

	_, err := b.Build()
	require.ErrorIs(t, err, ssa.ErrTerminatorAlreadySet)
}

func TestBuilder_Build_WellFormedSucceeds(t *testing.T) {
	b := ssa.NewBuilder("fn")
	entry := b.Block("entry")
	b.Return(entry, "ret", nil)

	fn, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, entry, fn.Entry)
}
