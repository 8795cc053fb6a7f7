// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ssa

import "errors"

// Sentinel errors for Builder operations.
var (
	// ErrDuplicateBlock is returned when adding a block name that already
	// exists in the function under construction.
	ErrDuplicateBlock = errors.New("ssa: duplicate block name")

	// ErrUnknownBlock reports a reference to a block name that was never
	// created. Builder itself does not return it; cmd/divtool's case-file
	// loader wraps it for unknown block names.
	ErrUnknownBlock = errors.New("ssa: unknown block")

	// ErrTerminatorAlreadySet is returned by Build when a block was given
	// more than one terminator (CondBranch, Switch, Jump, Return or
	// Abnormal called twice on it).
	ErrTerminatorAlreadySet = errors.New("ssa: block already has a terminator")

	// ErrNoEntryBlock is returned by Build when the function has no entry
	// block set.
	ErrNoEntryBlock = errors.New("ssa: function has no entry block")
)
