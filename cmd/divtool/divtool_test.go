// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const diamondCase = `
function: kernel
args: [tid]
consts: [one, two]
blocks: [entry, then, else, merge]
instructions:
  - {block: entry, name: entry.br, op: condbranch, cond: tid, then: then, else: else}
  - {block: then, name: then.jmp, op: jump, target: merge}
  - {block: else, name: else.jmp, op: jump, target: merge}
  - block: merge
    name: x
    op: phi
    incoming:
      - {value: one, from: then}
      - {value: two, from: else}
  - {block: merge, name: ret, op: return, value: x}
seeds: [tid]
`

func writeCase(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "case.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunCase_GPUDiamond(t *testing.T) {
	path := writeCase(t, diamondCase)
	prop, fn, err := runCase(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "kernel", fn.FuncName)

	var buf bytes.Buffer
	require.NoError(t, prop.Dump(&buf))
	require.Contains(t, buf.String(), "x")
}

func TestLoadCaseFile_MissingFunction(t *testing.T) {
	path := writeCase(t, "args: []\n")
	_, err := loadCaseFile(path)
	require.Error(t, err)
}

func TestRunCase_UnknownMode(t *testing.T) {
	path := writeCase(t, diamondCase+"\nmode: bogus\n")
	_, _, err := runCase(context.Background(), path)
	require.Error(t, err)
}
