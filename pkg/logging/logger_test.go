// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.level.String())
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.level.toSlogLevel())
	}
}

func TestNew_StderrOnly(t *testing.T) {
	l := New(Config{Level: LevelDebug, Component: "oracle"})
	require.NotNil(t, l.Slog())
	require.NoError(t, l.Close())
}

func TestNew_Quiet_StillUsable(t *testing.T) {
	l := New(Config{Level: LevelInfo, Quiet: true})
	l.Info("should not panic even with no sinks configured")
	require.NoError(t, l.Close())
}

func TestLogger_With_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := &Logger{slog: base}

	child := l.With("terminator", "br0")
	child.Debug("computed join blocks")

	require.Contains(t, buf.String(), "terminator")
	require.Contains(t, buf.String(), "br0")
}

func TestDefault_ReturnsUsableLogger(t *testing.T) {
	l := Default("divtool")
	require.NotNil(t, l)
	require.NoError(t, l.Close())
}
