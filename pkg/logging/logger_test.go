// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"", LevelInfo},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_ConsoleText(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: LevelWarn, Service: "recon", Output: &buf})
	require.NoError(t, err)
	defer l.Close()

	l.Slog().Info("hidden")
	l.Slog().Warn("shown", "level_id", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "service=recon")
	assert.Contains(t, out, "level_id=3")
}

func TestNew_ConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{JSON: true, Output: &buf})
	require.NoError(t, err)

	l.Slog().Info("hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
}

func TestNew_FileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer
	l, err := New(Config{LogDir: dir, Service: "svc", Output: &console})
	require.NoError(t, err)

	l.Slog().Info("both")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	assert.Contains(t, console.String(), "both")

	name := "svc_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &rec))
	assert.Equal(t, "both", rec["msg"])
	assert.Equal(t, "svc", rec["service"])
}

func TestNew_Quiet(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Quiet: true, Output: &buf})
	require.NoError(t, err)

	l.Slog().Error("dropped")
	assert.Empty(t, buf.String())
}

func TestNew_BadLogDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := New(Config{LogDir: filepath.Join(file, "sub"), Quiet: true})
	assert.Error(t, err)
}

func TestMultiHandler_WithGroup(t *testing.T) {
	var a bytes.Buffer
	l, err := New(Config{Output: &a, JSON: true, LogDir: t.TempDir()})
	require.NoError(t, err)
	defer l.Close()

	l.Slog().WithGroup("req").Info("grouped", "id", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(a.Bytes(), &rec))
	assert.Equal(t, map[string]any{"id": 1.0}, rec["req"])
}
