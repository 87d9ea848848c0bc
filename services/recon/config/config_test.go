// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/archrecon/services/recon/evolution"
	"github.com/AleutianAI/archrecon/services/recon/graph"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, graph.KindCoupling, cfg.Kind())
	assert.True(t, cfg.Hierarchical())
	assert.False(t, cfg.Benchmark.Enabled())
}

func TestParse_ZeroRatesReachEngine(t *testing.T) {
	cfg, err := Parse([]byte("evolution:\n  crossover_rate: 0\n  mutation_rate: 0\n"))
	require.NoError(t, err)

	e, err := evolution.NewEngine(cfg.EvolutionOptions())
	require.NoError(t, err)
	assert.Zero(t, e.Options().CrossoverRate)
	assert.Zero(t, e.Options().MutationRate)
}

func TestParse_Overrides(t *testing.T) {
	doc := `
optimization: similarity
decomposition: flat
seed_mode: candidates
iteration: 2
evolution:
  population_size: 40
  generations: 25
  seed: 7
weights:
  invokes: 2
store:
  path: /tmp/recon
  gc_interval: 1m
benchmark:
  csv_path: bench.csv
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, graph.KindSimilarity, cfg.Kind())
	assert.False(t, cfg.Hierarchical())
	assert.Equal(t, "candidates", cfg.SeedMode)
	assert.Equal(t, 2, cfg.Iteration)
	assert.Equal(t, 40, cfg.Evolution.PopulationSize)
	assert.Equal(t, evolution.DefaultMutationRate, cfg.Evolution.MutationRate)
	assert.Equal(t, 2.0, cfg.Weights.Invokes)
	assert.Equal(t, 1.0, cfg.Weights.Composes)
	assert.Equal(t, time.Minute, cfg.Store.GCInterval)
	assert.True(t, cfg.Benchmark.Enabled())

	opts := cfg.EvolutionOptions()
	assert.Equal(t, 25, opts.Generations)
	assert.Equal(t, uint64(7), opts.Seed)

	bc, ok := cfg.BadgerConfig()
	require.True(t, ok)
	assert.Equal(t, "/tmp/recon", bc.Path)
	assert.Equal(t, time.Minute, bc.GCInterval)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad optimization", "optimization: speed\n", "Config.Optimization"},
		{"bad seed mode", "seed_mode: random\n", "Config.SeedMode"},
		{"tiny population", "evolution:\n  population_size: 1\n", "PopulationSize"},
		{"rate above one", "evolution:\n  mutation_rate: 1.5\n", "MutationRate"},
		{"negative weight", "weights:\n  reads: -1\n", "Reads"},
		{"otlp without endpoint", "telemetry:\n  trace_exporter: otlp\n", "OTLPEndpoint"},
		{"influx without bucket", "benchmark:\n  influx_url: http://localhost:8086\n  influx_org: o\n", "InfluxBucket"},
		{"bad port", "server:\n  port: 70000\n", "Port"},
		{"unknown key", "populaton: 3\n", "populaton"},
		{"malformed", "optimization: [\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iteration: 3\n"), 0o644))

	t.Run("explicit path", func(t *testing.T) {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Iteration)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvPath, path)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Iteration)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv(EnvPath, "")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestBadgerConfig(t *testing.T) {
	cfg := Default()
	_, ok := cfg.BadgerConfig()
	assert.False(t, ok)

	cfg.Store.InMemory = true
	bc, ok := cfg.BadgerConfig()
	require.True(t, ok)
	assert.True(t, bc.InMemory)
}

func TestTelemetryOptions(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.TraceExporter = "otlp"
	cfg.Telemetry.OTLPEndpoint = "collector:4317"

	opts := cfg.TelemetryOptions()
	assert.Equal(t, "recon", opts.ServiceName)
	assert.Equal(t, "otlp", opts.TraceExporter)
	assert.Equal(t, "prometheus", opts.MetricExporter)
	assert.Equal(t, "collector:4317", opts.OTLPEndpoint)
}
