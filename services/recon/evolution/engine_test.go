// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

func testOptions(seed uint64) Options {
	opts := DefaultOptions()
	opts.PopulationSize = 40
	opts.Generations = 60
	opts.Seed = seed
	opts.Workers = 4
	return opts
}

// TestEngine_TwoCliques verifies the search separates two dense groups
// starting from a seed that misplaces one member.
func TestEngine_TwoCliques(t *testing.T) {
	ts := append(clique(0.9, 1, 2, 3, 4), clique(0.9, 5, 6, 7, 8)...)
	g := testGraph(t, graph.KindCoupling, 8, ts...)

	opts := testOptions(42)
	opts.Generations = 150
	e, err := NewEngine(opts)
	require.NoError(t, err)
	res, err := e.Run(context.Background(), g, Chromosome{0, 0, 0, 0, 0, 1, 1, 1})
	require.NoError(t, err)

	best := res.Best.Genes
	assert.Equal(t, 2, res.Best.Objectives.Components)
	assert.False(t, res.Best.Objectives.Invalid)
	for i := 1; i < 4; i++ {
		assert.Equal(t, best[0], best[i])
		assert.Equal(t, best[4], best[4+i])
	}
	assert.NotEqual(t, best[0], best[4])
	assert.Equal(t, 150, res.Generations)
	assert.NotEmpty(t, res.Front)
}

// TestEngine_TwoPairs verifies two disjoint pairs end up as exactly two
// components, from singletons and from the split itself.
func TestEngine_TwoPairs(t *testing.T) {
	seeds := map[string]Chromosome{
		"singletons": nil,
		"split":      {0, 0, 1, 1},
		"merged":     {0, 0, 0, 0},
	}
	for name, seed := range seeds {
		t.Run(name, func(t *testing.T) {
			e, err := NewEngine(testOptions(7))
			require.NoError(t, err)
			res, err := e.Run(context.Background(), twoPairs(t), seed)
			require.NoError(t, err)

			best := res.Best.Genes
			assert.Equal(t, 2, res.Best.Objectives.Components)
			assert.Equal(t, best[0], best[1])
			assert.Equal(t, best[2], best[3])
			assert.NotEqual(t, best[0], best[2])
			assert.False(t, res.Best.Objectives.Invalid)
		})
	}
}

// TestEngine_ZeroRates verifies a zero rate switches its operator off.
func TestEngine_ZeroRates(t *testing.T) {
	tests := []struct {
		name      string
		crossover float64
		mutation  float64
	}{
		{"mutation only", 0, 0.2},
		{"crossover only", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var crossed, mutated int
			opts := testOptions(11)
			opts.Generations = 10
			opts.CrossoverRate = tt.crossover
			opts.MutationRate = tt.mutation
			opts.Observer = func(_ context.Context, s GenerationStats) {
				crossed += s.Crossed
				mutated += s.Mutated
			}

			e, err := NewEngine(opts)
			require.NoError(t, err)
			assert.Equal(t, tt.crossover, e.Options().CrossoverRate)
			assert.Equal(t, tt.mutation, e.Options().MutationRate)

			_, err = e.Run(context.Background(), twoPairs(t), nil)
			require.NoError(t, err)
			if tt.crossover == 0 {
				assert.Zero(t, crossed)
				assert.Positive(t, mutated)
			} else {
				assert.Positive(t, crossed)
				assert.Zero(t, mutated)
			}
		})
	}
}

// TestEngine_Disconnected verifies only singletons are valid without
// relations.
func TestEngine_Disconnected(t *testing.T) {
	e, err := NewEngine(testOptions(3))
	require.NoError(t, err)
	res, err := e.Run(context.Background(), testGraph(t, graph.KindCoupling, 6), nil)
	require.NoError(t, err)

	assert.False(t, res.Best.Objectives.Invalid)
	assert.Equal(t, 6, res.Best.Objectives.Components)
}

// TestEngine_Deterministic verifies equal seeds give equal results.
func TestEngine_Deterministic(t *testing.T) {
	ts := append(clique(0.5, 1, 2, 3), clique(0.7, 4, 5, 6, 7)...)
	ts = append(ts, both(3, 4, 0.1)...)
	g := testGraph(t, graph.KindCoupling, 9, ts...)

	run := func() *Result {
		e, err := NewEngine(testOptions(99))
		require.NoError(t, err)
		res, err := e.Run(context.Background(), g, nil)
		require.NoError(t, err)
		return res
	}
	first, second := run(), run()
	assert.Equal(t, first.Best, second.Best)
	assert.Equal(t, first.Evaluations, second.Evaluations)
}

// TestEngine_Cancelled verifies a cancelled context aborts the run.
func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := NewEngine(testOptions(1))
	require.NoError(t, err)
	_, err = e.Run(ctx, twoPairs(t), nil)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestEngine_StopHook verifies early stopping and observer calls.
func TestEngine_StopHook(t *testing.T) {
	observed := 0
	opts := testOptions(5)
	opts.Observer = func(_ context.Context, _ GenerationStats) { observed++ }
	opts.Stop = func(s GenerationStats) bool { return s.Generation == 3 }

	e, err := NewEngine(opts)
	require.NoError(t, err)
	res, err := e.Run(context.Background(), twoPairs(t), nil)
	require.NoError(t, err)

	assert.True(t, res.Stopped)
	assert.Equal(t, 3, res.Generations)
	assert.Equal(t, 3, observed)
	assert.Equal(t, 40+3*24, res.Evaluations)
}

// TestEngine_SeedLength verifies a mismatched seed is rejected.
func TestEngine_SeedLength(t *testing.T) {
	e, err := NewEngine(testOptions(1))
	require.NoError(t, err)
	_, err = e.Run(context.Background(), twoPairs(t), Chromosome{0, 1})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = e.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNilGraph)
}

// TestEngine_EmptyGraph verifies an empty graph yields an empty result.
func TestEngine_EmptyGraph(t *testing.T) {
	e, err := NewEngine(testOptions(1))
	require.NoError(t, err)
	res, err := e.Run(context.Background(), testGraph(t, graph.KindCoupling, 0), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Best.Genes)
}

// TestOptions_Validate verifies defaults and rejections.
func TestOptions_Validate(t *testing.T) {
	var o Options
	require.NoError(t, o.Validate())
	assert.Equal(t, DefaultPopulationSize, o.PopulationSize)
	assert.Equal(t, DefaultOffspringFraction, o.OffspringFraction)
	assert.NotNil(t, o.Logger)
	assert.Zero(t, o.CrossoverRate)
	assert.Zero(t, o.MutationRate)

	bad := DefaultOptions()
	bad.MutationRate = 1.5
	assert.ErrorIs(t, bad.Validate(), ErrInvalidOptions)

	bad = DefaultOptions()
	bad.Generations = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidOptions)
}
