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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// TestEvaluate_TwoPairs verifies every objective for the paired partition.
func TestEvaluate_TwoPairs(t *testing.T) {
	ev, err := NewEvaluator(twoPairs(t))
	require.NoError(t, err)

	o := ev.Evaluate(Chromosome{0, 0, 1, 1})
	assert.False(t, o.Invalid)
	assert.InDelta(t, 1.8, o.Cohesion, 1e-12)
	assert.Equal(t, 0.0, o.Coupling)
	assert.Equal(t, 0.0, o.ComponentSize)
	assert.Equal(t, 0.0, o.ComponentRange)
	assert.InDelta(t, 2.0/3.0, o.ComponentCount, 1e-12)
	assert.Equal(t, 2, o.Components)
}

// TestEvaluate_MixedPairsDominated verifies cross-pair grouping loses on
// cohesion and coupling.
func TestEvaluate_MixedPairsDominated(t *testing.T) {
	ev, err := NewEvaluator(twoPairs(t))
	require.NoError(t, err)

	paired := ev.Evaluate(Chromosome{0, 0, 1, 1})
	mixed := ev.Evaluate(Chromosome{0, 1, 0, 1})

	assert.True(t, mixed.Invalid)
	assert.Equal(t, -1.0, mixed.Cohesion)
	assert.InDelta(t, -1.8, mixed.Coupling, 1e-12)
	assert.Less(t, mixed.Cohesion, paired.Cohesion)
	assert.Less(t, mixed.Coupling, paired.Coupling)
	assert.True(t, Dominates(paired, mixed))
}

// TestEvaluate_MergedPairsNotPreferred verifies one component holding both
// pairs does not dominate the split and loses on the aggregate.
func TestEvaluate_MergedPairsNotPreferred(t *testing.T) {
	ev, err := NewEvaluator(twoPairs(t))
	require.NoError(t, err)

	split := ev.Evaluate(Chromosome{0, 0, 1, 1})
	merged := ev.Evaluate(Chromosome{0, 0, 0, 0})

	assert.False(t, merged.Invalid)
	assert.InDelta(t, 3.6/6, merged.Cohesion, 1e-12)
	assert.Equal(t, 1.0, merged.ComponentCount)
	assert.False(t, Dominates(merged, split))
	assert.False(t, Dominates(split, merged))
	assert.Greater(t, split.Sum(), merged.Sum())
	assert.True(t, Better(split, merged))
}

// TestEvaluate_CohesionPerPair verifies cohesion divides by member pairs.
func TestEvaluate_CohesionPerPair(t *testing.T) {
	g := testGraph(t, graph.KindSimilarity, 3,
		graph.Triple{Source: 1, Target: 2, Weight: 0.6},
		graph.Triple{Source: 2, Target: 3, Weight: 0.3},
	)
	ev, err := NewEvaluator(g)
	require.NoError(t, err)

	o := ev.Evaluate(Chromosome{0, 0, 0})
	assert.InDelta(t, 0.9/3, o.Cohesion, 1e-12)
}

// TestEvaluate_EmptyGraph verifies multi-member groups are invalid without
// relations and singletons are not.
func TestEvaluate_EmptyGraph(t *testing.T) {
	ev, err := NewEvaluator(testGraph(t, graph.KindCoupling, 4))
	require.NoError(t, err)

	grouped := ev.Evaluate(Chromosome{0, 0, 1, 2})
	assert.True(t, grouped.Invalid)
	assert.Equal(t, -1.0, grouped.Cohesion)

	singles := ev.Evaluate(Chromosome{0, 1, 2, 3})
	assert.False(t, singles.Invalid)
	assert.Equal(t, 0.0, singles.Cohesion)
	assert.Equal(t, -1.0, singles.ComponentSize)
	assert.Equal(t, 0.0, singles.ComponentCount)
}

// TestEvaluate_InvalidKeepsOtherObjectives verifies only cohesion is
// forced on an invalid partition.
func TestEvaluate_InvalidKeepsOtherObjectives(t *testing.T) {
	ev, err := NewEvaluator(testGraph(t, graph.KindCoupling, 4, both(1, 3, 0.5)...))
	require.NoError(t, err)

	o := ev.Evaluate(Chromosome{0, 0, 1, 1})
	assert.True(t, o.Invalid)
	assert.Equal(t, -1.0, o.Cohesion)
	assert.InDelta(t, -0.5, o.Coupling, 1e-12)
	assert.InDelta(t, 2.0/3.0, o.ComponentCount, 1e-12)
}

// TestEvaluate_ComponentRange verifies range bounds.
func TestEvaluate_ComponentRange(t *testing.T) {
	ev, err := NewEvaluator(testGraph(t, graph.KindCoupling, 4))
	require.NoError(t, err)

	tests := []struct {
		name  string
		genes Chromosome
		want  float64
	}{
		{"equal sizes", Chromosome{0, 0, 1, 1}, 0},
		{"one group", Chromosome{3, 3, 3, 3}, 0},
		{"uneven", Chromosome{0, 1, 1, 1}, -2.0 / 3.0},
		{"singletons", Chromosome{0, 1, 2, 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := ev.Evaluate(tt.genes)
			assert.InDelta(t, tt.want, o.ComponentRange, 1e-12)
			assert.GreaterOrEqual(t, o.ComponentRange, -1.0)
			assert.LessOrEqual(t, o.ComponentRange, 0.0)
		})
	}
}

// TestComponentCount verifies the piecewise count objective.
func TestComponentCount(t *testing.T) {
	assert.Equal(t, 1.0, componentCount(2, 8))
	assert.Equal(t, 0.5, componentCount(1, 8))
	assert.Equal(t, 0.5, componentCount(5, 8))
	assert.Equal(t, 0.0, componentCount(8, 8))
	assert.Equal(t, 0.0, componentCount(1, 1))
}

// TestEvaluate_SimilarityCountsBothPairs verifies undirected inter weight
// counts for both ordered component pairs.
func TestEvaluate_SimilarityCountsBothPairs(t *testing.T) {
	g := testGraph(t, graph.KindSimilarity, 2, graph.Triple{Source: 1, Target: 2, Weight: 0.5})
	ev, err := NewEvaluator(g)
	require.NoError(t, err)

	o := ev.Evaluate(Chromosome{0, 1})
	assert.InDelta(t, -0.5, o.Coupling, 1e-12)
}

// TestEvaluate_Pure verifies the chromosome is untouched and results repeat.
func TestEvaluate_Pure(t *testing.T) {
	ev, err := NewEvaluator(twoPairs(t))
	require.NoError(t, err)

	c := Chromosome{3, 3, 0, 0}
	first := ev.Evaluate(c)
	second := ev.Evaluate(c)
	assert.Equal(t, first, second)
	assert.Equal(t, Chromosome{3, 3, 0, 0}, c)
}

// TestNewEvaluator_NilGraph verifies a nil graph is rejected.
func TestNewEvaluator_NilGraph(t *testing.T) {
	_, err := NewEvaluator(nil)
	assert.ErrorIs(t, err, ErrNilGraph)
}

// TestObjectives_Sum verifies the aggregate.
func TestObjectives_Sum(t *testing.T) {
	o := Objectives{Cohesion: 1, Coupling: -0.5, ComponentSize: -0.25, ComponentRange: 0, ComponentCount: 0.5}
	assert.Equal(t, 0.75, o.Sum())
}
