// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quality

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

func buildGraph(t *testing.T, kind graph.Kind, n int, ts ...graph.Triple) *graph.RelationGraph {
	t.Helper()
	ids := make([]graph.EntityID, n)
	for i := range ids {
		ids[i] = graph.EntityID(i + 1)
	}
	g, err := graph.BuildFromTriples(context.Background(), kind, ids, slices.Values(ts))
	require.NoError(t, err)
	return g
}

// pairsGraph links 1<->2 and 3<->4 with weight 1.
func pairsGraph(t *testing.T, kind graph.Kind) *graph.RelationGraph {
	t.Helper()
	return buildGraph(t, kind, 4,
		graph.Triple{Source: 1, Target: 2, Weight: 1},
		graph.Triple{Source: 2, Target: 1, Weight: 1},
		graph.Triple{Source: 3, Target: 4, Weight: 1},
		graph.Triple{Source: 4, Target: 3, Weight: 1},
	)
}

func TestModularizationQuality(t *testing.T) {
	g := pairsGraph(t, graph.KindCoupling)

	t.Run("separated pairs", func(t *testing.T) {
		assert.InDelta(t, 0.5, ModularizationQuality(g, [][]graph.EntityID{{1, 2}, {3, 4}}), 1e-12)
	})

	t.Run("crossed pairs", func(t *testing.T) {
		assert.InDelta(t, -0.5, ModularizationQuality(g, [][]graph.EntityID{{1, 3}, {2, 4}}), 1e-12)
	})

	t.Run("single cluster", func(t *testing.T) {
		assert.InDelta(t, 0.25, ModularizationQuality(g, [][]graph.EntityID{{1, 2, 3, 4}}), 1e-12)
	})

	t.Run("unknown ids and empty groups", func(t *testing.T) {
		got := ModularizationQuality(g, [][]graph.EntityID{{1, 2, 99}, {}, {3, 4}})
		assert.InDelta(t, 0.5, got, 1e-12)
	})

	t.Run("nothing to score", func(t *testing.T) {
		assert.Zero(t, ModularizationQuality(g, nil))
		assert.Zero(t, ModularizationQuality(nil, [][]graph.EntityID{{1}}))
	})
}

func TestModularizationQuality_UndirectedScale(t *testing.T) {
	directed := pairsGraph(t, graph.KindCoupling)
	undirected := pairsGraph(t, graph.KindSimilarity)
	groups := [][]graph.EntityID{{1, 2}, {3, 4}}

	assert.InDelta(t, ModularizationQuality(directed, groups), ModularizationQuality(undirected, groups), 1e-12)
}

func TestMQVariants(t *testing.T) {
	coupling := pairsGraph(t, graph.KindCoupling)
	similarity := pairsGraph(t, graph.KindSimilarity)
	groups := [][]graph.EntityID{{1, 2}, {3, 4}}

	assert.InDelta(t, 0.5, CouplingMQ(coupling, groups), 1e-12)
	assert.Zero(t, CouplingMQ(similarity, groups))
	assert.InDelta(t, 0.5, SimilarityMQ(similarity, groups), 1e-12)
	assert.Zero(t, SimilarityMQ(coupling, groups))
	assert.Zero(t, SimilarityMQ(nil, groups))
}

func TestCompare(t *testing.T) {
	produced := Decomposition{"0": {1, 2}, "1": {3, 4}}
	reference := Decomposition{"a": {1, 2}, "b": {3, 4}}

	r := Compare(produced, reference, Graphs{
		Coupling:   pairsGraph(t, graph.KindCoupling),
		Similarity: pairsGraph(t, graph.KindSimilarity),
	})
	assert.Equal(t, 0, r.MoJo)
	assert.Equal(t, 100.0, r.MoJoFM)
	assert.Equal(t, 0, r.MoJoPlus)
	assert.InDelta(t, 0.5, r.MQCoupling, 1e-12)
	assert.InDelta(t, 0.5, r.MQSimilarity, 1e-12)

	r = Compare(produced, reference, Graphs{})
	assert.Zero(t, r.MQCoupling)
	assert.Zero(t, r.MQSimilarity)
}
