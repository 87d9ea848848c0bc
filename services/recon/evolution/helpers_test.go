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
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// testGraph builds a graph over ids 1..n from triples.
func testGraph(t *testing.T, kind graph.Kind, n int, ts ...graph.Triple) *graph.RelationGraph {
	t.Helper()
	ids := make([]graph.EntityID, n)
	for i := range ids {
		ids[i] = graph.EntityID(i + 1)
	}
	g, err := graph.BuildFromTriples(context.Background(), kind, ids, slices.Values(ts))
	require.NoError(t, err)
	return g
}

// both returns a relation in each direction.
func both(a, b graph.EntityID, w float64) []graph.Triple {
	return []graph.Triple{{Source: a, Target: b, Weight: w}, {Source: b, Target: a, Weight: w}}
}

// clique returns directed relations between every ordered pair of ids.
func clique(w float64, ids ...graph.EntityID) []graph.Triple {
	var ts []graph.Triple
	for _, a := range ids {
		for _, b := range ids {
			if a != b {
				ts = append(ts, graph.Triple{Source: a, Target: b, Weight: w})
			}
		}
	}
	return ts
}

// twoPairs is A<->B and C<->D at 0.9, ids 1..4.
func twoPairs(t *testing.T) *graph.RelationGraph {
	t.Helper()
	return testGraph(t, graph.KindCoupling, 4, append(both(1, 2, 0.9), both(3, 4, 0.9)...)...)
}
