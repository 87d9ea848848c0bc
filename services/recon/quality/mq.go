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
	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// ModularizationQuality scores groups over g as the mean intra-component
// density minus the mean inter-component density. A single component
// scores its intra density alone. Ids missing from g are ignored and
// empty groups are dropped.
//
// Undirected relations count as one arc in each direction, so both
// kinds of graph share the same scale.
func ModularizationQuality(g *graph.RelationGraph, groups [][]graph.EntityID) float64 {
	if g == nil {
		return 0
	}

	label := make([]int, g.Len())
	for i := range label {
		label[i] = -1
	}
	var sizes []int
	for _, members := range groups {
		k := len(sizes)
		n := 0
		for _, id := range members {
			if p, ok := g.Position(id); ok && label[p] < 0 {
				label[p] = k
				n++
			}
		}
		if n > 0 {
			sizes = append(sizes, n)
		}
	}
	k := len(sizes)
	if k == 0 {
		return 0
	}

	arcs := 2.0
	if g.Kind().Directed() {
		arcs = 1
	}
	intra := make([]float64, k)
	inter := make([][]float64, k)
	for i := range inter {
		inter[i] = make([]float64, k)
	}
	g.ForEachEdge(func(a, b int, w float64) {
		la, lb := label[a], label[b]
		switch {
		case la < 0 || lb < 0:
		case la == lb:
			intra[la] += arcs * w
		default:
			lo, hi := min(la, lb), max(la, lb)
			inter[lo][hi] += arcs * w
		}
	})

	var a float64
	for i, n := range sizes {
		a += intra[i] / float64(n*n)
	}
	a /= float64(k)
	if k == 1 {
		return a
	}

	var e float64
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			e += inter[i][j] / float64(2*sizes[i]*sizes[j])
		}
	}
	e /= float64(k*(k-1)) / 2
	return a - e
}

// CouplingMQ scores groups over a coupling graph. It returns 0 when g is
// nil or of another kind.
func CouplingMQ(g *graph.RelationGraph, groups [][]graph.EntityID) float64 {
	if g == nil || g.Kind() != graph.KindCoupling {
		return 0
	}
	return ModularizationQuality(g, groups)
}

// SimilarityMQ scores groups over a similarity graph. It returns 0 when g
// is nil or of another kind.
func SimilarityMQ(g *graph.RelationGraph, groups [][]graph.EntityID) float64 {
	if g == nil || g.Kind() != graph.KindSimilarity {
		return 0
	}
	return ModularizationQuality(g, groups)
}
