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
	"math/rand/v2"
	"sort"
)

// Individual is a chromosome with its objective vector.
type Individual struct {
	Genes      Chromosome `json:"genes"`
	Objectives Objectives `json:"objectives"`
}

// Dominates reports whether a is at least as good as b on every objective
// and strictly better on at least one.
//
// Irreflexive and asymmetric; two vectors may be mutually non-dominating.
func Dominates(a, b Objectives) bool {
	av, bv := a.Values(), b.Values()
	better := false
	for i := range av {
		switch {
		case av[i] < bv[i]:
			return false
		case av[i] > bv[i]:
			better = true
		}
	}
	return better
}

// DominatedCounts returns, per individual, how many others dominate it.
func DominatedCounts(pop []Individual) []int {
	counts := make([]int, len(pop))
	for i := range pop {
		for j := range pop {
			if i != j && Dominates(pop[j].Objectives, pop[i].Objectives) {
				counts[i]++
			}
		}
	}
	return counts
}

// DominanceWeights returns the roulette weight of every individual:
// 1 / (1 + number of individuals that dominate it). Non-dominated
// individuals weigh 1.
func DominanceWeights(pop []Individual) []float64 {
	counts := DominatedCounts(pop)
	weights := make([]float64, len(pop))
	for i, c := range counts {
		weights[i] = 1 / float64(1+c)
	}
	return weights
}

// NonDominated returns the indices of the current Pareto front in
// ascending order.
func NonDominated(pop []Individual) []int {
	counts := DominatedCounts(pop)
	front := make([]int, 0, len(pop))
	for i, c := range counts {
		if c == 0 {
			front = append(front, i)
		}
	}
	return front
}

// RouletteSelect samples count indices with replacement, each index drawn
// with probability proportional to its weight. Zero total weight falls
// back to uniform sampling.
func RouletteSelect(rng *rand.Rand, weights []float64, count int) []int {
	if len(weights) == 0 || count <= 0 {
		return nil
	}

	cumulative := make([]float64, len(weights))
	var total float64
	for i, w := range weights {
		if w > 0 {
			total += w
		}
		cumulative[i] = total
	}

	picked := make([]int, count)
	for i := range picked {
		if total == 0 {
			picked[i] = rng.IntN(len(weights))
			continue
		}
		r := rng.Float64() * total
		idx := sort.SearchFloat64s(cumulative, r)
		for idx < len(cumulative)-1 && cumulative[idx] <= r {
			idx++
		}
		picked[i] = min(idx, len(weights)-1)
	}
	return picked
}

// Better reports whether a should be preferred over b as a level result:
// dominance first, then validity, then the objective sum.
func Better(a, b Objectives) bool {
	if Dominates(a, b) {
		return true
	}
	if Dominates(b, a) {
		return false
	}
	if a.Invalid != b.Invalid {
		return !a.Invalid
	}
	return a.Sum() > b.Sum()
}
