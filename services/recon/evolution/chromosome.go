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
	"math"
	"math/rand/v2"
	"slices"
)

// Chromosome assigns a component label to each graph position.
//
// Labels lie in [0, len). They need not be contiguous; components are
// compacted only when a partition is materialized.
type Chromosome []int

// RandomChromosome returns n labels drawn uniformly from [0, bound).
func RandomChromosome(rng *rand.Rand, n, bound int) Chromosome {
	c := make(Chromosome, n)
	if bound <= 0 {
		return c
	}
	for i := range c {
		c[i] = rng.IntN(bound)
	}
	return c
}

// FromLabels builds a chromosome from an initial partitioning expressed as
// one label per position. Labels are compacted by first appearance so they
// stay inside [0, len).
func FromLabels(labels []int) Chromosome {
	c := make(Chromosome, len(labels))
	seen := make(map[int]int)
	for i, l := range labels {
		idx, ok := seen[l]
		if !ok {
			idx = len(seen)
			seen[l] = idx
		}
		c[i] = idx
	}
	return c
}

// Clone returns an independent copy.
func (c Chromosome) Clone() Chromosome {
	return slices.Clone(c)
}

// Groups returns the positions of each component, ordered by ascending
// label.
func (c Chromosome) Groups() [][]int {
	byLabel := make(map[int][]int)
	for pos, l := range c {
		byLabel[l] = append(byLabel[l], pos)
	}
	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	groups := make([][]int, len(labels))
	for i, l := range labels {
		groups[i] = byLabel[l]
	}
	return groups
}

// Compact returns a copy with labels renumbered by first appearance.
func (c Chromosome) Compact() Chromosome {
	return FromLabels(c)
}

// Mutate applies Gaussian mutation in place.
//
// Description:
//
//	Each gene is chosen with probability rate and replaced by a normally
//	distributed value centred on its current label with standard
//	deviation (bound-1)/4, rounded and clamped to [0, bound). Small moves
//	between neighbouring labels dominate.
//
// Outputs:
//
//	int - Number of genes that changed value.
func (c Chromosome) Mutate(rng *rand.Rand, rate float64, bound int) int {
	if bound <= 1 || rate <= 0 {
		return 0
	}
	sigma := float64(bound-1) * 0.25
	changed := 0
	for i, g := range c {
		if rng.Float64() >= rate {
			continue
		}
		v := int(math.Round(float64(g) + rng.NormFloat64()*sigma))
		v = min(max(v, 0), bound-1)
		if v != g {
			c[i] = v
			changed++
		}
	}
	return changed
}

// Crossover performs multi-point crossover between c and other in place.
//
// Description:
//
//	Draws min(points, len-1) distinct cut points in (0, len) and swaps
//	every second segment between the two parents, so both become the
//	children. Chromosomes shorter than two genes are left untouched.
//
// Outputs:
//
//	error - ErrLengthMismatch if the parents differ in length.
func (c Chromosome) Crossover(rng *rand.Rand, other Chromosome, points int) error {
	if len(c) != len(other) {
		return ErrLengthMismatch
	}
	n := len(c)
	points = min(points, n-1)
	if points <= 0 {
		return nil
	}

	cuts := rng.Perm(n - 1)[:points]
	for i := range cuts {
		cuts[i]++
	}
	slices.Sort(cuts)
	cuts = append(cuts, n)

	start := 0
	for i, end := range cuts {
		if i%2 == 1 {
			for j := start; j < end; j++ {
				c[j], other[j] = other[j], c[j]
			}
		}
		start = end
	}
	return nil
}
