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

import "math/rand/v2"

// Alterer applies crossover and mutation to an offspring pool.
type Alterer struct {
	// CrossoverRate is the probability that a consecutive pair is crossed.
	CrossoverRate float64

	// CrossoverPoints is the number of cut points per crossover.
	CrossoverPoints int

	// MutationRate is the per-gene Gaussian mutation probability.
	MutationRate float64
}

// Alter crosses consecutive pairs of offspring and then mutates every
// offspring, in place. Labels stay inside [0, bound).
//
// Outputs:
//
//	crossed - Number of pairs that were crossed.
//	mutated - Number of genes that changed through mutation.
func (a Alterer) Alter(rng *rand.Rand, offspring []Chromosome, bound int) (crossed, mutated int) {
	for i := 0; i+1 < len(offspring); i += 2 {
		if rng.Float64() >= a.CrossoverRate {
			continue
		}
		if err := offspring[i].Crossover(rng, offspring[i+1], a.CrossoverPoints); err == nil {
			crossed++
		}
	}
	for _, c := range offspring {
		mutated += c.Mutate(rng, a.MutationRate, bound)
	}
	return crossed, mutated
}
