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
	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// Objectives is the immutable fitness vector of one chromosome. Every
// objective is maximized.
type Objectives struct {
	// Cohesion is the mean intra-component weight per member pair. Forced
	// to -1 when Invalid.
	Cohesion float64 `json:"cohesion"`

	// Coupling is the negated inter-component weight over ordered
	// component pairs, divided by the component count.
	Coupling float64 `json:"coupling"`

	// ComponentSize is minus the share of singleton components.
	ComponentSize float64 `json:"component_size"`

	// ComponentRange is (smallest - largest) / (entities - 1), in [-1, 0].
	ComponentRange float64 `json:"component_range"`

	// ComponentCount peaks at one when the component count is a quarter
	// of the entity count.
	ComponentCount float64 `json:"component_count"`

	// Invalid marks a partition with a multi-member component that has no
	// internal relation at all.
	Invalid bool `json:"invalid"`

	// Components is the number of distinct labels.
	Components int `json:"components"`
}

// NumObjectives is the length of Values.
const NumObjectives = 5

// Values returns the objectives in a fixed order: cohesion, coupling,
// size, range, count.
func (o Objectives) Values() [NumObjectives]float64 {
	return [NumObjectives]float64{o.Cohesion, o.Coupling, o.ComponentSize, o.ComponentRange, o.ComponentCount}
}

// Sum is the unweighted aggregate of all five objectives.
func (o Objectives) Sum() float64 {
	var s float64
	for _, v := range o.Values() {
		s += v
	}
	return s
}

// Evaluator scores chromosomes against one relation graph.
//
// Thread Safety: Safe for concurrent use; it only reads the graph.
type Evaluator struct {
	g *graph.RelationGraph
}

// NewEvaluator creates an evaluator for g.
func NewEvaluator(g *graph.RelationGraph) (*Evaluator, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	return &Evaluator{g: g}, nil
}

// Graph returns the graph being evaluated against.
func (e *Evaluator) Graph() *graph.RelationGraph { return e.g }

// Evaluate computes the objective vector for c.
//
// Description:
//
//	Components are the groups of equal labels, visited in ascending label
//	order. Intra and inter weights are accumulated in one pass over the
//	graph's ordered edge list. Undirected inter weights count for both
//	ordered component pairs. A component's cohesion is its intra weight
//	over its size*(size-1)/2 member pairs, so merging two dense groups
//	dilutes it. All ratios use SafeDiv.
//
// Inputs:
//
//	c - Chromosome with len(c) == graph size. Shorter or longer
//	    chromosomes are scored on the overlapping prefix only.
//
// Outputs:
//
//	Objectives - The pure score; c is not modified.
func (e *Evaluator) Evaluate(c Chromosome) Objectives {
	n := e.g.Len()
	if len(c) < n {
		n = len(c)
	}
	if n == 0 {
		return Objectives{}
	}

	groups := c[:n].Groups()
	index := make([]int, n)
	for gi, members := range groups {
		for _, p := range members {
			index[p] = gi
		}
	}

	k := len(groups)
	intra := make([]float64, k)
	var inter float64
	e.g.ForEachEdge(func(a, b int, w float64) {
		if a >= n || b >= n {
			return
		}
		if index[a] == index[b] {
			intra[index[a]] += w
			return
		}
		inter += w
		if !e.g.Kind().Directed() {
			inter += w
		}
	})

	var (
		cohesion   float64
		invalid    bool
		singletons int
		smallest   = n
		largest    = 0
	)
	for gi, members := range groups {
		size := len(members)
		coh := graph.SafeDiv(intra[gi], pairs(size))
		if size > 1 && coh == 0 {
			invalid = true
		}
		cohesion += coh
		if size == 1 {
			singletons++
		}
		smallest = min(smallest, size)
		largest = max(largest, size)
	}

	o := Objectives{
		Cohesion:       graph.SafeDiv(cohesion, float64(k)),
		Coupling:       negate(graph.SafeDiv(inter, float64(k))),
		ComponentSize:  negate(graph.SafeDiv(float64(singletons), float64(k))),
		ComponentRange: graph.SafeDiv(float64(smallest-largest), float64(n-1)),
		ComponentCount: componentCount(k, n),
		Invalid:        invalid,
		Components:     k,
	}
	if invalid {
		o.Cohesion = -1
	}
	return o
}

// componentCount rewards k linearly up to n/4 and penalizes it linearly
// from there down to zero at k == n.
func componentCount(k, n int) float64 {
	quarter := float64(n) / 4
	if float64(k) <= quarter {
		return graph.SafeDiv(float64(k), quarter)
	}
	return graph.SafeDiv(float64(n-k), 0.75*float64(n))
}

// pairs is the number of unordered member pairs in a component.
func pairs(size int) float64 {
	return float64(size) * float64(size-1) / 2
}

// negate avoids producing negative zero.
func negate(v float64) float64 {
	if v == 0 {
		return 0
	}
	return -v
}
