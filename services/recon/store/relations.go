// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// LeafTypes returns the types an entity stands for: the entity itself for
// a type, or every type reachable through a component's members.
func LeafTypes(ctx context.Context, r Reader, id graph.EntityID) ([]graph.EntityID, error) {
	seen := make(map[graph.EntityID]struct{})
	var leaves []graph.EntityID
	stack := []graph.EntityID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}

		e, err := r.Entity(ctx, cur)
		if err != nil {
			return nil, err
		}
		if !e.IsComponent() {
			leaves = append(leaves, cur)
			continue
		}
		stack = append(stack, e.Types...)
		stack = append(stack, e.Components...)
	}
	slices.Sort(leaves)
	return leaves, nil
}

// RecomputeRelations derives coupling and similarity between every pair
// of entities in ids from the relations of their leaf types.
//
// Description:
//
//	Coupling from x to y is the sum of type coupling from x's leaves to
//	y's leaves. Similarity between x and y is the mean type similarity over
//	all leaf pairs. This covers component-component, component-type and
//	type-component relations in one pass. Zero results are not stored.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	w - Write phase the relations are stored in.
//	ids - Entities of the next level.
//
// Outputs:
//
//	int - Number of relations written.
//	error - Non-nil if a member lookup or write fails.
func RecomputeRelations(ctx context.Context, w Writer, ids []graph.EntityID) (int, error) {
	owner := make(map[graph.EntityID]int)
	sizes := make([]int, len(ids))
	var leaves []graph.EntityID
	for i, id := range ids {
		ls, err := LeafTypes(ctx, w, id)
		if err != nil {
			return 0, fmt.Errorf("leaf types of %d: %w", id, err)
		}
		for _, l := range ls {
			if _, dup := owner[l]; dup {
				continue
			}
			owner[l] = i
			leaves = append(leaves, l)
		}
		sizes[i] = len(ls)
	}

	written := 0
	for _, kind := range []graph.Kind{graph.KindCoupling, graph.KindSimilarity} {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		triples, err := w.Relations(ctx, kind, leaves)
		if err != nil {
			return written, fmt.Errorf("read %s relations: %w", kind, err)
		}

		agg := make(map[pairKey]float64)
		for _, t := range triples {
			a, b := owner[t.Source], owner[t.Target]
			if a == b {
				continue
			}
			if !kind.Directed() && b < a {
				a, b = b, a
			}
			agg[pairKey{src: graph.EntityID(a), dst: graph.EntityID(b)}] += t.Weight
		}

		keys := make([]pairKey, 0, len(agg))
		for k := range agg {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, func(x, y pairKey) int {
			return cmp.Or(cmp.Compare(x.src, y.src), cmp.Compare(x.dst, y.dst))
		})

		for _, k := range keys {
			a, b := int(k.src), int(k.dst)
			weight := agg[k]
			if !kind.Directed() {
				weight = graph.SafeDiv(weight, float64(sizes[a]*sizes[b]))
			}
			if weight <= 0 {
				continue
			}
			t := graph.Triple{Source: ids[a], Target: ids[b], Weight: weight}
			if err := w.PutRelation(ctx, kind, t); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

// Enrich derives type coupling from the stored dependencies.
//
// Description:
//
//	Totals are accumulated over all dependencies between distinct types.
//	Every dependency pair between internal types then receives a coupling
//	relation from graph.CouplingScore when the score is positive.
//
// Outputs:
//
//	int - Number of coupling relations written.
//	error - Non-nil if a read or write fails.
func Enrich(ctx context.Context, w Writer, weights graph.RelationWeights) (int, error) {
	deps, err := w.Dependencies(ctx)
	if err != nil {
		return 0, fmt.Errorf("read dependencies: %w", err)
	}
	types, err := w.Entities(ctx, KindType)
	if err != nil {
		return 0, fmt.Errorf("read types: %w", err)
	}

	internal := make(map[graph.EntityID]bool, len(types))
	totals := make(map[graph.EntityID]*graph.TypeTotals, len(types))
	for _, e := range types {
		internal[e.ID] = e.Internal
		totals[e.ID] = &graph.TypeTotals{Methods: e.Methods}
	}
	total := func(id graph.EntityID) *graph.TypeTotals {
		t, ok := totals[id]
		if !ok {
			t = &graph.TypeTotals{}
			totals[id] = t
		}
		return t
	}

	counts := make(map[pairKey]graph.DependencyCounts, len(deps))
	for _, d := range deps {
		if d.Source == d.Target {
			continue
		}
		counts[pairKey{src: d.Source, dst: d.Target}] = d.Counts
		graph.Accumulate(total(d.Source), total(d.Target), d.Counts)
	}

	written := 0
	for _, d := range deps {
		if d.Source == d.Target || !internal[d.Source] || !internal[d.Target] {
			continue
		}
		back := counts[pairKey{src: d.Target, dst: d.Source}]
		score := graph.CouplingScore(d.Counts, back, *total(d.Source), *total(d.Target), weights)
		if score <= 0 {
			continue
		}
		t := graph.Triple{Source: d.Source, Target: d.Target, Weight: score}
		if err := w.PutRelation(ctx, graph.KindCoupling, t); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
