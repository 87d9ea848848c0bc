// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package quality compares decompositions and records benchmark samples.
//
// MoJo counts the Move and Join operations that turn one decomposition
// into another. MoJoFM normalizes MoJo into a 0-100 similarity score and
// MoJoPlus scores partial agreement through a maximum-weight matching.
// ModularizationQuality rewards dense components and sparse links between
// them. None of these feed back into the search.
package quality

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// ErrInvalidDecomposition indicates a malformed decomposition.
var ErrInvalidDecomposition = errors.New("invalid decomposition")

// Decomposition maps cluster names to their entities.
type Decomposition map[string][]graph.EntityID

// FromGroups names groups by their index.
func FromGroups(groups [][]graph.EntityID) Decomposition {
	d := make(Decomposition, len(groups))
	for i, g := range groups {
		d[fmt.Sprintf("%d", i)] = slices.Clone(g)
	}
	return d
}

// ReadDecomposition loads a YAML or JSON mapping of cluster name to ids.
func ReadDecomposition(path string) (Decomposition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read decomposition %s: %w", path, err)
	}
	var d Decomposition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDecomposition, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate rejects entities that appear in more than one cluster.
func (d Decomposition) Validate() error {
	seen := make(map[graph.EntityID]string)
	for _, name := range slices.Sorted(maps.Keys(d)) {
		for _, id := range d[name] {
			if other, dup := seen[id]; dup {
				return fmt.Errorf("%w: entity %d in %s and %s", ErrInvalidDecomposition, id, other, name)
			}
			seen[id] = name
		}
	}
	return nil
}

// Entities returns every entity in ascending order.
func (d Decomposition) Entities() []graph.EntityID {
	var ids []graph.EntityID
	for _, members := range d {
		ids = append(ids, members...)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// clusters returns the non-empty clusters of d restricted to keep, in
// sorted name order.
func (d Decomposition) clusters(keep map[graph.EntityID]struct{}) [][]graph.EntityID {
	var out [][]graph.EntityID
	for _, name := range slices.Sorted(maps.Keys(d)) {
		var members []graph.EntityID
		for _, id := range d[name] {
			if _, ok := keep[id]; ok {
				members = append(members, id)
			}
		}
		if len(members) > 0 {
			out = append(out, members)
		}
	}
	return out
}

// shared returns the entities present in both decompositions.
func shared(a, b Decomposition) map[graph.EntityID]struct{} {
	inB := make(map[graph.EntityID]struct{})
	for _, id := range b.Entities() {
		inB[id] = struct{}{}
	}
	out := make(map[graph.EntityID]struct{})
	for _, id := range a.Entities() {
		if _, ok := inB[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}
