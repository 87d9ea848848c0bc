// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package partition

import (
	"fmt"
	"slices"

	"github.com/AleutianAI/archrecon/services/recon/evolution"
	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// Partition assigns every entity of a level to a group label.
type Partition map[graph.EntityID]int

// FromGroups builds a partition with one label per group, in group order.
func FromGroups(groups [][]graph.EntityID) Partition {
	p := make(Partition)
	for label, members := range groups {
		for _, id := range members {
			p[id] = label
		}
	}
	return p
}

// Singletons puts every id in its own group.
func Singletons(ids []graph.EntityID) Partition {
	p := make(Partition, len(ids))
	for i, id := range ids {
		p[id] = i
	}
	return p
}

// FromChromosome converts positional labels back into a partition.
func FromChromosome(ids []graph.EntityID, c evolution.Chromosome) Partition {
	p := make(Partition, len(ids))
	for i, label := range c.Compact() {
		p[ids[i]] = label
	}
	return p
}

// Validate checks that every id is labelled and nothing else is.
func (p Partition) Validate(ids []graph.EntityID) error {
	if len(p) != len(ids) {
		return fmt.Errorf("%w: %d labels for %d ids", ErrIncompletePartition, len(p), len(ids))
	}
	for _, id := range ids {
		if _, ok := p[id]; !ok {
			return fmt.Errorf("%w: id %d unlabelled", ErrIncompletePartition, id)
		}
	}
	return nil
}

// Chromosome returns the labels of ids in order, compacted by first
// appearance.
func (p Partition) Chromosome(ids []graph.EntityID) evolution.Chromosome {
	labels := make([]int, len(ids))
	for i, id := range ids {
		labels[i] = p[id]
	}
	return evolution.FromLabels(labels)
}

// Groups returns the members of each label in ascending label order, each
// group sorted by id.
func (p Partition) Groups() [][]graph.EntityID {
	byLabel := make(map[int][]graph.EntityID)
	for id, l := range p {
		byLabel[l] = append(byLabel[l], id)
	}
	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	groups := make([][]graph.EntityID, len(labels))
	for i, l := range labels {
		slices.Sort(byLabel[l])
		groups[i] = byLabel[l]
	}
	return groups
}
