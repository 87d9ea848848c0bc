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
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/archrecon/services/recon/evolution"
	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

// materialize writes the level's components in one write phase.
//
// Groups are numbered by first appearance along the level's ids. Flat runs
// wrap every group, singletons included. Hierarchical runs pass singleton
// groups through unchanged, wrap everything into one component when the
// search grouped nothing, and recompute relations for the next level.
func (p *Partitioner) materialize(ctx context.Context, ls *levelState) error {
	groups := groupIDs(ls.ids, ls.best.Genes)
	hier := p.opts.Hierarchical
	if hier && len(ls.ids) > 1 && len(groups) == len(ls.ids) {
		p.logger.Debug("level grouped nothing, wrapping into root",
			slog.Int("level", ls.level),
			slog.Int("entities", len(ls.ids)),
		)
		groups = [][]graph.EntityID{ls.ids}
	}

	return p.store.Write(ctx, func(w store.Writer) error {
		ls.next, ls.created = nil, nil
		for idx, members := range groups {
			if hier && len(members) == 1 {
				passThrough := len(groups) > 1
				if !passThrough {
					e, err := w.Entity(ctx, members[0])
					if err != nil {
						return err
					}
					passThrough = e.IsComponent()
				}
				if passThrough {
					ls.next = append(ls.next, members[0])
					continue
				}
			}

			spec, err := p.componentSpec(ctx, w, ls.level, idx, members)
			if err != nil {
				return err
			}
			id, err := w.CreateComponent(ctx, spec)
			if err != nil {
				return fmt.Errorf("create %s: %w", spec.Name, err)
			}
			e, err := w.Entity(ctx, id)
			if err != nil {
				return err
			}
			ls.created = append(ls.created, e)
			ls.next = append(ls.next, id)
		}

		if hier && len(ls.next) > 1 {
			if _, err := store.RecomputeRelations(ctx, w, ls.next); err != nil {
				return fmt.Errorf("recompute relations: %w", err)
			}
		}
		return nil
	})
}

// componentSpec describes the component for one group.
func (p *Partitioner) componentSpec(ctx context.Context, r store.Reader, level, idx int, members []graph.EntityID) (store.ComponentSpec, error) {
	spec := store.ComponentSpec{
		Name:      fmt.Sprintf("%s%dL%d#%d", p.opts.NamePrefix, p.opts.Iteration, level, idx),
		Shape:     store.ShapeComponent,
		Level:     level,
		Iteration: p.opts.Iteration,
	}

	var names []string
	for _, id := range members {
		e, err := r.Entity(ctx, id)
		if err != nil {
			return spec, err
		}
		if e.IsComponent() {
			spec.Components = append(spec.Components, id)
		} else {
			spec.Types = append(spec.Types, id)
		}

		leaves, err := store.LeafTypes(ctx, r, id)
		if err != nil {
			return spec, err
		}
		for _, leaf := range leaves {
			le, err := r.Entity(ctx, leaf)
			if err != nil {
				return spec, err
			}
			names = append(names, le.Name)
		}
	}
	spec.TopWords = TopWords(names)
	return spec, nil
}

// groupIDs maps a chromosome back to id groups numbered by first
// appearance.
func groupIDs(ids []graph.EntityID, genes evolution.Chromosome) [][]graph.EntityID {
	var groups [][]graph.EntityID
	for pos, label := range genes.Compact() {
		if label == len(groups) {
			groups = append(groups, nil)
		}
		groups[label] = append(groups[label], ids[pos])
	}
	return groups
}
