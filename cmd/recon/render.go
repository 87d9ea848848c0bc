// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/archrecon/pkg/ux"
	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/partition"
	"github.com/AleutianAI/archrecon/services/recon/quality"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

// buildTree renders a run as a tree. Hierarchical runs start at the root
// component; flat runs hang their components off a synthetic node.
func buildTree(ctx context.Context, st store.Store, res *partition.Result) (*ux.Node, error) {
	types := make(map[graph.EntityID]store.Entity)
	err := st.Read(ctx, func(r store.Reader) error {
		all, err := r.Entities(ctx, store.KindType)
		if err != nil {
			return err
		}
		for _, e := range all {
			types[e.ID] = e
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read types: %w", err)
	}

	components := make(map[graph.EntityID]store.Entity, len(res.Components))
	for _, c := range res.Components {
		components[c.ID] = c
	}

	var node func(id graph.EntityID) *ux.Node
	node = func(id graph.EntityID) *ux.Node {
		if c, ok := components[id]; ok {
			n := &ux.Node{Label: c.Name}
			if len(c.TopWords) > 0 {
				n.Detail = "(" + strings.Join(c.TopWords, " ") + ")"
			}
			for _, child := range c.Components {
				n.Children = append(n.Children, node(child))
			}
			for _, child := range c.Types {
				n.Children = append(n.Children, node(child))
			}
			return n
		}
		if t, ok := types[id]; ok {
			return &ux.Node{Label: t.Name, Detail: t.Package}
		}
		return &ux.Node{Label: "#" + strconv.FormatUint(uint64(id), 10)}
	}

	if res.Root != nil {
		return node(res.Root.ID), nil
	}
	root := &ux.Node{
		Label:  "decomposition",
		Detail: fmt.Sprintf("(%d components)", len(res.TopLevel)),
	}
	for _, id := range res.TopLevel {
		root.Children = append(root.Children, node(id))
	}
	return root, nil
}

func reportFields(r quality.Report) []ux.Field {
	return []ux.Field{
		{Label: "MoJo", Value: strconv.Itoa(r.MoJo)},
		{Label: "MoJoFM", Value: strconv.FormatFloat(r.MoJoFM, 'f', 2, 64)},
		{Label: "MoJoPlus", Value: strconv.Itoa(r.MoJoPlus)},
		{Label: "MQ coupling", Value: strconv.FormatFloat(r.MQCoupling, 'f', 4, 64)},
		{Label: "MQ similarity", Value: strconv.FormatFloat(r.MQSimilarity, 'f', 4, 64)},
	}
}
