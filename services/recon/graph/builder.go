// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
)

// Builder assembles a RelationGraph.
//
// Description:
//
//	Triples are validated and stored as they arrive. Relations that touch
//	an entity outside the id set are skipped, self relations are skipped,
//	and a repeated (source, target) pair overwrites the earlier weight.
//	For similarity graphs (a, b) and (b, a) address the same relation.
//
// Thread Safety: Not safe for concurrent use.
type Builder struct {
	g       *RelationGraph
	skipped int
	built   bool
}

// NewBuilder creates a builder for kind over ids. Ids keep their slice
// order as positions.
//
// Outputs:
//
//	*Builder - Ready to accept triples.
//	error - ErrDuplicateEntity if ids contains a repeat.
func NewBuilder(kind Kind, ids []EntityID) (*Builder, error) {
	g := &RelationGraph{
		kind: kind,
		ids:  make([]EntityID, len(ids)),
		pos:  make(map[EntityID]int, len(ids)),
		adj:  make([]map[int]float64, len(ids)),
	}
	for i, id := range ids {
		if _, dup := g.pos[id]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateEntity, id)
		}
		g.ids[i] = id
		g.pos[id] = i
		g.adj[i] = make(map[int]float64)
	}
	return &Builder{g: g}, nil
}

// Add stores one triple.
func (b *Builder) Add(t Triple) error {
	if b.built {
		return ErrBuilderConsumed
	}
	if !ValidWeight(b.g.kind, t.Weight) {
		return fmt.Errorf("%w: %d->%d = %v", ErrInvalidWeight, t.Source, t.Target, t.Weight)
	}
	src, ok := b.g.pos[t.Source]
	if !ok {
		b.skipped++
		return nil
	}
	dst, ok := b.g.pos[t.Target]
	if !ok || src == dst {
		b.skipped++
		return nil
	}

	if _, exists := b.g.adj[src][dst]; !exists {
		b.g.edges++
	}
	b.g.adj[src][dst] = t.Weight
	if !b.g.kind.Directed() {
		b.g.adj[dst][src] = t.Weight
	}
	return nil
}

// AddAll stores every triple from seq, stopping at the first error.
func (b *Builder) AddAll(seq iter.Seq[Triple]) error {
	for t := range seq {
		if err := b.Add(t); err != nil {
			return err
		}
	}
	return nil
}

// Skipped returns how many triples were ignored because an endpoint was
// outside the id set or the triple was a self relation.
func (b *Builder) Skipped() int { return b.skipped }

// Build freezes and returns the graph. The builder cannot be used again.
func (b *Builder) Build() (*RelationGraph, error) {
	if b.built {
		return nil, ErrBuilderConsumed
	}
	b.built = true
	b.g.freeze()
	return b.g, nil
}

// BuildFromTriples builds a graph of kind over ids from seq in one traced
// call.
//
// Inputs:
//
//	ctx - Context for tracing and cancellation. Must not be nil.
//	kind - Relation kind.
//	ids - Entity set; slice order becomes position order.
//	seq - Triples to add.
//
// Outputs:
//
//	*RelationGraph - The frozen graph.
//	error - ErrDuplicateEntity, ErrInvalidWeight, or the context error.
func BuildFromTriples(ctx context.Context, kind Kind, ids []EntityID, seq iter.Seq[Triple]) (*RelationGraph, error) {
	ctx, span := startBuildSpan(ctx, kind, len(ids))
	defer span.End()
	start := time.Now()

	g, err := buildFromTriples(ctx, kind, ids, seq)
	recordBuildMetrics(ctx, kind, time.Since(start), g, err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	setBuildSpanResult(span, g)
	slog.Debug("relation graph built",
		slog.String("kind", kind.String()),
		slog.Int("entities", g.Len()),
		slog.Int("edges", g.EdgeCount()),
	)
	return g, nil
}

func buildFromTriples(ctx context.Context, kind Kind, ids []EntityID, seq iter.Seq[Triple]) (*RelationGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := NewBuilder(kind, ids)
	if err != nil {
		return nil, err
	}
	if err := b.AddAll(seq); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Build()
}
