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
	"fmt"
	"math"
	"slices"
	"strings"
)

// Kind identifies which relation a graph carries.
type Kind int

const (
	// KindCoupling is the directed, dependency-derived relation. Default.
	KindCoupling Kind = iota

	// KindSimilarity is the undirected, name-derived relation in [0, 1].
	KindSimilarity
)

// String returns the lowercase kind name used in config and storage keys.
func (k Kind) String() string {
	switch k {
	case KindCoupling:
		return "coupling"
	case KindSimilarity:
		return "similarity"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Directed reports whether Weight(a, b) and Weight(b, a) are independent.
func (k Kind) Directed() bool {
	return k == KindCoupling
}

// ParseKind converts a kind name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "coupling":
		return KindCoupling, nil
	case "similarity":
		return KindSimilarity, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// EntityID is the opaque, stable identity of a type or component.
type EntityID uint64

// Triple is one weighted relation between two entities.
type Triple struct {
	Source EntityID
	Target EntityID
	Weight float64
}

// RelationGraph is an immutable weighted graph over a fixed entity set.
//
// Thread Safety: Safe for concurrent reads once returned by Build.
type RelationGraph struct {
	kind  Kind
	ids   []EntityID
	pos   map[EntityID]int
	adj   []map[int]float64
	edges int
	list  []edge
}

// edge is one stored relation by position. Undirected relations appear
// once with a < b.
type edge struct {
	a, b int
	w    float64
}

// Kind returns the relation kind.
func (g *RelationGraph) Kind() Kind { return g.kind }

// Len returns the number of entities.
func (g *RelationGraph) Len() int { return len(g.ids) }

// EdgeCount returns the number of stored relations. Undirected relations
// count once.
func (g *RelationGraph) EdgeCount() int { return g.edges }

// IDs returns a copy of the entity ids in position order.
func (g *RelationGraph) IDs() []EntityID {
	return slices.Clone(g.ids)
}

// ID returns the entity at position p.
func (g *RelationGraph) ID(p int) EntityID {
	return g.ids[p]
}

// Position returns the dense position of id.
func (g *RelationGraph) Position(id EntityID) (int, bool) {
	p, ok := g.pos[id]
	return p, ok
}

// Weight returns the relation weight from a to b. For similarity graphs
// the order of a and b does not matter.
func (g *RelationGraph) Weight(a, b EntityID) (float64, bool) {
	pa, ok := g.pos[a]
	if !ok {
		return 0, false
	}
	pb, ok := g.pos[b]
	if !ok {
		return 0, false
	}
	w, ok := g.adj[pa][pb]
	return w, ok
}

// WeightAt is Weight addressed by position.
func (g *RelationGraph) WeightAt(a, b int) float64 {
	return g.adj[a][b]
}

// ForEachEdge calls fn once per stored relation. Directed graphs yield
// every (source, target) pair; undirected graphs yield each pair once with
// a < b. Order is by source position, then target position, so sums over
// the edges are reproducible.
func (g *RelationGraph) ForEachEdge(fn func(a, b int, w float64)) {
	for _, e := range g.list {
		fn(e.a, e.b, e.w)
	}
}

// IntraSum returns the total weight inside a group of positions. Directed
// graphs sum every ordered pair; undirected graphs sum each pair once.
func (g *RelationGraph) IntraSum(positions []int) float64 {
	member := memberSet(positions)
	var sum float64
	for _, e := range g.list {
		_, okA := member[e.a]
		_, okB := member[e.b]
		if okA && okB {
			sum += e.w
		}
	}
	return sum
}

// InterSum returns the total weight from group from to group to.
// Undirected graphs return the same value for either argument order.
func (g *RelationGraph) InterSum(from, to []int) float64 {
	src, dst := memberSet(from), memberSet(to)
	var sum float64
	for _, e := range g.list {
		if in(src, e.a) && in(dst, e.b) {
			sum += e.w
		} else if !g.kind.Directed() && in(src, e.b) && in(dst, e.a) {
			sum += e.w
		}
	}
	return sum
}

// freeze builds the ordered edge list.
func (g *RelationGraph) freeze() {
	g.list = make([]edge, 0, g.edges)
	for a, row := range g.adj {
		targets := make([]int, 0, len(row))
		for b := range row {
			if g.kind.Directed() || a < b {
				targets = append(targets, b)
			}
		}
		slices.Sort(targets)
		for _, b := range targets {
			g.list = append(g.list, edge{a: a, b: b, w: row[b]})
		}
	}
}

func memberSet(positions []int) map[int]struct{} {
	m := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		m[p] = struct{}{}
	}
	return m
}

func in(set map[int]struct{}, p int) bool {
	_, ok := set[p]
	return ok
}

// ValidWeight reports whether w may be stored in a graph of kind k.
func ValidWeight(k Kind, w float64) bool {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return false
	}
	return k != KindSimilarity || w <= 1
}
