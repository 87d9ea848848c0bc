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
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

type pairKey struct {
	src, dst graph.EntityID
}

// memState is one immutable snapshot. Write phases mutate a clone.
type memState struct {
	entities   map[graph.EntityID]Entity
	relations  map[graph.Kind]map[pairKey]float64
	deps       map[pairKey]graph.DependencyCounts
	candidates []Candidate
	maxID      graph.EntityID
}

func newMemState() *memState {
	return &memState{
		entities: make(map[graph.EntityID]Entity),
		relations: map[graph.Kind]map[pairKey]float64{
			graph.KindCoupling:   {},
			graph.KindSimilarity: {},
		},
		deps: make(map[pairKey]graph.DependencyCounts),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		entities:   maps.Clone(s.entities),
		relations:  make(map[graph.Kind]map[pairKey]float64, len(s.relations)),
		deps:       maps.Clone(s.deps),
		candidates: s.candidates,
		maxID:      s.maxID,
	}
	for k, rel := range s.relations {
		c.relations[k] = maps.Clone(rel)
	}
	return c
}

// MemoryStore keeps all facts in memory.
//
// Description:
//
//	Readers load the current snapshot pointer. A write phase clones the
//	snapshot, applies the callback to the clone, and swaps it in only on
//	success, so a failed phase leaves nothing visible.
//
// Thread Safety: Safe for concurrent use.
type MemoryStore struct {
	writeMu sync.Mutex
	state   atomic.Pointer[memState]
	closed  atomic.Bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.state.Store(newMemState())
	return s
}

// Read implements Store.
func (s *MemoryStore) Read(ctx context.Context, fn func(Reader) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{state: s.state.Load()})
}

// Write implements Store.
func (s *MemoryStore) Write(ctx context.Context, fn func(Writer) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.state.Load().clone()
	if err := fn(&memTx{state: next}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state.Store(next)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

// memTx serves both phases. Read phases receive a shared snapshot and
// only use the Reader methods.
type memTx struct {
	state *memState
}

func (t *memTx) TypeIDs(ctx context.Context) ([]graph.EntityID, error) {
	ids := make([]graph.EntityID, 0, len(t.state.entities))
	for id, e := range t.state.entities {
		if e.Kind == KindType && e.Internal {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (t *memTx) Entity(ctx context.Context, id graph.EntityID) (Entity, error) {
	e, ok := t.state.entities[id]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, nil
}

func (t *memTx) Entities(ctx context.Context, kind EntityKind) ([]Entity, error) {
	out := make([]Entity, 0)
	for _, e := range t.state.entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entity) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *memTx) Relations(ctx context.Context, kind graph.Kind, ids []graph.EntityID) ([]graph.Triple, error) {
	member := make(map[graph.EntityID]struct{}, len(ids))
	for _, id := range ids {
		member[id] = struct{}{}
	}
	var out []graph.Triple
	for k, w := range t.state.relations[kind] {
		_, okS := member[k.src]
		_, okD := member[k.dst]
		if okS && okD {
			out = append(out, graph.Triple{Source: k.src, Target: k.dst, Weight: w})
		}
	}
	slices.SortFunc(out, compareTriples)
	return out, nil
}

func (t *memTx) Dependencies(ctx context.Context) ([]Dependency, error) {
	out := make([]Dependency, 0, len(t.state.deps))
	for k, c := range t.state.deps {
		out = append(out, Dependency{Source: k.src, Target: k.dst, Counts: c})
	}
	slices.SortFunc(out, func(a, b Dependency) int {
		return cmp.Or(cmp.Compare(a.Source, b.Source), cmp.Compare(a.Target, b.Target))
	})
	return out, nil
}

func (t *memTx) Candidates(ctx context.Context) ([]Candidate, error) {
	return slices.Clone(t.state.candidates), nil
}

func (t *memTx) PutEntity(ctx context.Context, e Entity) (graph.EntityID, error) {
	if e.ID == 0 {
		e.ID = t.state.maxID + 1
	}
	t.state.maxID = max(t.state.maxID, e.ID)
	t.state.entities[e.ID] = e
	return e.ID, nil
}

func (t *memTx) PutRelation(ctx context.Context, kind graph.Kind, tr graph.Triple) error {
	src, dst := canonical(kind, tr.Source, tr.Target)
	rel, ok := t.state.relations[kind]
	if !ok {
		return fmt.Errorf("%w: %s", graph.ErrUnknownKind, kind)
	}
	rel[pairKey{src: src, dst: dst}] = tr.Weight
	return nil
}

func (t *memTx) PutDependency(ctx context.Context, d Dependency) error {
	t.state.deps[pairKey{src: d.Source, dst: d.Target}] = d.Counts
	return nil
}

func (t *memTx) PutCandidates(ctx context.Context, cs []Candidate) error {
	t.state.candidates = slices.Clone(cs)
	return nil
}

func (t *memTx) CreateComponent(ctx context.Context, spec ComponentSpec) (graph.EntityID, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	return t.PutEntity(ctx, newComponent(spec))
}

func compareTriples(a, b graph.Triple) int {
	return cmp.Or(cmp.Compare(a.Source, b.Source), cmp.Compare(a.Target, b.Target))
}
