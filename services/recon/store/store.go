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
	"context"
	"fmt"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// EntityKind distinguishes source types from generated components.
type EntityKind string

const (
	// KindType is a low-level entity supplied by the fact producer.
	KindType EntityKind = "type"

	// KindComponent is a component created by materialization.
	KindComponent EntityKind = "component"
)

// ShapeComponent tags components produced by the evolutionary search.
const ShapeComponent = "Component"

// Entity is a type or component record.
type Entity struct {
	ID       graph.EntityID `msgpack:"id" json:"id" yaml:"id"`
	Kind     EntityKind     `msgpack:"kind" json:"kind" yaml:"kind"`
	Name     string         `msgpack:"name" json:"name" yaml:"name"`
	Package  string         `msgpack:"package,omitempty" json:"package,omitempty" yaml:"package,omitempty"`
	Internal bool           `msgpack:"internal" json:"internal" yaml:"internal"`
	Methods  int            `msgpack:"methods,omitempty" json:"methods,omitempty" yaml:"methods,omitempty"`

	// Component fields.
	Shape      string           `msgpack:"shape,omitempty" json:"shape,omitempty" yaml:"shape,omitempty"`
	Types      []graph.EntityID `msgpack:"types,omitempty" json:"types,omitempty" yaml:"types,omitempty"`
	Components []graph.EntityID `msgpack:"components,omitempty" json:"components,omitempty" yaml:"components,omitempty"`
	TopWords   []string         `msgpack:"top_words,omitempty" json:"top_words,omitempty" yaml:"top_words,omitempty"`
	Level      int              `msgpack:"level,omitempty" json:"level,omitempty" yaml:"level,omitempty"`
	Iteration  int              `msgpack:"iteration,omitempty" json:"iteration,omitempty" yaml:"iteration,omitempty"`
}

// IsComponent reports whether e was created by materialization.
func (e Entity) IsComponent() bool { return e.Kind == KindComponent }

// Dependency holds the dependency facts from one type to another.
type Dependency struct {
	Source graph.EntityID         `msgpack:"source" json:"source" yaml:"source"`
	Target graph.EntityID         `msgpack:"target" json:"target" yaml:"target"`
	Counts graph.DependencyCounts `msgpack:"counts" json:"counts" yaml:",inline"`
}

// ComponentSpec describes a component to create.
type ComponentSpec struct {
	Name       string
	Shape      string
	Types      []graph.EntityID
	Components []graph.EntityID
	TopWords   []string
	Level      int
	Iteration  int
}

// Validate checks that the component names at least one member.
func (s ComponentSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: component name is empty", ErrInvalidEntity)
	}
	if len(s.Types)+len(s.Components) == 0 {
		return fmt.Errorf("%w: component %s has no members", ErrInvalidEntity, s.Name)
	}
	return nil
}

// Reader is the read side of a phase.
type Reader interface {
	// TypeIDs returns the ids of all internal types in ascending order.
	TypeIDs(ctx context.Context) ([]graph.EntityID, error)

	// Entity returns one entity or ErrNotFound.
	Entity(ctx context.Context, id graph.EntityID) (Entity, error)

	// Entities returns every entity of kind in ascending id order.
	Entities(ctx context.Context, kind EntityKind) ([]Entity, error)

	// Relations returns the stored relations of kind whose endpoints are
	// both in ids, ordered by source then target. Similarity relations are
	// returned once with Source < Target.
	Relations(ctx context.Context, kind graph.Kind, ids []graph.EntityID) ([]graph.Triple, error)

	// Dependencies returns every dependency ordered by source then target.
	Dependencies(ctx context.Context) ([]Dependency, error)

	// Candidates returns the candidate components of the last fact load.
	Candidates(ctx context.Context) ([]Candidate, error)
}

// Writer is the write side of a phase. Reads observe earlier writes of
// the same phase.
type Writer interface {
	Reader

	// PutEntity stores e. A zero ID is replaced by a fresh one.
	PutEntity(ctx context.Context, e Entity) (graph.EntityID, error)

	// PutRelation stores one relation, replacing any earlier weight.
	PutRelation(ctx context.Context, kind graph.Kind, t graph.Triple) error

	// PutDependency stores one dependency, replacing any earlier counts.
	PutDependency(ctx context.Context, d Dependency) error

	// PutCandidates replaces the stored candidate components.
	PutCandidates(ctx context.Context, cs []Candidate) error

	// CreateComponent stores a new component and returns its id.
	CreateComponent(ctx context.Context, spec ComponentSpec) (graph.EntityID, error)
}

// Store runs scoped read and write phases.
//
// Thread Safety: Implementations are safe for concurrent use. Write
// phases are serialized; read phases see the last committed state.
type Store interface {
	// Read runs fn against a consistent snapshot.
	Read(ctx context.Context, fn func(Reader) error) error

	// Write runs fn as one write phase. When it returns an error nothing
	// written by fn remains. Phases too large for one backend transaction
	// may become visible in parts before they finish.
	Write(ctx context.Context, fn func(Writer) error) error

	// Close releases the store.
	Close() error
}

// newComponent converts a ComponentSpec into a component entity.
func newComponent(spec ComponentSpec) Entity {
	shape := spec.Shape
	if shape == "" {
		shape = ShapeComponent
	}
	return Entity{
		Kind:       KindComponent,
		Name:       spec.Name,
		Internal:   true,
		Shape:      shape,
		Types:      spec.Types,
		Components: spec.Components,
		TopWords:   spec.TopWords,
		Level:      spec.Level,
		Iteration:  spec.Iteration,
	}
}

// canonical orders an undirected pair.
func canonical(kind graph.Kind, a, b graph.EntityID) (graph.EntityID, graph.EntityID) {
	if !kind.Directed() && b < a {
		return b, a
	}
	return a, b
}
