// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the weighted relation graph the decomposition
// search runs on.
//
// A RelationGraph holds one relation kind between a fixed set of entities.
// Entities are addressed by EntityID at the boundary and by dense position
// [0, n) internally, so chromosomes can index straight into the graph.
//
// # Immutability
//
// A graph is assembled with a Builder and frozen by Build. After that it
// is only read, which lets the evaluation worker pool share it without
// locks.
package graph

import "errors"

// Sentinel errors for graph construction.
var (
	// ErrInvalidWeight indicates a NaN, infinite, negative, or (for
	// similarity) greater-than-one weight.
	ErrInvalidWeight = errors.New("invalid relation weight")

	// ErrDuplicateEntity indicates an entity id appears twice in the id set.
	ErrDuplicateEntity = errors.New("duplicate entity id")

	// ErrUnknownKind indicates a relation kind name that cannot be parsed.
	ErrUnknownKind = errors.New("unknown relation kind")

	// ErrBuilderConsumed indicates Add or Build was called after Build.
	ErrBuilderConsumed = errors.New("builder already built")
)
