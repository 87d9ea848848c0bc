// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package partition drives the hierarchical decomposition.
//
// Each level runs the state machine BuildGraph, Evolve, SelectBest,
// Materialize. Flat decompositions stop after one level. Hierarchical
// decompositions recompute relations between the new components and
// recurse until a single root component remains.
package partition

import (
	"errors"
	"fmt"
)

// Sentinel errors for decomposition.
var (
	// ErrEmptyIDSet indicates there is nothing to decompose.
	ErrEmptyIDSet = errors.New("empty id set")

	// ErrIncompletePartition indicates a partition misses or adds ids.
	ErrIncompletePartition = errors.New("partition does not cover id set")

	// ErrUnknownSeedMode indicates an unsupported seeding strategy.
	ErrUnknownSeedMode = errors.New("unknown seed mode")
)

// LevelError reports the level and state a decomposition failed in.
type LevelError struct {
	Level int
	State State
	Err   error
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("level %d %s: %v", e.Level, e.State, e.Err)
}

func (e *LevelError) Unwrap() error { return e.Err }
