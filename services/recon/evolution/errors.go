// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evolution implements the multi-objective genetic search that
// partitions one level of the relation graph.
//
// A Chromosome assigns a component label to every graph position. The
// Evaluator scores a chromosome on five objectives, Dominates orders
// objective vectors, and the Engine runs a fixed generation budget of
// roulette selection, multi-point crossover, and Gaussian mutation.
//
// # Determinism
//
// The Engine draws every random number from one seeded source on the
// calling goroutine. Worker goroutines only evaluate, and evaluation is a
// pure function, so equal options over an equal graph give equal results.
package evolution

import "errors"

// Sentinel errors for the evolutionary search.
var (
	// ErrCancelled indicates the search stopped because its context ended.
	ErrCancelled = errors.New("evolution cancelled")

	// ErrInvalidOptions indicates Options failed validation.
	ErrInvalidOptions = errors.New("invalid evolution options")

	// ErrLengthMismatch indicates a chromosome does not match the graph size.
	ErrLengthMismatch = errors.New("chromosome length does not match graph")

	// ErrNilGraph indicates a nil relation graph.
	ErrNilGraph = errors.New("relation graph must not be nil")
)
