// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store provides the fact store the decomposition reads its input
// from and writes components to.
//
// Access happens in scoped phases. Read runs a callback against a
// consistent snapshot; Write runs a callback against a transaction that
// commits only when the callback returns nil. Either way the underlying
// transaction is released on every exit path.
//
// Two implementations exist: MemoryStore (copy-on-write, for tests and
// one-shot CLI runs) and BadgerStore (embedded BadgerDB, persistent).
package store

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidEntity indicates an entity or component record failed
	// validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store closed")

	// ErrInvalidFacts indicates a malformed fact file.
	ErrInvalidFacts = errors.New("invalid facts")
)
