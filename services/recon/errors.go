// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package recon

import "errors"

// Sentinel errors for the recon service.
var (
	// ErrDecomposeInProgress indicates a decomposition or fact load holds
	// the store.
	ErrDecomposeInProgress = errors.New("decomposition in progress")

	// ErrNoFacts indicates a decomposition was requested before any types
	// were loaded.
	ErrNoFacts = errors.New("no types loaded")

	// ErrNotComponent indicates an entity id that names a type.
	ErrNotComponent = errors.New("entity is not a component")
)
