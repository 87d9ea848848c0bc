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

import (
	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/partition"
	"github.com/AleutianAI/archrecon/services/recon/quality"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

// LoadFactsResponse is the response for POST /v1/recon/facts.
type LoadFactsResponse struct {
	Report     store.LoadReport `json:"report"`
	Candidates int              `json:"candidates"`
}

// DecomposeRequest is the body of POST /v1/recon/decompose. Every field
// is optional and overrides the service configuration for this run only.
type DecomposeRequest struct {
	Optimization  string  `json:"optimization" binding:"omitempty,oneof=coupling similarity"`
	Decomposition string  `json:"decomposition" binding:"omitempty,oneof=flat deep"`
	SeedMode      string  `json:"seed_mode" binding:"omitempty,oneof=package candidates groups"`
	Iteration     *int    `json:"iteration" binding:"omitempty,gte=0"`
	Generations   *int    `json:"generations" binding:"omitempty,gte=0"`
	Seed          *uint64 `json:"seed"`

	// Reference enables quality scoring and benchmark recording against
	// an expected decomposition of the types.
	Reference quality.Decomposition `json:"reference"`
}

// DecomposeResponse is the response for POST /v1/recon/decompose.
type DecomposeResponse struct {
	RunID      string            `json:"run_id"`
	Result     *partition.Result `json:"result"`
	Quality    *quality.Report   `json:"quality,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// CompareRequest is the body of POST /v1/recon/compare.
type CompareRequest struct {
	Produced  quality.Decomposition `json:"produced" binding:"required"`
	Reference quality.Decomposition `json:"reference" binding:"required"`
}

// ComponentResponse is the response for GET /v1/recon/components/:id.
type ComponentResponse struct {
	Component store.Entity     `json:"component"`
	Children  []store.Entity   `json:"children"`
	Leaves    []graph.EntityID `json:"leaves"`
}

// HealthResponse is the response for GET /v1/recon/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
