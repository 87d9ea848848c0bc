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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/partition"
	"github.com/AleutianAI/archrecon/services/recon/quality"
	"github.com/AleutianAI/archrecon/services/recon/store"
	"github.com/AleutianAI/archrecon/services/recon/telemetry"
)

// Handlers contains the HTTP handlers for the recon service.
type Handlers struct {
	svc     *Service
	limiter *rate.Limiter
	metrics *telemetry.Metrics
}

// NewHandlers creates handlers for svc. Decompose requests are limited
// by the server rate limit of the service configuration.
func NewHandlers(svc *Service) *Handlers {
	h := &Handlers{svc: svc}
	if srv := svc.Config().Server; srv.RateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(srv.RateLimit), max(srv.Burst, 1))
	}
	return h
}

// WithMetrics counts handler errors in m.
func (h *Handlers) WithMetrics(m *telemetry.Metrics) *Handlers {
	h.metrics = m
	return h
}

// HandleLoadFacts handles POST /v1/recon/facts.
//
// Response:
//
//	200 OK: LoadFactsResponse
//	400 Bad Request: Malformed or inconsistent facts
//	409 Conflict: A decomposition is running
//	500 Internal Server Error: Store failure
func (h *Handlers) HandleLoadFacts(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleLoadFacts")

	var facts store.Facts
	if err := c.ShouldBindJSON(&facts); err != nil {
		logger.Warn("Invalid request body", "error", err)
		h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	resp, err := h.svc.LoadFacts(c.Request.Context(), &facts)
	if err != nil {
		logger.Error("Load facts failed", "error", err)
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDecompose handles POST /v1/recon/decompose.
//
// Response:
//
//	200 OK: DecomposeResponse
//	400 Bad Request: Invalid overrides, invalid reference, or nothing loaded
//	409 Conflict: Another decomposition is running
//	429 Too Many Requests: Rate limit exceeded
//	500 Internal Server Error: Search or store failure
func (h *Handlers) HandleDecompose(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDecompose")

	if h.limiter != nil && !h.limiter.Allow() {
		h.fail(c, http.StatusTooManyRequests, "RATE_LIMITED", "decompose rate limit exceeded")
		return
	}

	var req DecomposeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
			return
		}
	}

	resp, err := h.svc.Decompose(c.Request.Context(), req)
	if err != nil {
		logger.Error("Decompose failed", "error", err)
		h.failErr(c, err)
		return
	}

	logger.Info("Decompose complete",
		"run_id", resp.RunID,
		"components", len(resp.Result.Components),
		"duration_ms", resp.DurationMs)
	c.JSON(http.StatusOK, resp)
}

// HandleCompare handles POST /v1/recon/compare.
//
// Response:
//
//	200 OK: quality.Report
//	400 Bad Request: Missing or overlapping decompositions
func (h *Handlers) HandleCompare(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCompare")

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		h.fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	report, err := h.svc.Compare(c.Request.Context(), req)
	if err != nil {
		logger.Error("Compare failed", "error", err)
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleComponent handles GET /v1/recon/components/:id.
//
// Response:
//
//	200 OK: ComponentResponse
//	400 Bad Request: Non-numeric id
//	404 Not Found: Unknown id or not a component
func (h *Handlers) HandleComponent(c *gin.Context) {
	getOrCreateRequestID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "INVALID_ID", "id must be a positive integer")
		return
	}

	resp, err := h.svc.Component(c.Request.Context(), graph.EntityID(id))
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/recon/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// failErr maps err onto a status and error code.
func (h *Handlers) failErr(c *gin.Context, err error) {
	status, code := errorStatus(err)
	h.fail(c, status, code, err.Error())
}

func (h *Handlers) fail(c *gin.Context, status int, code, msg string) {
	if h.metrics != nil {
		h.metrics.RecordError(c.Request.Context(), code)
	}
	c.JSON(status, ErrorResponse{Error: msg, Code: code})
}

// errorStatus returns the HTTP status and stable code for err.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrDecomposeInProgress):
		return http.StatusConflict, "DECOMPOSE_IN_PROGRESS"
	case errors.Is(err, ErrNoFacts):
		return http.StatusBadRequest, "NO_FACTS"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrNotComponent):
		return http.StatusNotFound, "NOT_COMPONENT"
	case errors.Is(err, store.ErrInvalidFacts), errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest, "INVALID_FACTS"
	case errors.Is(err, quality.ErrInvalidDecomposition):
		return http.StatusBadRequest, "INVALID_DECOMPOSITION"
	case errors.Is(err, partition.ErrUnknownSeedMode), errors.Is(err, partition.ErrIncompletePartition):
		return http.StatusBadRequest, "INVALID_SEED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "CANCELLED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// getOrCreateRequestID echoes X-Request-ID, generating one if absent.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
