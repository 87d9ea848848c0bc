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
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/archrecon/services/recon/telemetry"
)

// RegisterRoutes registers the /recon endpoints on rg.
//
// Endpoints:
//
//	POST /recon/facts - Load type facts
//	POST /recon/decompose - Decompose all loaded types
//	POST /recon/compare - Compare two decompositions
//	GET  /recon/components/:id - Component with children and leaves
//	GET  /recon/health - Liveness
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	r := rg.Group("/recon")
	r.POST("/facts", h.HandleLoadFacts)
	r.POST("/decompose", h.HandleDecompose)
	r.POST("/compare", h.HandleCompare)
	r.GET("/components/:id", h.HandleComponent)
	r.GET("/health", h.HandleHealth)
}

// NewRouter returns an engine with recovery, tracing, and request
// metrics, serving the API under /v1 and Prometheus metrics at /metrics
// when that exporter is active. m may be nil.
func NewRouter(serviceName string, h *Handlers, m *telemetry.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	if m != nil {
		router.Use(telemetry.GinMiddleware(m))
		h.WithMetrics(m)
	}
	if mh := telemetry.MetricsHandler(); mh != nil {
		router.GET("/metrics", gin.WrapH(mh))
	}
	RegisterRoutes(router.Group("/v1"), h)
	return router
}
