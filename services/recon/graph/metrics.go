// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("recon.graph")
	meter  = otel.Meter("recon.graph")
)

var (
	buildLatency metric.Float64Histogram
	buildTotal   metric.Int64Counter
	edgesLoaded  metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"recon_graph_build_duration_seconds",
			metric.WithDescription("Duration of relation graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"recon_graph_build_total",
			metric.WithDescription("Total number of relation graph builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesLoaded, err = meter.Int64Histogram(
			"recon_graph_edges",
			metric.WithDescription("Number of relations per built graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordBuildMetrics(ctx context.Context, kind Kind, duration time.Duration, g *RelationGraph, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.Bool("success", success),
	)
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)
	if success && g != nil {
		edgesLoaded.Record(ctx, int64(g.EdgeCount()), attrs)
	}
}

func startBuildSpan(ctx context.Context, kind Kind, entities int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "graph.BuildFromTriples",
		trace.WithAttributes(
			attribute.String("graph.kind", kind.String()),
			attribute.Int("graph.entities", entities),
		),
	)
}

func setBuildSpanResult(span trace.Span, g *RelationGraph) {
	span.SetAttributes(
		attribute.Int("graph.edge_count", g.EdgeCount()),
	)
}
