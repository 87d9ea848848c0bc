// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package partition

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("recon.partition")
	meter  = otel.Meter("recon.partition")
)

var (
	levelLatency      metric.Float64Histogram
	componentsCreated metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		levelLatency, err = meter.Float64Histogram(
			"recon_level_duration_seconds",
			metric.WithDescription("Duration of one decomposition level"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		componentsCreated, err = meter.Int64Counter(
			"recon_components_created_total",
			metric.WithDescription("Total number of materialized components"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordLevelMetrics(ctx context.Context, r LevelReport) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Int("level", r.Level))
	levelLatency.Record(ctx, r.Duration.Seconds(), attrs)
	componentsCreated.Add(ctx, int64(r.Components), attrs)
}
