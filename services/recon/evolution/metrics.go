// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evolution

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("recon.evolution")
	meter  = otel.Meter("recon.evolution")
)

var (
	runLatency       metric.Float64Histogram
	generationsTotal metric.Int64Counter
	evaluationsTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"recon_evolution_run_duration_seconds",
			metric.WithDescription("Duration of one evolutionary search"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		generationsTotal, err = meter.Int64Counter(
			"recon_generations_total",
			metric.WithDescription("Total number of completed generations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		evaluationsTotal, err = meter.Int64Counter(
			"recon_evaluations_total",
			metric.WithDescription("Total number of chromosome evaluations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordRunMetrics(ctx context.Context, duration time.Duration, res *Result, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	runLatency.Record(ctx, duration.Seconds(), attrs)
	if res != nil {
		generationsTotal.Add(ctx, int64(res.Generations))
		evaluationsTotal.Add(ctx, int64(res.Evaluations))
	}
}
