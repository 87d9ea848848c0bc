// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs the OpenTelemetry providers recon reports to.
//
// The search packages own their instruments: recon.graph times graph
// builds, recon.evolution counts generations and evaluations, and
// recon.partition times levels and counts created components. They
// resolve providers through otel.Tracer and otel.Meter, so they record
// into no-op providers until a binary calls Init. This package adds the
// HTTP instruments (Metrics) and the exporters.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names accepted in Config.
const (
	ExporterNone       = "none"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
)

var (
	// ErrNilContext is returned when Init is given a nil context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an unsupported exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// searchBuckets cover a graph build of a few milliseconds up to a deep
// decomposition of a large system.
var searchBuckets = []float64{0.001, 0.01, 0.05, 0.25, 1, 5, 30, 120, 600, 1800}

// Config selects where recon's spans and metrics go.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// TraceExporter is ExporterOTLP, ExporterStdout or ExporterNone.
	TraceExporter string

	// MetricExporter is ExporterPrometheus, ExporterStdout or ExporterNone.
	MetricExporter string

	// OTLPEndpoint is the collector's gRPC address. OTLPInsecure drops TLS.
	OTLPEndpoint string
	OTLPInsecure bool
}

// DefaultConfig serves Prometheus metrics and exports no traces.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "recon",
		ServiceVersion: "0.1.0",
		TraceExporter:  ExporterNone,
		MetricExporter: ExporterPrometheus,
		OTLPEndpoint:   "localhost:4317",
		OTLPInsecure:   true,
	}
}

// closers shuts providers down in reverse order of installation.
type closers []func(context.Context) error

func (c closers) close(ctx context.Context) error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i](ctx))
	}
	return errors.Join(errs...)
}

// Init points the global otel providers at the exporters in cfg.
//
// Description:
//
//	Installs W3C trace-context and baggage propagation so spans started
//	by otelgin continue into the search packages. Histograms named
//	recon_*_duration_seconds use searchBuckets. Nothing is installed for
//	an exporter set to none or left empty.
//
// Outputs:
//
//	shutdown - Flushes and stops what Init installed. Call before exit.
//	error - ErrNilContext, ErrUnknownExporter, or an exporter failure.
//
// Thread Safety: Call once at startup.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	var installed closers
	if enabled(cfg.TraceExporter) {
		exp, err := spanExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
		otel.SetTracerProvider(tp)
		installed = append(installed, tp.Shutdown)
	}

	if enabled(cfg.MetricExporter) {
		reader, err := metricReader(cfg.MetricExporter)
		if err != nil {
			_ = installed.close(ctx)
			return nil, fmt.Errorf("init meter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
			sdkmetric.WithView(sdkmetric.NewView(
				sdkmetric.Instrument{Name: "recon_*_duration_seconds"},
				sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: searchBuckets}},
			)),
		)
		otel.SetMeterProvider(mp)
		installed = append(installed, mp.Shutdown)
	}

	return installed.close, nil
}

func enabled(exporter string) bool {
	return exporter != "" && exporter != ExporterNone
}

func spanExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.TraceExporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("%w: trace %q", ErrUnknownExporter, cfg.TraceExporter)
	}
}

// metricReader returns the reader for exporter. The Prometheus reader
// also publishes the handler returned by MetricsHandler.
func metricReader(exporter string) (sdkmetric.Reader, error) {
	switch exporter {
	case ExporterPrometheus:
		r, err := promexporter.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		metricsHandler.set(promhttp.Handler())
		return r, nil
	case ExporterStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	default:
		return nil, fmt.Errorf("%w: metric %q", ErrUnknownExporter, exporter)
	}
}

// handlerSlot holds the /metrics handler once Prometheus is installed.
type handlerSlot struct {
	mu sync.RWMutex
	h  http.Handler
}

func (s *handlerSlot) set(h http.Handler) {
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *handlerSlot) get() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h
}

var metricsHandler handlerSlot

// MetricsHandler returns the handler the server mounts on /metrics, or
// nil while the Prometheus exporter is not installed.
func MetricsHandler() http.Handler {
	return metricsHandler.get()
}
