// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quality

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/archrecon/services/recon/evolution"
	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/partition"
)

// =============================================================================
// Samples
// =============================================================================

// Sample is one benchmark observation of a running search.
type Sample struct {
	RunID      string
	Level      int
	Generation int
	Components int
	Objectives evolution.Objectives
	Report     Report
	Time       time.Time
}

// Fitness is the aggregate objective value of the sampled individual.
func (s Sample) Fitness() float64 { return s.Objectives.Sum() }

// Recorder persists benchmark samples.
type Recorder interface {
	Record(ctx context.Context, s Sample) error
	Close() error
}

// csvHeader lists the CSV columns in write order.
var csvHeader = []string{
	"level", "generation", "components", "cohesion", "coupling", "size", "range", "count",
	"mojo", "mojofm", "mojoplus", "mqSim", "mqCoup", "fitness",
}

func csvRow(s Sample) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	o := s.Objectives
	return []string{
		strconv.Itoa(s.Level),
		strconv.Itoa(s.Generation),
		strconv.Itoa(s.Components),
		f(o.Cohesion), f(o.Coupling), f(o.ComponentSize), f(o.ComponentRange), f(o.ComponentCount),
		strconv.Itoa(s.Report.MoJo),
		f(s.Report.MoJoFM),
		strconv.Itoa(s.Report.MoJoPlus),
		f(s.Report.MQSimilarity),
		f(s.Report.MQCoupling),
		f(s.Fitness()),
	}
}

// =============================================================================
// CSV
// =============================================================================

// CSVRecorder appends samples as CSV rows.
//
// Thread Safety: safe for concurrent use.
type CSVRecorder struct {
	mu     sync.Mutex
	closer io.Closer
	w      *csv.Writer
}

// NewCSVRecorder writes to w, emitting the header first when header is
// true. closer may be nil.
func NewCSVRecorder(w io.Writer, closer io.Closer, header bool) (*CSVRecorder, error) {
	r := &CSVRecorder{closer: closer, w: csv.NewWriter(w)}
	if header {
		if err := r.w.Write(csvHeader); err != nil {
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		r.w.Flush()
		if err := r.w.Error(); err != nil {
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	}
	return r, nil
}

// OpenCSVRecorder appends to path, creating it with a header if it does
// not exist or is empty.
func OpenCSVRecorder(path string) (*CSVRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open benchmark csv: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat benchmark csv: %w", err)
	}
	r, err := NewCSVRecorder(f, f, info.Size() == 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Record writes one row and flushes it.
func (r *CSVRecorder) Record(_ context.Context, s Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Write(csvRow(s)); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

// Close flushes pending rows and closes the underlying file.
func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w.Flush()
	err := r.w.Error()
	if r.closer != nil {
		err = errors.Join(err, r.closer.Close())
		r.closer = nil
	}
	return err
}

// =============================================================================
// InfluxDB
// =============================================================================

// InfluxMeasurement is the measurement every sample is written to.
const InfluxMeasurement = "recon_generation"

// InfluxConfig locates an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxRecorder writes samples as InfluxDB points with blocking writes.
type InfluxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxRecorder creates a client for cfg. No connection is made until
// the first write.
func NewInfluxRecorder(cfg InfluxConfig) *InfluxRecorder {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxRecorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// Point converts a sample into a line-protocol point.
func Point(s Sample) *write.Point {
	o := s.Objectives
	return influxdb2.NewPointWithMeasurement(InfluxMeasurement).
		AddTag("run_id", s.RunID).
		AddTag("level", strconv.Itoa(s.Level)).
		AddField("generation", s.Generation).
		AddField("components", s.Components).
		AddField("cohesion", o.Cohesion).
		AddField("coupling", o.Coupling).
		AddField("size", o.ComponentSize).
		AddField("range", o.ComponentRange).
		AddField("count", o.ComponentCount).
		AddField("invalid", o.Invalid).
		AddField("mojo", s.Report.MoJo).
		AddField("mojofm", s.Report.MoJoFM).
		AddField("mojoplus", s.Report.MoJoPlus).
		AddField("mq_similarity", s.Report.MQSimilarity).
		AddField("mq_coupling", s.Report.MQCoupling).
		AddField("fitness", s.Fitness()).
		SetTime(s.Time)
}

// Record writes one point.
func (r *InfluxRecorder) Record(ctx context.Context, s Sample) error {
	return r.writeAPI.WritePoint(ctx, Point(s))
}

// Close releases the client.
func (r *InfluxRecorder) Close() error {
	r.client.Close()
	return nil
}

// =============================================================================
// Observer
// =============================================================================

// Benchmark compares the best individual of each generation against a
// reference decomposition and records the result. It only reads search
// state.
type Benchmark struct {
	// Recorder receives every sample.
	Recorder Recorder

	// Reference is the expected decomposition.
	Reference Decomposition

	// Companion is an optional graph of the other relation kind. It is
	// used for MQ only at levels whose entities it covers exactly.
	Companion *graph.RelationGraph

	// RunID tags every sample.
	RunID string

	// Every records one generation in Every. Zero or one records all.
	Every int

	// Logger receives write failures. Nil means slog.Default().
	Logger *slog.Logger
}

// Observer returns an observer factory for the partitioner.
func (b *Benchmark) Observer() partition.ObserverFactory {
	return func(level int, g *graph.RelationGraph) evolution.ObserverFunc {
		gs := b.graphs(g)
		ids := g.IDs()
		return func(ctx context.Context, stats evolution.GenerationStats) {
			if b.Every > 1 && stats.Generation%b.Every != 0 {
				return
			}
			produced := FromPartition(partition.FromChromosome(ids, stats.Best.Genes))
			s := Sample{
				RunID:      b.RunID,
				Level:      level,
				Generation: stats.Generation,
				Components: len(produced),
				Objectives: stats.Best.Objectives,
				Report:     Compare(produced, b.Reference, gs),
				Time:       time.Now(),
			}
			if err := b.Recorder.Record(ctx, s); err != nil {
				b.logger().Warn("benchmark sample not recorded",
					slog.Int("level", level),
					slog.Int("generation", stats.Generation),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (b *Benchmark) graphs(g *graph.RelationGraph) Graphs {
	var gs Graphs
	set := func(h *graph.RelationGraph) {
		if h.Kind() == graph.KindCoupling {
			gs.Coupling = h
		} else {
			gs.Similarity = h
		}
	}
	set(g)
	if c := b.Companion; c != nil && c.Kind() != g.Kind() && sameIDs(c, g) {
		set(c)
	}
	return gs
}

func (b *Benchmark) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func sameIDs(a, b *graph.RelationGraph) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, id := range a.IDs() {
		if _, ok := b.Position(id); !ok {
			return false
		}
	}
	return true
}

// MultiRecorder fans every sample out to several recorders.
type MultiRecorder []Recorder

// Record writes s to every recorder and joins their errors.
func (m MultiRecorder) Record(ctx context.Context, s Sample) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Record(ctx, s))
	}
	return errors.Join(errs...)
}

// Close closes every recorder and joins their errors.
func (m MultiRecorder) Close() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}
