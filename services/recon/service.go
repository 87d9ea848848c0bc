// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package recon serves architecture recovery over HTTP.
//
// The service loads type facts into a store, decomposes them into a
// component hierarchy with the evolutionary partitioner, and compares
// decompositions against references.
package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/archrecon/services/recon/config"
	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/partition"
	"github.com/AleutianAI/archrecon/services/recon/quality"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// Service runs recon operations against one store.
//
// Thread Safety:
//
//	Safe for concurrent use. Decompositions and fact loads are serialized
//	because both rewrite the shared store; a second concurrent request
//	fails fast with ErrDecomposeInProgress.
type Service struct {
	cfg    config.Config
	store  store.Store
	logger *slog.Logger

	running sync.Mutex
}

// NewService creates a service. A nil logger means slog.Default().
func NewService(cfg config.Config, st store.Store, logger *slog.Logger) (*Service, error) {
	if st == nil {
		return nil, errors.New("store must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, store: st, logger: logger}, nil
}

// Config returns the service configuration.
func (s *Service) Config() config.Config { return s.cfg }

// LoadFacts writes facts, including their candidates for candidate
// seeding, into the store.
func (s *Service) LoadFacts(ctx context.Context, f *store.Facts) (*LoadFactsResponse, error) {
	if !s.running.TryLock() {
		return nil, ErrDecomposeInProgress
	}
	defer s.running.Unlock()

	report, err := store.LoadFacts(ctx, s.store, f, s.cfg.Weights)
	if err != nil {
		return nil, err
	}

	s.logger.Info("facts loaded",
		slog.Int("types", report.Types),
		slog.Int("dependencies", report.Dependencies),
		slog.Int("relations", report.Relations),
		slog.Int("enriched", report.Enriched),
		slog.Int("candidates", report.Candidates),
	)
	return &LoadFactsResponse{Report: report, Candidates: report.Candidates}, nil
}

// Decompose runs the partitioner over every internal type.
//
// Description:
//
//	Request fields override the configuration for this run. With a
//	reference, the first level is scored against it and, when benchmark
//	recording is configured, every generation of every level is recorded.
//
// Outputs:
//
//	*DecomposeResponse - The run id, created components, and quality.
//	error - ErrDecomposeInProgress, ErrNoFacts, ErrInvalidDecomposition
//	        for a bad reference, or a partition error.
func (s *Service) Decompose(ctx context.Context, req DecomposeRequest) (*DecomposeResponse, error) {
	if req.Reference != nil {
		if err := req.Reference.Validate(); err != nil {
			return nil, fmt.Errorf("reference: %w", err)
		}
	}
	if !s.running.TryLock() {
		return nil, ErrDecomposeInProgress
	}
	defer s.running.Unlock()

	runID := uuid.NewString()
	start := time.Now()
	logger := s.logger.With(slog.String("run_id", runID))

	cfg := s.overrides(req)

	var (
		ids        []graph.EntityID
		candidates []store.Candidate
	)
	if err := s.store.Read(ctx, func(r store.Reader) error {
		var err error
		if ids, err = r.TypeIDs(ctx); err != nil {
			return err
		}
		candidates, err = r.Candidates(ctx)
		return err
	}); err != nil {
		return nil, fmt.Errorf("read types: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoFacts
	}

	seeder, err := partition.NewSeeder(partition.SeedMode(cfg.SeedMode), candidates)
	if err != nil {
		return nil, err
	}

	opts := partition.Options{
		Kind:         cfg.Kind(),
		Hierarchical: cfg.Hierarchical(),
		Iteration:    cfg.Iteration,
		NamePrefix:   cfg.NamePrefix,
		Evolution:    cfg.EvolutionOptions(),
		Seeder:       seeder,
		Logger:       logger,
	}
	opts.Evolution.Logger = logger

	if req.Reference != nil && cfg.Benchmark.Enabled() {
		rec, err := NewRecorder(cfg.Benchmark)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Warn("benchmark recorder close failed", slog.String("error", err.Error()))
			}
		}()
		bench := &quality.Benchmark{
			Recorder:  rec,
			Reference: req.Reference,
			RunID:     runID,
			Every:     cfg.Benchmark.Every,
			Logger:    logger,
		}
		if bench.Companion, err = s.relationGraph(ctx, companionKind(cfg.Kind()), ids); err != nil {
			return nil, err
		}
		opts.Observe = bench.Observer()
	}

	p, err := partition.New(s.store, opts)
	if err != nil {
		return nil, err
	}
	res, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}

	resp := &DecomposeResponse{RunID: runID, Result: res}
	if req.Reference != nil {
		report, err := s.compare(ctx, firstLevel(res, ids), req.Reference)
		if err != nil {
			return nil, err
		}
		resp.Quality = &report
	}
	resp.DurationMs = time.Since(start).Milliseconds()

	logger.Info("decomposition complete",
		slog.Int("types", len(ids)),
		slog.Int("levels", len(res.Levels)),
		slog.Int("components", len(res.Components)),
		slog.Int64("duration_ms", resp.DurationMs),
	)
	return resp, nil
}

// Compare scores produced against reference. MQ is computed over the
// stored relations among the produced entities.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (quality.Report, error) {
	if err := req.Produced.Validate(); err != nil {
		return quality.Report{}, err
	}
	if err := req.Reference.Validate(); err != nil {
		return quality.Report{}, err
	}
	return s.compare(ctx, req.Produced, req.Reference)
}

func (s *Service) compare(ctx context.Context, produced, reference quality.Decomposition) (quality.Report, error) {
	ids := produced.Entities()
	var gs quality.Graphs
	var err error
	if gs.Coupling, err = s.relationGraph(ctx, graph.KindCoupling, ids); err != nil {
		return quality.Report{}, err
	}
	if gs.Similarity, err = s.relationGraph(ctx, graph.KindSimilarity, ids); err != nil {
		return quality.Report{}, err
	}
	return quality.Compare(produced, reference, gs), nil
}

// Component returns a component with its direct children and leaf types.
func (s *Service) Component(ctx context.Context, id graph.EntityID) (*ComponentResponse, error) {
	var resp ComponentResponse
	err := s.store.Read(ctx, func(r store.Reader) error {
		e, err := r.Entity(ctx, id)
		if err != nil {
			return err
		}
		if !e.IsComponent() {
			return fmt.Errorf("%w: %d", ErrNotComponent, id)
		}
		resp.Component = e
		for _, child := range append(slices.Clone(e.Components), e.Types...) {
			c, err := r.Entity(ctx, child)
			if err != nil {
				return err
			}
			resp.Children = append(resp.Children, c)
		}
		resp.Leaves, err = store.LeafTypes(ctx, r, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// relationGraph builds the graph of kind over ids from stored relations.
func (s *Service) relationGraph(ctx context.Context, kind graph.Kind, ids []graph.EntityID) (*graph.RelationGraph, error) {
	var triples []graph.Triple
	err := s.store.Read(ctx, func(r store.Reader) error {
		var err error
		triples, err = r.Relations(ctx, kind, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s relations: %w", kind, err)
	}
	return graph.BuildFromTriples(ctx, kind, ids, slices.Values(triples))
}

// overrides applies the request fields to a copy of the configuration.
func (s *Service) overrides(req DecomposeRequest) config.Config {
	cfg := s.cfg
	if req.Optimization != "" {
		cfg.Optimization = req.Optimization
	}
	if req.Decomposition != "" {
		cfg.Decomposition = req.Decomposition
	}
	if req.SeedMode != "" {
		cfg.SeedMode = req.SeedMode
	}
	if req.Iteration != nil {
		cfg.Iteration = *req.Iteration
	}
	if req.Generations != nil {
		cfg.Evolution.Generations = *req.Generations
	}
	if req.Seed != nil {
		cfg.Evolution.Seed = *req.Seed
	}
	return cfg
}

// NewRecorder opens every recorder configured in b.
func NewRecorder(b config.BenchmarkConfig) (quality.Recorder, error) {
	var recs quality.MultiRecorder
	if b.CSVPath != "" {
		r, err := quality.OpenCSVRecorder(b.CSVPath)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	if b.InfluxURL != "" {
		recs = append(recs, quality.NewInfluxRecorder(quality.InfluxConfig{
			URL:    b.InfluxURL,
			Token:  b.InfluxToken,
			Org:    b.InfluxOrg,
			Bucket: b.InfluxBucket,
		}))
	}
	return recs, nil
}

// firstLevel returns the level-0 decomposition of ids. Types that level 0
// passed through unwrapped form singleton clusters.
func firstLevel(res *partition.Result, ids []graph.EntityID) quality.Decomposition {
	d := make(quality.Decomposition)
	covered := make(map[graph.EntityID]struct{})
	for _, c := range res.Components {
		if c.Level != 0 {
			continue
		}
		d[c.Name] = slices.Clone(c.Types)
		for _, id := range c.Types {
			covered[id] = struct{}{}
		}
	}
	for _, id := range ids {
		if _, ok := covered[id]; !ok {
			d[fmt.Sprintf("type-%d", id)] = []graph.EntityID{id}
		}
	}
	return d
}

func companionKind(k graph.Kind) graph.Kind {
	if k == graph.KindCoupling {
		return graph.KindSimilarity
	}
	return graph.KindCoupling
}
