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
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/archrecon/services/recon/graph"
)

// =============================================================================
// Options
// =============================================================================

const (
	// DefaultPopulationSize is the number of individuals per generation.
	DefaultPopulationSize = 100

	// DefaultGenerations is the fixed generation budget.
	DefaultGenerations = 300

	// DefaultOffspringFraction is the share of each generation bred anew.
	DefaultOffspringFraction = 0.6

	// DefaultCrossoverRate is the probability a parent pair is crossed.
	DefaultCrossoverRate = 0.8

	// DefaultCrossoverPoints is the number of multi-point cut points.
	DefaultCrossoverPoints = 2

	// DefaultMutationRate is the per-gene mutation probability.
	DefaultMutationRate = 0.1

	// seedPerturbation is the mutation rate used to spread the initial
	// population around the seed.
	seedPerturbation = 0.5

	// maxWorkers caps evaluation goroutines.
	maxWorkers = 16
)

// StopFunc ends the search early when it returns true. It is called after
// every generation.
type StopFunc func(stats GenerationStats) bool

// ObserverFunc receives statistics after every generation. It must not
// modify the individual it is given.
type ObserverFunc func(ctx context.Context, stats GenerationStats)

// GenerationStats summarizes one completed generation.
type GenerationStats struct {
	// Generation is 1-based.
	Generation int

	// Evaluations is the number of evaluations so far, including the
	// initial population.
	Evaluations int

	// FrontSize is the number of non-dominated individuals.
	FrontSize int

	// Best is the preferred individual seen so far.
	Best Individual

	// Crossed and Mutated count alterations applied in this generation.
	Crossed int
	Mutated int
}

// Options configures an Engine.
type Options struct {
	PopulationSize    int
	Generations       int
	OffspringFraction float64
	CrossoverRate     float64
	CrossoverPoints   int
	MutationRate      float64

	// Seed drives every random draw. Equal seeds give equal runs.
	Seed uint64

	// Workers bounds evaluation parallelism. 0 means one per CPU.
	Workers int

	// Stop is an optional early-stop hook. Nil runs the full budget.
	Stop StopFunc

	// Observer is an optional per-generation callback.
	Observer ObserverFunc

	// Logger receives progress logs. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the standard search parameters.
func DefaultOptions() Options {
	return Options{
		PopulationSize:    DefaultPopulationSize,
		Generations:       DefaultGenerations,
		OffspringFraction: DefaultOffspringFraction,
		CrossoverRate:     DefaultCrossoverRate,
		CrossoverPoints:   DefaultCrossoverPoints,
		MutationRate:      DefaultMutationRate,
	}
}

// Validate fills a zero population size, offspring fraction and point
// count with defaults and rejects out-of-range probabilities. A zero
// crossover or mutation rate is kept and turns that operator off.
func (o *Options) Validate() error {
	if o.PopulationSize <= 0 {
		o.PopulationSize = DefaultPopulationSize
	}
	if o.Generations < 0 {
		return fmt.Errorf("%w: generations %d", ErrInvalidOptions, o.Generations)
	}
	if o.OffspringFraction == 0 {
		o.OffspringFraction = DefaultOffspringFraction
	}
	if o.CrossoverPoints <= 0 {
		o.CrossoverPoints = DefaultCrossoverPoints
	}
	for name, p := range map[string]float64{
		"offspring_fraction": o.OffspringFraction,
		"crossover_rate":     o.CrossoverRate,
		"mutation_rate":      o.MutationRate,
	} {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("%w: %s %v not in [0, 1]", ErrInvalidOptions, name, p)
		}
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidOptions, o.Workers)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return nil
}

// =============================================================================
// Engine
// =============================================================================

// Result is the outcome of one search.
type Result struct {
	// Best is the selected non-dominated individual.
	Best Individual

	// Front is the non-dominated set of the final population plus the
	// best individual seen in any generation.
	Front []Individual

	// Generations is the number of completed generations.
	Generations int

	// Evaluations is the number of objective evaluations performed.
	Evaluations int

	// Stopped is true when the Stop hook ended the run early.
	Stopped bool
}

// Engine runs the generation loop for one relation graph at a time.
//
// Thread Safety: An Engine may run several searches concurrently; each
// Run owns its random source and population.
type Engine struct {
	opts    Options
	alterer Alterer
}

// NewEngine validates opts and returns an engine.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		opts: opts,
		alterer: Alterer{
			CrossoverRate:   opts.CrossoverRate,
			CrossoverPoints: opts.CrossoverPoints,
			MutationRate:    opts.MutationRate,
		},
	}, nil
}

// Options returns the validated options.
func (e *Engine) Options() Options { return e.opts }

// Run searches for a partition of g starting near seed.
//
// Description:
//
//	Individual 0 of the initial population is the seed. The first half of
//	the rest are perturbed copies of the seed and the second half are
//	uniformly random. Each generation draws survivors and offspring
//	parents by roulette over dominance weights, alters the offspring, and
//	evaluates them on a bounded worker pool. After the budget (or an
//	early Stop) the preferred member of the non-dominated front is
//	returned.
//
// Inputs:
//
//	ctx - Checked at every generation boundary and by every worker.
//	g - Read-only relation graph for this level.
//	seed - Initial partitioning, len == g.Len(). Nil starts from all
//	       singletons.
//
// Outputs:
//
//	*Result - The selected individual and run statistics.
//	error - ErrNilGraph, ErrLengthMismatch, or ErrCancelled.
func (e *Engine) Run(ctx context.Context, g *graph.RelationGraph, seed Chromosome) (*Result, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	n := g.Len()
	if seed == nil {
		seed = make(Chromosome, n)
		for i := range seed {
			seed[i] = i
		}
	}
	if len(seed) != n {
		return nil, fmt.Errorf("%w: seed has %d genes, graph has %d entities", ErrLengthMismatch, len(seed), n)
	}

	ctx, span := tracer.Start(ctx, "evolution.Engine.Run",
		trace.WithAttributes(
			attribute.Int("evolution.entities", n),
			attribute.Int("evolution.population", e.opts.PopulationSize),
			attribute.Int("evolution.generations", e.opts.Generations),
		),
	)
	defer span.End()
	start := time.Now()

	res, err := e.run(ctx, g, seed)
	recordRunMetrics(ctx, time.Since(start), res, err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("evolution.components", res.Best.Objectives.Components),
		attribute.Int("evolution.evaluations", res.Evaluations),
		attribute.Bool("evolution.stopped", res.Stopped),
	)
	return res, nil
}

func (e *Engine) run(ctx context.Context, g *graph.RelationGraph, seed Chromosome) (*Result, error) {
	n := g.Len()
	if n == 0 {
		return &Result{Best: Individual{Genes: Chromosome{}}}, nil
	}

	ev, err := NewEvaluator(g)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(e.opts.Seed, e.opts.Seed^0x9e3779b97f4a7c15))
	logger := e.opts.Logger

	pop, err := e.evaluate(ctx, ev, e.initialGenes(rng, seed, n))
	if err != nil {
		return nil, err
	}
	evaluations := len(pop)
	best := preferred(pop)

	offCount := int(math.Round(float64(e.opts.PopulationSize) * e.opts.OffspringFraction))
	survCount := e.opts.PopulationSize - offCount

	res := &Result{}
	for gen := 1; gen <= e.opts.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: generation %d: %w", ErrCancelled, gen, err)
		}

		weights := DominanceWeights(pop)
		survivors := RouletteSelect(rng, weights, survCount)
		parents := RouletteSelect(rng, weights, offCount)

		genes := make([]Chromosome, len(parents))
		for i, p := range parents {
			genes[i] = pop[p].Genes.Clone()
		}
		crossed, mutated := e.alterer.Alter(rng, genes, n)

		offspring, err := e.evaluate(ctx, ev, genes)
		if err != nil {
			return nil, err
		}
		evaluations += len(offspring)

		next := make([]Individual, 0, e.opts.PopulationSize)
		for _, s := range survivors {
			next = append(next, pop[s])
		}
		next = append(next, offspring...)
		pop = next

		if cand := preferred(pop); Better(cand.Objectives, best.Objectives) {
			best = cand
		}
		res.Generations = gen

		stats := GenerationStats{
			Generation:  gen,
			Evaluations: evaluations,
			FrontSize:   len(NonDominated(pop)),
			Best:        best,
			Crossed:     crossed,
			Mutated:     mutated,
		}
		if e.opts.Observer != nil {
			e.opts.Observer(ctx, stats)
		}
		if gen%50 == 0 {
			logger.Debug("evolution progress",
				slog.Int("generation", gen),
				slog.Int("front", stats.FrontSize),
				slog.Int("components", best.Objectives.Components),
				slog.Float64("fitness", best.Objectives.Sum()),
			)
		}
		if e.opts.Stop != nil && e.opts.Stop(stats) {
			res.Stopped = true
			break
		}
	}

	candidates := append(pop, best)
	front := NonDominated(candidates)
	res.Front = make([]Individual, len(front))
	for i, idx := range front {
		res.Front[i] = candidates[idx]
	}
	res.Best = preferred(res.Front)
	res.Evaluations = evaluations
	return res, nil
}

// initialGenes builds the starting population around seed.
func (e *Engine) initialGenes(rng *rand.Rand, seed Chromosome, n int) []Chromosome {
	size := e.opts.PopulationSize
	genes := make([]Chromosome, size)
	genes[0] = seed.Compact()
	perturbed := (size - 1) / 2
	for i := 1; i < size; i++ {
		if i <= perturbed {
			c := genes[0].Clone()
			c.Mutate(rng, seedPerturbation, n)
			genes[i] = c
			continue
		}
		genes[i] = RandomChromosome(rng, n, n)
	}
	return genes
}

// evaluate scores genes on the worker pool. Results keep input order.
func (e *Engine) evaluate(ctx context.Context, ev *Evaluator, genes []Chromosome) ([]Individual, error) {
	out := make([]Individual, len(genes))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.workers(len(genes)))
	for i, c := range genes {
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = Individual{Genes: c, Objectives: ev.Evaluate(c)}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return out, nil
}

func (e *Engine) workers(jobs int) int {
	w := e.opts.Workers
	if w == 0 {
		w = min(runtime.NumCPU(), maxWorkers)
	}
	return max(1, min(w, jobs))
}

// preferred returns the individual that no other individual beats under
// Better. Earlier individuals win ties.
func preferred(pop []Individual) Individual {
	best := pop[0]
	for _, ind := range pop[1:] {
		if Better(ind.Objectives, best.Objectives) {
			best = ind
		}
	}
	return best
}
