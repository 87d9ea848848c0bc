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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/archrecon/services/recon/evolution"
	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

// State is one step of the per-level state machine.
type State int

const (
	StateBuildGraph State = iota
	StateEvolve
	StateSelectBest
	StateMaterialize
	StateRecurse
	StateDone
)

// String returns the state name used in logs and errors.
func (s State) String() string {
	switch s {
	case StateBuildGraph:
		return "BUILD_GRAPH"
	case StateEvolve:
		return "EVOLVE"
	case StateSelectBest:
		return "SELECT_BEST"
	case StateMaterialize:
		return "MATERIALIZE"
	case StateRecurse:
		return "RECURSE"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// DefaultNamePrefix starts every generated component name.
const DefaultNamePrefix = "COH"

// ObserverFactory returns the generation observer for one level. It may
// return nil.
type ObserverFactory func(level int, g *graph.RelationGraph) evolution.ObserverFunc

// Options configures a Partitioner.
type Options struct {
	// Kind is the relation the search optimizes. Default coupling.
	Kind graph.Kind

	// Hierarchical recurses until one root remains. False stops after
	// the first level.
	Hierarchical bool

	// Iteration is encoded into component names.
	Iteration int

	// NamePrefix starts component names. Default "COH".
	NamePrefix string

	// Evolution configures the search of every level. The seed is offset
	// by the level number.
	Evolution evolution.Options

	// Seeder builds the first level's initial partitioning when Run is
	// used. Default PackageSeeder.
	Seeder Seeder

	// Observe optionally attaches a generation observer per level.
	Observe ObserverFactory

	// Logger receives level logs. Nil means slog.Default().
	Logger *slog.Logger
}

// LevelReport summarizes one completed level.
type LevelReport struct {
	Level       int                  `json:"level"`
	Entities    int                  `json:"entities"`
	Components  int                  `json:"components"`
	Objectives  evolution.Objectives `json:"objectives"`
	Generations int                  `json:"generations"`
	Evaluations int                  `json:"evaluations"`
	Duration    time.Duration        `json:"duration"`
}

// Result is the outcome of a decomposition.
type Result struct {
	// Root is the single top component of a hierarchical decomposition.
	Root *store.Entity `json:"root,omitempty"`

	// Components lists every created component in creation order.
	Components []store.Entity `json:"components"`

	// TopLevel holds the ids of the last level's output. For flat runs
	// these are the components; for hierarchical runs only the root.
	TopLevel []graph.EntityID `json:"top_level"`

	// Levels has one report per level.
	Levels []LevelReport `json:"levels"`
}

// Partitioner decomposes the entities of a store into components.
//
// Thread Safety: Safe for concurrent use; each call keeps its own state.
// Concurrent hierarchical runs against one store interleave their writes
// and should be avoided.
type Partitioner struct {
	store  store.Store
	opts   Options
	logger *slog.Logger
}

// New creates a Partitioner.
func New(s store.Store, opts Options) (*Partitioner, error) {
	if s == nil {
		return nil, errors.New("store must not be nil")
	}
	if err := opts.Evolution.Validate(); err != nil {
		return nil, err
	}
	if opts.NamePrefix == "" {
		opts.NamePrefix = DefaultNamePrefix
	}
	if opts.Seeder == nil {
		opts.Seeder = PackageSeeder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Partitioner{store: s, opts: opts, logger: logger}, nil
}

// Run decomposes all internal types of the store, seeded by the
// configured Seeder.
func (p *Partitioner) Run(ctx context.Context) (*Result, error) {
	var (
		ids  []graph.EntityID
		seed Partition
	)
	err := p.store.Read(ctx, func(r store.Reader) error {
		var err error
		ids, err = r.TypeIDs(ctx)
		if err != nil {
			return err
		}
		seed, err = p.opts.Seeder.Seed(ctx, r, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return p.Decompose(ctx, ids, seed)
}

// Decompose partitions ids starting from seed.
//
// Description:
//
//	Runs BUILD_GRAPH, EVOLVE, SELECT_BEST and MATERIALIZE for the level.
//	Flat runs stop there. Hierarchical runs recompute relations among the
//	level's output and RECURSE with one singleton group per entity until
//	one entity remains. A hierarchical level whose best partition groups
//	nothing wraps all remaining entities into a single root, so every
//	level strictly reduces the entity count.
//
// Inputs:
//
//	ctx - Context for cancellation; checked by every phase.
//	ids - Entities of the first level. Must not be empty.
//	seed - Initial partitioning over ids. Nil means singletons.
//
// Outputs:
//
//	*Result - Created components and per-level reports.
//	error - ErrEmptyIDSet, ErrIncompletePartition, or a *LevelError.
func (p *Partitioner) Decompose(ctx context.Context, ids []graph.EntityID, seed Partition) (*Result, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyIDSet
	}
	if seed == nil {
		seed = Singletons(ids)
	}
	if err := seed.Validate(ids); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "partition.Partitioner.Decompose",
		trace.WithAttributes(
			attribute.Int("partition.entities", len(ids)),
			attribute.Bool("partition.hierarchical", p.opts.Hierarchical),
			attribute.String("partition.kind", p.opts.Kind.String()),
		),
	)
	defer span.End()

	res, err := p.decompose(ctx, ids, seed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("partition.levels", len(res.Levels)),
		attribute.Int("partition.components", len(res.Components)),
	)
	return res, nil
}

// levelState carries the data passed between states of one level.
type levelState struct {
	level   int
	ids     []graph.EntityID
	seed    Partition
	started time.Time
	graph   *graph.RelationGraph
	search  *evolution.Result
	best    evolution.Individual
	next    []graph.EntityID
	created []store.Entity
}

func (p *Partitioner) decompose(ctx context.Context, ids []graph.EntityID, seed Partition) (*Result, error) {
	res := &Result{}
	ls := &levelState{ids: ids, seed: seed, started: time.Now()}

	state := StateBuildGraph
	for state != StateDone {
		current := state
		if err := ctx.Err(); err != nil {
			return nil, &LevelError{Level: ls.level, State: current, Err: err}
		}

		var err error
		switch current {
		case StateBuildGraph:
			err = p.buildGraph(ctx, ls)
			state = StateEvolve

		case StateEvolve:
			err = p.evolve(ctx, ls)
			state = StateSelectBest

		case StateSelectBest:
			ls.best = ls.search.Best
			state = StateMaterialize

		case StateMaterialize:
			err = p.materialize(ctx, ls)
			if err != nil {
				break
			}
			res.Components = append(res.Components, ls.created...)
			res.Levels = append(res.Levels, p.report(ctx, ls))
			if !p.opts.Hierarchical || len(ls.next) == 1 {
				state = StateDone
				break
			}
			state = StateRecurse

		case StateRecurse:
			ls = &levelState{
				level:   ls.level + 1,
				ids:     ls.next,
				seed:    Singletons(ls.next),
				started: time.Now(),
			}
			state = StateBuildGraph
		}
		if err != nil {
			return nil, &LevelError{Level: ls.level, State: current, Err: err}
		}
	}

	res.TopLevel = ls.next
	if p.opts.Hierarchical && len(ls.next) == 1 {
		root, err := p.root(ctx, res, ls.next[0])
		if err != nil {
			return nil, &LevelError{Level: ls.level, State: StateDone, Err: err}
		}
		res.Root = root
	}
	return res, nil
}

// root returns the final component, preferring the copy created in this
// run.
func (p *Partitioner) root(ctx context.Context, res *Result, id graph.EntityID) (*store.Entity, error) {
	for i := range res.Components {
		if res.Components[i].ID == id {
			root := res.Components[i]
			return &root, nil
		}
	}
	var root store.Entity
	err := p.store.Read(ctx, func(r store.Reader) error {
		var err error
		root, err = r.Entity(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &root, nil
}

// buildGraph reads the level's relations in one read phase.
func (p *Partitioner) buildGraph(ctx context.Context, ls *levelState) error {
	var triples []graph.Triple
	err := p.store.Read(ctx, func(r store.Reader) error {
		var err error
		triples, err = r.Relations(ctx, p.opts.Kind, ls.ids)
		return err
	})
	if err != nil {
		return fmt.Errorf("read relations: %w", err)
	}

	g, err := graph.BuildFromTriples(ctx, p.opts.Kind, ls.ids, func(yield func(graph.Triple) bool) {
		for _, t := range triples {
			if !yield(t) {
				return
			}
		}
	})
	if err != nil {
		return err
	}
	ls.graph = g
	return nil
}

// evolve runs the search for the level.
func (p *Partitioner) evolve(ctx context.Context, ls *levelState) error {
	opts := p.opts.Evolution
	opts.Seed += uint64(ls.level)
	if p.opts.Observe != nil {
		opts.Observer = p.opts.Observe(ls.level, ls.graph)
	}
	engine, err := evolution.NewEngine(opts)
	if err != nil {
		return err
	}

	// A single entity has nothing to search.
	if len(ls.ids) == 1 {
		ls.search = &evolution.Result{Best: evolution.Individual{Genes: evolution.Chromosome{0}}}
		return nil
	}
	res, err := engine.Run(ctx, ls.graph, ls.seed.Chromosome(ls.ids))
	if err != nil {
		return err
	}
	ls.search = res
	return nil
}

func (p *Partitioner) report(ctx context.Context, ls *levelState) LevelReport {
	r := LevelReport{
		Level:      ls.level,
		Entities:   len(ls.ids),
		Components: len(ls.created),
		Objectives: ls.best.Objectives,
		Duration:   time.Since(ls.started),
	}
	if ls.search != nil {
		r.Generations = ls.search.Generations
		r.Evaluations = ls.search.Evaluations
	}
	recordLevelMetrics(ctx, r)
	p.logger.Info("decomposition level complete",
		slog.Int("level", r.Level),
		slog.Int("entities", r.Entities),
		slog.Int("components", r.Components),
		slog.Int("next_entities", len(ls.next)),
		slog.Float64("fitness", r.Objectives.Sum()),
		slog.Duration("duration", r.Duration),
	)
	return r
}
