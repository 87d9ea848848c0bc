// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/archrecon/services/recon"
	"github.com/AleutianAI/archrecon/services/recon/quality"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

type decomposeOptions struct {
	facts     string
	reference string
	db        string
	csv       string
	asJSON    bool
	watch     bool
	debounce  time.Duration

	optimization  string
	decomposition string
	seedMode      string
	iteration     int
	generations   int
	seed          uint64
}

func newDecomposeCmd(a *app) *cobra.Command {
	var o decomposeOptions
	cmd := &cobra.Command{
		Use:   "decompose",
		Short: "Decompose the types of a fact file into components",
		Example: `  recon decompose --facts facts.yaml
  recon decompose --facts facts.yaml --decomposition flat --reference expected.yaml
  recon decompose --facts facts.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.db != "" {
				a.cfg.Store.Path = o.db
			}
			if o.csv != "" {
				a.cfg.Benchmark.CSVPath = o.csv
			}
			req := o.request(cmd)
			run := func(ctx context.Context) error {
				return a.decompose(ctx, cmd.OutOrStdout(), o, req)
			}
			if !o.watch {
				return run(cmd.Context())
			}
			return watchFile(cmd.Context(), o.facts, o.debounce, a.logger.Slog(), func(ctx context.Context) error {
				if err := run(ctx); err != nil {
					a.printer.Error(err.Error())
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.facts, "facts", "f", "", "fact file (YAML or JSON)")
	f.StringVarP(&o.reference, "reference", "r", "", "reference decomposition to score against")
	f.StringVar(&o.db, "db", "", "Badger directory (overrides store.path)")
	f.StringVar(&o.csv, "csv", "", "append per-generation benchmark rows to this CSV (needs --reference)")
	f.BoolVar(&o.asJSON, "json", false, "print the result as JSON")
	f.BoolVarP(&o.watch, "watch", "w", false, "re-run whenever the fact file changes")
	f.DurationVar(&o.debounce, "debounce", 300*time.Millisecond, "quiet period before a watched change re-runs")
	f.StringVar(&o.optimization, "optimization", "", "coupling or similarity")
	f.StringVar(&o.decomposition, "decomposition", "", "flat or deep")
	f.StringVar(&o.seedMode, "seed-mode", "", "package, candidates or groups")
	f.IntVar(&o.iteration, "iteration", 0, "iteration number written into component names")
	f.IntVar(&o.generations, "generations", 0, "generations per level")
	f.Uint64Var(&o.seed, "seed", 0, "random seed")
	_ = cmd.MarkFlagRequired("facts")
	return cmd
}

// request turns the flags that were set into run overrides.
func (o decomposeOptions) request(cmd *cobra.Command) recon.DecomposeRequest {
	req := recon.DecomposeRequest{
		Optimization:  o.optimization,
		Decomposition: o.decomposition,
		SeedMode:      o.seedMode,
	}
	changed := cmd.Flags().Changed
	if changed("iteration") {
		req.Iteration = &o.iteration
	}
	if changed("generations") {
		req.Generations = &o.generations
	}
	if changed("seed") {
		req.Seed = &o.seed
	}
	return req
}

func (a *app) decompose(ctx context.Context, w io.Writer, o decomposeOptions, req recon.DecomposeRequest) error {
	logger := a.logger.Slog()

	facts, err := store.ReadFacts(o.facts)
	if err != nil {
		return err
	}
	if o.reference != "" {
		if req.Reference, err = quality.ReadDecomposition(o.reference); err != nil {
			return err
		}
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close failed", slog.String("error", err.Error()))
		}
	}()

	svc, err := recon.NewService(a.cfg, st, logger)
	if err != nil {
		return err
	}
	if _, err := svc.LoadFacts(ctx, facts); err != nil {
		return err
	}
	resp, err := svc.Decompose(ctx, req)
	if err != nil {
		return err
	}

	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	tree, err := buildTree(ctx, st, resp.Result)
	if err != nil {
		return err
	}
	a.printer.Title("Decomposition " + resp.RunID)
	a.printer.Tree(tree)
	if resp.Quality != nil {
		a.printer.Title("Quality")
		a.printer.Fields(reportFields(*resp.Quality))
	}
	a.printer.Success(fmt.Sprintf("%d components over %d levels in %d ms",
		len(resp.Result.Components), len(resp.Result.Levels), resp.DurationMs))
	return nil
}
