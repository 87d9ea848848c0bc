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
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/archrecon/services/recon"
	"github.com/AleutianAI/archrecon/services/recon/quality"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

func newCompareCmd(a *app) *cobra.Command {
	var produced, reference, facts string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Score a produced decomposition against a reference",
		Long: `compare reports MoJo, MoJoFM and MoJoPlus between two decompositions.
With --facts, MQ is computed over the coupling and similarity relations of
the produced decomposition's types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			req := recon.CompareRequest{}
			var err error
			if req.Produced, err = quality.ReadDecomposition(produced); err != nil {
				return err
			}
			if req.Reference, err = quality.ReadDecomposition(reference); err != nil {
				return err
			}

			svc, err := recon.NewService(a.cfg, store.NewMemoryStore(), a.logger.Slog())
			if err != nil {
				return err
			}
			if facts != "" {
				f, err := store.ReadFacts(facts)
				if err != nil {
					return err
				}
				if _, err := svc.LoadFacts(ctx, f); err != nil {
					return err
				}
			}

			report, err := svc.Compare(ctx, req)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			a.printer.Title("Quality")
			a.printer.Fields(reportFields(report))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&produced, "produced", "p", "", "produced decomposition (YAML or JSON)")
	f.StringVarP(&reference, "reference", "r", "", "reference decomposition (YAML or JSON)")
	f.StringVarP(&facts, "facts", "f", "", "fact file providing relations for MQ")
	f.BoolVar(&asJSON, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("produced")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}
