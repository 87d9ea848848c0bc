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
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/archrecon/pkg/logging"
	"github.com/AleutianAI/archrecon/pkg/ux"
	"github.com/AleutianAI/archrecon/services/recon/config"
	"github.com/AleutianAI/archrecon/services/recon/store"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	output     string

	cfg     config.Config
	logger  *logging.Logger
	printer *ux.Printer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "recon",
		Short: "Recover a component architecture from type facts",
		Long: `recon groups the types of a system into components by evolutionary
multi-objective search over their coupling or name similarity, and scores
decompositions against a reference with MoJo, MoJoFM, MoJoPlus and MQ.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default $"+config.EnvPath+")")
	pf.StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	pf.StringVarP(&a.output, "output", "o", "styled", "output mode: styled, plain, machine")

	root.AddCommand(newDecomposeCmd(a), newCompareCmd(a), newServeCmd(a))
	return root
}

// setup loads configuration and builds the logger and printer.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	mode, err := ux.ParseMode(a.output)
	if err != nil {
		return err
	}

	lc := logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: cfg.Telemetry.ServiceName,
		JSON:    cfg.Logging.JSON,
	}
	if w := cmd.ErrOrStderr(); w != os.Stderr {
		lc.Output = w
	}
	logger, err := logging.New(lc)
	if err != nil {
		return err
	}
	slog.SetDefault(logger.Slog())

	a.cfg = cfg
	a.logger = logger
	a.printer = ux.NewPrinter(cmd.OutOrStdout(), mode)
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.logger == nil {
		return nil
	}
	return a.logger.Close()
}

// openStore opens the configured Badger store, or a memory store when no
// path is configured.
func (a *app) openStore() (store.Store, error) {
	bc, ok := a.cfg.BadgerConfig()
	if !ok {
		return store.NewMemoryStore(), nil
	}
	bc.Logger = a.logger.Slog()
	st, err := store.OpenBadger(bc)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
