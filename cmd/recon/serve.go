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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/archrecon/services/recon"
	"github.com/AleutianAI/archrecon/services/recon/store"
	"github.com/AleutianAI/archrecon/services/recon/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port int
	var facts string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recon HTTP API",
		Example: `  recon serve --port 8090
  curl -X POST localhost:8090/v1/recon/facts -d @facts.json
  curl -X POST localhost:8090/v1/recon/decompose -d '{"decomposition": "flat"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return a.serve(cmd.Context(), facts)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().StringVarP(&facts, "facts", "f", "", "fact file to load at startup")
	return cmd
}

func (a *app) serve(ctx context.Context, factsPath string) error {
	logger := a.logger.Slog()

	tcfg := a.cfg.TelemetryOptions()
	tcfg.ServiceVersion = recon.ServiceVersion
	shutdownTelemetry, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.Meter("github.com/AleutianAI/archrecon/services/recon"))
	if err != nil {
		return err
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
	if factsPath != "" {
		facts, err := store.ReadFacts(factsPath)
		if err != nil {
			return err
		}
		if _, err := svc.LoadFacts(ctx, facts); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := recon.NewRouter(a.cfg.Telemetry.ServiceName, recon.NewHandlers(svc), metrics)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("recon server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down recon server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
