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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/callgraph/services/callgraph/analyzer"
	"github.com/AleutianAI/callgraph/services/callgraph/config"
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
	"github.com/AleutianAI/callgraph/services/callgraph/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr       string
		debug      bool
		snapshotDB string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer over HTTP",
		Long: `Starts an HTTP server with:

  POST /v1/callgraph/analyze         analyze a request body
  GET  /v1/callgraph/health          health check
  GET  /v1/callgraph/snapshots       list snapshots (with --snapshot-db)
  GET  /v1/callgraph/snapshots/:id   load a snapshot (with --snapshot-db)
  GET  /metrics                      Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), addr, debug, snapshotDB)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable gin debug mode and request logging")
	cmd.Flags().StringVar(&snapshotDB, "snapshot-db", "", "Save every analyzed graph in this BadgerDB directory")
	return cmd
}

func serve(ctx context.Context, addr string, debug bool, snapshotDB string) error {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	cfg, err := config.Default()
	if configPath != "" {
		cfg, err = config.LoadFile(ctx, configPath)
	}
	if err != nil {
		return err
	}

	opts := []server.HandlerOption{server.WithVersion(version)}
	if snapshotDB != "" {
		db, err := graph.OpenSnapshotDB(snapshotDB)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				slog.Warn("closing snapshot db failed", slog.String("error", err.Error()))
			}
		}()
		mgr, err := graph.NewSnapshotManager(db, slog.Default())
		if err != nil {
			return err
		}
		opts = append(opts, server.WithSnapshots(mgr))
		slog.Info("snapshot persistence enabled", slog.String("path", snapshotDB))
	}

	a := analyzer.NewAnalyzer(analyzer.WithConfig(cfg), analyzer.WithLogger(slog.Default()))
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(server.NewHandlers(a, opts...), debug),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting callgraph server", slog.String("address", addr), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down callgraph server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
