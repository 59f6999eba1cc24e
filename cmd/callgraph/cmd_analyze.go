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
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/callgraph/services/callgraph/analyzer"
	"github.com/AleutianAI/callgraph/services/callgraph/config"
	"github.com/AleutianAI/callgraph/services/callgraph/export"
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

// outputOptions are shared by analyze and scan.
type outputOptions struct {
	pretty        bool
	snapshotDB    string
	snapshotLabel string
	sqlitePath    string
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.pretty, "pretty", false, "Indent JSON output (default when stdout is a terminal)")
	cmd.Flags().StringVar(&o.snapshotDB, "snapshot-db", "", "Also save the graph as a snapshot in this BadgerDB directory")
	cmd.Flags().StringVar(&o.snapshotLabel, "snapshot-label", "", "Label stored with the snapshot")
	cmd.Flags().StringVar(&o.sqlitePath, "sqlite", "", "Also export the graph to this SQLite file")
}

// resolvePretty applies the terminal default unless --pretty was given.
func (o *outputOptions) resolvePretty(cmd *cobra.Command, out io.Writer) bool {
	if cmd.Flags().Changed("pretty") {
		return o.pretty
	}
	return isTerminal(out)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newAnalyzeCmd() *cobra.Command {
	var (
		requestPath string
		out         outputOptions
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one JSON request read from stdin",
		Long: `Reads {"files": [...], "projectRoot": "..."} from stdin (or --request)
and writes {"nodes": [...], "edges": [...]} to stdout.

Missing or unparseable files are silently dropped. A malformed request
exits non-zero without writing a graph.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if requestPath != "" {
				f, err := os.Open(requestPath)
				if err != nil {
					return fmt.Errorf("opening request: %w", err)
				}
				defer f.Close()
				in = f
			}

			req, err := analyzer.DecodeRequest(in)
			if err != nil {
				return err
			}
			pretty := out.resolvePretty(cmd, cmd.OutOrStdout())
			return runAnalysis(cmd.Context(), req, cmd.OutOrStdout(), pretty, out)
		},
	}
	cmd.Flags().StringVar(&requestPath, "request", "", "Read the request from this file instead of stdin")
	out.register(cmd)
	return cmd
}

// loadConfig honours --config, else the project's own config file.
//
// A broken --config is an error. A broken project config is logged and
// the defaults are used, so a well-formed request still gets a graph.
func loadConfig(ctx context.Context, projectRoot string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(ctx, configPath)
	}
	cfg, err := config.LoadForProject(ctx, projectRoot)
	if err == nil {
		return cfg, nil
	}
	slog.Warn("ignoring invalid project config",
		slog.String("project_root", projectRoot),
		slog.String("file", config.ProjectConfigFile),
		slog.String("error", err.Error()))
	return config.Default()
}

// runAnalysis analyzes req, writes the graph to w and runs the optional
// persistence steps.
func runAnalysis(ctx context.Context, req *analyzer.Request, w io.Writer, pretty bool, out outputOptions) error {
	cfg, err := loadConfig(ctx, req.ProjectRoot)
	if err != nil {
		return err
	}

	res, err := analyzer.NewAnalyzer(
		analyzer.WithConfig(cfg),
		analyzer.WithLogger(slog.Default()),
	).Run(ctx, req)
	if err != nil {
		return err
	}

	if err := graph.Encode(w, res.Graph, pretty); err != nil {
		return fmt.Errorf("writing graph: %w", err)
	}

	if out.snapshotDB != "" {
		if err := saveSnapshot(ctx, out.snapshotDB, req.ProjectRoot, res.Graph, out.snapshotLabel); err != nil {
			return err
		}
	}
	if out.sqlitePath != "" {
		if err := exportSQLite(ctx, out.sqlitePath, res.Graph); err != nil {
			return err
		}
	}
	return nil
}

func saveSnapshot(ctx context.Context, dir, projectRoot string, g *graph.Graph, label string) error {
	db, err := graph.OpenSnapshotDB(dir)
	if err != nil {
		return err
	}
	defer db.Close()

	mgr, err := graph.NewSnapshotManager(db, slog.Default())
	if err != nil {
		return err
	}
	meta, err := mgr.Save(ctx, projectRoot, g, label)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	slog.Info("snapshot saved",
		slog.String("snapshot_id", meta.SnapshotID),
		slog.String("project_hash", meta.ProjectHash),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return nil
}

func exportSQLite(ctx context.Context, path string, g *graph.Graph) error {
	exp, err := export.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer exp.Close()

	if err := exp.Export(ctx, g); err != nil {
		return fmt.Errorf("exporting to sqlite: %w", err)
	}
	slog.Info("sqlite export written", slog.String("path", path), slog.Int("nodes", g.NodeCount()))
	return nil
}
