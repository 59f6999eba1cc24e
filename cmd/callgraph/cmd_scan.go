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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/callgraph/services/callgraph/analyzer"
	"github.com/AleutianAI/callgraph/services/callgraph/workspace"
)

func newScanCmd() *cobra.Command {
	var (
		include     []string
		exclude     []string
		noGitignore bool
		out         outputOptions
	)
	cmd := &cobra.Command{
		Use:   "scan [project-root]",
		Short: "Discover the Python files of a project and analyze them",
		Long: `Walks the project root, selects files by the workspace include and exclude
patterns (honouring .gitignore), sorts them and analyzes the result.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			ctx := cmd.Context()

			cfg, err := loadConfig(ctx, root)
			if err != nil {
				return err
			}
			opts := workspace.Options{
				Include:          cfg.Workspace.Include,
				Exclude:          cfg.Workspace.Exclude,
				RespectGitignore: cfg.Workspace.RespectGitignore && !noGitignore,
			}
			if len(include) > 0 {
				opts.Include = include
			}
			if len(exclude) > 0 {
				opts.Exclude = exclude
			}

			files, err := workspace.Discover(ctx, root, opts)
			if err != nil {
				return err
			}
			slog.Info("discovered files", slog.String("root", root), slog.Int("count", len(files)))

			req := &analyzer.Request{Files: files, ProjectRoot: root}
			pretty := out.resolvePretty(cmd, cmd.OutOrStdout())
			return runAnalysis(ctx, req, cmd.OutOrStdout(), pretty, out)
		},
	}
	cmd.Flags().StringSliceVar(&include, "include", nil, "Glob patterns selecting files (replaces the configured list)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Glob patterns rejecting files (replaces the configured list)")
	cmd.Flags().BoolVar(&noGitignore, "no-gitignore", false, "Ignore .gitignore files")
	out.register(cmd)
	return cmd
}
