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
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

func newSnapshotCmd() *cobra.Command {
	var dbDir string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect saved call graphs",
	}
	cmd.PersistentFlags().StringVar(&dbDir, "db", "", "Snapshot BadgerDB directory (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	var (
		project string
		limit   int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots of a project, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, closeDB, err := openSnapshots(dbDir)
			if err != nil {
				return err
			}
			defer closeDB()

			metas, err := mgr.List(cmd.Context(), graph.ProjectHash(project), limit)
			if err != nil {
				return err
			}
			return printSnapshots(cmd.OutOrStdout(), metas)
		},
	}
	list.Flags().StringVar(&project, "project", ".", "Project root the snapshots were saved for")
	list.Flags().IntVar(&limit, "limit", 20, "Maximum snapshots to list")

	var (
		pretty bool
		latest bool
	)
	show := &cobra.Command{
		Use:   "show [snapshot-id]",
		Short: "Print a snapshot's graph",
		Long: `Prints the snapshot with the given id, or with --latest the most recent
snapshot saved for --project.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if latest {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, closeDB, err := openSnapshots(dbDir)
			if err != nil {
				return err
			}
			defer closeDB()

			var g *graph.Graph
			if latest {
				g, _, err = mgr.LoadLatest(cmd.Context(), graph.ProjectHash(project))
			} else {
				g, _, err = mgr.Load(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("pretty") {
				pretty = isTerminal(cmd.OutOrStdout())
			}
			return graph.Encode(cmd.OutOrStdout(), g, pretty)
		},
	}
	show.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output (default when stdout is a terminal)")
	show.Flags().BoolVar(&latest, "latest", false, "Show the newest snapshot of --project instead of an id")
	show.Flags().StringVar(&project, "project", ".", "Project root used with --latest")

	del := &cobra.Command{
		Use:   "delete <snapshot-id>",
		Short: "Remove a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, closeDB, err := openSnapshots(dbDir)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := mgr.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func openSnapshots(dir string) (*graph.SnapshotManager, func(), error) {
	db, err := graph.OpenSnapshotDB(dir)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := graph.NewSnapshotManager(db, slog.Default())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return mgr, func() { db.Close() }, nil
}

func printSnapshots(w io.Writer, metas []*graph.SnapshotMetadata) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tNODES\tEDGES\tLABEL")
	for _, m := range metas {
		created := time.UnixMilli(m.CreatedAtMilli).UTC().Format(time.RFC3339)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", m.SnapshotID, created, m.NodeCount, m.EdgeCount, m.Label)
	}
	return tw.Flush()
}
