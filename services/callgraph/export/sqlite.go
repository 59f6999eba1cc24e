// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export writes call graphs to relational storage.
package export

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

//go:embed schema.sql
var schema string

var tracer = otel.Tracer("callgraph.export")

// SQLiteExporter writes a graph into nodes, parameters, decorators and
// edges tables. Each Export replaces the previous contents.
type SQLiteExporter struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteExporter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteExporter{db: db}, nil
}

// Close closes the database.
func (e *SQLiteExporter) Close() error {
	return e.db.Close()
}

// DB returns the underlying connection for queries.
func (e *SQLiteExporter) DB() *sql.DB {
	return e.db
}

// Export replaces the stored graph with g in a single transaction.
//
// Nodes keep their order in g as their seq column, starting at 1, so
// duplicate ids stay distinct rows.
func (e *SQLiteExporter) Export(ctx context.Context, g *graph.Graph) (err error) {
	ctx, span := tracer.Start(ctx, "SQLiteExporter.Export",
		trace.WithAttributes(
			attribute.Int("nodes", g.NodeCount()),
			attribute.Int("edges", g.EdgeCount()),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning export: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"parameters", "decorators", "edges", "nodes"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err = insertNodes(ctx, tx, g.Nodes); err != nil {
		return err
	}
	if err = insertEdges(ctx, tx, g.Edges); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing export: %w", err)
	}
	return nil
}

func insertNodes(ctx context.Context, tx *sql.Tx, nodes []*graph.Node) error {
	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes
		(seq, id, name, qualified_name, file_path, start_line, end_line, language, kind,
		 visibility, is_entry_point, package_or_module, lines_of_code, status, color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer nodeStmt.Close()

	paramStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO parameters (node_seq, position, name, type, is_used) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing parameter insert: %w", err)
	}
	defer paramStmt.Close()

	decoStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO decorators (node_seq, position, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing decorator insert: %w", err)
	}
	defer decoStmt.Close()

	for i, n := range nodes {
		seq := i + 1
		if _, err := nodeStmt.ExecContext(ctx, seq, n.ID, n.Name, n.QualifiedName, n.FilePath,
			n.StartLine, n.EndLine, n.Language, string(n.Kind), string(n.Visibility),
			n.IsEntryPoint, n.PackageOrModule, n.LinesOfCode, n.Status, n.Color); err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
		for _, p := range n.Parameters {
			var typ sql.NullString
			if p.Type != "" {
				typ = sql.NullString{String: p.Type, Valid: true}
			}
			if _, err := paramStmt.ExecContext(ctx, seq, p.Position, p.Name, typ, p.IsUsed); err != nil {
				return fmt.Errorf("inserting parameter %s of %s: %w", p.Name, n.ID, err)
			}
		}
		for pos, d := range n.Decorators {
			if _, err := decoStmt.ExecContext(ctx, seq, pos, d); err != nil {
				return fmt.Errorf("inserting decorator of %s: %w", n.ID, err)
			}
		}
	}
	return nil
}

func insertEdges(ctx context.Context, tx *sql.Tx, edges []*graph.Edge) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO edges
		(seq, source, target, file_path, line, col, kind, is_resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range edges {
		if _, err := stmt.ExecContext(ctx, i+1, e.Source, e.Target, e.CallSite.FilePath,
			e.CallSite.Line, e.CallSite.Column, string(e.Kind), e.IsResolved); err != nil {
			return fmt.Errorf("inserting edge %s -> %s: %w", e.Source, e.Target, err)
		}
	}
	return nil
}
