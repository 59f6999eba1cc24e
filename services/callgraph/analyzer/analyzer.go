// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer runs the two-pass call-graph analysis over a request.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/callgraph/services/callgraph/ast"
	"github.com/AleutianAI/callgraph/services/callgraph/config"
	"github.com/AleutianAI/callgraph/services/callgraph/extract"
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
	"github.com/AleutianAI/callgraph/services/callgraph/resolve"
	"github.com/AleutianAI/callgraph/services/callgraph/symtab"
)

// DefaultParseCacheSize is used when no config is given.
const DefaultParseCacheSize = 512

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConfig applies parser, extraction, resolution and cache settings.
func WithConfig(cfg *config.Config) Option {
	return func(a *Analyzer) {
		a.cfg = cfg
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Analyzer builds call graphs.
//
// Thread Safety:
//
//	Safe for concurrent use. Every run owns its symbol table, cache and
//	assembler; the Analyzer itself holds only configuration.
type Analyzer struct {
	cfg       *config.Config
	logger    *slog.Logger
	parser    *ast.PythonParser
	extractor *extract.Extractor
	resolver  *resolve.Resolver
	cacheSize int
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		logger:    slog.Default(),
		cacheSize: DefaultParseCacheSize,
	}
	for _, opt := range opts {
		opt(a)
	}

	parserOpts := []ast.PythonParserOption{ast.WithLogger(a.logger)}
	var extractOpts []extract.Option
	var resolveOpts []resolve.Option
	if a.cfg != nil {
		parserOpts = append(parserOpts, ast.WithMaxFileSize(a.cfg.Parser.MaxFileSizeBytes))
		extractOpts = append(extractOpts,
			extract.WithEntryKeywords(a.cfg.Extraction.EntryKeywords),
			extract.WithReceiverNames(a.cfg.Extraction.ReceiverNames),
		)
		resolveOpts = append(resolveOpts,
			resolve.WithExtraBuiltins(a.cfg.Resolution.ExtraBuiltins),
			resolve.WithPreferSamePackage(a.cfg.Resolution.PreferSamePackage),
		)
		if a.cfg.Analyzer.ParseCacheSize > 0 {
			a.cacheSize = a.cfg.Analyzer.ParseCacheSize
		}
	}

	a.parser = ast.NewPythonParser(parserOpts...)
	a.extractor = extract.NewExtractor(extractOpts...)
	a.resolver = resolve.NewResolver(resolveOpts...)
	return a
}

// Stats describes one run. Stats never appear in the response.
type Stats struct {
	RunID string

	FilesRequested  int
	FilesParsed     int
	FilesUnreadable int
	FilesFailed     int

	Nodes int
	Edges int

	// Reparsed counts files parsed again in pass 2 after cache eviction.
	Reparsed int

	Resolution resolve.Stats
	Duration   time.Duration
}

// Result is a graph plus the statistics of the run that built it.
type Result struct {
	Graph *graph.Graph
	Stats Stats
}

// Analyze builds the call graph for req.
func (a *Analyzer) Analyze(ctx context.Context, req *Request) (*graph.Graph, error) {
	res, err := a.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Graph, nil
}

// Run builds the call graph for req and reports run statistics.
//
// Description:
//
//	Pass 1 reads, parses and extracts every file in request order and
//	fills the symbol table. Pass 2 starts only after pass 1 has finished
//	and resolves the calls of every file that survived pass 1, again in
//	request order. A file that is missing, unreadable or fails to parse
//	is dropped from both passes without any trace in the graph.
//
// Inputs:
//   - ctx: Checked between files. Cancellation aborts the run.
//   - req: The request. Validated before any file is read.
//
// Outputs:
//   - *Result: The graph and its statistics.
//   - error: Wraps ErrMalformedRequest for an invalid request, or a
//     context error. Per-file failures never surface here.
func (a *Analyzer) Run(ctx context.Context, req *Request) (*Result, error) {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "Analyzer.Run",
		trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, failSpan(span, err)
	}
	span.SetAttributes(
		attribute.String("project_root", req.ProjectRoot),
		attribute.Int("files", len(req.Files)),
	)

	logger := a.logger.With(slog.String("run_id", runID))
	start := time.Now()

	cache, err := newParseCache(a.cacheSize)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("creating parse cache: %w", err))
	}
	defer cache.purge()

	stats := Stats{RunID: runID, FilesRequested: len(req.Files)}
	table := symtab.NewTable()
	asm := graph.NewAssembler()
	dropped := make(map[string]struct{})

	// Pass 1: every definition of every file enters the table before any
	// call is resolved.
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, failSpan(span, err)
		}
		if _, skip := dropped[file]; skip {
			continue
		}
		src, ok := cache.get(file)
		if !ok {
			var outcome string
			src, outcome, err = a.load(ctx, req.ProjectRoot, file)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, failSpan(span, ctxErr)
				}
				dropped[file] = struct{}{}
				stats.countFailure(outcome)
				logger.Debug("file dropped",
					slog.String("file", file),
					slog.String("reason", outcome),
					slog.String("error", err.Error()),
				)
				continue
			}
			stats.FilesParsed++
			cache.add(file, src)
		}
		for _, def := range src.defs {
			table.Add(def.Node)
			asm.AddNodes(def.Node)
		}
	}

	// Pass 2.
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, failSpan(span, err)
		}
		if _, skip := dropped[file]; skip {
			continue
		}
		edges, fileStats, ok := a.resolveFile(ctx, cache, req.ProjectRoot, file, table, &stats)
		if !ok {
			logger.Debug("file unavailable in pass 2", slog.String("file", file))
			continue
		}
		asm.AddEdges(edges...)
		stats.Resolution.Merge(fileStats)
	}

	g := asm.Build()
	stats.Nodes = g.NodeCount()
	stats.Edges = g.EdgeCount()
	stats.Duration = time.Since(start)
	recordRun(&stats)

	if dup := table.Duplicates(); dup > 0 {
		logger.Debug("duplicate definition ids", slog.Int("count", dup))
	}
	if amb := stats.Resolution.Ambiguous; amb > 0 {
		logger.Debug("short-name calls resolved among several candidates", slog.Int("count", amb))
	}
	logger.Info("call graph built",
		slog.String("project_root", req.ProjectRoot),
		slog.Int("files_requested", stats.FilesRequested),
		slog.Int("files_parsed", stats.FilesParsed),
		slog.Int("files_dropped", stats.FilesUnreadable+stats.FilesFailed),
		slog.Int("nodes", stats.Nodes),
		slog.Int("edges", stats.Edges),
		slog.Int("calls", stats.Resolution.Calls),
		slog.Int("unresolved", stats.Resolution.Unresolved),
		slog.Duration("duration", stats.Duration),
	)
	span.SetAttributes(
		attribute.Int("files_parsed", stats.FilesParsed),
		attribute.Int("nodes", stats.Nodes),
		attribute.Int("edges", stats.Edges),
	)
	return &Result{Graph: g, Stats: stats}, nil
}

// load reads, parses and extracts one file. The returned outcome labels
// the failure when err is non-nil.
func (a *Analyzer) load(ctx context.Context, projectRoot, file string) (*parsedSource, string, error) {
	content, err := readSource(projectRoot, file)
	if err != nil {
		return nil, fileUnreadable, err
	}
	f, err := a.parser.Parse(ctx, content, file)
	if err != nil {
		return nil, fileParseError, err
	}
	return &parsedSource{file: f, defs: a.extractor.Definitions(ctx, f)}, fileParsed, nil
}

// resolveFile resolves one file's calls, re-parsing it when it has left the
// cache. ok is false if the file can no longer be loaded.
func (a *Analyzer) resolveFile(ctx context.Context, cache *parseCache, projectRoot, file string, table *symtab.Table, stats *Stats) ([]*graph.Edge, resolve.Stats, bool) {
	src, ok := cache.get(file)
	if !ok {
		var err error
		src, _, err = a.load(ctx, projectRoot, file)
		if err != nil {
			return nil, resolve.Stats{}, false
		}
		defer src.file.Close()
		stats.Reparsed++
	}
	edges, fileStats := a.resolver.ResolveFile(ctx, src.file, src.defs, table)
	return edges, fileStats, true
}

func (s *Stats) countFailure(outcome string) {
	switch outcome {
	case fileUnreadable:
		s.FilesUnreadable++
	default:
		s.FilesFailed++
	}
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
