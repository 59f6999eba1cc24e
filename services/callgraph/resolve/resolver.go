// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve turns call expressions into call-graph edges using a
// fixed list of name-based strategies.
package resolve

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/callgraph/services/callgraph/ast"
	"github.com/AleutianAI/callgraph/services/callgraph/extract"
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
	"github.com/AleutianAI/callgraph/services/callgraph/symtab"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithExtraBuiltins adds callee names to the denylist.
func WithExtraBuiltins(names []string) Option {
	return func(r *Resolver) {
		for _, n := range names {
			if n != "" {
				r.denylist[n] = struct{}{}
			}
		}
	}
}

// WithPreferSamePackage selects the short-name policy. When false, the most
// recently inserted candidate always wins.
func WithPreferSamePackage(prefer bool) Option {
	return func(r *Resolver) {
		r.strategies = Strategies(prefer)
	}
}

// WithStrategies replaces the strategy list.
func WithStrategies(strategies []Strategy) Option {
	return func(r *Resolver) {
		if len(strategies) > 0 {
			r.strategies = strategies
		}
	}
}

// Resolver produces the edges of one file against a populated symbol table.
//
// Thread Safety:
//
//	Safe for concurrent use once constructed; it holds only configuration.
type Resolver struct {
	denylist   Denylist
	strategies []Strategy
}

// NewResolver creates a Resolver with the default builtins and strategies,
// preferring same-package candidates for short-name lookups.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		denylist:   NewDenylist(DefaultBuiltins),
		strategies: Strategies(true),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats counts call outcomes for one or more files.
type Stats struct {
	Calls      int
	Unnamed    int
	Builtin    int
	Unresolved int

	// Ambiguous counts short-name edges chosen among several candidates.
	Ambiguous int

	// SelfLoops counts calls resolved to their own caller, by strategy.
	SelfLoops map[string]int

	// ByStrategy counts emitted edges by winning strategy.
	ByStrategy map[string]int
}

// Edges returns the number of edges the stats describe.
func (s Stats) Edges() int {
	total := 0
	for _, n := range s.ByStrategy {
		total += n
	}
	return total
}

// Merge adds o into s.
func (s *Stats) Merge(o Stats) {
	s.Calls += o.Calls
	s.Unnamed += o.Unnamed
	s.Builtin += o.Builtin
	s.Unresolved += o.Unresolved
	s.Ambiguous += o.Ambiguous
	s.SelfLoops = mergeCounts(s.SelfLoops, o.SelfLoops)
	s.ByStrategy = mergeCounts(s.ByStrategy, o.ByStrategy)
}

func mergeCounts(dst, src map[string]int) map[string]int {
	if dst == nil {
		dst = make(map[string]int, len(src))
	}
	for k, v := range src {
		dst[k] += v
	}
	return dst
}

// Resolve applies the strategies in order and returns the first answer.
func (r *Resolver) Resolve(q Query, table *symtab.Table) (Resolution, bool) {
	for _, s := range r.strategies {
		if res, ok := s.Resolve(q, table); ok {
			return res, true
		}
	}
	return Resolution{}, false
}

// ResolveFile produces the edges for every call inside the given definitions.
//
// Description:
//
//	Each definition's body is scanned for call expressions, including calls
//	inside nested definitions, which therefore yield an edge from every
//	enclosing definition. Decorators and default values are outside the
//	body and are not scanned. Calls that cannot be named, are denylisted,
//	resolve to nothing, or resolve to the caller itself produce no edge.
//
// Inputs:
//   - ctx: Used for tracing only.
//   - f: The parsed file the definitions came from. Must still be open.
//   - defs: The file's definitions from extract.Extractor.Definitions.
//   - table: The fully populated symbol table.
//
// Outputs:
//   - []*graph.Edge: Edges in definition order, then call order. Never nil.
//   - Stats: Outcome counters for the file.
func (r *Resolver) ResolveFile(ctx context.Context, f *ast.ParsedFile, defs []extract.Definition, table *symtab.Table) ([]*graph.Edge, Stats) {
	_, span := tracer.Start(ctx, "Resolver.ResolveFile",
		trace.WithAttributes(
			attribute.String("file", f.Path),
			attribute.Int("definitions", len(defs)),
		))
	defer span.End()

	stats := Stats{
		SelfLoops:  make(map[string]int),
		ByStrategy: make(map[string]int),
	}
	edges := make([]*graph.Edge, 0, 16)

	for _, def := range defs {
		caller := def.Node
		ast.Walk(def.Body, func(n *sitter.Node) bool {
			if n.Type() != "call" {
				return true
			}
			stats.Calls++

			callee, ok := CalleeName(f, n)
			if !ok {
				stats.Unnamed++
				return true
			}
			if r.denylist.Contains(callee) {
				stats.Builtin++
				return true
			}

			res, ok := r.Resolve(Query{
				Callee:        callee,
				CallerID:      caller.ID,
				CallerFile:    f.Path,
				CallerPackage: caller.PackageOrModule,
			}, table)
			if !ok {
				stats.Unresolved++
				return true
			}
			if res.Target == caller.ID {
				stats.SelfLoops[res.Strategy]++
				return true
			}

			stats.ByStrategy[res.Strategy]++
			if res.Strategy == StrategyShortName && table.ShortNames().Ambiguous(callee) {
				stats.Ambiguous++
			}
			pt := n.StartPoint()
			edges = append(edges, &graph.Edge{
				Source: caller.ID,
				Target: res.Target,
				CallSite: graph.CallSite{
					FilePath: f.Path,
					Line:     ast.Line(pt),
					Column:   ast.Column(pt),
				},
				Kind:       res.Kind,
				IsResolved: true,
			})
			return true
		})
	}

	recordStats(stats)
	span.SetAttributes(
		attribute.Int("calls", stats.Calls),
		attribute.Int("edges", len(edges)),
		attribute.Int("unresolved", stats.Unresolved),
		attribute.Int("ambiguous", stats.Ambiguous),
	)
	return edges, stats
}
