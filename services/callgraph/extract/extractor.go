// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract turns a parsed Python file into call-graph nodes.
package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/callgraph/services/callgraph/ast"
	"github.com/AleutianAI/callgraph/services/callgraph/graph"
)

var tracer = otel.Tracer("callgraph.extract")

// ConstructorName is the method name that makes a class member a constructor.
const ConstructorName = "__init__"

// Option configures an Extractor.
type Option func(*Extractor)

// WithEntryKeywords replaces the decorator keywords that mark entry points.
func WithEntryKeywords(keywords []string) Option {
	return func(e *Extractor) {
		if len(keywords) > 0 {
			e.entryKeywords = keywords
		}
	}
}

// WithReceiverNames replaces the names auto-used as a method's first parameter.
func WithReceiverNames(names []string) Option {
	return func(e *Extractor) {
		if len(names) > 0 {
			e.receiverNames = names
		}
	}
}

// Extractor finds every function-like definition in a file.
//
// Thread Safety:
//
//	Safe for concurrent use; an Extractor holds only configuration.
type Extractor struct {
	entryKeywords []string
	receiverNames []string
}

// NewExtractor creates an Extractor with the default keyword sets.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		entryKeywords: DefaultEntryKeywords,
		receiverNames: DefaultReceiverNames,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Definition pairs an extracted node with the body it was extracted from.
//
// Body is only valid while the owning ParsedFile is open.
type Definition struct {
	Node *graph.Node
	Body *sitter.Node
}

// Definitions extracts one Definition per function_definition in f.
//
// Description:
//
//	Covers top-level functions, methods, async functions, functions nested
//	in other functions and methods of nested classes, in source order.
//	Enclosing classes come from a single pre-pass over the tree.
//
// Inputs:
//   - ctx: Used for tracing only; extraction is not interruptible.
//   - f: A successfully parsed file.
//
// Outputs:
//   - []Definition: Never nil.
func (e *Extractor) Definitions(ctx context.Context, f *ast.ParsedFile) []Definition {
	_, span := tracer.Start(ctx, "Extractor.Definitions",
		trace.WithAttributes(attribute.String("file", f.Path)))
	defer span.End()

	classes := buildClassIndex(f)
	pkg := packageOf(f.Path)

	defs := make([]Definition, 0, 16)
	ast.Walk(f.Root(), func(n *sitter.Node) bool {
		if n.Type() == "function_definition" {
			defs = append(defs, Definition{
				Node: e.buildNode(f, n, classes, pkg),
				Body: n.ChildByFieldName("body"),
			})
		}
		return true
	})

	span.SetAttributes(
		attribute.Int("definitions", len(defs)),
		attribute.Int("class_members", len(classes)),
	)
	return defs
}

// Extract returns the nodes of f in source order.
func (e *Extractor) Extract(ctx context.Context, f *ast.ParsedFile) []*graph.Node {
	defs := e.Definitions(ctx, f)
	nodes := make([]*graph.Node, len(defs))
	for i, d := range defs {
		nodes[i] = d.Node
	}
	return nodes
}

func (e *Extractor) buildNode(f *ast.ParsedFile, def *sitter.Node, classes classIndex, pkg string) *graph.Node {
	name := f.Text(def.ChildByFieldName("name"))
	className, inClass := classes.enclosing(def)

	kind := graph.KindFunction
	qualified := name
	if inClass {
		kind = graph.KindMethod
		if name == ConstructorName {
			kind = graph.KindConstructor
		}
		qualified = className + "." + name
	}

	params, unused := AnalyzeParameters(f, def, inClass, e.receiverNames)
	decorators := decoratorNames(f, def)

	start := ast.Line(def.StartPoint())
	end := ast.EndLine(def)

	return &graph.Node{
		ID:               f.Path + ":" + qualified,
		Name:             name,
		QualifiedName:    qualified,
		FilePath:         f.Path,
		StartLine:        start,
		EndLine:          end,
		Language:         graph.LanguagePython,
		Kind:             kind,
		Visibility:       VisibilityOf(name),
		IsEntryPoint:     isEntryPoint(decorators, e.entryKeywords),
		Parameters:       params,
		UnusedParameters: unused,
		PackageOrModule:  pkg,
		LinesOfCode:      end - start + 1,
		Status:           graph.DefaultStatus,
		Color:            graph.DefaultColor,
		Decorators:       decorators,
	}
}

// VisibilityOf classifies a definition name by prefix convention.
//
//	__name   (no trailing "__") -> private
//	_name, __dunder__           -> module
//	anything else               -> exported
func VisibilityOf(name string) graph.Visibility {
	switch {
	case !strings.HasPrefix(name, "_"):
		return graph.VisibilityExported
	case strings.HasPrefix(name, "__") && !strings.HasSuffix(name, "__"):
		return graph.VisibilityPrivate
	default:
		return graph.VisibilityModule
	}
}

// packageOf returns the directory part of a slash-separated path, or the
// root sentinel for files at the project root.
func packageOf(filePath string) string {
	p := strings.ReplaceAll(filePath, "\\", "/")
	i := strings.LastIndex(p, "/")
	switch {
	case i < 0:
		return graph.RootPackage
	case i == 0:
		return "/"
	default:
		return p[:i]
	}
}
