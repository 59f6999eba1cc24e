// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast turns Python source into tree-sitter syntax trees for the
// call-graph extractor.
package ast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.opentelemetry.io/otel/attribute"
)

// PythonParserOption configures a PythonParser instance.
type PythonParserOption func(*PythonParser)

// WithMaxFileSize sets the maximum file size the parser will accept.
// Non-positive values are ignored.
func WithMaxFileSize(bytes int64) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(logger *slog.Logger) PythonParserOption {
	return func(p *PythonParser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// PythonParser parses Python source into a syntax tree.
//
// Description:
//
//	Tree-sitter is error tolerant and always produces a tree. PythonParser
//	is not: any ERROR or MISSING node makes Parse fail with ErrSyntax so
//	that a partially parseable file contributes nothing downstream.
//
// Thread Safety:
//
//	Safe for concurrent use. Each Parse call creates its own tree-sitter
//	parser instance.
type PythonParser struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewPythonParser creates a PythonParser with the given options.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParsedFile is a successfully parsed source file.
//
// Description:
//
//	Owns the tree-sitter tree. Nodes obtained from Root are only valid
//	until Close is called.
type ParsedFile struct {
	// Path is the file path relative to the project root, as requested.
	Path string

	// Content is the raw source.
	Content []byte

	// Hash is the hex SHA-256 of Content.
	Hash string

	tree *sitter.Tree
}

// Root returns the module node.
func (f *ParsedFile) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Text returns the source text spanned by n.
func (f *ParsedFile) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(f.Content[n.StartByte():n.EndByte()])
}

// Close releases the underlying tree. Safe to call more than once.
func (f *ParsedFile) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// Parse parses Python source code.
//
// Description:
//
//	Validates size and encoding, runs tree-sitter, and rejects any tree
//	with syntax errors.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//   - content: Raw Python source bytes.
//   - filePath: Path used for diagnostics and carried on the result.
//
// Outputs:
//   - *ParsedFile: The parsed file. The caller must Close it.
//   - error: Wraps ErrFileTooLarge, ErrInvalidContent or ErrSyntax, or a
//     context error.
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *PythonParser) Parse(ctx context.Context, content []byte, filePath string) (result *ParsedFile, err error) {
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()
	defer func() { finishParse(span, start, len(content), err) }()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if len(content) > WarnFileSize {
		p.logger.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidContent, filePath)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("tree-sitter returned nil root node for %s", filePath)
	}
	if root.HasError() {
		row, col := firstErrorPoint(root)
		tree.Close()
		return nil, fmt.Errorf("%w: %s near line %d column %d", ErrSyntax, filePath, row+1, col+1)
	}

	if legacy := findLegacyStatement(root); legacy != nil {
		pt := legacy.StartPoint()
		tree.Close()
		return nil, fmt.Errorf("%w: %s: python 2 %s near line %d column %d",
			ErrSyntax, filePath, legacy.Type(), pt.Row+1, pt.Column+1)
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	sum := sha256.Sum256(content)
	span.SetAttributes(attribute.Int("top_level_statements", int(root.NamedChildCount())))

	return &ParsedFile{
		Path:    filePath,
		Content: content,
		Hash:    hex.EncodeToString(sum[:]),
		tree:    tree,
	}, nil
}

// firstErrorPoint locates the first ERROR or MISSING node in pre-order.
// Returns the root's start point when none is found.
func firstErrorPoint(root *sitter.Node) (uint32, uint32) {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type() == "ERROR" || n.IsMissing() {
			pt := n.StartPoint()
			return pt.Row, pt.Column
		}
		if !n.HasError() {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if c := n.Child(i); c != nil {
				stack = append(stack, c)
			}
		}
	}
	pt := root.StartPoint()
	return pt.Row, pt.Column
}

// legacyStatements are Python 2 forms the grammar still accepts but
// Python 3 rejects.
var legacyStatements = map[string]struct{}{
	"print_statement": {},
	"exec_statement":  {},
}

// findLegacyStatement returns the first Python 2 only statement under root,
// or nil.
func findLegacyStatement(root *sitter.Node) *sitter.Node {
	var found *sitter.Node
	Walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if _, ok := legacyStatements[n.Type()]; ok {
			found = n
			return false
		}
		return true
	})
	return found
}
