// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/callgraph/services/callgraph/ast"
)

// storeContainers pass an assignment-target context through to their
// children, as in "a, (b, *c) = value".
var storeContainers = map[string]bool{
	"pattern_list":             true,
	"tuple_pattern":            true,
	"list_pattern":             true,
	"tuple":                    true,
	"list":                     true,
	"parenthesized_expression": true,
	"expression_list":          true,
	"list_splat_pattern":       true,
	"list_splat":               true,
	"as_pattern_target":        true,
}

// skippedStatements bind or declare names without reading them.
var skippedStatements = map[string]bool{
	"import_statement":        true,
	"import_from_statement":   true,
	"future_import_statement": true,
	"global_statement":        true,
	"nonlocal_statement":      true,
}

type usageEntry struct {
	node  *sitter.Node
	store bool
}

// readNames collects every identifier read as a value under root.
//
// Description:
//
//	Identifiers in store position are ignored: assignment and loop targets,
//	walrus names, "as" bindings, del targets, attribute names, keyword
//	argument names, and the names and parameters of nested definitions.
//	Nested bodies, lambdas, comprehensions and f-string interpolations are
//	all scanned. Scoping is not modelled, so a nested function reading a
//	name it shadows still counts as a read.
func readNames(f *ast.ParsedFile, root *sitter.Node) map[string]struct{} {
	reads := make(map[string]struct{})
	if root == nil {
		return reads
	}

	stack := make([]usageEntry, 0, 64)
	push := func(n *sitter.Node, store bool) {
		if n != nil {
			stack = append(stack, usageEntry{node: n, store: store})
		}
	}
	push(root, false)

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := e.node
		typ := n.Type()

		if skippedStatements[typ] {
			continue
		}

		switch typ {
		case "identifier":
			if !e.store {
				reads[f.Text(n)] = struct{}{}
			}

		case "attribute":
			push(n.ChildByFieldName("object"), false)

		case "keyword_argument":
			push(n.ChildByFieldName("value"), false)

		case "assignment":
			push(n.ChildByFieldName("left"), true)
			push(n.ChildByFieldName("right"), false)
			push(n.ChildByFieldName("type"), false)

		case "augmented_assignment":
			push(n.ChildByFieldName("left"), true)
			push(n.ChildByFieldName("right"), false)

		case "for_statement":
			push(n.ChildByFieldName("left"), true)
			push(n.ChildByFieldName("right"), false)
			push(n.ChildByFieldName("body"), false)
			push(n.ChildByFieldName("alternative"), false)

		case "for_in_clause":
			push(n.ChildByFieldName("left"), true)
			push(n.ChildByFieldName("right"), false)

		case "named_expression":
			push(n.ChildByFieldName("value"), false)

		case "delete_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				push(n.NamedChild(i), true)
			}

		case "function_definition":
			pushParameterReads(n.ChildByFieldName("parameters"), push)
			push(n.ChildByFieldName("return_type"), false)
			push(n.ChildByFieldName("body"), false)

		case "lambda":
			pushParameterReads(n.ChildByFieldName("parameters"), push)
			push(n.ChildByFieldName("body"), false)

		case "class_definition":
			push(n.ChildByFieldName("superclasses"), false)
			push(n.ChildByFieldName("body"), false)

		case "case_clause":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				switch child.Type() {
				case "if_clause", "block":
					push(child, false)
				case "comment":
				default:
					patternReads(f, child, reads)
				}
			}

		default:
			childStore := e.store && storeContainers[typ]
			afterAs := false
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				if child == nil {
					continue
				}
				if !child.IsNamed() {
					afterAs = child.Type() == "as"
					continue
				}
				push(child, childStore || afterAs)
				afterAs = false
			}
		}
	}
	return reads
}

// patternReads records the names a match pattern reads. Bare names are
// captures and keyword pattern names are attribute names; only dotted value
// patterns and class pattern classes read a name.
func patternReads(f *ast.ParsedFile, n *sitter.Node, reads map[string]struct{}) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		return

	case "dotted_name":
		if n.NamedChildCount() > 1 {
			reads[f.Text(n.NamedChild(0))] = struct{}{}
		}
		return

	case "class_pattern":
		if cls := n.NamedChild(0); cls != nil {
			reads[f.Text(cls.NamedChild(0))] = struct{}{}
		}
		for i := 1; i < int(n.NamedChildCount()); i++ {
			patternReads(f, n.NamedChild(i), reads)
		}
		return

	case "keyword_pattern":
		for i := 1; i < int(n.NamedChildCount()); i++ {
			patternReads(f, n.NamedChild(i), reads)
		}
		return

	case "as_pattern":
		patternReads(f, n.NamedChild(0), reads)
		return
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		patternReads(f, n.NamedChild(i), reads)
	}
}

// pushParameterReads queues the default values and annotations of a
// parameter list. Parameter names themselves are bindings.
func pushParameterReads(params *sitter.Node, push func(*sitter.Node, bool)) {
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "default_parameter":
			push(p.ChildByFieldName("value"), false)
		case "typed_parameter":
			push(p.ChildByFieldName("type"), false)
		case "typed_default_parameter":
			push(p.ChildByFieldName("type"), false)
			push(p.ChildByFieldName("value"), false)
		}
	}
}
