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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/callgraph/services/callgraph/ast"
)

// DefaultEntryKeywords mark a decorated definition as externally invoked
// when any decorator name contains one of them.
var DefaultEntryKeywords = []string{"route", "get", "post", "put", "delete", "command", "task"}

// decoratorNames resolves the decorators attached to def, in source order.
// Decorators with no resolvable name are omitted.
func decoratorNames(f *ast.ParsedFile, def *sitter.Node) []string {
	names := make([]string, 0)

	parent := def.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return names
	}

	for i := 0; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		if name := decoratorName(f, child.NamedChild(0)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// decoratorName maps a decorator expression to a name.
//
//	@name            -> "name"
//	@mod.attr        -> "mod.attr"
//	@a.b.attr        -> "attr"
//	@expr(...)       -> name of expr
//	anything else    -> ""
func decoratorName(f *ast.ParsedFile, expr *sitter.Node) string {
	expr = ast.Unparen(expr)
	if expr == nil {
		return ""
	}
	switch expr.Type() {
	case "identifier":
		return f.Text(expr)
	case "attribute":
		attr := f.Text(expr.ChildByFieldName("attribute"))
		obj := ast.Unparen(expr.ChildByFieldName("object"))
		if obj != nil && obj.Type() == "identifier" {
			return f.Text(obj) + "." + attr
		}
		return attr
	case "call":
		return decoratorName(f, expr.ChildByFieldName("function"))
	}
	return ""
}

// isEntryPoint reports whether any decorator name contains a keyword.
func isEntryPoint(decorators, keywords []string) bool {
	for _, d := range decorators {
		for _, kw := range keywords {
			if kw != "" && strings.Contains(d, kw) {
				return true
			}
		}
	}
	return false
}
