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

// classIndex maps a function_definition's start byte to the name of the
// class whose immediate body holds it.
type classIndex map[uint32]string

// buildClassIndex computes enclosing classes in a single traversal.
//
// A definition belongs to a class only when it is a statement of the class
// body, either bare or wrapped in a decorated_definition. Functions nested
// inside methods have no enclosing class.
func buildClassIndex(f *ast.ParsedFile) classIndex {
	idx := make(classIndex)
	ast.Walk(f.Root(), func(n *sitter.Node) bool {
		if n.Type() != "class_definition" {
			return true
		}
		name := f.Text(n.ChildByFieldName("name"))
		body := n.ChildByFieldName("body")
		if name == "" || body == nil {
			return true
		}
		for i := 0; i < int(body.NamedChildCount()); i++ {
			if def := functionOf(body.NamedChild(i)); def != nil {
				idx[def.StartByte()] = name
			}
		}
		return true
	})
	return idx
}

// enclosing returns the class name for def, if any.
func (c classIndex) enclosing(def *sitter.Node) (string, bool) {
	name, ok := c[def.StartByte()]
	return name, ok
}

// functionOf returns the function_definition a statement declares, unwrapping
// decorators, or nil.
func functionOf(stmt *sitter.Node) *sitter.Node {
	if stmt == nil {
		return nil
	}
	switch stmt.Type() {
	case "function_definition":
		return stmt
	case "decorated_definition":
		def := stmt.ChildByFieldName("definition")
		if def != nil && def.Type() == "function_definition" {
			return def
		}
	}
	return nil
}
